package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentNotFound signals a missing document. It is the only data
	// condition that aborts a projection.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrBlockNotFound describes a requested block absent from a document.
	// Projections report it as a diagnostic, never as a call error.
	ErrBlockNotFound = errors.New("block not found")
	// ErrSchemaMismatch signals an attribute value that cannot be coerced to its declared type.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrInvalidSchema signals an invalid schema definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrDuplicateSchema signals a block name or attribute registered twice.
	ErrDuplicateSchema = errors.New("duplicate schema registration")
	// ErrUnknownBlock signals a block name that is not registered.
	ErrUnknownBlock = errors.New("unknown block")
	// ErrInvalidFieldPath signals a malformed or unresolvable field path.
	ErrInvalidFieldPath = errors.New("invalid field path")
	// ErrInvalidDocumentID signals a malformed document identifier.
	ErrInvalidDocumentID = errors.New("invalid document ID")
	// ErrInvalidVersion signals a non-positive save version.
	ErrInvalidVersion = errors.New("invalid save version")
	// ErrMetadataWrite signals a failed metadata entry write.
	ErrMetadataWrite = errors.New("metadata write failed")
	// ErrBackendUnavailable signals that a store or document source could not be reached.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// MismatchError describes a value whose shape does not match the declared attribute type.
type MismatchError struct {
	Key  string
	Want string
	Got  string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: attribute %q wants %s, got %s", ErrSchemaMismatch.Error(), e.Key, e.Want, e.Got)
}

func (e *MismatchError) Unwrap() error { return ErrSchemaMismatch }

// NewMismatch creates a schema mismatch error for one attribute.
func NewMismatch(key, want, got string) error {
	return &MismatchError{Key: key, Want: want, Got: got}
}
