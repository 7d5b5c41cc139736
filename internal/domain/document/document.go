package document

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/blockfield/internal/domain"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:/-]+$`)

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 4 << 20 // 4MB

// Document is a saved document as seen by the core (immutable value object).
// Storage and versioning belong to the external document store.
type Document struct {
	id      string
	content string
	version int64
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_.:/-]+$, 1-256 chars. Version: > 0. Content: max 4MB, may be empty.
func New(id, content string, version int64) (Document, error) {
	if err := ValidateID(id); err != nil {
		return Document{}, err
	}
	if version <= 0 {
		return Document{}, fmt.Errorf("version %d: %w", version, domain.ErrInvalidVersion)
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}
	return Document{id: id, content: content, version: version}, nil
}

// ValidateID checks a document identifier.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("document ID is required: %w", domain.ErrInvalidDocumentID)
	}
	if len(id) > 256 {
		return fmt.Errorf("document ID too long (max 256): %w", domain.ErrInvalidDocumentID)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("document ID %q has invalid characters: %w", id, domain.ErrInvalidDocumentID)
	}
	return nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, content string, version int64) Document {
	return Document{id: id, content: content, version: version}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Content returns the serialized block tree.
func (d *Document) Content() string { return d.content }

// Version returns the save version.
func (d *Document) Version() int64 { return d.version }
