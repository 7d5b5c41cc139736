// Package metadata defines synchronized attribute entries and their key scheme.
package metadata

import (
	"strings"

	"github.com/kailas-cloud/blockfield/internal/domain/value"
)

// Entry is one synchronized value: (document, key) -> value at a save version.
//
// Keys are either "<block>.<attr>" for an attribute value or "<block>" for
// the presence marker of a block (a boolean). Block names never contain
// dots, so the two forms cannot collide.
type Entry struct {
	Key     string
	Value   value.Value
	Version int64
	// Mismatch is the schema mismatch message of an attribute whose block
	// value could not be typed. Value is null when it is set.
	Mismatch string
}

// AttributeKey returns the entry key of a block attribute.
func AttributeKey(blockName, attr string) string { return blockName + "." + attr }

// PresenceKey returns the entry key of a block's presence marker.
func PresenceKey(blockName string) string { return blockName }

// IsPresenceKey reports whether key is a presence marker key.
func IsPresenceKey(key string) bool { return !strings.Contains(key, ".") }

// Fresh reports whether the entry reflects the given document save version.
// An entry is stale when it predates the document's current version.
func (e Entry) Fresh(docVersion int64) bool { return e.Version >= docVersion }

// Set is the synchronized state of one document, keyed by entry key.
type Set map[string]Entry

// Lookup returns the entry for key if it exists and is fresh for docVersion.
func (s Set) Lookup(key string, docVersion int64) (Entry, bool) {
	e, ok := s[key]
	if !ok || !e.Fresh(docVersion) {
		return Entry{}, false
	}
	return e, true
}
