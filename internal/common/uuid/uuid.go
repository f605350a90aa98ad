// Package uuid wraps github.com/google/uuid. Request identifiers are time-ordered
// UUIDv7 values; session identifiers are random UUIDv4 values, the form that is safe to
// embed in workspace directory and artifact file names.
package uuid

import (
	"strings"

	"github.com/google/uuid"
)

// UUID represents a UUID, aliased from github.com/google/uuid.UUID
type UUID = uuid.UUID

// NewRandom returns a new UUIDv7 and any error encountered during generation.
func NewRandom() (UUID, error) {
	return uuid.NewV7()
}

// NewSessionID returns a new random UUIDv4 in canonical lowercase form.
func NewSessionID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// IsSessionID reports whether s is a canonical lowercase UUIDv4 string.
// Braced, URN and uppercase forms accepted by uuid.Parse are rejected.
func IsSessionID(s string) bool {
	if len(s) != 36 || strings.ToLower(s) != s {
		return false
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return u.Version() == 4 && u.Variant() == uuid.RFC4122
}
