package store

import (
	"github.com/google/uuid"
)

// KeyGenerator synthesizes primary keys.
type KeyGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered primary keys.
//
// UUIDv7 combines a millisecond clock reading with random bits, so keys
// are collision-free across tables and sort by creation time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
