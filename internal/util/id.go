package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a short random hex identifier, used where a full UUID would
// be overkill (realtime connection IDs).
func NewID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
