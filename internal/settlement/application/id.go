package application

import (
	"crypto/rand"
	"encoding/hex"
)

// NewSettlementID generates a settlement identifier.
func NewSettlementID() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return "stl-" + hex.EncodeToString(buf)
}
