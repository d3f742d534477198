package eventing

import (
	"crypto/rand"
	"encoding/hex"
)

// NewEventID generates a random identifier for an outbox envelope.
// The UUIDv4 bit layout keeps ids readable next to externally issued
// ones without pulling in a uuid dependency.
func NewEventID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return hex.EncodeToString(buf[:])
	}
	buf[6] = (buf[6] & 0x0f) | 0x40
	buf[8] = (buf[8] & 0x3f) | 0x80
	return hex.EncodeToString(buf[:])
}

func newEventID() string {
	return NewEventID()
}
