package domain

import (
	"encoding/hex"
	"fmt"
)

// Category identifies a CashTokens token category: the hex-encoded
// 32-byte hash of the category's genesis transaction.
type Category string

const categoryHexLen = 64

// Valid reports whether the category is well-formed (32 bytes of hex).
func (c Category) Valid() bool {
	if len(c) != categoryHexLen {
		return false
	}
	_, err := hex.DecodeString(string(c))
	return err == nil
}

// Commitment is the hex-encoded NFT commitment field. The protocol caps
// commitments at 40 bytes; an empty commitment is legal.
type Commitment string

const maxCommitmentBytes = 40

// Valid reports whether the commitment is well-formed hex within the
// protocol's length cap.
func (c Commitment) Valid() bool {
	b, err := hex.DecodeString(string(c))
	if err != nil {
		return false
	}
	return len(b) <= maxCommitmentBytes
}

// ParseCategory validates and returns a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("invalid token category %q: want %d hex characters", s, categoryHexLen)
	}
	return c, nil
}

// ParseCommitment validates and returns a Commitment.
func ParseCommitment(s string) (Commitment, error) {
	c := Commitment(s)
	if !c.Valid() {
		return "", fmt.Errorf("invalid commitment %q: want hex of at most %d bytes", s, maxCommitmentBytes)
	}
	return c, nil
}
