package oracle

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cashpeg/pegvault/internal/domain"
)

// PayloadSize is the fixed length of an encoded price message: four
// little-endian uint32 fields, no padding, no version tag.
const PayloadSize = 16

// DefaultPriceScale is the reference policy's price scale: priceRaw
// carries hundredths of a quote unit. The scale is deployment
// configuration, never part of the wire payload.
const DefaultPriceScale = 100

var (
	// ErrMalformedPayload indicates a payload of the wrong length.
	ErrMalformedPayload = errors.New("malformed oracle payload")
	// ErrInvalidField indicates a field that does not fit the wire format.
	ErrInvalidField = errors.New("oracle field out of range")
)

// Quote is one decoded oracle price observation.
type Quote struct {
	Timestamp       uint32 `json:"timestamp"`
	MessageSequence uint32 `json:"messageSequence"`
	DataSequence    uint32 `json:"dataSequence"`
	PriceRaw        uint32 `json:"priceRaw"`
	// PriceScale is supplied by the caller at decode time.
	PriceScale int64 `json:"priceScale"`
}

// Decode parses a 16-byte oracle payload. A non-positive priceScale
// falls back to DefaultPriceScale.
func Decode(payload []byte, priceScale int64) (Quote, error) {
	if len(payload) != PayloadSize {
		return Quote{}, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedPayload, len(payload), PayloadSize)
	}
	if priceScale <= 0 {
		priceScale = DefaultPriceScale
	}
	return Quote{
		Timestamp:       binary.LittleEndian.Uint32(payload[0:4]),
		MessageSequence: binary.LittleEndian.Uint32(payload[4:8]),
		DataSequence:    binary.LittleEndian.Uint32(payload[8:12]),
		PriceRaw:        binary.LittleEndian.Uint32(payload[12:16]),
		PriceScale:      priceScale,
	}, nil
}

// DecodeHex parses a hex-encoded oracle payload.
func DecodeHex(s string, priceScale int64) (Quote, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return Decode(b, priceScale)
}

// Encode serializes the quote into its 16-byte wire form.
func (q Quote) Encode() []byte {
	b := make([]byte, PayloadSize)
	binary.LittleEndian.PutUint32(b[0:4], q.Timestamp)
	binary.LittleEndian.PutUint32(b[4:8], q.MessageSequence)
	binary.LittleEndian.PutUint32(b[8:12], q.DataSequence)
	binary.LittleEndian.PutUint32(b[12:16], q.PriceRaw)
	return b
}

// NewQuote builds a Quote from pre-scaled integer fields, rejecting any
// value outside the unsigned 32-bit wire range.
func NewQuote(timestamp, messageSeq, dataSeq, priceRaw, priceScale int64) (Quote, error) {
	for _, f := range []struct {
		name  string
		value int64
	}{
		{"timestamp", timestamp},
		{"messageSequence", messageSeq},
		{"dataSequence", dataSeq},
		{"priceRaw", priceRaw},
	} {
		if f.value < 0 || f.value > math.MaxUint32 {
			return Quote{}, fmt.Errorf("%w: %s = %d", ErrInvalidField, f.name, f.value)
		}
	}
	if priceScale <= 0 {
		priceScale = DefaultPriceScale
	}
	return Quote{
		Timestamp:       uint32(timestamp),
		MessageSequence: uint32(messageSeq),
		DataSequence:    uint32(dataSeq),
		PriceRaw:        uint32(priceRaw),
		PriceScale:      priceScale,
	}, nil
}

// NewQuoteFromPrice builds a Quote from a human price, deriving
// priceRaw = round(priceValue * priceScale). Sub-unit precision beyond
// the scale is rounded away; a negative derived priceRaw is rejected.
func NewQuoteFromPrice(timestamp, messageSeq, dataSeq int64, priceValue float64, priceScale int64) (Quote, error) {
	if priceScale <= 0 {
		priceScale = DefaultPriceScale
	}
	raw := math.Round(priceValue * float64(priceScale))
	if raw < 0 || raw > math.MaxUint32 || math.IsNaN(raw) {
		return Quote{}, fmt.Errorf("%w: derived priceRaw %v from price %v", ErrInvalidField, raw, priceValue)
	}
	return NewQuote(timestamp, messageSeq, dataSeq, int64(raw), priceScale)
}

// HumanPrice renders priceRaw / priceScale as a decimal string.
func (q Quote) HumanPrice() string {
	return domain.FormatScaled(int64(q.PriceRaw), q.PriceScale)
}

// Time converts the wire timestamp to a time.Time.
func (q Quote) Time() time.Time {
	return time.Unix(int64(q.Timestamp), 0).UTC()
}
