package oracle

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestDecodeReferenceVector(t *testing.T) {
	// Captured from a live oracle publication.
	q, err := DecodeHex("3a5c1f6907831500ed82150006ba0000", DefaultPriceScale)
	if err != nil {
		t.Fatalf("DecodeHex() error = %v", err)
	}

	if q.Timestamp != 1763662906 {
		t.Errorf("Timestamp = %d, want 1763662906", q.Timestamp)
	}
	if q.MessageSequence != 1409799 {
		t.Errorf("MessageSequence = %d, want 1409799", q.MessageSequence)
	}
	if q.DataSequence != 1409773 {
		t.Errorf("DataSequence = %d, want 1409773", q.DataSequence)
	}
	if q.PriceRaw != 47622 {
		t.Errorf("PriceRaw = %d, want 47622", q.PriceRaw)
	}
	if got := q.HumanPrice(); got != "476.22" {
		t.Errorf("HumanPrice() = %q, want %q", got, "476.22")
	}
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 15, 17, 32} {
		_, err := Decode(make([]byte, n), DefaultPriceScale)
		if !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("Decode(%d bytes) error = %v, want ErrMalformedPayload", n, err)
		}
	}
}

func TestDecodeRejectsBadHex(t *testing.T) {
	_, err := DecodeHex("not-hex", DefaultPriceScale)
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("DecodeHex(garbage) error = %v, want ErrMalformedPayload", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name                              string
		timestamp, msgSeq, dataSeq, price int64
	}{
		{"zeros", 0, 0, 0, 0},
		{"reference", 1763662906, 1409799, 1409773, 47622},
		{"max uint32", math.MaxUint32, math.MaxUint32, math.MaxUint32, math.MaxUint32},
		{"mixed", 1700000000, 1, 2, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQuote(tt.timestamp, tt.msgSeq, tt.dataSeq, tt.price, DefaultPriceScale)
			if err != nil {
				t.Fatalf("NewQuote() error = %v", err)
			}
			back, err := Decode(q.Encode(), DefaultPriceScale)
			if err != nil {
				t.Fatalf("Decode(Encode()) error = %v", err)
			}
			if back != q {
				t.Errorf("round trip = %+v, want %+v", back, q)
			}
		})
	}
}

func TestNewQuoteRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name                              string
		timestamp, msgSeq, dataSeq, price int64
	}{
		{"negative timestamp", -1, 0, 0, 0},
		{"timestamp overflow", math.MaxUint32 + 1, 0, 0, 0},
		{"negative messageSequence", 0, -5, 0, 0},
		{"dataSequence overflow", 0, 0, math.MaxUint32 + 1, 0},
		{"negative priceRaw", 0, 0, 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewQuote(tt.timestamp, tt.msgSeq, tt.dataSeq, tt.price, DefaultPriceScale)
			if !errors.Is(err, ErrInvalidField) {
				t.Errorf("NewQuote() error = %v, want ErrInvalidField", err)
			}
		})
	}
}

func TestNewQuoteFromPrice(t *testing.T) {
	q, err := NewQuoteFromPrice(1700000000, 1, 1, 476.22, 100)
	if err != nil {
		t.Fatalf("NewQuoteFromPrice() error = %v", err)
	}
	if q.PriceRaw != 47622 {
		t.Errorf("PriceRaw = %d, want 47622", q.PriceRaw)
	}

	// Rounding, not truncation.
	q, err = NewQuoteFromPrice(1700000000, 1, 1, 476.226, 100)
	if err != nil {
		t.Fatalf("NewQuoteFromPrice() error = %v", err)
	}
	if q.PriceRaw != 47623 {
		t.Errorf("PriceRaw = %d, want 47623 (rounded)", q.PriceRaw)
	}

	if _, err := NewQuoteFromPrice(1700000000, 1, 1, -0.02, 100); !errors.Is(err, ErrInvalidField) {
		t.Errorf("negative price error = %v, want ErrInvalidField", err)
	}
}

func TestEncodeLayout(t *testing.T) {
	q, err := NewQuote(0x01020304, 0x05060708, 0x090a0b0c, 0x0d0e0f10, DefaultPriceScale)
	if err != nil {
		t.Fatalf("NewQuote() error = %v", err)
	}
	want := []byte{
		0x04, 0x03, 0x02, 0x01,
		0x08, 0x07, 0x06, 0x05,
		0x0c, 0x0b, 0x0a, 0x09,
		0x10, 0x0f, 0x0e, 0x0d,
	}
	if got := q.Encode(); !bytes.Equal(got, want) {
		t.Errorf("Encode() = %x, want %x", got, want)
	}
}
