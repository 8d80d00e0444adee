package oracle

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const testPayloadHex = "3a5c1f6907831500ed82150006ba0000"

func TestClientLatestQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("publicKey"); got != "02abc" {
			t.Errorf("publicKey = %q, want %q", got, "02abc")
		}
		fmt.Fprintf(w, `{"message":%q,"signature":"00","publicKey":"02abc"}`, testPayloadHex)
	}))
	defer server.Close()

	c := NewClient(server.URL, "02abc", DefaultPriceScale, 0, 0, 0)

	q, err := c.LatestQuote(context.Background())
	if err != nil {
		t.Fatalf("LatestQuote() error = %v", err)
	}
	if q.PriceRaw != 47622 {
		t.Errorf("PriceRaw = %d, want 47622", q.PriceRaw)
	}
	if q.MessageSequence != 1409799 {
		t.Errorf("MessageSequence = %d, want 1409799", q.MessageSequence)
	}
}

func TestClientRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprintf(w, `{"message":%q}`, testPayloadHex)
	}))
	defer server.Close()

	c := NewClient(server.URL, "02abc", DefaultPriceScale, 2, time.Millisecond, 0)

	if _, err := c.LatestQuote(context.Background()); err != nil {
		t.Fatalf("LatestQuote() error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("request count = %d, want 2", got)
	}
}

func TestClientGivesUpAfterMaxRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewClient(server.URL, "02abc", DefaultPriceScale, 1, time.Millisecond, 0)

	if _, err := c.LatestQuote(context.Background()); err == nil {
		t.Error("LatestQuote() expected error after exhausting retries, got nil")
	}
}

func TestClientRejectsNonHexMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":"zz-not-hex"}`)
	}))
	defer server.Close()

	c := NewClient(server.URL, "02abc", DefaultPriceScale, 0, 0, 0)

	if _, err := c.LatestQuote(context.Background()); err == nil {
		t.Error("LatestQuote() expected error for non-hex message, got nil")
	}
}

func TestClientRejectsTruncatedPayload(t *testing.T) {
	short := hex.EncodeToString(make([]byte, 8))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"message":%q}`, short)
	}))
	defer server.Close()

	c := NewClient(server.URL, "02abc", DefaultPriceScale, 0, 0, 0)

	if _, err := c.LatestQuote(context.Background()); err == nil {
		t.Error("LatestQuote() expected error for truncated payload, got nil")
	}
}
