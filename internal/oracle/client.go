package oracle

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Client fetches signed price payloads from an oracle relay over HTTP.
// Signature verification is the caller's concern; the client only
// decodes the payload.
type Client struct {
	baseURL    string
	publicKey  string
	priceScale int64
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	limiter    *rate.Limiter
}

// NewClient creates an oracle relay client. publicKey selects which
// oracle's message stream to read. minInterval throttles how often the
// relay is polled regardless of caller behavior.
func NewClient(baseURL, publicKey string, priceScale int64, maxRetries int, baseDelay, minInterval time.Duration) *Client {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Client{
		baseURL:    baseURL,
		publicKey:  publicKey,
		priceScale: priceScale,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// relayMessage is the relay's JSON envelope for one oracle publication.
type relayMessage struct {
	Message   string `json:"message"`   // hex-encoded 16-byte payload
	Signature string `json:"signature"` // hex-encoded, not verified here
	PublicKey string `json:"publicKey"`
}

// LatestQuote fetches and decodes the most recent oracle publication.
func (c *Client) LatestQuote(ctx context.Context) (Quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Quote{}, err
	}

	path := fmt.Sprintf("/api/v1/messages/latest?publicKey=%s", url.QueryEscape(c.publicKey))
	body, err := c.get(ctx, path)
	if err != nil {
		return Quote{}, err
	}

	var msg relayMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return Quote{}, fmt.Errorf("parsing relay response: %w", err)
	}

	payload, err := hex.DecodeString(msg.Message)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: relay message is not hex: %v", ErrMalformedPayload, err)
	}

	return Decode(payload, c.priceScale)
}

// get performs a GET request with exponential backoff on 429.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	fullURL := c.baseURL + path

	var lastErr error
	for attempt := range c.maxRetries + 1 {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("HTTP 429 at %s (attempt %d/%d)", fullURL, attempt+1, c.maxRetries+1)
			if attempt < c.maxRetries {
				delay := c.baseDelay * time.Duration(1<<uint(attempt))
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
				continue
			}
			return nil, lastErr
		}

		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, fullURL, string(body))
	}

	return nil, lastErr
}
