package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	relay "github.com/sumup/orchestra-relay"
	"github.com/sumup/orchestra-relay/signature"
)

const maxRelayResponse = 4 << 20

// Relay is the server side of the checkout as seen by the [Controller].
type Relay interface {
	Config(ctx context.Context) (*relay.ConfigStatus, error)
	CreateSession(ctx context.Context, req relay.SessionRequest) (string, error)
	ValidatePayment(ctx context.Context, resultToken string) (json.RawMessage, error)
}

// RelayError is a non-OK answer from the relay.
type RelayError struct {
	StatusCode int
	Message    string
}

func (e *RelayError) Error() string {
	return e.Message
}

// RelayClient talks to the relay endpoints over HTTP.
type RelayClient struct {
	base   string
	http   *http.Client
	signer *signature.Signer
}

// RelayClientOption customizes a [RelayClient].
type RelayClientOption func(*RelayClient)

// WithRelayHTTPClient replaces the HTTP client.
func WithRelayHTTPClient(hc *http.Client) RelayClientOption {
	return func(c *RelayClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithSigningKey signs every request with key.
func WithSigningKey(key []byte) RelayClientOption {
	return func(c *RelayClient) {
		if len(key) > 0 {
			c.signer = &signature.Signer{Key: key}
		}
	}
}

// NewRelayClient returns a client for the relay at base, e.g.
// "http://localhost:3000".
func NewRelayClient(base string, opts ...RelayClientOption) *RelayClient {
	c := &RelayClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// Config fetches GET /api/config.
func (c *RelayClient) Config(ctx context.Context) (*relay.ConfigStatus, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/config", nil, "Failed to load configuration")
	if err != nil {
		return nil, err
	}
	var status relay.ConfigStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &status, nil
}

// CreateSession posts to /api/create-session and returns the session token.
func (c *RelayClient) CreateSession(ctx context.Context, req relay.SessionRequest) (string, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/create-session", req, "Failed to create session")
	if err != nil {
		return "", err
	}
	var resp relay.SessionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode session: %w", err)
	}
	return resp.SessionToken, nil
}

// ValidatePayment posts a result token to /api/validate-payment.
func (c *RelayClient) ValidatePayment(ctx context.Context, resultToken string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/api/validate-payment", relay.ValidatePaymentRequest{ResultToken: resultToken}, "Validation failed")
}

func (c *RelayClient) do(ctx context.Context, method, path string, payload any, fallback string) (json.RawMessage, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.signer != nil {
		if err := c.signer.Apply(req, body); err != nil {
			return nil, err
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayResponse+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, newRelayError(resp.StatusCode, raw, fallback)
	}
	if len(raw) > maxRelayResponse {
		return nil, fmt.Errorf("%s %s: response exceeds %d bytes", method, path, maxRelayResponse)
	}
	return raw, nil
}

// newRelayError prefers details over error over the fallback text.
func newRelayError(status int, raw []byte, fallback string) *RelayError {
	var payload relay.Error
	if err := json.Unmarshal(raw, &payload); err == nil {
		switch {
		case payload.Details != "":
			return &RelayError{StatusCode: status, Message: payload.Details}
		case payload.Message != "":
			return &RelayError{StatusCode: status, Message: payload.Message}
		}
	}
	return &RelayError{StatusCode: status, Message: fallback}
}
