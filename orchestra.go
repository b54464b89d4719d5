package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultUpstreamTimeout = 30 * time.Second

	// maxUpstreamBody bounds any upstream reply, successful or not.
	maxUpstreamBody = 4 << 20
	// maxErrorDetails bounds the upstream body echoed in error details.
	maxErrorDetails = 64 << 10
)

// Orchestrator is the upstream payment orchestration API as seen by the
// relay handlers.
type Orchestrator interface {
	CreateSession(ctx context.Context, req ChargeSessionRequest) (*Session, error)
	ValidateResults(ctx context.Context, resultToken string) (json.RawMessage, error)
}

// Client calls the Orchestra eWallet API with the configured API key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// ClientOption customizes a [Client].
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client used for upstream calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every upstream call. A client passed to
// [WithHTTPClient] is copied, not modified.
func WithTimeout(d time.Duration) ClientOption {
	if d <= 0 {
		panic("orchestra: timeout must be positive")
	}
	return func(c *Client) {
		c.timeout = d
	}
}

// WithClientLogger sets the logger used for upstream diagnostics.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds an upstream [Client] from cfg.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: cfg.baseURL(),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: defaultUpstreamTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// CreateSession opens a charge session and returns its token.
func (c *Client) CreateSession(ctx context.Context, req ChargeSessionRequest) (*Session, error) {
	raw, err := c.post(ctx, "/EWalletOperations", req)
	if err != nil {
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("orchestra: decode session: %w", err)
	}
	if session.Token == "" {
		return nil, errors.New("orchestra: session response carries no Token")
	}
	return &session, nil
}

// ValidateResults asks upstream to validate a widget result token. The
// upstream JSON is returned untouched.
func (c *Client) ValidateResults(ctx context.Context, resultToken string) (json.RawMessage, error) {
	raw, err := c.post(ctx, "/EWalletOperations/validateResults", validateResultsRequest{Token: resultToken})
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, errors.New("orchestra: validation response is not JSON")
	}
	return raw, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("orchestra: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("orchestra: build request: %w", err)
	}
	req.Header.Set("Authorization", "APIKEY "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestIDFrom(ctx))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("orchestra: POST %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody+1))
	if err != nil {
		return nil, fmt.Errorf("orchestra: read response: %w", err)
	}
	truncated := len(raw) > maxUpstreamBody
	c.logger.DebugContext(ctx, "orchestra call",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: errorDetails(raw)}
	}
	if truncated {
		return nil, fmt.Errorf("orchestra: POST %s: response exceeds %d bytes", path, maxUpstreamBody)
	}
	return raw, nil
}

// errorDetails trims an upstream error body to fit the details field.
func errorDetails(raw []byte) string {
	if len(raw) > maxErrorDetails {
		raw = raw[:maxErrorDetails]
	}
	return strings.TrimSpace(string(raw))
}

func requestIDFrom(ctx context.Context) string {
	if requestCtx := RequestContextFromContext(ctx); requestCtx != nil && requestCtx.RequestID != "" {
		return requestCtx.RequestID
	}
	return uuid.NewString()
}
