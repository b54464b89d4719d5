package relay

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// RequestIDHeader correlates a relay request with the upstream call it causes.
const RequestIDHeader = "Request-Id"

// RequestContext carries metadata of the inbound browser request.
type RequestContext struct {
	// Unique key for each request for tracing purposes. Generated when the
	// caller did not send one.
	//
	// Example: 3b2f0c1e-6a61-4f55-9a0e-0d6f8f3f6c11
	RequestID string
	// Information about the client making this request
	//
	// Example: Mozilla/5.0 (X11; Linux x86_64)
	UserAgent string
	// Base64url encoded signature of the request body
	Signature string
	// Formatted as an RFC 3339 string.
	//
	// Example: 2025-09-25T10:30:00Z
	Timestamp string
}

func requestContextFromRequest(r *http.Request) *RequestContext {
	requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
	if requestID == "" {
		requestID = strings.TrimSpace(r.Header.Get("X-Request-Id"))
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &RequestContext{
		RequestID: requestID,
		UserAgent: strings.TrimSpace(r.Header.Get("User-Agent")),
		Signature: strings.TrimSpace(r.Header.Get("Signature")),
		Timestamp: strings.TrimSpace(r.Header.Get("Timestamp")),
	}
}

type requestContextKey struct{}

// ContextWithRequestContext stores requestCtx on ctx.
func ContextWithRequestContext(ctx context.Context, requestCtx *RequestContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if requestCtx == nil {
		return ctx
	}
	return context.WithValue(ctx, requestContextKey{}, requestCtx)
}

// RequestContextFromContext extracts the HTTP request metadata previously stored in the context.
func RequestContextFromContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return nil
	}
	if requestCtx, ok := ctx.Value(requestContextKey{}).(*RequestContext); ok {
		return requestCtx
	}
	return nil
}
