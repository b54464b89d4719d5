package relay

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sumup/orchestra-relay/signature"
)

func TestSignatureMiddlewareAllowsValidRequest(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	handler := NewHandler(testConfig(), &stubOrchestrator{}, WithSignatureVerifier(signature.HMACVerifier{Key: key}), withClock(func() time.Time {
		return ts.Add(30 * time.Second)
	}))

	body := []byte(`{"currency":"EUR","amount":10}`)
	canonical, err := signature.CanonicalizeJSONBody(body)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/create-session", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Signature", signFixture(key, ts, canonical))
	req.Header.Set("Timestamp", ts.Format(time.RFC3339Nano))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestSignatureMiddlewareSignerRoundTrip(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	handler := NewHandler(testConfig(), &stubOrchestrator{}, WithSignatureVerifier(signature.HMACVerifier{Key: key}), WithRequireSignedRequests())

	body := []byte(`{ "countryCode": "DE", "currency": "EUR" }`)
	req := httptest.NewRequest(http.MethodPost, "/api/create-session", bytes.NewReader(body))
	if err := (signature.Signer{Key: key}).Apply(req, body); err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestSignatureMiddlewareKeepsBodyForHandler(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	stub := &stubOrchestrator{}
	handler := NewHandler(testConfig(), stub, WithSignatureVerifier(signature.HMACVerifier{Key: key}))

	body := []byte(`{"currency":"gbp","countryCode":"GB","amount":12}`)
	req := httptest.NewRequest(http.MethodPost, "/api/create-session", bytes.NewReader(body))
	if err := (signature.Signer{Key: key}).Apply(req, body); err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", rec.Code, rec.Body.String())
	}
	if stub.lastCreate.CurrencyCode != "GBP" || stub.lastCreate.Amount.String() != "12" {
		t.Fatalf("signed body not seen by handler: %+v", stub.lastCreate)
	}
}

func TestSignatureMiddlewareRejectsSignedNonJSON(t *testing.T) {
	t.Parallel()

	ts := time.Now().UTC()
	handler := NewHandler(testConfig(), &stubOrchestrator{}, WithSignatureVerifier(signature.HMACVerifier{Key: []byte("secret")}))

	req := httptest.NewRequest(http.MethodPost, "/api/create-session", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Signature", "abc")
	req.Header.Set("Timestamp", ts.Format(time.RFC3339Nano))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if got := decodeError(t, rec.Body.Bytes()); got.Details != "request body must be valid JSON" {
		t.Fatalf("unexpected error payload %+v", got)
	}
}

func TestSignatureMiddlewareRejectsInvalidSignature(t *testing.T) {
	t.Parallel()

	ts := time.Now().UTC()
	handler := NewHandler(testConfig(), &stubOrchestrator{}, WithSignatureVerifier(signature.HMACVerifier{Key: []byte("secret")}), withClock(func() time.Time {
		return ts
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/create-session", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Signature", "bogus")
	req.Header.Set("Timestamp", ts.Format(time.RFC3339Nano))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if want, got := "invalid_signature", getErrorCode(rec.Body.Bytes()); want != got {
		t.Fatalf("expected code %s got %s", want, got)
	}
}

func TestSignatureMiddlewareRejectsSkew(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	ts := time.Now().UTC()
	handler := NewHandler(testConfig(), &stubOrchestrator{}, WithSignatureVerifier(signature.HMACVerifier{Key: key}), WithMaxClockSkew(time.Minute), withClock(func() time.Time {
		return ts.Add(2 * time.Minute)
	}))

	body := []byte(`{"currency":"EUR"}`)
	canonical, err := signature.CanonicalizeJSONBody(body)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/create-session", bytes.NewReader(body))
	req.Header.Set("Signature", signFixture(key, ts, canonical))
	req.Header.Set("Timestamp", ts.Format(time.RFC3339Nano))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if want, got := "stale_timestamp", getErrorCode(rec.Body.Bytes()); want != got {
		t.Fatalf("expected code %s got %s", want, got)
	}
}

func TestSignatureMiddlewareHeaderCombinations(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		signature  string
		timestamp  string
		require    bool
		wantStatus int
		wantCode   string
	}{
		"unsigned allowed when optional": {
			wantStatus: http.StatusOK,
		},
		"unsigned rejected when enforced": {
			require:    true,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "signature_required",
		},
		"signature without timestamp": {
			signature:  "abc",
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_signature",
		},
		"malformed timestamp": {
			signature:  "abc",
			timestamp:  "yesterday",
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_signature",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			opts := []Option{WithSignatureVerifier(signature.HMACVerifier{Key: []byte("secret")})}
			if tt.require {
				opts = append(opts, WithRequireSignedRequests())
			}
			handler := NewHandler(testConfig(), &stubOrchestrator{}, opts...)

			req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
			if tt.signature != "" {
				req.Header.Set("Signature", tt.signature)
			}
			if tt.timestamp != "" {
				req.Header.Set("Timestamp", tt.timestamp)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d got %d, body=%s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantCode != "" {
				if got := getErrorCode(rec.Body.Bytes()); got != tt.wantCode {
					t.Fatalf("expected code %s got %s", tt.wantCode, got)
				}
			}
		})
	}
}

func TestNewHandlerPanicsWhenEnforcedWithoutVerifier(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewHandler(testConfig(), &stubOrchestrator{}, WithRequireSignedRequests())
}

func signFixture(key []byte, ts time.Time, canonical []byte) string {
	payload := signature.BuildSigningPayload(ts, canonical)
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
