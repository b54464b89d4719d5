// Package signature signs and verifies relay requests with a shared key.
//
// A signature is the base64url (unpadded) HMAC-SHA256 of
// RFC3339Nano(timestamp) + "." + canonicalJSON(body). It travels in the
// Signature header next to a Timestamp header.
package signature

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	canonicaljson "github.com/gibson042/canonicaljson-go"
)

// Header names carrying the signature material.
const (
	HeaderSignature = "Signature"
	HeaderTimestamp = "Timestamp"
)

// Material captures the inputs needed to validate a signed request.
type Material struct {
	Signature     string
	Timestamp     time.Time
	CanonicalBody []byte
	Method        string
	Path          string
}

// Verifier validates the authenticity of incoming requests.
type Verifier interface {
	Verify(ctx context.Context, material Material) error
}

// VerifierFunc lifts bare functions into [Verifier].
type VerifierFunc func(ctx context.Context, material Material) error

// Verify delegates to the wrapped function.
func (f VerifierFunc) Verify(ctx context.Context, material Material) error {
	return f(ctx, material)
}

// HMACVerifier checks signatures produced by [Signer] with the same key.
type HMACVerifier struct {
	Key []byte
}

// Verify implements [Verifier] by recomputing the expected HMAC.
func (v HMACVerifier) Verify(_ context.Context, material Material) error {
	if len(v.Key) == 0 {
		return errors.New("signature: HMACVerifier requires a non-empty key")
	}
	decoded, err := base64.RawURLEncoding.DecodeString(material.Signature)
	if err != nil {
		return fmt.Errorf("signature: decode signature: %w", err)
	}
	if !hmac.Equal(decoded, mac(v.Key, material.Timestamp, material.CanonicalBody)) {
		return errors.New("signature: invalid signature")
	}
	return nil
}

// Signer attaches Signature and Timestamp headers to outbound requests.
type Signer struct {
	Key []byte
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Sign returns the header values for body at the current time.
func (s Signer) Sign(body []byte) (sig string, ts time.Time, err error) {
	if len(s.Key) == 0 {
		return "", time.Time{}, errors.New("signature: Signer requires a non-empty key")
	}
	canonical, err := CanonicalizeJSONBody(body)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signature: canonicalize body: %w", err)
	}
	now := time.Now
	if s.Clock != nil {
		now = s.Clock
	}
	ts = now().UTC()
	return Compute(s.Key, ts, canonical), ts, nil
}

// Apply signs body and sets the headers on req.
func (s Signer) Apply(req *http.Request, body []byte) error {
	sig, ts, err := s.Sign(body)
	if err != nil {
		return err
	}
	req.Header.Set(HeaderSignature, sig)
	req.Header.Set(HeaderTimestamp, ts.Format(time.RFC3339Nano))
	return nil
}

// Compute returns the encoded signature for an already canonical body.
func Compute(key []byte, ts time.Time, canonicalBody []byte) string {
	return base64.RawURLEncoding.EncodeToString(mac(key, ts, canonicalBody))
}

func mac(key []byte, ts time.Time, canonicalBody []byte) []byte {
	h := hmac.New(sha256.New, key)
	_, _ = h.Write(BuildSigningPayload(ts, canonicalBody))
	return h.Sum(nil)
}

// BuildSigningPayload constructs the byte string that is HMAC-signed.
func BuildSigningPayload(ts time.Time, canonicalBody []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(ts.UTC().Format(time.RFC3339Nano))
	buf.WriteByte('.')
	buf.Write(canonicalBody)
	return buf.Bytes()
}

// ReadAndBufferBody reads the request body while keeping it accessible for later handlers.
func ReadAndBufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		r.Body = io.NopCloser(bytes.NewReader(nil))
		return nil, nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	return raw, nil
}

// CanonicalizeJSONBody normalizes arbitrary JSON into canonical form. An
// empty body canonicalizes to null so that GET requests can be signed too.
func CanonicalizeJSONBody(raw []byte) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []byte("null"), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("signature: multiple JSON documents in body")
	}
	return canonicaljson.Marshal(payload)
}

// ParseTimestamp accepts Timestamp header values in RFC3339 or RFC3339Nano format.
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("signature: empty timestamp")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}

// AbsDuration returns the absolute value of the supplied duration.
func AbsDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
