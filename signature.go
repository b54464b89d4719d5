package relay

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sumup/orchestra-relay/signature"
)

type signatureMiddlewareConfig struct {
	Verifier      signature.Verifier
	RequireSigned bool
	MaxClockSkew  time.Duration
	Clock         func() time.Time
}

func newSignatureMiddleware(cfg signatureMiddlewareConfig) Middleware {
	if cfg.Verifier == nil {
		return nil
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if rejection := cfg.check(r); rejection != nil {
				writeJSONError(w, rejection)
				return
			}
			next(w, r)
		}
	}
}

// check returns nil when r may proceed. Unsigned requests proceed unless
// signing is enforced.
func (cfg signatureMiddlewareConfig) check(r *http.Request) *Error {
	requestCtx := RequestContextFromContext(r.Context())
	if requestCtx == nil {
		requestCtx = requestContextFromRequest(r)
	}

	switch sig, stamp := requestCtx.Signature, requestCtx.Timestamp; {
	case sig == "" && stamp == "":
		if cfg.RequireSigned {
			return signatureRejection(http.StatusUnauthorized, SignatureRequired, "Signature and Timestamp headers are required")
		}
		return nil
	case sig == "" || stamp == "":
		return signatureRejection(http.StatusBadRequest, InvalidSignature, "Signature and Timestamp headers must both be provided")
	}

	material, rejection := cfg.material(r, requestCtx)
	if rejection != nil {
		return rejection
	}
	if err := cfg.Verifier.Verify(r.Context(), material); err != nil {
		return signatureRejection(http.StatusUnauthorized, InvalidSignature, "signature verification failed")
	}
	return nil
}

// material collects what the verifier needs, leaving the body readable for
// the route handler.
func (cfg signatureMiddlewareConfig) material(r *http.Request, requestCtx *RequestContext) (signature.Material, *Error) {
	ts, err := signature.ParseTimestamp(requestCtx.Timestamp)
	if err != nil {
		return signature.Material{}, signatureRejection(http.StatusBadRequest, InvalidSignature, "Timestamp must be RFC3339")
	}
	ts = ts.UTC()
	if skew := signature.AbsDuration(cfg.Clock().Sub(ts)); cfg.MaxClockSkew > 0 && skew > cfg.MaxClockSkew {
		return signature.Material{}, signatureRejection(http.StatusUnauthorized, StaleTimestamp, fmt.Sprintf("timestamp skew exceeds %s", cfg.MaxClockSkew))
	}

	raw, err := signature.ReadAndBufferBody(r)
	if err != nil {
		return signature.Material{}, NewInvalidRequestError("unable to read request body")
	}
	canonical, err := signature.CanonicalizeJSONBody(raw)
	if err != nil {
		return signature.Material{}, NewInvalidRequestError("request body must be valid JSON")
	}
	return signature.Material{
		Signature:     requestCtx.Signature,
		Timestamp:     ts,
		CanonicalBody: canonical,
		Method:        r.Method,
		Path:          r.URL.Path,
	}, nil
}

func signatureRejection(status int, code ErrorCode, details string) *Error {
	return NewHTTPError(status, MessageSignatureRejected, WithCode(code), WithDetails(details))
}
