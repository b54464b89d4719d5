package relay

import (
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const maxRequestBody = 1 << 20

// Handler wires the relay routes to an [Orchestrator].
type Handler struct {
	cfg          Config
	orchestrator Orchestrator
	mux          *http.ServeMux
	logger       *slog.Logger
}

// NewHandler builds a [Handler] backed by net/http's ServeMux.
func NewHandler(cfg Config, orchestrator Orchestrator, opts ...Option) *Handler {
	if orchestrator == nil {
		panic("relay: orchestrator is required")
	}
	o := options{
		maxClockSkew: 5 * time.Minute,
		clock:        time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&o)
	}
	if o.requireSignedRequests && o.signatureVerifier == nil {
		panic("relay: signature verifier required when signed requests are enforced")
	}
	h := &Handler{
		cfg:          cfg,
		orchestrator: orchestrator,
		mux:          http.NewServeMux(),
		logger:       o.logger.With(slog.String("component", "relay")),
	}
	var middleware []Middleware
	if mw := newSignatureMiddleware(signatureMiddlewareConfig{
		Verifier:      o.signatureVerifier,
		RequireSigned: o.requireSignedRequests,
		MaxClockSkew:  o.maxClockSkew,
		Clock:         o.clock,
	}); mw != nil {
		middleware = append(middleware, mw)
	}
	middleware = append(middleware, o.middleware...)
	middleware = append(middleware, h.recoverMiddleware)
	h.registerRoutes(middleware...)
	return h
}

// ServeHTTP satisfies http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestCtx := requestContextFromRequest(r)
	ctx := ContextWithRequestContext(r.Context(), requestCtx)
	w.Header().Set(RequestIDHeader, requestCtx.RequestID)
	h.mux.ServeHTTP(w, r.WithContext(ctx))
}

func (h *Handler) registerRoutes(middleware ...Middleware) {
	h.mux.HandleFunc("GET /api/config", applyMiddleware(h.handleConfig, middleware...))
	h.mux.HandleFunc("POST /api/create-session", applyMiddleware(h.handleCreateSession, middleware...))
	h.mux.HandleFunc("POST /api/validate-payment", applyMiddleware(h.handleValidatePayment, middleware...))

	// Method-less patterns lose to the ones above, so they only see wrong
	// methods and unknown paths.
	h.mux.HandleFunc("/api/config", methodNotAllowed(http.MethodGet+", "+http.MethodHead))
	h.mux.HandleFunc("/api/create-session", methodNotAllowed(http.MethodPost))
	h.mux.HandleFunc("/api/validate-payment", methodNotAllowed(http.MethodPost))
	h.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, NewHTTPError(http.StatusNotFound, MessageNotFound, WithDetails(r.URL.Path)))
	})
}

func methodNotAllowed(allowed string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allowed)
		writeJSONError(w, NewHTTPError(http.StatusMethodNotAllowed, MessageMethodNotAllowed, WithDetails(r.Method+" is not supported")))
	}
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.Status())
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeJSONError(w, NewInvalidRequestError(err.Error()))
		return
	}
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		writeJSONError(w, NewInvalidRequestError(err.Error()))
		return
	}
	session, err := h.orchestrator.CreateSession(r.Context(), NewChargeSessionRequest(h.cfg, req))
	if err != nil {
		h.logUpstreamFailure(r, "create session", err)
		writeServiceError(w, err, MessageSessionFailed)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{SessionToken: session.Token})
}

func (h *Handler) handleValidatePayment(w http.ResponseWriter, r *http.Request) {
	var req ValidatePaymentRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeJSONError(w, NewInvalidRequestError(err.Error()))
		return
	}
	if req.ResultToken == "" {
		writeJSONError(w, NewInvalidRequestError("resultToken is required"))
		return
	}
	result, err := h.orchestrator.ValidateResults(r.Context(), req.ResultToken)
	if err != nil {
		h.logUpstreamFailure(r, "validate payment", err)
		writeServiceError(w, err, MessageValidationFailed)
		return
	}
	writeRawJSON(w, http.StatusOK, result)
}

func (h *Handler) logUpstreamFailure(r *http.Request, op string, err error) {
	attrs := []any{slog.String("op", op)}
	if requestCtx := RequestContextFromContext(r.Context()); requestCtx != nil {
		attrs = append(attrs, slog.String("request_id", requestCtx.RequestID))
	}
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		attrs = append(attrs, slog.Int("status", upstreamErr.StatusCode), slog.String("body", upstreamErr.Body))
		h.logger.ErrorContext(r.Context(), "orchestra API error", attrs...)
		return
	}
	attrs = append(attrs, slog.Any("err", err))
	h.logger.ErrorContext(r.Context(), "orchestra request failed", attrs...)
}

// recoverMiddleware keeps a panicking request from taking the process down.
func (h *Handler) recoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.logger.ErrorContext(r.Context(), "handler panic", slog.Any("panic", rec), slog.String("path", r.URL.Path))
				writeJSONError(w, NewInternalError())
			}
		}()
		next(w, r)
	}
}
