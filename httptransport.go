package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// decodeJSON decodes an optional JSON body. An empty body leaves v untouched.
func decodeJSON(body io.ReadCloser, v any) error {
	if body == nil {
		return nil
	}
	defer func() { _ = body.Close() }()
	raw, err := io.ReadAll(io.LimitReader(body, maxRequestBody))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// writeServiceError renders err, keeping the upstream status when there is one.
func writeServiceError(w http.ResponseWriter, err error, message string) {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		writeJSONError(w, httpErr)
		return
	}
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		writeJSONError(w, NewHTTPError(upstreamErr.StatusCode, message, WithDetails(upstreamErr.Body)))
		return
	}
	writeJSONError(w, NewInternalError())
}

func writeJSONError(w http.ResponseWriter, payload *Error) {
	if payload == nil {
		payload = NewInternalError()
	}
	writeJSON(w, payload.StatusCode(), payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// writeRawJSON writes an already encoded JSON document untouched.
func writeRawJSON(w http.ResponseWriter, status int, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}
