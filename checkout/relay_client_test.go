package checkout_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	relay "github.com/sumup/orchestra-relay"
	"github.com/sumup/orchestra-relay/checkout"
	"github.com/sumup/orchestra-relay/signature"
)

func TestRelayClientErrorMessages(t *testing.T) {
	tests := map[string]struct {
		status int
		body   string
		want   string
	}{
		"details preferred": {
			status: http.StatusBadRequest,
			body:   `{"error":"Validation failed","details":"bad token"}`,
			want:   "bad token",
		},
		"error when no details": {
			status: http.StatusInternalServerError,
			body:   `{"error":"Internal server error"}`,
			want:   "Internal server error",
		},
		"fallback for non JSON": {
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			want:   "Validation failed",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := checkout.NewRelayClient(server.URL).ValidatePayment(context.Background(), "rt_1")

			var relayErr *checkout.RelayError
			require.True(t, errors.As(err, &relayErr))
			require.Equal(t, tt.status, relayErr.StatusCode)
			require.Equal(t, tt.want, relayErr.Message)
		})
	}
}

func TestRelayClientSignsRequests(t *testing.T) {
	key := []byte("k")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(signature.HeaderSignature) == "" || r.Header.Get(signature.HeaderTimestamp) == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"sessionToken":"tok_signed"}`))
	}))
	defer server.Close()

	token, err := checkout.NewRelayClient(server.URL+"/", checkout.WithSigningKey(key)).CreateSession(context.Background(), relay.SessionRequest{Currency: "EUR"})
	require.NoError(t, err)
	require.Equal(t, "tok_signed", token)
}

func TestRelayClientSendsNumericAmount(t *testing.T) {
	bodies := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		bodies <- string(raw)
		_, _ = w.Write([]byte(`{"sessionToken":"tok_1"}`))
	}))
	defer server.Close()

	_, err := checkout.NewRelayClient(server.URL).CreateSession(context.Background(), checkout.DemoSessionRequest)
	require.NoError(t, err)

	body := <-bodies
	require.Contains(t, body, `"amount":49.99`)
	require.JSONEq(t, `{"amount":49.99,"currency":"USD","countryCode":"US"}`, body)
}

func TestRelayClientOmitsMissingAmount(t *testing.T) {
	raw, err := json.Marshal(relay.SessionRequest{Currency: "EUR"})
	require.NoError(t, err)
	require.JSONEq(t, `{"currency":"EUR"}`, string(raw))
}

func TestRelayClientAgainstHandler(t *testing.T) {
	cfg := relay.DefaultConfig()
	cfg.Mode = relay.ModeLive
	cfg.ValidationMode = relay.ValidationStrict
	server := httptest.NewServer(relay.NewHandler(cfg, &stubOrchestrator{}))
	defer server.Close()

	client := checkout.NewRelayClient(server.URL)
	status, err := client.Config(context.Background())
	require.NoError(t, err)
	require.Equal(t, relay.ModeLive, status.Mode)
	require.Equal(t, relay.ValidationStrict, status.ValidationMode)
	require.False(t, status.HasAPIKey)

	_, err = client.CreateSession(context.Background(), relay.SessionRequest{Currency: "NOPE"})
	var relayErr *checkout.RelayError
	require.True(t, errors.As(err, &relayErr))
	require.Equal(t, http.StatusBadRequest, relayErr.StatusCode)
	require.Equal(t, "currency must be an ISO-4217 currency code", relayErr.Message)
}
