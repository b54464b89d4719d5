package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	relay "github.com/sumup/orchestra-relay"
	"github.com/sumup/orchestra-relay/config"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookupDefaults(t *testing.T) {
	settings, err := config.FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	cfg := settings.Relay
	require.Equal(t, relay.PlaceholderAPIKey, cfg.APIKey)
	require.False(t, cfg.HasAPIKey())
	require.False(t, cfg.HasPaymentGateway())
	require.Equal(t, relay.DefaultAPIBaseURL, cfg.APIBaseURL)
	require.Equal(t, relay.ModeTest, cfg.Mode)
	require.Equal(t, relay.ValidationPermissive, cfg.ValidationMode)
	require.Empty(t, cfg.EWalletAccountIDs())
	require.Equal(t, config.DefaultPort, settings.Port)
	require.Equal(t, config.DefaultTimeout, settings.UpstreamTimeout)
	require.Nil(t, settings.SigningKey)
}

func TestFromLookupWalletSlotsAndList(t *testing.T) {
	settings, err := config.FromLookup(lookupFrom(map[string]string{
		config.EnvAPIKey:                  "key_live",
		config.EnvMode:                    "live",
		config.EnvPayPalAccountID:         "pp-1",
		config.EnvCardPayAccountID:        "card-1",
		config.EnvGooglePayAccountID:      " ",
		config.EnvApplePayAccountID:       "ap-1",
		config.EnvRegionalWalletAccountID: "rw-1",
		config.EnvEWalletAccountIDs:       "extra-1, ,card-1,extra-2",
		config.EnvValidationMode:          "STRICT",
		config.EnvTimeout:                 "5s",
		config.EnvPort:                    "8080",
	}))
	require.NoError(t, err)

	cfg := settings.Relay
	require.True(t, cfg.HasAPIKey())
	require.Equal(t, relay.ModeLive, cfg.Mode)
	require.Equal(t, relay.ValidationStrict, cfg.ValidationMode)
	require.Equal(t, []string{"card-1", "ap-1", "pp-1", "rw-1", "extra-1", "extra-2"}, cfg.EWalletAccountIDs())
	require.Equal(t, 5*time.Second, settings.UpstreamTimeout)
	require.Equal(t, 8080, settings.Port)
}

func TestFromLookupRejectsBadValues(t *testing.T) {
	tests := map[string]map[string]string{
		"validation mode":       {config.EnvValidationMode: "sometimes"},
		"port":                  {config.EnvPort: "not-a-port"},
		"timeout":               {config.EnvTimeout: "-1s"},
		"require signed flag":   {config.EnvRequireSigned: "maybe"},
		"require signed no key": {config.EnvRequireSigned: "true"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.FromLookup(lookupFrom(env))
			require.Error(t, err)
		})
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.env")
	require.NoError(t, os.WriteFile(path, []byte("ORCHESTRA_API_KEY=from-file\nPAYMENT_GATEWAY_ACCOUNT_ID=psp-from-file\n"), 0o600))

	// Variables already present in the process win over the file.
	t.Setenv(config.EnvAPIKey, "from-process")
	t.Cleanup(func() { _ = os.Unsetenv(config.EnvPaymentGatewayAccountID) })

	settings, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-process", settings.Relay.APIKey)
	require.Equal(t, "psp-from-file", settings.Relay.PaymentGatewayAccountID)
	require.True(t, settings.Relay.HasPaymentGateway())
}

func TestLoadMissingFileFallsBackToProcessEnv(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "process-key")

	settings, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "process-key", settings.Relay.APIKey)
}
