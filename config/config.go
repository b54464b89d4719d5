// Package config loads the relay configuration from the environment.
//
// A .env file is read first when present; variables already set in the
// process environment win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	relay "github.com/sumup/orchestra-relay"
)

// Environment variable names.
const (
	EnvAPIKey                  = "ORCHESTRA_API_KEY"
	EnvAPIURL                  = "ORCHESTRA_API_URL"
	EnvTimeout                 = "ORCHESTRA_TIMEOUT"
	EnvPaymentGatewayAccountID = "PAYMENT_GATEWAY_ACCOUNT_ID"
	EnvEWalletAccountIDs       = "EWALLET_ACCOUNT_IDS"
	EnvCardPayAccountID        = "CARDPAY_ACCOUNT_ID"
	EnvGooglePayAccountID      = "GOOGLEPAY_ACCOUNT_ID"
	EnvApplePayAccountID       = "APPLEPAY_ACCOUNT_ID"
	EnvPayPalAccountID         = "PAYPAL_ACCOUNT_ID"
	EnvBankPayAccountID        = "BANKPAY_ACCOUNT_ID"
	EnvRegionalWalletAccountID = "REGIONAL_WALLET_ACCOUNT_ID"
	EnvMode                    = "MODE"
	EnvValidationMode          = "VALIDATION_MODE"
	EnvPort                    = "PORT"
	EnvSigningKey              = "RELAY_SIGNING_KEY"
	EnvRequireSigned           = "RELAY_REQUIRE_SIGNED"
)

const (
	DefaultPort    = 3000
	DefaultTimeout = 30 * time.Second
)

// Settings is everything the relay binary needs at startup.
type Settings struct {
	Relay           relay.Config
	Port            int
	UpstreamTimeout time.Duration
	SigningKey      []byte
	RequireSigned   bool
}

// Load reads files (default ".env") and then the process environment.
func Load(files ...string) (*Settings, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load env file: %w", err)
		}
		slog.Debug("no .env file found, using process environment")
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds [Settings] from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Settings, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := relay.DefaultConfig()
	cfg.APIKey = get(EnvAPIKey, relay.PlaceholderAPIKey)
	cfg.APIBaseURL = get(EnvAPIURL, relay.DefaultAPIBaseURL)
	cfg.PaymentGatewayAccountID = get(EnvPaymentGatewayAccountID, relay.PlaceholderGatewayAccountID)
	cfg.Mode = relay.Mode(strings.ToUpper(get(EnvMode, string(relay.ModeTest))))
	cfg.Wallets = relay.WalletAccounts{
		Card:           get(EnvCardPayAccountID, ""),
		GooglePay:      get(EnvGooglePayAccountID, ""),
		ApplePay:       get(EnvApplePayAccountID, ""),
		PayPal:         get(EnvPayPalAccountID, ""),
		BankPay:        get(EnvBankPayAccountID, ""),
		RegionalWallet: get(EnvRegionalWalletAccountID, ""),
		Extra:          splitList(get(EnvEWalletAccountIDs, "")),
	}

	switch mode := relay.ValidationMode(strings.ToLower(get(EnvValidationMode, string(relay.ValidationPermissive)))); mode {
	case relay.ValidationPermissive, relay.ValidationStrict:
		cfg.ValidationMode = mode
	default:
		return nil, fmt.Errorf("config: %s must be %q or %q, got %q", EnvValidationMode, relay.ValidationPermissive, relay.ValidationStrict, mode)
	}

	port, err := cast.ToIntE(get(EnvPort, cast.ToString(DefaultPort)))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("config: invalid %s", EnvPort)
	}
	timeout, err := cast.ToDurationE(get(EnvTimeout, DefaultTimeout.String()))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("config: invalid %s", EnvTimeout)
	}
	requireSigned, err := cast.ToBoolE(get(EnvRequireSigned, "false"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid %s: %w", EnvRequireSigned, err)
	}

	settings := &Settings{
		Relay:           cfg,
		Port:            port,
		UpstreamTimeout: timeout,
		RequireSigned:   requireSigned,
	}
	if key := get(EnvSigningKey, ""); key != "" {
		settings.SigningKey = []byte(key)
	}
	if settings.RequireSigned && len(settings.SigningKey) == 0 {
		return nil, fmt.Errorf("config: %s requires %s", EnvRequireSigned, EnvSigningKey)
	}
	return settings, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
