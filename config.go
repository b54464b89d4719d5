package relay

import (
	"log/slog"
	"strings"
)

// Placeholder values shipped in sample .env files. They count as unset.
const (
	PlaceholderAPIKey           = "your-api-key"
	PlaceholderGatewayAccountID = "your-psp-account"
)

// DefaultAPIBaseURL is the Orchestra API used when none is configured.
const DefaultAPIBaseURL = "https://service.pcibooking.net/api"

// Mode selects the upstream environment.
type Mode string

const (
	ModeTest Mode = "TEST"
	ModeLive Mode = "LIVE"
)

// ValidationMode controls whether the checkout client waits for server side
// validation before showing a successful payment.
type ValidationMode string

const (
	// ValidationPermissive shows the client side outcome immediately and
	// only logs the server validation.
	ValidationPermissive ValidationMode = "permissive"
	// ValidationStrict gates the success display on server validation.
	ValidationStrict ValidationMode = "strict"
)

// WalletAccounts holds the eWallet account ids configured per provider.
// Every slot is optional.
type WalletAccounts struct {
	Card           string
	GooglePay      string
	ApplePay       string
	PayPal         string
	BankPay        string
	RegionalWallet string
	// Extra carries ids from a single delimited list.
	Extra []string
}

// IDs returns the non-empty account ids, provider slots first, without
// duplicates.
func (w WalletAccounts) IDs() []string {
	candidates := append([]string{
		w.Card,
		w.GooglePay,
		w.ApplePay,
		w.PayPal,
		w.BankPay,
		w.RegionalWallet,
	}, w.Extra...)

	ids := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, id := range candidates {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Config is the process wide relay configuration. It is built once at
// startup and never mutated afterwards.
type Config struct {
	APIKey                  string
	APIBaseURL              string
	PaymentGatewayAccountID string
	Wallets                 WalletAccounts
	Mode                    Mode
	ValidationMode          ValidationMode
}

// DefaultConfig returns a configuration with every default applied and no
// credentials.
func DefaultConfig() Config {
	return Config{
		APIBaseURL:     DefaultAPIBaseURL,
		Mode:           ModeTest,
		ValidationMode: ValidationPermissive,
	}
}

// EWalletAccountIDs returns the ordered list of configured account ids.
func (c Config) EWalletAccountIDs() []string {
	return c.Wallets.IDs()
}

// HasAPIKey reports whether a real API key is configured.
func (c Config) HasAPIKey() bool {
	return c.APIKey != "" && c.APIKey != PlaceholderAPIKey
}

// HasPaymentGateway reports whether a real gateway account id is configured.
func (c Config) HasPaymentGateway() bool {
	return c.PaymentGatewayAccountID != "" && c.PaymentGatewayAccountID != PlaceholderGatewayAccountID
}

func (c Config) baseURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if base == "" {
		return DefaultAPIBaseURL
	}
	return base
}

func (c Config) mode() Mode {
	if c.Mode == "" {
		return ModeTest
	}
	return c.Mode
}

func (c Config) validationMode() ValidationMode {
	if c.ValidationMode == "" {
		return ValidationPermissive
	}
	return c.ValidationMode
}

// ConfigStatus is the non-secret view of [Config] served by GET /api/config.
type ConfigStatus struct {
	Mode                      Mode           `json:"mode"`
	HasAPIKey                 bool           `json:"hasApiKey"`
	HasPaymentGateway         bool           `json:"hasPaymentGateway"`
	EWalletAccountsConfigured int            `json:"eWalletAccountsConfigured"`
	ValidationMode            ValidationMode `json:"validationMode"`
}

// Status returns the presence-only view of the configuration.
func (c Config) Status() ConfigStatus {
	return ConfigStatus{
		Mode:                      c.mode(),
		HasAPIKey:                 c.HasAPIKey(),
		HasPaymentGateway:         c.HasPaymentGateway(),
		EWalletAccountsConfigured: len(c.EWalletAccountIDs()),
		ValidationMode:            c.validationMode(),
	}
}

// LogValue keeps the API key out of structured logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("mode", string(c.mode())),
		slog.String("api_base_url", c.baseURL()),
		slog.Bool("has_api_key", c.HasAPIKey()),
		slog.Bool("has_payment_gateway", c.HasPaymentGateway()),
		slog.Int("ewallet_accounts", len(c.EWalletAccountIDs())),
		slog.String("validation_mode", string(c.validationMode())),
	)
}
