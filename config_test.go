package relay

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestWalletAccountsIDs(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		wallets WalletAccounts
		want    string
	}{
		"none configured": {
			wallets: WalletAccounts{},
			want:    "",
		},
		"slot order wins over declaration order": {
			wallets: WalletAccounts{RegionalWallet: "rw", Card: "card", BankPay: "bank"},
			want:    "card,bank,rw",
		},
		"blanks and duplicates dropped": {
			wallets: WalletAccounts{Card: " card ", GooglePay: "  ", Extra: []string{"card", "x", "", "x"}},
			want:    "card,x",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := strings.Join(tt.wallets.IDs(), ","); got != tt.want {
				t.Fatalf("expected %q got %q", tt.want, got)
			}
		})
	}
}

func TestConfigStatusDefaults(t *testing.T) {
	t.Parallel()

	status := Config{}.Status()
	if status.Mode != ModeTest {
		t.Fatalf("expected TEST mode, got %q", status.Mode)
	}
	if status.ValidationMode != ValidationPermissive {
		t.Fatalf("expected permissive validation, got %q", status.ValidationMode)
	}
	if status.HasAPIKey || status.HasPaymentGateway {
		t.Fatalf("expected nothing configured: %+v", status)
	}
}

func TestConfigLogValueHidesAPIKey(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	cfg := testConfig()
	cfg.APIKey = "sk_live_secret"
	logger.Info("starting", slog.Any("config", cfg))

	if strings.Contains(buf.String(), "sk_live_secret") {
		t.Fatalf("api key logged: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"has_api_key":true`) {
		t.Fatalf("expected presence flag in log: %s", buf.String())
	}
}
