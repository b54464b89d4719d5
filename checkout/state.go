package checkout

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	relay "github.com/sumup/orchestra-relay"
)

// State is a step of the checkout lifecycle.
type State string

const (
	StateLoading           State = "loading"
	StateUnconfigured      State = "unconfigured"
	StateRequestingSession State = "requesting_session"
	StateEngineInit        State = "engine_init"
	StateNoMethods         State = "no_methods"
	StateRendering         State = "rendering"
	StateAwaitingResult    State = "awaiting_result"
	StateCancelled         State = "cancelled"
	StateFailed            State = "failed"
	StateDeclined          State = "declined"
	StateSucceeded         State = "succeeded"
	StateTokenized         State = "tokenized"
	StateError             State = "error"
)

// Terminal reports whether no further payment attempt is accepted.
func (s State) Terminal() bool {
	switch s {
	case StateUnconfigured, StateNoMethods, StateSucceeded, StateTokenized, StateError:
		return true
	}
	return false
}

// acceptsResult reports whether a result callback may be handled in s.
func (s State) acceptsResult() bool {
	switch s {
	case StateAwaitingResult, StateCancelled, StateFailed, StateDeclined:
		return true
	}
	return false
}

// Class drives the styling of a result message.
type Class string

const (
	ClassSuccess Class = "success"
	ClassError   Class = "error"
	ClassInfo    Class = "info"
)

// Receipt carries the fields shown for an approved gateway charge.
type Receipt struct {
	Gateway   string
	Reference string
	Amount    decimal.Decimal
	Currency  string
}

// Message is what ends up in the result area of the page.
type Message struct {
	Class   Class
	Text    string
	Receipt *Receipt
}

func successMessage(r *GatewayChargeResult) Message {
	receipt := &Receipt{
		Gateway:   r.GatewayName,
		Reference: r.GatewayReference,
		Amount:    r.Amount,
		Currency:  r.Currency,
	}
	text := strings.Join([]string{
		"Payment successful!",
		"Gateway: " + receipt.Gateway,
		"Reference: " + receipt.Reference,
		fmt.Sprintf("Amount: %s %s", receipt.Amount.String(), receipt.Currency),
	}, "\n")
	return Message{Class: ClassSuccess, Text: text, Receipt: receipt}
}

func errorMessage(format string, args ...any) Message {
	return Message{Class: ClassError, Text: fmt.Sprintf(format, args...)}
}

// Presenter renders the checkout page. Implementations must be safe to call
// from the goroutine the engine delivers results on.
type Presenter interface {
	ConfigStatus(status relay.ConfigStatus, text string)
	Loading(text string)
	ShowPayment(buttons []Button)
	ShowResult(msg Message)
}

// FormatConfigStatus renders the status line shown above the checkout.
func FormatConfigStatus(status relay.ConfigStatus) string {
	gateway := "Not set"
	if status.HasPaymentGateway {
		gateway = "Configured"
	}
	return fmt.Sprintf("Mode: %s | Gateway: %s | eWallet accounts: %d", status.Mode, gateway, status.EWalletAccountsConfigured)
}
