package checkout

import (
	"context"
	"slices"
)

// Payment method names reported by the engine.
const (
	MethodCardPay   = "CardPay"
	MethodGooglePay = "GooglePay"
	MethodApplePay  = "ApplePay"
	MethodPayPal    = "PayPal"
)

// Button binds a payment method to the page element it renders into.
type Button struct {
	Name              string `json:"name"`
	DOMEntitySelector string `json:"domEntitySelector"`
}

// Catalog is the fixed, ordered set of buttons the page knows how to host.
var Catalog = []Button{
	{Name: MethodCardPay, DOMEntitySelector: "#card-button"},
	{Name: MethodGooglePay, DOMEntitySelector: "#gpay-button"},
	{Name: MethodApplePay, DOMEntitySelector: "#applepay-button"},
	{Name: MethodPayPal, DOMEntitySelector: "#paypal-button"},
}

// FilterButtons keeps the catalog entries whose name is available, in
// catalog order.
func FilterButtons(catalog []Button, available []string) []Button {
	buttons := make([]Button, 0, len(catalog))
	for _, b := range catalog {
		if slices.Contains(available, b.Name) {
			buttons = append(buttons, b)
		}
	}
	return buttons
}

// DisplayOptions style the rendered buttons.
type DisplayOptions struct {
	Color string `json:"color"`
	Text  string `json:"text"`
}

// DefaultDisplayOptions are the options the checkout page renders with.
var DefaultDisplayOptions = DisplayOptions{Color: "Dark", Text: "Pay"}

// Result is handed to the result callback after a payment attempt. A nil
// *Result means the user cancelled.
type Result struct {
	Token string `json:"token"`
}

// ResultFunc receives the outcome of one payment attempt.
type ResultFunc func(*Result)

// Engine is the third-party payment widget. It is created per session token.
type Engine interface {
	// CheckAvailability lists the payment method names usable in this session.
	CheckAvailability(ctx context.Context) ([]string, error)
	// PayBy renders buttons and calls onResult once per user attempt.
	PayBy(ctx context.Context, buttons []Button, onResult ResultFunc, opts DisplayOptions) error
	// ParseResultToken decodes a result token synchronously.
	ParseResultToken(token string) (*Payload, bool, error)
}

// EngineFactory constructs an [Engine] for a session token.
type EngineFactory func(sessionToken string) (Engine, error)
