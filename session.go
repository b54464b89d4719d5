package relay

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// OperationCharge is the only eWallet operation the relay opens.
const OperationCharge = "CHARGE"

// Defaults applied to session requests with missing fields.
var (
	DefaultAmount      = decimal.RequireFromString("49.99")
	DefaultCurrency    = "USD"
	DefaultCountryCode = "US"
)

// SessionRequest is the body of POST /api/create-session. Every field is
// optional.
type SessionRequest struct {
	Amount      *decimal.Decimal `json:"amount,omitempty" validate:"-"`
	Currency    string           `json:"currency,omitempty" validate:"omitempty,iso4217"`
	CountryCode string           `json:"countryCode,omitempty" validate:"omitempty,iso3166_1_alpha2"`
}

// WithDefaults returns a copy with the documented defaults filled in. A zero
// amount counts as missing.
func (r SessionRequest) WithDefaults() SessionRequest {
	out := SessionRequest{
		Currency:    strings.ToUpper(strings.TrimSpace(r.Currency)),
		CountryCode: strings.ToUpper(strings.TrimSpace(r.CountryCode)),
	}
	amount := DefaultAmount
	if r.Amount != nil && !r.Amount.IsZero() {
		amount = *r.Amount
	}
	out.Amount = &amount
	if out.Currency == "" {
		out.Currency = DefaultCurrency
	}
	if out.CountryCode == "" {
		out.CountryCode = DefaultCountryCode
	}
	return out
}

// MarshalJSON writes the amount as a JSON number, the form the relay
// documents for its callers.
func (r SessionRequest) MarshalJSON() ([]byte, error) {
	wire := struct {
		Amount      json.Number `json:"amount,omitempty"`
		Currency    string      `json:"currency,omitempty"`
		CountryCode string      `json:"countryCode,omitempty"`
	}{
		Currency:    r.Currency,
		CountryCode: r.CountryCode,
	}
	if r.Amount != nil {
		wire.Amount = json.Number(r.Amount.String())
	}
	return json.Marshal(wire)
}

// SessionResponse is returned by POST /api/create-session.
type SessionResponse struct {
	SessionToken string `json:"sessionToken"`
}

// ValidatePaymentRequest is the body of POST /api/validate-payment.
type ValidatePaymentRequest struct {
	ResultToken string `json:"resultToken"`
}

// ChargeSessionRequest is sent to {base}/EWalletOperations.
type ChargeSessionRequest struct {
	Operation                string      `json:"operation"`
	PaymentGatewayAccountID  string      `json:"paymentGatewayAccountId"`
	AllowedEWalletAccountIDs []string    `json:"allowedeWalletAccountIds,omitempty"`
	CurrencyCode             string      `json:"currencyCode"`
	CountryCode              string      `json:"countryCode"`
	Amount                   json.Number `json:"amount"`
	Mode                     Mode        `json:"mode"`
}

// NewChargeSessionRequest merges a client request with the relay
// configuration. The wallet id list stays nil when nothing is configured so
// that it is omitted from the wire format.
func NewChargeSessionRequest(cfg Config, req SessionRequest) ChargeSessionRequest {
	req = req.WithDefaults()
	charge := ChargeSessionRequest{
		Operation:               OperationCharge,
		PaymentGatewayAccountID: cfg.PaymentGatewayAccountID,
		CurrencyCode:            req.Currency,
		CountryCode:             req.CountryCode,
		Amount:                  json.Number(req.Amount.String()),
		Mode:                    cfg.mode(),
	}
	if ids := cfg.EWalletAccountIDs(); len(ids) > 0 {
		charge.AllowedEWalletAccountIDs = ids
	}
	return charge
}

// Session is the decoded answer of the upstream session call.
type Session struct {
	Token string `json:"Token"`
}

type validateResultsRequest struct {
	Token string `json:"token"`
}
