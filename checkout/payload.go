package checkout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oapi-codegen/runtime"
	"github.com/shopspring/decimal"
)

// OperationResultSuccess is the gateway code of an approved charge.
const OperationResultSuccess = "Success"

// GatewayChargeResult defines the outcome of a charge routed through a
// payment gateway (card, Google Pay, Apple Pay).
type GatewayChargeResult struct {
	OperationResultCode        string          `json:"operationResultCode"`
	OperationResultDescription string          `json:"operationResultDescription,omitempty"`
	GatewayName                string          `json:"gatewayName,omitempty"`
	GatewayReference           string          `json:"gatewayReference,omitempty"`
	Amount                     decimal.Decimal `json:"amount"`
	Currency                   string          `json:"currency,omitempty"`
}

// Approved reports whether the gateway accepted the charge.
func (r GatewayChargeResult) Approved() bool {
	return r.OperationResultCode == OperationResultSuccess
}

func (*GatewayChargeResult) outcome() {}

// DirectChargeResult defines the outcome of a provider that settles without
// a gateway (PayPal, bank payments).
type DirectChargeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (*DirectChargeResult) outcome() {}

// BankCard is the masked card returned with a tokenization.
type BankCard struct {
	Number string `json:"number"`
	Type   string `json:"type"`
}

// TokenizedCard defines model for tokenAndMaskedCardModel.
type TokenizedCard struct {
	Token    string   `json:"token"`
	BankCard BankCard `json:"bankCard"`
}

// Outcome is implemented by the charge result variants.
type Outcome interface {
	outcome()
}

// ParsedResult is the validated form of an engine result payload.
type ParsedResult struct {
	ClientSuccess      bool                 `json:"clientSuccess"`
	ClientErrorMessage string               `json:"clientErrorMessage,omitempty"`
	GatewayCharge      *GatewayChargeResult `json:"upgChargeResults,omitempty"`
	DirectCharge       *DirectChargeResult  `json:"directChargeResults,omitempty"`
	TokenizedCard      *TokenizedCard       `json:"tokenAndMaskedCardModel,omitempty"`
}

// Outcomes returns the charge variants present, gateway first. Either, both
// or none may be present.
func (r ParsedResult) Outcomes() []Outcome {
	var out []Outcome
	if r.GatewayCharge != nil {
		out = append(out, r.GatewayCharge)
	}
	if r.DirectCharge != nil {
		out = append(out, r.DirectCharge)
	}
	return out
}

// Payload holds the raw result document produced by the engine.
type Payload struct {
	union json.RawMessage
}

// Parse validates the payload and converts it to a [ParsedResult].
func (t Payload) Parse() (ParsedResult, error) {
	var res ParsedResult
	raw := bytes.TrimSpace(t.union)
	if len(raw) == 0 || raw[0] != '{' {
		return res, errors.New("result payload must be a JSON object")
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return res, fmt.Errorf("decode result payload: %w", err)
	}
	if res.GatewayCharge != nil && res.GatewayCharge.OperationResultCode == "" {
		return res, errors.New("upgChargeResults.operationResultCode is required")
	}
	return res, nil
}

// FromParsedResult overwrites the payload with v.
func (t *Payload) FromParsedResult(v ParsedResult) error {
	b, err := json.Marshal(v)
	t.union = b
	return err
}

// MergeClientStatus sets the client side success flag and message.
func (t *Payload) MergeClientStatus(success bool, message string) error {
	return t.merge(struct {
		ClientSuccess      bool   `json:"clientSuccess"`
		ClientErrorMessage string `json:"clientErrorMessage,omitempty"`
	}{success, message})
}

// MergeGatewayCharge performs a merge with any union data inside the payload, using the provided GatewayChargeResult
func (t *Payload) MergeGatewayCharge(v GatewayChargeResult) error {
	return t.merge(ParsedResult{GatewayCharge: &v}, "clientSuccess")
}

// MergeDirectCharge performs a merge with any union data inside the payload, using the provided DirectChargeResult
func (t *Payload) MergeDirectCharge(v DirectChargeResult) error {
	return t.merge(ParsedResult{DirectCharge: &v}, "clientSuccess")
}

// MergeTokenizedCard performs a merge with any union data inside the payload, using the provided TokenizedCard
func (t *Payload) MergeTokenizedCard(v TokenizedCard) error {
	return t.merge(ParsedResult{TokenizedCard: &v}, "clientSuccess")
}

// merge applies v as a JSON merge patch. Keys listed in drop are removed
// from the patch first so that zero values of unrelated fields do not
// overwrite what is already there.
func (t *Payload) merge(v any, drop ...string) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if len(drop) > 0 {
		var patch map[string]json.RawMessage
		if err := json.Unmarshal(b, &patch); err != nil {
			return err
		}
		for _, key := range drop {
			delete(patch, key)
		}
		if b, err = json.Marshal(patch); err != nil {
			return err
		}
	}
	base := t.union
	if len(bytes.TrimSpace(base)) == 0 {
		base = json.RawMessage(`{}`)
	}
	merged, err := runtime.JSONMerge(base, b)
	if err != nil {
		return err
	}
	t.union = merged
	return nil
}

// MarshalJSON serializes the underlying union.
func (t Payload) MarshalJSON() ([]byte, error) {
	if len(t.union) == 0 {
		return []byte("null"), nil
	}
	return t.union.MarshalJSON()
}

// UnmarshalJSON loads union data.
func (t *Payload) UnmarshalJSON(b []byte) error {
	return t.union.UnmarshalJSON(b)
}
