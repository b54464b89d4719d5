// Package fakeengine provides a scripted checkout.Engine. Results are pushed
// by the caller instead of a user clicking a button.
package fakeengine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sumup/orchestra-relay/checkout"
)

// ErrNotRendered is returned when a result is pushed before PayBy was called.
var ErrNotRendered = errors.New("fakeengine: PayBy has not been called")

// Engine is a deterministic in-memory [checkout.Engine].
type Engine struct {
	// Available is returned by CheckAvailability.
	Available []string
	// AvailabilityErr, PayByErr and ParseErr force the matching call to fail.
	AvailabilityErr error
	PayByErr        error
	ParseErr        error

	mu           sync.Mutex
	sessionToken string
	payloads     map[string]checkout.Payload
	rendered     []checkout.Button
	display      checkout.DisplayOptions
	onResult     checkout.ResultFunc
}

// New returns an engine reporting the given payment methods.
func New(available ...string) *Engine {
	return &Engine{
		Available: available,
		payloads:  make(map[string]checkout.Payload),
	}
}

// Factory returns a [checkout.EngineFactory] handing out e and recording the
// session token it was created with.
func (e *Engine) Factory() checkout.EngineFactory {
	return func(sessionToken string) (checkout.Engine, error) {
		if sessionToken == "" {
			return nil, errors.New("fakeengine: session token is required")
		}
		e.mu.Lock()
		e.sessionToken = sessionToken
		e.mu.Unlock()
		return e, nil
	}
}

// SessionToken returns the token the engine was constructed with.
func (e *Engine) SessionToken() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionToken
}

// CheckAvailability implements [checkout.Engine].
func (e *Engine) CheckAvailability(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.AvailabilityErr != nil {
		return nil, e.AvailabilityErr
	}
	return append([]string(nil), e.Available...), nil
}

// PayBy implements [checkout.Engine] by remembering the callback.
func (e *Engine) PayBy(_ context.Context, buttons []checkout.Button, onResult checkout.ResultFunc, opts checkout.DisplayOptions) error {
	if e.PayByErr != nil {
		return e.PayByErr
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rendered = append([]checkout.Button(nil), buttons...)
	e.display = opts
	e.onResult = onResult
	return nil
}

// Rendered returns the buttons passed to PayBy.
func (e *Engine) Rendered() []checkout.Button {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]checkout.Button(nil), e.rendered...)
}

// Display returns the options passed to PayBy.
func (e *Engine) Display() checkout.DisplayOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.display
}

// ParseResultToken implements [checkout.Engine].
func (e *Engine) ParseResultToken(token string) (*checkout.Payload, bool, error) {
	if e.ParseErr != nil {
		return nil, false, e.ParseErr
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	payload, ok := e.payloads[token]
	if !ok {
		return nil, false, fmt.Errorf("fakeengine: unknown result token %q", token)
	}
	return &payload, true, nil
}

// Complete registers payload under token and reports it to the result
// callback, as if the user finished a payment.
func (e *Engine) Complete(token string, payload checkout.Payload) error {
	e.mu.Lock()
	e.payloads[token] = payload
	cb := e.onResult
	e.mu.Unlock()
	if cb == nil {
		return ErrNotRendered
	}
	cb(&checkout.Result{Token: token})
	return nil
}

// Cancel reports a cancelled attempt to the result callback.
func (e *Engine) Cancel() error {
	e.mu.Lock()
	cb := e.onResult
	e.mu.Unlock()
	if cb == nil {
		return ErrNotRendered
	}
	cb(nil)
	return nil
}
