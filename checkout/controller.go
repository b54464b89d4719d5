package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	relay "github.com/sumup/orchestra-relay"
)

const unconfiguredText = "Configuration needed: Set your ORCHESTRA_API_KEY in the .env file. See README for details."

// DemoSessionRequest is the fixed order the demo checkout opens a session for.
var DemoSessionRequest = relay.SessionRequest{
	Amount:      ptr(decimal.RequireFromString("49.99")),
	Currency:    "USD",
	CountryCode: "US",
}

// Controller drives one checkout page from configuration check to payment
// result. It owns the engine for the session it opened.
type Controller struct {
	relay     Relay
	factory   EngineFactory
	presenter Presenter
	logger    *slog.Logger
	session   relay.SessionRequest
	catalog   []Button
	display   DisplayOptions

	mu             sync.Mutex
	state          State
	history        []State
	validationMode relay.ValidationMode
	sessionToken   string
	engine         Engine
}

// Option customizes a [Controller].
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSessionRequest replaces [DemoSessionRequest].
func WithSessionRequest(req relay.SessionRequest) Option {
	return func(c *Controller) {
		c.session = req
	}
}

// WithCatalog replaces [Catalog].
func WithCatalog(catalog []Button) Option {
	return func(c *Controller) {
		c.catalog = catalog
	}
}

// WithDisplayOptions replaces [DefaultDisplayOptions].
func WithDisplayOptions(opts DisplayOptions) Option {
	return func(c *Controller) {
		c.display = opts
	}
}

// NewController wires a checkout flow.
func NewController(r Relay, factory EngineFactory, presenter Presenter, opts ...Option) *Controller {
	if r == nil || factory == nil || presenter == nil {
		panic("checkout: relay, engine factory and presenter are required")
	}
	c := &Controller{
		relay:          r,
		factory:        factory,
		presenter:      presenter,
		logger:         slog.Default(),
		session:        DemoSessionRequest,
		catalog:        Catalog,
		display:        DefaultDisplayOptions,
		validationMode: relay.ValidationPermissive,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	c.setState(StateLoading)
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns every state entered so far, in order.
func (c *Controller) History() []State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]State(nil), c.history...)
}

// SessionToken returns the token of the session opened by Start.
func (c *Controller) SessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionToken
}

// Start runs the flow up to the point where the engine waits for the user.
// It returns the state reached; errors are reported through the presenter
// and the Error state, not returned.
func (c *Controller) Start(ctx context.Context) State {
	engine, buttons, state := c.prepare(ctx)
	if state != StateAwaitingResult {
		return state
	}

	// Result callbacks outlive Start, so they must not inherit its cancellation.
	callbackCtx := context.WithoutCancel(ctx)
	// Called without the lock: the engine may report a result before PayBy returns.
	err := engine.PayBy(ctx, buttons, func(res *Result) { c.HandleResult(callbackCtx, res) }, c.display)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return c.fail(err)
	}
	return c.state
}

// prepare opens the session and the engine. The returned state is
// AwaitingResult only when buttons are ready to be handed to the engine.
func (c *Controller) prepare(ctx context.Context) (Engine, []Button, State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status, err := c.relay.Config(ctx)
	if err != nil {
		return nil, nil, c.fail(err)
	}
	if status.ValidationMode != "" {
		c.validationMode = status.ValidationMode
	}
	if !status.HasAPIKey {
		c.presenter.ConfigStatus(*status, unconfiguredText)
		c.presenter.Loading("Please configure your API credentials")
		return nil, nil, c.setState(StateUnconfigured)
	}
	c.presenter.ConfigStatus(*status, FormatConfigStatus(*status))

	c.setState(StateRequestingSession)
	token, err := c.relay.CreateSession(ctx, c.session)
	if err != nil {
		return nil, nil, c.fail(err)
	}
	c.sessionToken = token

	c.setState(StateEngineInit)
	engine, err := c.factory(token)
	if err != nil {
		return nil, nil, c.fail(err)
	}
	c.engine = engine
	available, err := engine.CheckAvailability(ctx)
	if err != nil {
		return nil, nil, c.fail(err)
	}
	c.logger.InfoContext(ctx, "available payment methods", slog.Any("methods", available))
	if len(available) == 0 {
		c.presenter.Loading("No payment methods available. Check your configuration.")
		return nil, nil, c.setState(StateNoMethods)
	}

	c.setState(StateRendering)
	buttons := FilterButtons(c.catalog, available)
	c.presenter.ShowPayment(buttons)
	return engine, buttons, c.setState(StateAwaitingResult)
}

func (c *Controller) fail(err error) State {
	c.logger.Error("checkout initialization failed", slog.Any("err", err))
	c.presenter.Loading("Error: " + err.Error())
	c.presenter.ShowResult(Message{Class: ClassError, Text: err.Error()})
	return c.setState(StateError)
}

// HandleResult processes one payment attempt reported by the engine. It is
// the callback given to [Engine.PayBy] and returns the state reached.
func (c *Controller) HandleResult(ctx context.Context, res *Result) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.acceptsResult() {
		c.logger.WarnContext(ctx, "ignoring payment result", slog.String("state", string(c.state)))
		return c.state
	}
	if res == nil {
		c.presenter.ShowResult(Message{Class: ClassInfo, Text: "Payment cancelled"})
		return c.setState(StateCancelled)
	}

	payload, ok, err := c.engine.ParseResultToken(res.Token)
	if err != nil {
		return c.processingError(err)
	}
	if payload == nil {
		return c.processingError(errors.New("empty result payload"))
	}
	parsed, err := payload.Parse()
	if err != nil {
		return c.processingError(err)
	}
	c.logger.InfoContext(ctx, "payment result", slog.Bool("parsed", ok), slog.Bool("client_success", parsed.ClientSuccess))

	if !parsed.ClientSuccess {
		msg := parsed.ClientErrorMessage
		if msg == "" {
			msg = "Unknown error"
		}
		c.presenter.ShowResult(errorMessage("Payment failed: %s", msg))
		return c.setState(StateFailed)
	}

	next, msg := c.evaluate(ctx, parsed)

	if c.validationMode == relay.ValidationStrict && next == StateSucceeded {
		if _, err := c.relay.ValidatePayment(ctx, res.Token); err != nil {
			var relayErr *RelayError
			if !errors.As(err, &relayErr) {
				return c.processingError(err)
			}
			c.presenter.ShowResult(errorMessage("Payment could not be verified: %s", relayErr.Message))
			return c.setState(StateFailed)
		}
		c.presenter.ShowResult(msg)
		return c.setState(next)
	}

	c.presenter.ShowResult(msg)
	c.setState(next)
	result, err := c.relay.ValidatePayment(ctx, res.Token)
	if err != nil {
		var relayErr *RelayError
		if !errors.As(err, &relayErr) {
			return c.processingError(err)
		}
		c.logger.WarnContext(ctx, "server validation rejected", slog.Int("status", relayErr.StatusCode), slog.String("message", relayErr.Message))
		return c.state
	}
	c.logger.InfoContext(ctx, "server validation", slog.String("result", string(result)))
	return c.state
}

// evaluate maps the charge variants to a state and message. Variants are
// checked independently; a later one overrides the display of an earlier one.
func (c *Controller) evaluate(ctx context.Context, parsed ParsedResult) (State, Message) {
	next := StateFailed
	msg := errorMessage("Payment failed: result contained no charge details")

	outcomes := parsed.Outcomes()
	for _, o := range outcomes {
		switch r := o.(type) {
		case *GatewayChargeResult:
			if r.Approved() {
				next, msg = StateSucceeded, successMessage(r)
				continue
			}
			reason := r.OperationResultDescription
			if reason == "" {
				reason = r.OperationResultCode
			}
			next, msg = StateDeclined, errorMessage("Payment declined: %s", reason)
		case *DirectChargeResult:
			if r.Success {
				next, msg = StateSucceeded, Message{Class: ClassSuccess, Text: "Payment successful!\nProvider: PayPal"}
				continue
			}
			next, msg = StateFailed, errorMessage("Payment failed: %s", r.Message)
		}
	}

	if card := parsed.TokenizedCard; card != nil {
		c.logger.InfoContext(ctx, "card tokenized",
			slog.String("type", card.BankCard.Type),
			slog.String("last_four", card.BankCard.Number),
			slog.String("token", card.Token),
		)
		if len(outcomes) == 0 {
			next = StateTokenized
			msg = Message{Class: ClassInfo, Text: fmt.Sprintf("Card saved: %s %s", card.BankCard.Type, card.BankCard.Number)}
		}
	}
	return next, msg
}

func (c *Controller) processingError(err error) State {
	c.logger.Error("error handling result", slog.Any("err", err))
	c.presenter.ShowResult(errorMessage("Error processing payment: %s", err.Error()))
	return c.setState(StateError)
}

func (c *Controller) setState(s State) State {
	c.state = s
	c.history = append(c.history, s)
	return s
}

func ptr[T any](v T) *T {
	return &v
}
