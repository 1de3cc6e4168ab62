package stripemock

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"

	"github.com/artefactual-labs/stripemock/pkg/fixture"
	"github.com/artefactual-labs/stripemock/pkg/ident"
	"github.com/artefactual-labs/stripemock/pkg/store"
	"github.com/artefactual-labs/stripemock/pkg/webhook"
)

// DefaultFixturePath is the project directory searched for webhook fixtures
// before the bundled ones.
const DefaultFixturePath = "testdata/stripe_webhooks"

// TestKey is the API key used by clients built with Session.Client.
const TestKey = "sk_test_stripemock"

// Session is one start/stop lifecycle of the mock. The store it owns exists
// only while the session is started.
type Session struct {
	mu sync.Mutex

	logger    *slog.Logger
	webhooks  *fixture.Loader
	resources *fixture.Loader
	global    bool
	backend   *Backend

	state    *state
	previous stripe.Backend
	swapped  bool
}

// state is everything discarded by Stop.
type state struct {
	store *store.Store
	ids   *ident.Generator
	sim   *webhook.Simulator
}

type Option func(*Session)

// WithLogger sets the logger used by the session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithFixturePath sets the project webhook fixture directory.
func WithFixturePath(dir string) Option {
	return func(s *Session) {
		s.webhooks.SetDir(dir)
	}
}

// WithResourceFixturePath sets a directory of resource fixtures (customer,
// invoice, ...) searched before the bundled ones.
func WithResourceFixturePath(dir string) Option {
	return func(s *Session) {
		s.resources.SetDir(dir)
	}
}

// WithGlobalBackend makes Start install the session as the stripe-go API
// backend used by package-level functions. Stop restores the backend that
// was installed before.
func WithGlobalBackend() Option {
	return func(s *Session) {
		s.global = true
	}
}

// New returns a stopped session.
func New(opts ...Option) *Session {
	s := &Session{
		logger:    slog.New(slog.DiscardHandler),
		webhooks:  fixture.NewLoader(fixture.Webhooks, DefaultFixturePath),
		resources: fixture.NewLoader(fixture.Resources, ""),
	}
	s.backend = &Backend{sess: s}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start allocates an empty store and activates interception.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil {
		return ErrAlreadyStarted
	}
	st := store.New()
	ids := &ident.Generator{}
	s.state = &state{
		store: st,
		ids:   ids,
		sim:   webhook.NewSimulator(st, ids, s.webhooks, s.logger),
	}
	if s.global {
		s.previous = stripe.GetBackend(stripe.APIBackend)
		stripe.SetBackend(stripe.APIBackend, s.backend)
		s.swapped = true
	}
	s.logger.Debug("Session started.", slog.Bool("global", s.global))
	return nil
}

// Stop deactivates interception and discards the store. Stopping a stopped
// session does nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.swapped {
		stripe.SetBackend(stripe.APIBackend, s.previous)
		s.previous = nil
		s.swapped = false
	}
	if s.state != nil {
		s.logger.Debug("Session stopped.", slog.Uint64("ids", s.state.ids.Count()))
	}
	s.state = nil
}

// Started reports whether the session is running.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil
}

// Store gives direct access to the mock data of the running session, or nil
// when the session is stopped.
func (s *Session) Store() *store.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	return s.state.store
}

// View runs fn with the store of the running session while holding the
// session lock.
func (s *Session) View(fn func(*store.Store)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return ErrNotStarted
	}
	fn(s.state.store)
	return nil
}

// FixturePath returns the project webhook fixture directory.
func (s *Session) FixturePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.webhooks.Dir()
}

// SetFixturePath changes the project webhook fixture directory. The change
// applies to the next event and outlives Stop; callers that change it in a
// test should restore the previous value.
func (s *Session) SetFixturePath(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webhooks.SetDir(dir)
}

// MockWebhookEvent generates an event of type name with overrides merged
// into its data.object, stores it and returns its typed form.
func (s *Session) MockWebhookEvent(name string, overrides map[string]any) (*stripe.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, ErrNotStarted
	}
	ev, err := s.state.sim.Event(name, overrides)
	return ev, eventError(err)
}

// MockWebhookPayload is MockWebhookEvent returning the stored record.
func (s *Session) MockWebhookPayload(name string, overrides map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, ErrNotStarted
	}
	rec, err := s.state.sim.Payload(name, overrides)
	return rec, eventError(err)
}

func eventError(err error) error {
	if errors.Is(err, webhook.ErrUnsupportedEventType) {
		return fmt.Errorf("%w: %w", ErrUnsupportedRequest, err)
	}
	return err
}

// Backend returns the stripe.Backend served by the session.
func (s *Session) Backend() *Backend {
	return s.backend
}

// Backends returns a backend set for client.New.
func (s *Session) Backends() *stripe.Backends {
	return &stripe.Backends{API: s.backend, Connect: s.backend, Uploads: s.backend}
}

// Client returns a stripe-go client bound to the session.
func (s *Session) Client() *client.API {
	return client.New(TestKey, s.Backends())
}
