package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stripe/stripe-go/v72"

	"github.com/artefactual-labs/stripemock/internal/journal"
	"github.com/artefactual-labs/stripemock/pkg/store"
	"github.com/artefactual-labs/stripemock/pkg/stripemock"
	"github.com/artefactual-labs/stripemock/pkg/webhook"
)

const (
	apiPrefix      = "/v1/"
	webhooksPrefix = "/_mock/webhooks/"
)

// Server exposes a stripemock session over HTTP.
type Server struct {
	cfg    *Config
	sess   *stripemock.Session
	logger *slog.Logger

	jmu     sync.Mutex
	journal *journal.Journal

	mu      sync.Mutex
	srv     *http.Server
	ln      net.Listener
	wg      sync.WaitGroup
	started bool
}

type Option func(*Server)

// WithLogger sets the logger used by the server and its session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer builds a mock server from the provided configuration.
func NewServer(cfg *Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	srv := &Server{
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(srv)
	}

	sessOpts := []stripemock.Option{stripemock.WithLogger(srv.logger)}
	if cfg.Fixtures.Webhooks != "" {
		sessOpts = append(sessOpts, stripemock.WithFixturePath(cfg.Fixtures.Webhooks))
	}
	if cfg.Fixtures.Resources != "" {
		sessOpts = append(sessOpts, stripemock.WithResourceFixturePath(cfg.Fixtures.Resources))
	}
	srv.sess = stripemock.New(sessOpts...)

	return srv, nil
}

// NewServerFromFile loads a TOML configuration file and returns a server.
func NewServerFromFile(path string, opts ...Option) (*Server, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return NewServer(cfg, opts...)
}

// Session returns the session served by s.
func (s *Server) Session() *stripemock.Session {
	return s.sess
}

// Start begins serving HTTP requests in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("server already started")
	}
	if err := s.startSession(); err != nil {
		return err
	}
	if s.cfg.Journal.Path != "" {
		j, err := journal.Open(context.Background(), s.cfg.Journal.Path)
		if err != nil {
			s.sess.Stop()
			return err
		}
		s.jmu.Lock()
		s.journal = j
		s.jmu.Unlock()
	}
	ln, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		s.sess.Stop()
		s.closeJournal()
		return fmt.Errorf("listen: %w", err)
	}
	s.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc(apiPrefix, s.handleAPI)
	mux.HandleFunc(webhooksPrefix, s.handleWebhook)
	mux.HandleFunc("/_mock/reset", s.handleReset)

	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.started = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server stopped.", slog.String("err", err.Error()))
		}
	}()
	s.logger.Info("Mock server listening.", slog.String("addr", s.Addr()))
	return nil
}

// startSession starts the session and generates the configured events.
func (s *Server) startSession() error {
	if err := s.sess.Start(); err != nil {
		return err
	}
	for _, ev := range s.cfg.Events {
		if _, err := s.sess.MockWebhookEvent(ev.Type, ev.Data); err != nil {
			s.sess.Stop()
			return fmt.Errorf("seed event %q: %w", ev.Type, err)
		}
	}
	return nil
}

// Run starts the server and blocks until the provided context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// URL returns the base URL of the server.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

// WaitReady polls the health endpoint until the server responds or the context
// is cancelled.
func (s *Server) WaitReady(ctx context.Context) error {
	if !s.started {
		return errors.New("server not started")
	}
	url := s.URL() + "/healthz"
	client := &http.Client{Timeout: 200 * time.Millisecond}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		res, err := client.Do(req)
		if err != nil {
			return err
		}
		res.Body.Close() //nolint:errcheck
		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("health check: unexpected status %d", res.StatusCode)
		}
		return nil
	}
	return backoff.Retry(op, backoff.WithContext(backoff.NewConstantBackOff(25*time.Millisecond), ctx))
}

// Shutdown gracefully stops the server and discards the session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	err := s.srv.Shutdown(ctx)
	s.wg.Wait()
	s.sess.Stop()
	if cerr := s.closeJournal(); cerr != nil && err == nil {
		err = cerr
	}
	s.started = false
	return err
}

func (s *Server) closeJournal() error {
	s.jmu.Lock()
	defer s.jmu.Unlock()
	if s.journal == nil {
		return nil
	}
	err := s.journal.Close()
	s.journal = nil
	return err
}

// Snapshot copies the ids of the current mock data. The returned structure is
// safe to read without further locking.
func (s *Server) Snapshot() Snapshot {
	snap := Snapshot{Collections: map[string][]string{}}
	_ = s.sess.View(func(st *store.Store) {
		snap.Kinds = st.Kinds()
		for _, kind := range snap.Kinds {
			snap.Collections[kind] = st.Collection(kind).Keys()
		}
		for _, id := range snap.Collections[webhook.Kind] {
			rec, _ := st.Get(webhook.Kind, id)
			typ, _ := rec["type"].(string)
			snap.Events = append(snap.Events, SnapshotEvent{ID: id, Type: typ})
		}
	})
	return snap
}

// Entries returns the requests recorded by the journal, or nil when the
// journal is disabled.
func (s *Server) Entries(ctx context.Context) ([]journal.Entry, error) {
	s.jmu.Lock()
	defer s.jmu.Unlock()
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.Entries(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	reqID := stripemock.RequestID()
	w.Header().Set("Request-Id", reqID)

	status := http.StatusOK
	defer func() {
		s.record(r, status, reqID)
	}()

	if err := r.ParseForm(); err != nil {
		status = writeError(w, fmt.Errorf("%w: %v", stripemock.ErrInvalidRequest, err))
		return
	}
	resp, err := s.sess.Dispatch(r.Method, r.URL.Path, r.Form)
	if err != nil {
		status = writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, webhooksPrefix)
	if name == "" || strings.Contains(name, "/") {
		http.NotFound(w, r)
		return
	}

	defer r.Body.Close() //nolint:errcheck
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("read body: %v", err), http.StatusBadRequest)
		return
	}
	var overrides map[string]any
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &overrides); err != nil {
			writeError(w, fmt.Errorf("%w: invalid body: %v", stripemock.ErrInvalidRequest, err))
			return
		}
	}

	payload, err := s.sess.MockWebhookPayload(name, overrides)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Debug("Webhook event triggered.", slog.String("type", name), slog.Any("id", payload["id"]))
	writeJSON(w, payload)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	s.sess.Stop()
	if err := s.startSession(); err != nil {
		http.Error(w, fmt.Sprintf("reset: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) record(r *http.Request, status int, reqID string) {
	s.logger.Debug("Request served.",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
	)
	s.jmu.Lock()
	defer s.jmu.Unlock()
	if s.journal == nil {
		return
	}
	err := s.journal.Record(r.Context(), journal.Entry{
		Method:    r.Method,
		Path:      r.URL.Path,
		Status:    status,
		RequestID: reqID,
	})
	if err != nil {
		s.logger.Error("Journal write failed.", slog.String("err", err.Error()))
	}
}

// writeError writes err as a Stripe API error body and returns the status
// code used.
func writeError(w http.ResponseWriter, err error) int {
	serr := stripemock.APIError(err)
	if serr == nil {
		serr = &stripe.Error{
			Type:           stripe.ErrorTypeAPI,
			HTTPStatusCode: http.StatusInternalServerError,
			Msg:            err.Error(),
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(serr.HTTPStatusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": serr})
	return serr.HTTPStatusCode
}

func methodNotAllowed(w http.ResponseWriter, method string) {
	w.Header().Set("Allow", method)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf("encode response: %v", err), http.StatusInternalServerError)
	}
}
