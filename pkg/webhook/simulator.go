package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v72"

	"github.com/artefactual-labs/stripemock/pkg/deepmerge"
	"github.com/artefactual-labs/stripemock/pkg/fixture"
	"github.com/artefactual-labs/stripemock/pkg/ident"
	"github.com/artefactual-labs/stripemock/pkg/store"
)

// Kind is the store collection holding events.
const Kind = "events"

// IDPrefix is the object prefix of event ids.
const IDPrefix = "evt"

// ErrUnsupportedEventType is returned for event types that are neither in
// the catalog nor provided by the project fixture directory.
var ErrUnsupportedEventType = errors.New("unsupported event type")

// Simulator creates events. It is not safe for concurrent use.
type Simulator struct {
	store    *store.Store
	ids      *ident.Generator
	fixtures *fixture.Loader
	logger   *slog.Logger
	now      func() time.Time
}

func NewSimulator(st *store.Store, ids *ident.Generator, fixtures *fixture.Loader, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Simulator{
		store:    st,
		ids:      ids,
		fixtures: fixtures,
		logger:   logger,
		now:      time.Now,
	}
}

// Event generates and stores an event of type name and returns its typed
// form.
func (s *Simulator) Event(name string, overrides map[string]any) (*stripe.Event, error) {
	rec, err := s.generate(name, overrides)
	if err != nil {
		return nil, err
	}
	return Decode(rec)
}

// Payload generates and stores an event of type name and returns the stored
// record itself.
func (s *Simulator) Payload(name string, overrides map[string]any) (map[string]any, error) {
	return s.generate(name, overrides)
}

// Record stores an event of type name describing object, typically a
// resource that was just created or changed through the API. Types without
// a fixture are skipped and a nil record is returned.
func (s *Simulator) Record(name string, object, previous map[string]any) (map[string]any, error) {
	if !s.supported(name) {
		return nil, nil
	}
	base, err := s.fixtures.Load(name)
	if err != nil {
		return nil, err
	}
	data := map[string]any{"object": deepmerge.Clone(object)}
	if len(previous) > 0 {
		data["previous_attributes"] = deepmerge.Clone(previous)
	}
	base["data"] = data
	base["created"] = float64(s.now().Unix())
	return s.insert(name, base)
}

func (s *Simulator) supported(name string) bool {
	return IsSupported(name) || s.fixtures.InProject(name)
}

func (s *Simulator) generate(name string, overrides map[string]any) (map[string]any, error) {
	if !s.supported(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEventType, name)
	}
	base, err := s.fixtures.Load(name)
	if err != nil {
		return nil, err
	}
	overrides, err = deepmerge.NormalizeMap(overrides)
	if err != nil {
		return nil, err
	}

	if len(overrides) > 0 {
		data, _ := base["data"].(map[string]any)
		if data == nil {
			data = map[string]any{}
		}
		object, _ := data["object"].(map[string]any)
		data["object"] = deepmerge.Merge(object, overrides)
		base["data"] = data
	}
	return s.insert(name, base)
}

func (s *Simulator) insert(name string, rec map[string]any) (map[string]any, error) {
	id := s.ids.Next(IDPrefix)
	rec["id"] = id
	rec["type"] = name
	if _, ok := rec["object"]; !ok {
		rec["object"] = "event"
	}
	if err := s.store.Insert(Kind, id, rec); err != nil {
		return nil, err
	}
	s.logger.Debug("Event stored.", slog.String("id", id), slog.String("type", name))
	return rec, nil
}

// Decode converts an event record into its typed form.
func Decode(rec map[string]any) (*stripe.Event, error) {
	blob, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	var ev stripe.Event
	if err := json.Unmarshal(blob, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &ev, nil
}
