package webhook_test

import (
	"testing"

	"github.com/aarondl/opt/omit"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/artefactual-labs/stripemock/pkg/fixture"
	"github.com/artefactual-labs/stripemock/pkg/ident"
	"github.com/artefactual-labs/stripemock/pkg/store"
	"github.com/artefactual-labs/stripemock/pkg/webhook"
)

func newSimulator(t *testing.T, dir string) (*webhook.Simulator, *store.Store) {
	t.Helper()
	st := store.New()
	sim := webhook.NewSimulator(st, &ident.Generator{}, fixture.NewLoader(fixture.Webhooks, dir), nil)
	return sim, st
}

func TestEventListMatchesFixtures(t *testing.T) {
	t.Parallel()

	names, err := fixture.Names(fixture.Webhooks)
	assert.NilError(t, err)

	events := map[string]struct{}{}
	for _, name := range webhook.EventList() {
		events[name] = struct{}{}
	}
	files := map[string]struct{}{}
	for _, name := range names {
		files[name] = struct{}{}
	}

	// Compare both differences so a missing name shows up in the failure.
	var missingFiles, missingEvents []string
	for name := range events {
		if _, ok := files[name]; !ok {
			missingFiles = append(missingFiles, name)
		}
	}
	for name := range files {
		if _, ok := events[name]; !ok {
			missingEvents = append(missingEvents, name)
		}
	}
	assert.Equal(t, len(missingFiles), 0, "events without fixture: %v", missingFiles)
	assert.Equal(t, len(missingEvents), 0, "fixtures without event: %v", missingEvents)
}

func TestGenerateAllEvents(t *testing.T) {
	t.Parallel()

	sim, st := newSimulator(t, "")
	for _, name := range webhook.EventList() {
		ev, err := sim.Event(name, nil)
		assert.NilError(t, err, name)
		assert.Equal(t, ev.Type, name)
		assert.Assert(t, ident.Pattern(webhook.IDPrefix).MatchString(ev.ID), ev.ID)
		assert.Assert(t, ev.Data != nil, name)
	}
	assert.Equal(t, st.Collection(webhook.Kind).Len(), len(webhook.EventList()))
}

func TestEventIsStored(t *testing.T) {
	t.Parallel()

	sim, st := newSimulator(t, "")
	a, err := sim.Event("customer.created", nil)
	assert.NilError(t, err)
	b, err := sim.Event("customer.created", nil)
	assert.NilError(t, err)
	assert.Assert(t, a.ID != b.ID)

	for _, ev := range []string{a.ID, b.ID} {
		rec, err := st.Get(webhook.Kind, ev)
		assert.NilError(t, err)
		assert.Equal(t, rec["id"], ev)
		assert.Equal(t, rec["type"], "customer.created")
	}
}

func TestPayloadIsStoredRecord(t *testing.T) {
	t.Parallel()

	sim, st := newSimulator(t, "")
	payload, err := sim.Payload("plan.created", nil)
	assert.NilError(t, err)
	assert.Assert(t, ident.IsTestID(payload["id"].(string)))

	rec, err := st.Get(webhook.Kind, payload["id"].(string))
	assert.NilError(t, err)
	payload["livemode"] = true
	assert.Equal(t, rec["livemode"], true)
}

func TestOverridesMergeIntoDataObject(t *testing.T) {
	t.Parallel()

	sim, _ := newSimulator(t, "")
	base, err := fixture.Load("customer.created", fixture.Webhooks)
	assert.NilError(t, err)

	ev, err := sim.Event("customer.created", map[string]any{"account_balance": 12345})
	assert.NilError(t, err)
	assert.Equal(t, ev.Data.Object["account_balance"], float64(12345))

	payload, err := sim.Payload("customer.created", map[string]any{"account_balance": 12345})
	assert.NilError(t, err)
	obj := payload["data"].(map[string]any)["object"].(map[string]any)
	assert.Equal(t, obj["account_balance"], float64(12345))

	want := base["data"].(map[string]any)["object"].(map[string]any)
	want["account_balance"] = float64(12345)
	assert.DeepEqual(t, obj, want)
}

func TestOverridesMergeArrays(t *testing.T) {
	t.Parallel()

	sim, _ := newSimulator(t, "")
	ev, err := sim.Event("invoice.created", map[string]any{
		"lines": map[string]any{
			"data": []map[string]any{
				{"amount": 555, "plan": map[string]any{"id": "wh_test"}},
			},
		},
	})
	assert.NilError(t, err)

	lines := ev.Data.Object["lines"].(map[string]any)
	first := lines["data"].([]any)[0].(map[string]any)
	assert.Equal(t, first["amount"], float64(555))
	assert.Equal(t, first["plan"].(map[string]any)["id"], "wh_test")
	assert.Equal(t, first["type"], "subscription")
	assert.Equal(t, first["plan"].(map[string]any)["currency"], "usd")
}

func TestUnsupportedEventType(t *testing.T) {
	t.Parallel()

	sim, st := newSimulator(t, "testdata/stripe_webhooks")
	_, err := sim.Event("cow.bell", nil)
	assert.ErrorIs(t, err, webhook.ErrUnsupportedEventType)
	_, err = sim.Payload("cow.bell", nil)
	assert.ErrorIs(t, err, webhook.ErrUnsupportedEventType)
	assert.Equal(t, st.Collection(webhook.Kind).Len(), 0)
}

func TestProjectFixtures(t *testing.T) {
	t.Parallel()

	sim, _ := newSimulator(t, "testdata/stripe_webhooks")

	ev, err := sim.Event("account.updated", nil)
	assert.NilError(t, err)
	assert.Equal(t, ev.Data.Object["id"], "acct_project")
	assert.Assert(t, cmp.Regexp(`^test_evt_[0-9]+`, ev.ID))

	ev, err = sim.Event("custom.account.updated", nil)
	assert.NilError(t, err)
	assert.Equal(t, ev.Type, "custom.account.updated")
	_, err = sim.Payload("custom.account.updated", nil)
	assert.NilError(t, err)
}

func TestFixtureDirectoryChange(t *testing.T) {
	t.Parallel()

	loader := fixture.NewLoader(fixture.Webhooks, "testdata/stripe_webhooks")
	sim := webhook.NewSimulator(store.New(), &ident.Generator{}, loader, nil)

	original := loader.Dir()
	loader.SetDir("testdata/dummy_webhooks")
	assert.Equal(t, loader.Dir(), "testdata/dummy_webhooks")

	payload, err := sim.Payload("dummy.event", nil)
	assert.NilError(t, err)
	assert.Equal(t, payload["val"], "success")

	loader.SetDir(original)
	_, err = sim.Payload("dummy.event", nil)
	assert.ErrorIs(t, err, webhook.ErrUnsupportedEventType)
}

func TestRecord(t *testing.T) {
	t.Parallel()

	sim, st := newSimulator(t, "")
	customer := map[string]any{"id": "test_cus_1", "object": "customer"}
	rec, err := sim.Record("customer.updated", customer, map[string]any{"email": nil})
	assert.NilError(t, err)
	data := rec["data"].(map[string]any)
	assert.DeepEqual(t, data["object"], customer)
	assert.DeepEqual(t, data["previous_attributes"], map[string]any{"email": nil})
	_, ok := rec["created"].(float64)
	assert.Assert(t, ok, "created is %T", rec["created"])

	rec, err = sim.Record("product.created", map[string]any{"id": "prod_1"}, nil)
	assert.NilError(t, err)
	assert.Assert(t, rec == nil)
	assert.Equal(t, len(st.List(webhook.Kind, omit.Val[int]{})), 1)
}
