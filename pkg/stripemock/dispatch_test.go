package stripemock_test

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/artefactual-labs/stripemock/pkg/stripemock"
)

func ids(resp map[string]any) []string {
	var out []string
	for _, rec := range resp["data"].([]any) {
		out = append(out, rec.(map[string]any)["id"].(string))
	}
	return out
}

func TestDispatchListLimit(t *testing.T) {
	t.Parallel()

	sess := stripemock.StartTestSession(t)
	coll := sess.Store().Collection("customers")
	for i := range 5 {
		id := fmt.Sprintf("cus_%d", i)
		coll.Set(id, map[string]any{"id": id, "object": "customer"})
	}

	resp, err := sess.Dispatch(http.MethodGet, "/v1/customers?limit=3", nil)
	assert.NilError(t, err)
	assert.Equal(t, resp["object"], "list")
	assert.Equal(t, resp["url"], "/v1/customers")
	assert.Equal(t, resp["has_more"], true)
	assert.DeepEqual(t, ids(resp), []string{"cus_0", "cus_1", "cus_2"})

	resp, err = sess.Dispatch(http.MethodGet, "/v1/customers", url.Values{
		"starting_after": {"cus_2"},
	})
	assert.NilError(t, err)
	assert.Equal(t, resp["has_more"], false)
	assert.DeepEqual(t, ids(resp), []string{"cus_3", "cus_4"})

	resp, err = sess.Dispatch(http.MethodGet, "/v1/customers", url.Values{
		"ending_before": {"cus_3"},
		"limit":         {"2"},
	})
	assert.NilError(t, err)
	assert.Equal(t, resp["has_more"], true)
	assert.DeepEqual(t, ids(resp), []string{"cus_1", "cus_2"})

	// An empty collection lists nothing.
	resp, err = sess.Dispatch(http.MethodGet, "/v1/invoices", nil)
	assert.NilError(t, err)
	assert.Equal(t, len(resp["data"].([]any)), 0)
}

func TestDispatchInvalidList(t *testing.T) {
	t.Parallel()

	sess := stripemock.StartTestSession(t)

	_, err := sess.Dispatch(http.MethodGet, "/v1/customers?limit=ten", nil)
	assert.ErrorIs(t, err, stripemock.ErrInvalidRequest)

	_, err = sess.Dispatch(http.MethodGet, "/v1/customers?limit=0", nil)
	assert.Assert(t, stripemock.APIError(err) != nil)
	assert.Equal(t, stripemock.APIError(err).HTTPStatusCode, http.StatusBadRequest)

	_, err = sess.Dispatch(http.MethodGet, "/v1/customers?starting_after=cus_x", nil)
	assert.ErrorIs(t, err, stripemock.ErrNotFound)
}

func TestDispatchCreate(t *testing.T) {
	t.Parallel()

	sess := stripemock.StartTestSession(t)

	plan, err := sess.Dispatch(http.MethodPost, "/v1/plans", url.Values{
		"id":       {"gold"},
		"amount":   {"2000"},
		"interval": {"month"},
	})
	assert.NilError(t, err)
	assert.Equal(t, plan["id"], "gold")
	assert.Equal(t, plan["object"], "plan")
	assert.Equal(t, plan["amount"], float64(2000))
	assert.Equal(t, plan["livemode"], false)

	_, err = sess.Dispatch(http.MethodPost, "/v1/plans", url.Values{"id": {"gold"}})
	assert.ErrorIs(t, err, stripemock.ErrDuplicateIdentity)

	_, err = sess.Dispatch(http.MethodPost, "/v1/customers", url.Values{"id": {"cus_mine"}})
	assert.ErrorIs(t, err, stripemock.ErrInvalidRequest)

	ev, err := sess.Dispatch(http.MethodGet, "/v1/events", nil)
	assert.NilError(t, err)
	data := ev["data"].([]any)
	assert.Equal(t, len(data), 1)
	assert.Equal(t, data[0].(map[string]any)["type"], "plan.created")
}

func TestDispatchResponsesDoNotAlias(t *testing.T) {
	t.Parallel()

	sess := stripemock.StartTestSession(t)

	cus, err := sess.Dispatch(http.MethodPost, "/v1/customers", url.Values{"metadata[a]": {"1"}})
	assert.NilError(t, err)
	cus["metadata"].(map[string]any)["a"] = "changed"

	rec, err := sess.Store().Get("customers", cus["id"].(string))
	assert.NilError(t, err)
	assert.Equal(t, rec["metadata"].(map[string]any)["a"], "1")
}

func TestDispatchWritesFailWithBrokenEventFixture(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"customer.created", "customer.updated", "customer.deleted"} {
		err := os.WriteFile(filepath.Join(dir, name+".json"), []byte("broken"), 0o600)
		assert.NilError(t, err)
	}
	sess := stripemock.StartTestSession(t, stripemock.WithFixturePath(dir))
	st := sess.Store()

	_, err := sess.Dispatch(http.MethodPost, "/v1/customers", url.Values{"email": {"a@example.com"}})
	assert.ErrorContains(t, err, "customer.created")
	assert.Equal(t, st.Collection("customers").Len(), 0)

	st.Collection("customers").Set("cus_1", map[string]any{"id": "cus_1", "object": "customer", "email": "a@example.com"})

	_, err = sess.Dispatch(http.MethodPost, "/v1/customers/cus_1", url.Values{"email": {"b@example.com"}})
	assert.ErrorContains(t, err, "customer.updated")
	rec, err := st.Get("customers", "cus_1")
	assert.NilError(t, err)
	assert.Equal(t, rec["email"], "a@example.com")

	_, err = sess.Dispatch(http.MethodDelete, "/v1/customers/cus_1", nil)
	assert.ErrorContains(t, err, "customer.deleted")
	_, err = st.Get("customers", "cus_1")
	assert.NilError(t, err)

	assert.Equal(t, st.Collection("events").Len(), 0)
}

func TestDispatchUnsupported(t *testing.T) {
	t.Parallel()

	sess := stripemock.StartTestSession(t)
	ev, err := sess.MockWebhookEvent("customer.created", nil)
	assert.NilError(t, err)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/balance_transactions"},
		{http.MethodGet, "/v2/customers"},
		{http.MethodGet, "/v1/"},
		{http.MethodGet, "/v1/customers/cus_1/sources/card_1"},
		{http.MethodPost, "/v1/events"},
		{http.MethodDelete, "/v1/events/" + ev.ID},
		{http.MethodDelete, "/v1/customers"},
		{http.MethodPut, "/v1/customers/cus_1"},
	} {
		_, err := sess.Dispatch(tc.method, tc.path, nil)
		assert.ErrorIs(t, err, stripemock.ErrUnsupportedRequest, "%s %s", tc.method, tc.path)
	}
}

func TestDispatchNotStarted(t *testing.T) {
	t.Parallel()

	_, err := stripemock.New().Dispatch(http.MethodGet, "/v1/customers", nil)
	assert.ErrorIs(t, err, stripemock.ErrNotStarted)
}
