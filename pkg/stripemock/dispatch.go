package stripemock

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aarondl/opt/omit"

	"github.com/artefactual-labs/stripemock/pkg/deepmerge"
	"github.com/artefactual-labs/stripemock/pkg/fixture"
	"github.com/artefactual-labs/stripemock/pkg/store"
)

// apiPrefix is the path prefix of every API route.
const apiPrefix = "/v1/"

// ignoredParams are accepted by the API but do not change the resources.
var ignoredParams = []string{"expand", "idempotency_key"}

// Dispatch serves one API call and returns the JSON document the Stripe API
// would answer with. The path may carry a query string; its values are added
// to params.
func (s *Session) Dispatch(method, path string, params url.Values) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return nil, ErrNotStarted
	}
	name, id, query, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	for k, vs := range params {
		query[k] = append(query[k], vs...)
	}
	doc, err := decodeForm(query)
	if err != nil {
		return nil, err
	}
	for _, k := range ignoredParams {
		delete(doc, k)
	}
	coll, ok := collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown collection %q", ErrUnsupportedRequest, name)
	}

	h := handler{state: s.state, resources: s.resources, name: name, coll: coll}
	var resp map[string]any
	switch {
	case method == http.MethodGet && id == "":
		resp, err = h.list(doc)
	case method == http.MethodGet:
		resp, err = h.get(id)
	case method == http.MethodPost && coll.readOnly,
		method == http.MethodDelete && coll.readOnly:
		err = fmt.Errorf("%w: %s %s is read only", ErrUnsupportedRequest, method, path)
	case method == http.MethodPost && id == "":
		resp, err = h.create(doc)
	case method == http.MethodPost:
		resp, err = h.update(id, doc)
	case method == http.MethodDelete && id != "":
		resp, err = h.delete(id)
	default:
		err = fmt.Errorf("%w: %s %s", ErrUnsupportedRequest, method, path)
	}
	if err != nil {
		s.logger.Debug("Request failed.", slog.String("method", method), slog.String("path", path), slog.String("err", err.Error()))
		return nil, err
	}
	s.logger.Debug("Request served.", slog.String("method", method), slog.String("path", path))
	return resp, nil
}

// parsePath splits /v1/{collection}[/{id}][?query].
func parsePath(path string) (name, id string, query url.Values, err error) {
	raw, rawQuery, _ := strings.Cut(path, "?")
	query, err = url.ParseQuery(rawQuery)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	rest, ok := strings.CutPrefix(raw, apiPrefix)
	if !ok || rest == "" {
		return "", "", nil, fmt.Errorf("%w: path %q", ErrUnsupportedRequest, path)
	}
	parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")
	switch len(parts) {
	case 1:
		name = parts[0]
	case 2:
		name = parts[0]
		id, err = url.PathUnescape(parts[1])
		if err != nil || id == "" {
			return "", "", nil, fmt.Errorf("%w: path %q", ErrInvalidRequest, path)
		}
	default:
		return "", "", nil, fmt.Errorf("%w: path %q", ErrUnsupportedRequest, path)
	}
	return name, id, query, nil
}

// handler serves the routes of one collection.
type handler struct {
	state     *state
	resources *fixture.Loader
	name      string
	coll      collection
}

func (h handler) list(doc map[string]any) (map[string]any, error) {
	var p store.PageParams
	if v, ok := doc["limit"]; ok {
		n, err := strconv.Atoi(fmt.Sprint(v))
		if err != nil {
			return nil, fmt.Errorf("%w: limit %q is not an integer", ErrInvalidRequest, v)
		}
		p.Limit = omit.From(n)
	}
	p.StartingAfter, _ = doc["starting_after"].(string)
	p.EndingBefore, _ = doc["ending_before"].(string)

	page, err := h.state.store.Page(h.name, p)
	if err != nil {
		return nil, err
	}
	data := make([]any, 0, len(page.Records))
	for _, rec := range page.Records {
		data = append(data, deepmerge.Clone(rec))
	}
	return map[string]any{
		"object":   "list",
		"url":      apiPrefix + h.name,
		"has_more": page.HasMore,
		"data":     data,
	}, nil
}

func (h handler) get(id string) (map[string]any, error) {
	rec, err := h.state.store.Get(h.name, id)
	if err != nil {
		return nil, err
	}
	return deepmerge.Merge(rec, nil), nil
}

func (h handler) create(doc map[string]any) (map[string]any, error) {
	base, err := h.resources.Load(h.coll.object)
	if err != nil {
		return nil, err
	}
	params, _ := coerce(base, doc).(map[string]any)

	id := h.state.ids.Next(h.coll.prefix)
	if custom, ok := params["id"].(string); ok && custom != "" {
		if !h.coll.customID {
			return nil, fmt.Errorf("%w: received unknown parameter: id", ErrInvalidRequest)
		}
		id = custom
	}
	rec := deepmerge.Merge(base, params)
	rec["id"] = id
	rec["object"] = h.coll.object
	rec["created"] = float64(time.Now().Unix())
	rec["livemode"] = false

	if err := h.state.store.Insert(h.name, id, rec); err != nil {
		return nil, err
	}
	if _, err := h.state.sim.Record(h.coll.object+".created", rec, nil); err != nil {
		_, _ = h.state.store.Delete(h.name, id)
		return nil, err
	}
	return deepmerge.Merge(rec, nil), nil
}

func (h handler) update(id string, doc map[string]any) (map[string]any, error) {
	rec, err := h.state.store.Get(h.name, id)
	if err != nil {
		return nil, err
	}
	params, _ := coerce(rec, doc).(map[string]any)
	delete(params, "id")
	delete(params, "object")

	previous := make(map[string]any, len(params))
	for k := range params {
		previous[k] = rec[k]
	}
	updated := deepmerge.Merge(rec, params)
	// The event goes first so a failure leaves the record untouched.
	if _, err := h.state.sim.Record(h.coll.object+".updated", updated, previous); err != nil {
		return nil, err
	}
	if err := h.state.store.Replace(h.name, id, updated); err != nil {
		return nil, err
	}
	return deepmerge.Merge(updated, nil), nil
}

func (h handler) delete(id string) (map[string]any, error) {
	rec, err := h.state.store.Get(h.name, id)
	if err != nil {
		return nil, err
	}
	if _, err := h.state.sim.Record(h.coll.object+".deleted", rec, nil); err != nil {
		return nil, err
	}
	if _, err := h.state.store.Delete(h.name, id); err != nil {
		return nil, err
	}
	return map[string]any{
		"id":      id,
		"object":  h.coll.object,
		"deleted": true,
	}, nil
}
