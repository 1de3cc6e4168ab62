package deepmerge_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/artefactual-labs/stripemock/pkg/deepmerge"
)

func invoice() map[string]any {
	return map[string]any{
		"id":     "in_1",
		"amount": float64(1000),
		"lines": map[string]any{
			"object": "list",
			"data": []any{
				map[string]any{
					"amount": float64(1000),
					"type":   "subscription",
					"plan":   map[string]any{"id": "gold", "currency": "usd"},
				},
				map[string]any{
					"amount": float64(20),
					"type":   "invoiceitem",
				},
			},
		},
	}
}

func TestMergeScalars(t *testing.T) {
	t.Parallel()

	base := map[string]any{"a": float64(1), "b": "two", "c": map[string]any{"d": true}}
	got := deepmerge.Merge(base, map[string]any{"a": float64(5), "e": nil})

	assert.DeepEqual(t, got, map[string]any{
		"a": float64(5),
		"b": "two",
		"c": map[string]any{"d": true},
		"e": nil,
	})
}

func TestMergeNestedMaps(t *testing.T) {
	t.Parallel()

	base := map[string]any{"metadata": map[string]any{"a": "1", "b": "2"}}
	got := deepmerge.Merge(base, map[string]any{"metadata": map[string]any{"b": "3"}})

	assert.DeepEqual(t, got, map[string]any{"metadata": map[string]any{"a": "1", "b": "3"}})
}

func TestMergeSequencesOfMapsByPosition(t *testing.T) {
	t.Parallel()

	got := deepmerge.Merge(invoice(), map[string]any{
		"lines": map[string]any{
			"data": []any{
				map[string]any{
					"amount": float64(555),
					"plan":   map[string]any{"id": "wh_test"},
				},
			},
		},
	})

	lines := got["lines"].(map[string]any)
	assert.Equal(t, lines["object"], "list")

	data := lines["data"].([]any)
	assert.Equal(t, len(data), 2)

	first := data[0].(map[string]any)
	assert.Equal(t, first["amount"], float64(555))
	assert.Equal(t, first["type"], "subscription")
	plan := first["plan"].(map[string]any)
	assert.Equal(t, plan["id"], "wh_test")
	assert.Equal(t, plan["currency"], "usd")

	assert.DeepEqual(t, data[1], map[string]any{"amount": float64(20), "type": "invoiceitem"})
}

func TestMergeLongerSequenceAppends(t *testing.T) {
	t.Parallel()

	base := map[string]any{"items": []any{map[string]any{"a": "1"}}}
	got := deepmerge.Merge(base, map[string]any{"items": []any{
		map[string]any{"b": "2"},
		map[string]any{"c": "3"},
	}})

	assert.DeepEqual(t, got["items"], []any{
		map[string]any{"a": "1", "b": "2"},
		map[string]any{"c": "3"},
	})
}

func TestMergeReplacesNonMapSequences(t *testing.T) {
	t.Parallel()

	base := map[string]any{"tags": []any{"a", "b", "c"}}
	got := deepmerge.Merge(base, map[string]any{"tags": []any{"z"}})

	assert.DeepEqual(t, got["tags"], []any{"z"})
}

func TestMergeTypeMismatchReplaces(t *testing.T) {
	t.Parallel()

	base := map[string]any{"discount": map[string]any{"coupon": "x"}}
	got := deepmerge.Merge(base, map[string]any{"discount": nil})

	assert.DeepEqual(t, got, map[string]any{"discount": nil})
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	base := invoice()
	overrides := map[string]any{
		"lines": map[string]any{"data": []any{map[string]any{"amount": float64(1)}}},
	}
	got := deepmerge.Merge(base, overrides)

	assert.DeepEqual(t, base, invoice())
	assert.DeepEqual(t, overrides, map[string]any{
		"lines": map[string]any{"data": []any{map[string]any{"amount": float64(1)}}},
	})

	// The result must not alias the inputs.
	got["lines"].(map[string]any)["data"].([]any)[1].(map[string]any)["type"] = "changed"
	assert.Equal(t, base["lines"].(map[string]any)["data"].([]any)[1].(map[string]any)["type"], "invoiceitem")
}

func TestNormalizeMap(t *testing.T) {
	t.Parallel()

	type plan struct {
		ID string `json:"id"`
	}
	got, err := deepmerge.NormalizeMap(map[string]any{
		"account_balance": 12345,
		"plan":            plan{ID: "gold"},
		"lines":           []map[string]any{{"amount": int64(3)}},
	})
	assert.NilError(t, err)
	assert.DeepEqual(t, got, map[string]any{
		"account_balance": float64(12345),
		"plan":            map[string]any{"id": "gold"},
		"lines":           []any{map[string]any{"amount": float64(3)}},
	})

	empty, err := deepmerge.NormalizeMap(nil)
	assert.NilError(t, err)
	assert.Equal(t, len(empty), 0)
}
