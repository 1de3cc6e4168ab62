package stripemock

import (
	"slices"
	"sort"
)

// collection describes an API resource served by the session.
type collection struct {
	object   string
	prefix   string
	customID bool
	readOnly bool
}

var collections = map[string]collection{
	"charges":       {object: "charge", prefix: "ch"},
	"coupons":       {object: "coupon", prefix: "coupon", customID: true},
	"customers":     {object: "customer", prefix: "cus"},
	"events":        {object: "event", prefix: "evt", readOnly: true},
	"invoiceitems":  {object: "invoiceitem", prefix: "ii"},
	"invoices":      {object: "invoice", prefix: "in"},
	"plans":         {object: "plan", prefix: "plan", customID: true},
	"products":      {object: "product", prefix: "prod", customID: true},
	"subscriptions": {object: "subscription", prefix: "sub"},
}

// Collections returns the names of the API collections the session serves.
func Collections() []string {
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsCollection reports whether name is served by the session.
func IsCollection(name string) bool {
	return slices.Contains(Collections(), name)
}
