package webhook

import (
	"slices"
)

// events lists the event types with a bundled fixture.
var events = []string{
	"account.updated",
	"balance.available",
	"charge.dispute.created",
	"charge.failed",
	"charge.refunded",
	"charge.succeeded",
	"coupon.created",
	"coupon.deleted",
	"customer.created",
	"customer.deleted",
	"customer.subscription.created",
	"customer.subscription.deleted",
	"customer.subscription.trial_will_end",
	"customer.subscription.updated",
	"customer.updated",
	"invoice.created",
	"invoice.payment_failed",
	"invoice.payment_succeeded",
	"invoice.updated",
	"invoiceitem.created",
	"invoiceitem.updated",
	"plan.created",
	"plan.deleted",
	"plan.updated",
	"transfer.created",
}

// EventList returns the supported event types in lexical order.
func EventList() []string {
	return slices.Clone(events)
}

// IsSupported reports whether name is a known event type.
func IsSupported(name string) bool {
	_, found := slices.BinarySearch(events, name)
	return found
}
