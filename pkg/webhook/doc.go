// Package webhook simulates Stripe webhook events.
//
// A [Simulator] builds events from fixtures: it loads the fixture for an
// event type, deep-merges caller overrides into its data.object, assigns a
// test id and stores the result in the session store under "events". The
// stored record is the single source of truth; the typed *stripe.Event
// handed to callers is decoded from it.
//
// Events can be signed with [Sign] the same way Stripe signs deliveries, and
// posted to an application endpoint with a [Deliverer].
package webhook
