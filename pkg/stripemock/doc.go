// Package stripemock serves Stripe API calls from an in-memory store so that
// application tests run without network access.
//
// A [Session] owns the mock state. Start it, hand its backend to the code
// under test and stop it when done:
//
//	sess := stripemock.New()
//	if err := sess.Start(); err != nil { ... }
//	defer sess.Stop()
//
//	sc := sess.Client()                         // *client.API backed by the session
//	ev, _ := sess.MockWebhookEvent("customer.created", map[string]any{
//		"account_balance": 12345,
//	})
//	got, _ := sc.Events.Get(ev.ID, nil)
//
// Code that uses the package-level stripe-go functions (customer.New,
// event.List, ...) can be intercepted with [WithGlobalBackend], which swaps
// the stripe-go API backend on Start and restores the previous one on Stop.
//
// Every Start begins with an empty store, so nothing created in one session
// is visible in the next.
//
// ## Routes
//
// The session backend understands these calls for the collections listed in
// [Collections]:
//   - GET /v1/{collection} - list, honouring limit, starting_after and ending_before
//   - GET /v1/{collection}/{id} - retrieve
//   - POST /v1/{collection} - create from the resource fixture merged with the params
//   - POST /v1/{collection}/{id} - update by deep merge
//   - DELETE /v1/{collection}/{id} - delete
//
// Events are read only. Changes made through the API record the matching
// "<object>.created", "<object>.updated" or "<object>.deleted" event when the
// catalog has one. Any other call fails with [ErrUnsupportedRequest].
package stripemock
