// Package server runs a stripemock session behind an HTTP listener, so that
// applications (or the stripe-go client pointed at a custom URL) can talk to
// the mock over the network.
//
// ## Routes
//
//   - /v1/... - the API routes served by [stripemock.Session.Dispatch], with
//     Stripe-style {"error": {...}} bodies on failure and a Request-Id header
//   - POST /_mock/webhooks/{type} - generate an event; the optional JSON body
//     is merged into data.object and the stored event is returned
//   - POST /_mock/reset - discard the mock data and start a fresh session
//   - GET /healthz - readiness probe
//
// ## Configuration
//
// The server is configured with a TOML file, see [Config]:
//
//	[server]
//	listen = "127.0.0.1:12111"
//
//	[fixtures]
//	webhooks = "testdata/stripe_webhooks"
//
//	[journal]
//	path = "stripemock.db"
//
//	[[event]]
//	type = "customer.created"
//	data = { account_balance = 500 }
//
// Events listed under [[event]] are generated every time the session starts.
// When journal.path is set every API request is recorded in a SQLite
// database.
//
// ## Integration with testscript
//
// [TestScriptCmd] provides the "mockserver" command:
//   - mockserver start [-config file] (starts the server, sets STRIPEMOCK_URL)
//   - mockserver trigger <type> [overrides.json] (prints the event id)
//   - mockserver snapshot (prints the collection ids as TOML)
//
// The [Server.Snapshot] method gives an immutable view of the mock data that
// is safe to use in assertions while the server keeps serving.
package server
