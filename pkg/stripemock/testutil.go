package stripemock

import "testing"

// StartTestSession starts a session and registers a cleanup hook on t that
// stops it when the test finishes.
func StartTestSession(t testing.TB, opts ...Option) *Session {
	t.Helper()

	sess := New(opts...)
	if err := sess.Start(); err != nil {
		t.Fatalf("start session: %v", err)
	}
	t.Cleanup(sess.Stop)

	return sess
}
