package stripemock

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v72"

	"github.com/artefactual-labs/stripemock/pkg/fixture"
	"github.com/artefactual-labs/stripemock/pkg/store"
	"github.com/artefactual-labs/stripemock/pkg/webhook"
)

var (
	// ErrUnsupportedRequest is returned for API calls and event types the
	// mock does not implement.
	ErrUnsupportedRequest = errors.New("unsupported request")

	// ErrNotStarted is returned when the session is stopped.
	ErrNotStarted = errors.New("stripemock: session not started")

	// ErrAlreadyStarted is returned by Start on a running session.
	ErrAlreadyStarted = errors.New("stripemock: session already started")

	// ErrInvalidRequest is returned for malformed parameters.
	ErrInvalidRequest = errors.New("invalid request")
)

// Aliases of the component errors so callers only need this package.
var (
	ErrUnsupportedEventType = webhook.ErrUnsupportedEventType
	ErrFixtureNotFound      = fixture.ErrNotFound
	ErrNotFound             = store.ErrNotFound
	ErrDuplicateIdentity    = store.ErrDuplicateIdentity
)

// APIError translates err into the error the Stripe API would return. It
// returns nil for errors that have no API equivalent, such as ErrNotStarted.
func APIError(err error) *stripe.Error {
	var serr *stripe.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &serr):
		return serr
	case errors.Is(err, store.ErrNotFound):
		return &stripe.Error{
			Type:           stripe.ErrorTypeInvalidRequest,
			Code:           stripe.ErrorCodeResourceMissing,
			HTTPStatusCode: http.StatusNotFound,
			Msg:            fmt.Sprintf("No such object: %v", err),
			Param:          "id",
		}
	case errors.Is(err, ErrUnsupportedRequest),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, store.ErrInvalidPage),
		errors.Is(err, store.ErrDuplicateIdentity):
		return &stripe.Error{
			Type:           stripe.ErrorTypeInvalidRequest,
			HTTPStatusCode: http.StatusBadRequest,
			Msg:            err.Error(),
		}
	default:
		return nil
	}
}
