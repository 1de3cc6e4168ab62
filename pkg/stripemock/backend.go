package stripemock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/form"
)

// Backend is a stripe.Backend answering from the session instead of the
// network.
type Backend struct {
	sess *Session
}

var _ stripe.Backend = (*Backend)(nil)

// Call implements stripe.Backend.
func (b *Backend) Call(method, path, key string, params stripe.ParamsContainer, v stripe.LastResponseSetter) error {
	var body *form.Values
	if params != nil && !reflect.ValueOf(params).IsNil() {
		body = &form.Values{}
		form.AppendTo(body, params)
	}
	return b.do(method, path, body, v)
}

// CallRaw implements stripe.Backend.
func (b *Backend) CallRaw(method, path, key string, body *form.Values, params *stripe.Params, v stripe.LastResponseSetter) error {
	return b.do(method, path, body, v)
}

// CallMultipart implements stripe.Backend. File uploads are not supported.
func (b *Backend) CallMultipart(method, path, key, boundary string, body *bytes.Buffer, params *stripe.Params, v stripe.LastResponseSetter) error {
	return APIError(fmt.Errorf("%w: multipart %s %s", ErrUnsupportedRequest, method, path))
}

// CallStreaming implements stripe.Backend. Streaming responses are not
// supported.
func (b *Backend) CallStreaming(method, path, key string, params stripe.ParamsContainer, v stripe.StreamingLastResponseSetter) error {
	return APIError(fmt.Errorf("%w: streaming %s %s", ErrUnsupportedRequest, method, path))
}

// SetMaxNetworkRetries implements stripe.Backend. The session never retries.
func (b *Backend) SetMaxNetworkRetries(maxNetworkRetries int64) {}

func (b *Backend) do(method, path string, body *form.Values, v stripe.LastResponseSetter) error {
	params := url.Values{}
	if body != nil && !body.Empty() {
		parsed, err := url.ParseQuery(body.Encode())
		if err != nil {
			return APIError(fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		}
		params = parsed
	}

	resp, err := b.sess.Dispatch(method, path, params)
	if err != nil {
		if serr := APIError(err); serr != nil {
			return serr
		}
		return err
	}
	blob, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(blob, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	v.SetLastResponse(&stripe.APIResponse{
		RawJSON:    blob,
		RequestID:  RequestID(),
		Status:     fmt.Sprintf("%d %s", http.StatusOK, http.StatusText(http.StatusOK)),
		StatusCode: http.StatusOK,
	})
	return nil
}

// RequestID returns a new Stripe-style request id.
func RequestID() string {
	return "req_" + uuid.NewString()
}
