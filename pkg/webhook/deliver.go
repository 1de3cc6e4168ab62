package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Deliverer posts signed event payloads to an application endpoint.
type Deliverer struct {
	Client *http.Client
	URL    string
	Secret string

	// MaxRetries bounds the attempts made after a failed delivery.
	MaxRetries uint64

	// InitialInterval is the first retry delay. Zero means backoff's default.
	InitialInterval time.Duration

	Logger *slog.Logger
}

// DeliveryError describes a delivery rejected by the endpoint.
type DeliveryError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook delivery failed: (%d): url: %s body: %s", e.StatusCode, e.URL, e.Body)
}

// Deliver sends event to the endpoint. Server errors and transport errors
// are retried with exponential backoff; client errors are not.
func (d *Deliverer) Deliver(ctx context.Context, event map[string]any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	key := uuid.NewString()

	opts := []backoff.ExponentialBackOffOpts{}
	if d.InitialInterval > 0 {
		opts = append(opts, backoff.WithInitialInterval(d.InitialInterval))
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(opts...), d.MaxRetries), ctx)

	attempt := 0
	op := func() error {
		attempt++
		err := d.post(ctx, client, payload, key)
		if err != nil {
			logger.Warn("Webhook delivery attempt failed.", slog.Int("attempt", attempt), slog.String("err", err.Error()))
		}
		return err
	}
	if err := backoff.Retry(op, b); err != nil {
		return err
	}

	logger.Info("Webhook delivered.", slog.Any("id", event["id"]), slog.String("url", d.URL))
	return nil
}

func (d *Deliverer) post(ctx context.Context, client *http.Client, payload []byte, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", key)
	if d.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(payload, d.Secret, time.Now()))
	}

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close() //nolint:errcheck

	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	if res.StatusCode < 300 {
		return nil
	}
	derr := &DeliveryError{StatusCode: res.StatusCode, URL: d.URL, Body: string(body)}
	if res.StatusCode < 500 {
		return backoff.Permanent(derr)
	}
	return derr
}
