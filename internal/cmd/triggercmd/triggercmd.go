package triggercmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/peterbourgon/ff/v4"

	"github.com/artefactual-labs/stripemock/internal/cmd/rootcmd"
	"github.com/artefactual-labs/stripemock/pkg/stripemock"
	"github.com/artefactual-labs/stripemock/pkg/webhook"
)

type Config struct {
	*rootcmd.RootConfig
	Command *ff.Command
	Flags   *ff.FlagSet

	data       string
	query      string
	url        string
	fixtures   string
	forwardTo  string
	secret     string
	maxRetries uint64
}

func New(parent *rootcmd.RootConfig) *Config {
	cfg := &Config{RootConfig: parent}
	cfg.Flags = ff.NewFlagSet("trigger").SetParent(parent.Flags)
	cfg.Flags.StringVar(&cfg.data, 'd', "data", "", "JSON file merged into the event's data.object")
	cfg.Flags.StringVar(&cfg.query, 'q', "query", "", "JSONPath expression selecting what to print")
	cfg.Flags.StringVar(&cfg.url, 0, "url", "", "mock server URL; the event is generated locally when empty")
	cfg.Flags.StringVar(&cfg.fixtures, 0, "fixtures", "", "project webhook fixture directory")
	cfg.Flags.StringVar(&cfg.forwardTo, 0, "forward-to", "", "endpoint receiving the signed event")
	cfg.Flags.StringVar(&cfg.secret, 0, "secret", "", "webhook signing secret used with --forward-to")
	cfg.Flags.Uint64Var(&cfg.maxRetries, 0, "max-retries", 3, "delivery retries after a failed attempt")

	cfg.Command = &ff.Command{
		Name:      "trigger",
		Usage:     "stripemock trigger [FLAGS] <EVENT TYPE>",
		ShortHelp: "Generate a webhook event and print or deliver it.",
		Flags:     cfg.Flags,
		Exec:      cfg.Exec,
	}

	parent.Command.Subcommands = append(parent.Command.Subcommands, cfg.Command)
	return cfg
}

func (cfg *Config) Exec(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("trigger requires exactly one event type")
	}
	name := args[0]

	var overrides map[string]any
	if cfg.data != "" {
		blob, err := os.ReadFile(cfg.data)
		if err != nil {
			return fmt.Errorf("read data: %w", err)
		}
		if err := json.Unmarshal(blob, &overrides); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}

	var (
		payload map[string]any
		err     error
	)
	if cfg.url != "" {
		payload, err = cfg.remote(ctx, name, overrides)
	} else {
		payload, err = cfg.local(name, overrides)
	}
	if err != nil {
		return err
	}

	if cfg.forwardTo != "" {
		d := &webhook.Deliverer{
			URL:        cfg.forwardTo,
			Secret:     cfg.secret,
			MaxRetries: cfg.maxRetries,
			Logger:     cfg.Logger(),
		}
		if err := d.Deliver(ctx, payload); err != nil {
			return err
		}
	}

	return cfg.print(payload)
}

// local generates the event in a throwaway session.
func (cfg *Config) local(name string, overrides map[string]any) (map[string]any, error) {
	opts := []stripemock.Option{stripemock.WithLogger(cfg.Logger())}
	if cfg.fixtures != "" {
		opts = append(opts, stripemock.WithFixturePath(cfg.fixtures))
	}
	sess := stripemock.New(opts...)
	if err := sess.Start(); err != nil {
		return nil, err
	}
	defer sess.Stop()

	return sess.MockWebhookPayload(name, overrides)
}

// remote asks a running mock server to generate the event.
func (cfg *Config) remote(ctx context.Context, name string, overrides map[string]any) (map[string]any, error) {
	body, err := json.Marshal(overrides)
	if err != nil {
		return nil, err
	}
	url := strings.TrimSuffix(cfg.url, "/") + "/_mock/webhooks/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close() //nolint:errcheck

	blob, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trigger %s: (%d): %s", name, res.StatusCode, strings.TrimSpace(string(blob)))
	}

	var payload map[string]any
	if err := json.Unmarshal(blob, &payload); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	cfg.Logger().Debug("Event triggered on server.", slog.String("url", url), slog.Any("id", payload["id"]))
	return payload, nil
}

func (cfg *Config) print(payload map[string]any) error {
	if cfg.query == "" {
		enc := json.NewEncoder(cfg.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	x, err := jp.ParseString(cfg.query)
	if err != nil {
		return fmt.Errorf("parse query: %w", err)
	}
	for _, v := range x.Get(payload) {
		if s, ok := v.(string); ok {
			if _, err := fmt.Fprintln(cfg.Stdout, s); err != nil {
				return err
			}
			continue
		}
		blob, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(cfg.Stdout, string(blob)); err != nil {
			return err
		}
	}
	return nil
}
