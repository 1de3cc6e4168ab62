package listcmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/peterbourgon/ff/v4"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/form"

	"github.com/artefactual-labs/stripemock/internal/cmd/rootcmd"
	"github.com/artefactual-labs/stripemock/pkg/stripemock"
)

type Config struct {
	*rootcmd.RootConfig
	Command *ff.Command
	Flags   *ff.FlagSet

	url   string
	key   string
	limit int
}

func New(parent *rootcmd.RootConfig) *Config {
	cfg := &Config{RootConfig: parent}
	cfg.Flags = ff.NewFlagSet("list").SetParent(parent.Flags)
	cfg.Flags.StringVar(&cfg.url, 0, "url", "", "mock server URL")
	cfg.Flags.StringVar(&cfg.key, 0, "key", stripemock.TestKey, "API key sent to the server")
	cfg.Flags.IntVar(&cfg.limit, 'n', "limit", 0, "maximum number of records (default all)")

	cfg.Command = &ff.Command{
		Name:      "list",
		Usage:     "stripemock list [FLAGS] <COLLECTION>",
		ShortHelp: "List the ids of a collection held by a mock server.",
		Flags:     cfg.Flags,
		Exec:      cfg.Exec,
	}

	parent.Command.Subcommands = append(parent.Command.Subcommands, cfg.Command)
	return cfg
}

// item is the part of a listed record the command prints.
type item struct {
	ID     string `json:"id"`
	Object string `json:"object"`
	Type   string `json:"type"`
}

type itemList struct {
	stripe.APIResource
	stripe.ListMeta
	Data []*item `json:"data"`
}

func (cfg *Config) Exec(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("list requires exactly one collection")
	}
	if cfg.url == "" {
		return errors.New("--url is required")
	}
	name := args[0]
	if !stripemock.IsCollection(name) {
		return fmt.Errorf("unknown collection %q", name)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(cfg.url),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     cfg.StripeLogger(),
	})

	params := &stripe.ListParams{Context: ctx}
	if cfg.limit > 0 {
		params.Limit = stripe.Int64(int64(cfg.limit))
		params.Single = true
	}
	iter := stripe.GetIter(params, func(p *stripe.Params, b *form.Values) ([]any, stripe.ListContainer, error) {
		list := &itemList{}
		err := backend.CallRaw(http.MethodGet, "/v1/"+name, cfg.key, b, p, list)
		ret := make([]any, len(list.Data))
		for i, v := range list.Data {
			ret[i] = v
		}
		return ret, list, err
	})

	for iter.Next() {
		it := iter.Current().(*item)
		line := it.ID
		if it.Type != "" {
			line += "\t" + it.Type
		}
		if _, err := fmt.Fprintln(cfg.Stdout, line); err != nil {
			return err
		}
	}
	return iter.Err()
}
