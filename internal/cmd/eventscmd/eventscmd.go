package eventscmd

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/peterbourgon/ff/v4"

	"github.com/artefactual-labs/stripemock/internal/cmd/rootcmd"
	"github.com/artefactual-labs/stripemock/pkg/fixture"
	"github.com/artefactual-labs/stripemock/pkg/webhook"
)

type Config struct {
	*rootcmd.RootConfig
	Command *ff.Command
	Flags   *ff.FlagSet

	fixtures string
}

func New(parent *rootcmd.RootConfig) *Config {
	cfg := &Config{RootConfig: parent}
	cfg.Flags = ff.NewFlagSet("events").SetParent(parent.Flags)
	cfg.Flags.StringVar(&cfg.fixtures, 0, "fixtures", "", "project webhook fixture directory to include")

	cfg.Command = &ff.Command{
		Name:      "events",
		Usage:     "stripemock events [FLAGS]",
		ShortHelp: "List the event types that can be generated.",
		Flags:     cfg.Flags,
		Exec:      cfg.Exec,
	}

	parent.Command.Subcommands = append(parent.Command.Subcommands, cfg.Command)
	return cfg
}

func (cfg *Config) Exec(ctx context.Context, _ []string) error {
	names := webhook.EventList()
	if cfg.fixtures != "" {
		project, err := fixture.Names(os.DirFS(cfg.fixtures))
		if err != nil {
			return fmt.Errorf("read fixtures: %w", err)
		}
		names = append(names, project...)
		slices.Sort(names)
		names = slices.Compact(names)
	}

	for _, name := range names {
		if _, err := fmt.Fprintln(cfg.Stdout, name); err != nil {
			return err
		}
	}
	return nil
}
