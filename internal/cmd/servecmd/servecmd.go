package servecmd

import (
	"context"
	"log/slog"

	"github.com/peterbourgon/ff/v4"

	"github.com/artefactual-labs/stripemock/internal/cmd/rootcmd"
	"github.com/artefactual-labs/stripemock/pkg/server"
)

const defaultListen = "127.0.0.1:12111"

type Config struct {
	*rootcmd.RootConfig
	Command *ff.Command
	Flags   *ff.FlagSet

	config   string
	listen   string
	journal  string
	fixtures string
}

func New(parent *rootcmd.RootConfig) *Config {
	cfg := &Config{RootConfig: parent}
	cfg.Flags = ff.NewFlagSet("serve").SetParent(parent.Flags)
	cfg.Flags.StringVar(&cfg.config, 'c', "config", "", "path to the server TOML configuration")
	cfg.Flags.StringVar(&cfg.listen, 0, "listen", "", "address to listen on (default "+defaultListen+")")
	cfg.Flags.StringVar(&cfg.journal, 0, "journal", "", "SQLite database recording served requests")
	cfg.Flags.StringVar(&cfg.fixtures, 0, "fixtures", "", "project webhook fixture directory")

	cfg.Command = &ff.Command{
		Name:      "serve",
		Usage:     "stripemock serve [FLAGS]",
		ShortHelp: "Serve the mock API over HTTP until interrupted.",
		Flags:     cfg.Flags,
		Exec:      cfg.Exec,
	}

	parent.Command.Subcommands = append(parent.Command.Subcommands, cfg.Command)
	return cfg
}

func (cfg *Config) Exec(ctx context.Context, _ []string) error {
	srvCfg, err := cfg.serverConfig()
	if err != nil {
		return err
	}

	logger := cfg.Logger()
	srv, err := server.NewServer(srvCfg, server.WithLogger(logger))
	if err != nil {
		return err
	}

	logger.Info("Starting mock server.", slog.String("listen", srvCfg.Server.Listen))
	return srv.Run(ctx)
}

// serverConfig merges the configuration file with the command flags, flags
// taking precedence.
func (cfg *Config) serverConfig() (*server.Config, error) {
	srvCfg := &server.Config{}
	if cfg.config != "" {
		loaded, err := server.DecodeConfig(cfg.config)
		if err != nil {
			return nil, err
		}
		srvCfg = loaded
	}
	if cfg.listen != "" {
		srvCfg.Server.Listen = cfg.listen
	}
	if srvCfg.Server.Listen == "" {
		srvCfg.Server.Listen = defaultListen
	}
	if cfg.journal != "" {
		srvCfg.Journal.Path = cfg.journal
	}
	if cfg.fixtures != "" {
		srvCfg.Fixtures.Webhooks = cfg.fixtures
	}
	return srvCfg, srvCfg.Validate()
}
