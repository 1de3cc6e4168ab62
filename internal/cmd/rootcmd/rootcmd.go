package rootcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/stripe/stripe-go/v72"
)

type RootConfig struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Flags   *ff.FlagSet
	Command *ff.Command

	LogLevel string

	loggerOnce sync.Once
	logger     *slog.Logger
}

func New(stdin io.Reader, stdout, stderr io.Writer) *RootConfig {
	cfg := &RootConfig{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}

	cfg.Flags = ff.NewFlagSet("stripemock")
	cfg.Flags.StringVar(&cfg.LogLevel, 0, "log-level", "info", "log level: debug, info, warn or error")

	cfg.Command = &ff.Command{
		Name:      "stripemock",
		Usage:     "stripemock <SUBCOMMAND> ...",
		ShortHelp: "Local test double of the Stripe API.",
		Flags:     cfg.Flags,
		Exec:      cfg.exec,
	}

	return cfg
}

func (cfg *RootConfig) exec(_ context.Context, args []string) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(cfg.Stdout, ffhelp.Command(cfg.Command))
		return ff.ErrHelp
	}
	return errors.New("missing command")
}

func (cfg *RootConfig) Logger() *slog.Logger {
	cfg.loggerOnce.Do(func() {
		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			level = slog.LevelInfo
		}
		handler := slog.NewTextHandler(cfg.Stderr, &slog.HandlerOptions{Level: level})
		cfg.logger = slog.New(handler)
	})
	return cfg.logger
}

// StripeLogger adapts the command logger to the stripe-go client.
func (cfg *RootConfig) StripeLogger() stripe.LeveledLoggerInterface {
	return &leveledLogger{logger: cfg.Logger().With(slog.String("component", "stripe-go"))}
}

type leveledLogger struct {
	logger *slog.Logger
}

var _ stripe.LeveledLoggerInterface = (*leveledLogger)(nil)

func (l *leveledLogger) Debugf(format string, v ...any) {
	l.logger.Debug(message(format, v))
}

func (l *leveledLogger) Infof(format string, v ...any) {
	l.logger.Info(message(format, v))
}

func (l *leveledLogger) Warnf(format string, v ...any) {
	l.logger.Warn(message(format, v))
}

func (l *leveledLogger) Errorf(format string, v ...any) {
	l.logger.Error(message(format, v))
}

func message(format string, v []any) string {
	return strings.TrimSpace(fmt.Sprintf(format, v...))
}
