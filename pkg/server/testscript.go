package server

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/artefactual-labs/stripemock/internal/testutil"
)

// TestScriptCmd implements the "mockserver" testscript command:
//
//	mockserver start [-config file] [-port n]
//	mockserver trigger <type> [overrides.json]
//	mockserver snapshot
//
// start exports the server URL as STRIPEMOCK_URL.
func TestScriptCmd(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) == 0 {
		ts.Fatalf("mockserver: missing subcommand")
	}
	sub := args[0]
	switch sub {
	case "start":
		mockserverStart(ts, neg, args[1:])
	case "trigger":
		mockserverTrigger(ts, neg, args[1:])
	case "snapshot":
		mockserverSnapshot(ts, neg, args[1:])
	default:
		ts.Fatalf("mockserver: unknown subcommand %q", sub)
	}
}

func mockserverStart(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("mockserver start: negation not supported")
	}
	if _, ok := getInstance(ts); ok {
		ts.Fatalf("mockserver start: server already running")
	}

	fs := flag.NewFlagSet("mockserver start", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "path to the server TOML configuration")
	portFlag := fs.Int("port", 0, "port to listen on (default random)")
	if err := fs.Parse(args); err != nil {
		ts.Fatalf("mockserver start: %v", err)
	}

	port := *portFlag
	if port == 0 {
		p, err := testutil.FreePort()
		if err != nil {
			ts.Fatalf("mockserver start: acquire port: %v", err)
		}
		port = p
	}
	listen := fmt.Sprintf("127.0.0.1:%d", port)

	cfg := &Config{}
	if *configPath != "" {
		var err error
		cfg, err = DecodeConfig(ts.MkAbs(*configPath))
		if err != nil {
			ts.Fatalf("mockserver start: load config: %v", err)
		}
	}
	cfg.Server.Listen = listen
	if cfg.Fixtures.Webhooks != "" {
		cfg.Fixtures.Webhooks = ts.MkAbs(cfg.Fixtures.Webhooks)
	}
	if cfg.Fixtures.Resources != "" {
		cfg.Fixtures.Resources = ts.MkAbs(cfg.Fixtures.Resources)
	}
	if cfg.Journal.Path != "" {
		cfg.Journal.Path = ts.MkAbs(cfg.Journal.Path)
	}
	if err := cfg.Validate(); err != nil {
		ts.Fatalf("mockserver start: validate config: %v", err)
	}

	srv, stop, err := StartServer(context.Background(), cfg)
	if err != nil {
		ts.Fatalf("mockserver start: %v", err)
	}

	inst := &instance{srv: srv, stop: stop}
	setInstance(ts, inst)
	ts.Defer(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := inst.stop(ctx); err != nil {
			ts.Logf("mockserver: shutdown error: %v", err)
		}
		clearInstance(ts)
	})

	ts.Setenv("STRIPEMOCK_URL", srv.URL())
	ts.Logf("mock server listening on %s", srv.URL())
}

func mockserverTrigger(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) < 1 || len(args) > 2 {
		ts.Fatalf("usage: mockserver trigger <type> [overrides.json]")
	}
	inst, ok := getInstance(ts)
	if !ok {
		ts.Fatalf("mockserver trigger: server not running")
	}

	var overrides map[string]any
	if len(args) == 2 {
		if err := json.Unmarshal([]byte(ts.ReadFile(args[1])), &overrides); err != nil {
			ts.Fatalf("mockserver trigger: decode overrides: %v", err)
		}
	}

	ev, err := inst.srv.Session().MockWebhookEvent(args[0], overrides)
	if neg {
		if err == nil {
			ts.Fatalf("mockserver trigger: unexpected success")
		}
		ts.Logf("mockserver trigger: %v", err)
		return
	}
	if err != nil {
		ts.Fatalf("mockserver trigger: %v", err)
	}
	if _, err := fmt.Fprintln(ts.Stdout(), ev.ID); err != nil {
		ts.Fatalf("mockserver trigger: write stdout: %v", err)
	}
}

func mockserverSnapshot(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("mockserver snapshot: negation not supported")
	}
	if len(args) != 0 {
		ts.Fatalf("mockserver snapshot: unexpected arguments: %v", args)
	}
	inst, ok := getInstance(ts)
	if !ok {
		ts.Fatalf("mockserver snapshot: server not running")
	}

	data, err := inst.srv.Snapshot().MarshalTOML()
	if err != nil {
		ts.Fatalf("mockserver snapshot: marshal: %v", err)
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	if _, err := ts.Stdout().Write(data); err != nil {
		ts.Fatalf("mockserver snapshot: write stdout: %v", err)
	}
}

type instance struct {
	srv  *Server
	stop func(context.Context) error
}

var (
	instancesMu sync.Mutex
	instances   = make(map[*testscript.TestScript]*instance)
)

func setInstance(ts *testscript.TestScript, inst *instance) {
	instancesMu.Lock()
	defer instancesMu.Unlock()
	instances[ts] = inst
}

func getInstance(ts *testscript.TestScript) (*instance, bool) {
	instancesMu.Lock()
	defer instancesMu.Unlock()
	inst, ok := instances[ts]
	return inst, ok
}

func clearInstance(ts *testscript.TestScript) {
	instancesMu.Lock()
	defer instancesMu.Unlock()
	delete(instances, ts)
}
