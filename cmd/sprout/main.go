// Command sprout is the CLI host that wires the Agent Loop, Learn Process,
// and Session Controller together. It is an entrypoint, not a collaborator:
// everything it does is construct the pieces named in the component design
// and hand control to them.
//
// Usage:
//
//	sprout run --genome ./genome --agent assistant "summarize this repo"
//	sprout serve --genome ./genome --agent assistant --port 8080
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/prime-radiant-inc/sprout/pkg/bus"
	"github.com/prime-radiant-inc/sprout/pkg/genome"
	"github.com/prime-radiant-inc/sprout/pkg/learn"
	"github.com/prime-radiant-inc/sprout/pkg/llm"
	"github.com/prime-radiant-inc/sprout/pkg/logger"
	"github.com/prime-radiant-inc/sprout/pkg/metrics"
	"github.com/prime-radiant-inc/sprout/pkg/observability"
	"github.com/prime-radiant-inc/sprout/pkg/primitive"
	"github.com/prime-radiant-inc/sprout/pkg/recall"
	"github.com/prime-radiant-inc/sprout/pkg/server"
	"github.com/prime-radiant-inc/sprout/pkg/session"
)

// CLI defines the command-line interface.
type CLI struct {
	Run   RunCmd   `cmd:"" help:"Run a single goal against a root agent and print the outcome."`
	Serve ServeCmd `cmd:"" help:"Start the session HTTP server."`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// sharedFlags are the collaborators both commands need to construct.
type sharedFlags struct {
	GenomeDir  string `name:"genome" help:"Genome working directory." type:"path" required:""`
	Agent      string `name:"agent" help:"Root agent name to run." required:""`
	WorkingDir string `name:"working-dir" help:"Working directory primitives may read/write under." type:"path" default:"."`
	LogBase    string `name:"log-base" help:"Directory to write per-subagent event logs under." type:"path"`
	Exporter   string `name:"trace-exporter" help:"Tracing exporter: stdout, otlp, or empty to disable."`
	OTLPAddr   string `name:"otlp-endpoint" help:"OTLP collector endpoint (used when --trace-exporter=otlp)."`
}

// buildCollaborators opens the genome, metrics, bus, recall, primitive
// registry, and Learn queue shared by both commands. Real LLM wire adapters
// are an out-of-scope collaborator (pkg/llm's doc comment), so the only
// provider registered here is a deterministic "mock" one, for smoke-testing
// without API credentials.
func buildCollaborators(ctx context.Context, f sharedFlags) (*session.Controller, http.Handler, func(), error) {
	g := genome.Open(f.GenomeDir)
	if err := g.Init(); err != nil {
		return nil, nil, nil, fmt.Errorf("sprout: init genome: %w", err)
	}
	if err := g.LoadFromDisk(); err != nil {
		return nil, nil, nil, fmt.Errorf("sprout: load genome: %w", err)
	}

	spec, ok := g.GetAgent(f.Agent)
	if !ok {
		return nil, nil, nil, fmt.Errorf("sprout: agent %q not found in genome", f.Agent)
	}

	promRegistry := prometheus.NewRegistry()
	metricsPath := filepath.Join(g.Dir(), metricsDirName, "metrics.jsonl")
	m, err := metrics.New(metricsPath, promRegistry)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sprout: open metrics store: %w", err)
	}

	logPath := filepath.Join(g.Dir(), "logs", "session.jsonl")
	b, err := bus.New(logPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sprout: open event bus: %w", err)
	}

	registry := primitive.NewRegistry()
	if err := primitive.RegisterBuiltins(registry); err != nil {
		return nil, nil, nil, fmt.Errorf("sprout: register primitives: %w", err)
	}

	rec := recall.New(g)

	obs, err := observability.NewProvider(ctx, observability.Config{
		Exporter:   f.Exporter,
		Endpoint:   f.OTLPAddr,
		Registerer: promRegistry,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sprout: init observability: %w", err)
	}
	b.Observability = obs

	providerRegistry := llm.NewRegistry()
	mockProvider := llm.NewScripted("mock", llm.Response{
		Message: llm.NewAssistantText("no provider configured; this is the built-in smoke-test provider"),
		Finish:  llm.Finish{Reason: llm.FinishStop},
	})
	if err := providerRegistry.Register(mockProvider.Name(), mockProvider); err != nil {
		return nil, nil, nil, fmt.Errorf("sprout: register mock provider: %w", err)
	}
	provider, err := providerRegistry.Resolve("mock")
	if err != nil {
		return nil, nil, nil, err
	}

	learnQueue := learn.New(learn.Config{Bus: b, Genome: g, Metrics: m, Provider: provider})

	ctrl, err := session.New(session.Config{
		Bus:             b,
		Genome:          g,
		Registry:        registry,
		Provider:        provider,
		Recall:          rec,
		Learn:           learnQueue,
		Metrics:         m,
		Observability:   obs,
		RootSpec:        spec,
		AvailableAgents: g.ListAgents(),
		WorkingDir:      f.WorkingDir,
		LogBase:         f.LogBase,
		SessionID:       bus.NewID(),
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sprout: construct session controller: %w", err)
	}

	cleanup := func() {
		_ = obs.Shutdown(context.Background())
		_ = b.Close()
		_ = m.Close()
	}
	return ctrl, m.Handler(), cleanup, nil
}

const metricsDirName = "metrics"

// RunCmd runs a single goal to completion and prints the final outcome.
type RunCmd struct {
	sharedFlags
	Goal   string `arg:"" help:"The goal to pursue."`
	Resume string `name:"resume" help:"Path to a prior session's JSONL event log to replay as history before this goal." type:"path"`
}

func (c *RunCmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	installSignalHandler(cancel)

	ctrl, _, cleanup, err := buildCollaborators(ctx, c.sharedFlags)
	if err != nil {
		return err
	}
	defer cleanup()

	var sess *session.Session
	if c.Resume != "" {
		sess, err = ctrl.ResumeAndSubmitGoal(ctx, c.Goal, c.Resume)
	} else {
		sess, err = ctrl.SubmitGoal(ctx, c.Goal)
	}
	if err != nil {
		return fmt.Errorf("sprout: submit goal: %w", err)
	}

	for event := range sess.Events {
		slog.Info("event", "kind", event.Kind, "agent", event.AgentID, "depth", event.Depth)
	}

	result, runErr := sess.Wait()
	if runErr != nil {
		return fmt.Errorf("sprout: run failed: %w", runErr)
	}

	fmt.Printf("\nsuccess=%v turns=%d stumbles=%d\n%s\n", result.Success, result.Turns, result.Stumbles, result.Output)
	return nil
}

// ServeCmd starts the HTTP session server.
type ServeCmd struct {
	sharedFlags
	Port int `help:"Port to listen on." default:"8080"`
}

func (c *ServeCmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	installSignalHandler(cancel)

	ctrl, metricsHandler, cleanup, err := buildCollaborators(ctx, c.sharedFlags)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.New(ctrl)
	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)
	mux.Handle("/", srv)

	addr := fmt.Sprintf(":%d", c.Port)
	slog.Info("sprout server listening", "addr", addr, "metrics", "/metrics")

	httpServer := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("sprout: serve: %w", err)
	}
	return nil
}

func installSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down...")
		cancel()
	}()
}

func main() {
	_ = godotenv.Load()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("sprout"),
		kong.Description("A self-improving hierarchical agent runtime."),
		kong.UsageOnError(),
	)

	level, _ := logger.ParseLevel(cli.LogLevel)
	logger.Init(level, os.Stderr, cli.LogFormat)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
