// Package session implements the Session Controller: the per-goal
// coordinator that subscribes to the Event Bus, runs a root Agent to
// completion, keeps the Learn Process draining in the background for the
// whole session, and exposes the resulting event stream to external
// interfaces (CLI, HTTP/SSE).
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/prime-radiant-inc/sprout/pkg/agent"
	"github.com/prime-radiant-inc/sprout/pkg/bus"
	"github.com/prime-radiant-inc/sprout/pkg/genome"
	"github.com/prime-radiant-inc/sprout/pkg/learn"
	"github.com/prime-radiant-inc/sprout/pkg/llm"
	"github.com/prime-radiant-inc/sprout/pkg/metrics"
	"github.com/prime-radiant-inc/sprout/pkg/observability"
	"github.com/prime-radiant-inc/sprout/pkg/primitive"
	"github.com/prime-radiant-inc/sprout/pkg/recall"
	"github.com/prime-radiant-inc/sprout/pkg/verify"
)

// Config wires the collaborators a Controller needs to run goals against a
// shared genome and event bus.
type Config struct {
	Bus      *bus.Bus
	Genome   *genome.Store
	Registry *primitive.Registry
	Provider llm.Provider
	Recall   *recall.Recall
	Learn    *learn.Queue
	Metrics  *metrics.Store

	Observability *observability.Provider

	RootSpec        genome.AgentSpec
	AvailableAgents []genome.AgentSpec

	WorkingDir string
	LogBase    string
	SessionID  string
}

// Controller runs one root agent per submitted goal, sharing its Bus,
// Genome, and background Learn queue across every goal in a session.
type Controller struct {
	cfg Config

	mu      sync.Mutex
	current *Session
}

// New constructs a Controller from cfg.
func New(cfg Config) (*Controller, error) {
	if cfg.Bus == nil {
		return nil, fmt.Errorf("session: bus is required")
	}
	if cfg.RootSpec.Name == "" {
		return nil, fmt.Errorf("session: root spec name is required")
	}
	return &Controller{cfg: cfg}, nil
}

// Session is one goal's in-flight run: its live event stream plus the
// controls (steer, cancel) that reach the running root agent.
type Session struct {
	Events <-chan *bus.Event

	ctrl   *Controller
	cancel context.CancelFunc
	root   *agent.Agent

	resultCh chan sessionOutcome
}

type sessionOutcome struct {
	result verify.ActResult
	err    error
}

// Steer forwards a steering message to the session's root agent.
func (s *Session) Steer(text string) {
	if s.root != nil {
		s.root.Steer(text)
	}
}

// Cancel requests the session's root agent stop at its next cancellation
// check point.
func (s *Session) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Wait blocks until the session's root agent run has returned, yielding its
// final ActResult and any construction/run error.
func (s *Session) Wait() (verify.ActResult, error) {
	outcome := <-s.resultCh
	return outcome.result, outcome.err
}

// SubmitGoal starts a new root agent run for goal. The Learn Process is
// started in the background before the agent runs (so learn signals
// produced mid-run are processed as they arrive) and stopped once the run
// completes, draining whatever remains queued. The returned Session's
// Events channel delivers the bus's events in emission order through a
// 256-event buffer; an event that arrives while the buffer is full is
// dropped rather than blocking the bus. The channel is closed once the run
// finishes.
func (c *Controller) SubmitGoal(ctx context.Context, goal string) (*Session, error) {
	return c.submitGoal(ctx, goal, nil)
}

// ResumeAndSubmitGoal loads and replays a prior session's JSONL event log
// (see Resume), seeds the root agent's history with it, and starts a new
// run for goal on top of that history. Use this to continue a session
// after a restart instead of starting the root agent with empty history.
func (c *Controller) ResumeAndSubmitGoal(ctx context.Context, goal, logPath string) (*Session, error) {
	history, err := Resume(logPath)
	if err != nil {
		return nil, fmt.Errorf("session: resume %s: %w", logPath, err)
	}
	return c.submitGoal(ctx, goal, history)
}

func (c *Controller) submitGoal(ctx context.Context, goal string, history []llm.Message) (*Session, error) {
	runCtx, cancel := context.WithCancel(ctx)

	events := make(chan *bus.Event, 256)
	unsubscribe := c.cfg.Bus.Subscribe(func(e *bus.Event) {
		select {
		case events <- e:
		default:
			// A slow consumer must not stall the bus; drop rather than block.
		}
	})

	root, err := agent.New(agent.Config{
		Spec:            c.cfg.RootSpec,
		Depth:           0,
		SessionID:       c.cfg.SessionID,
		Bus:             c.cfg.Bus,
		Genome:          c.cfg.Genome,
		Registry:        c.cfg.Registry,
		Provider:        c.cfg.Provider,
		Recall:          c.cfg.Recall,
		Learn:           c.cfg.Learn,
		Metrics:         c.cfg.Metrics,
		Observability:   c.cfg.Observability,
		AvailableAgents: c.cfg.AvailableAgents,
		History:         history,
		WorkingDir:      c.cfg.WorkingDir,
		LogBase:         c.cfg.LogBase,
	})
	if err != nil {
		unsubscribe()
		cancel()
		close(events)
		return nil, fmt.Errorf("session: construct root agent: %w", err)
	}

	sess := &Session{
		Events:   events,
		ctrl:     c,
		cancel:   cancel,
		root:     root,
		resultCh: make(chan sessionOutcome, 1),
	}

	c.mu.Lock()
	c.current = sess
	c.mu.Unlock()

	if c.cfg.Learn != nil {
		c.cfg.Learn.StartBackground(ctx)
	}

	go func() {
		defer cancel()
		defer close(events)
		defer unsubscribe()

		result, runErr := root.Run(runCtx, goal)

		if c.cfg.Learn != nil {
			c.cfg.Learn.StopBackground()
		}

		sess.resultCh <- sessionOutcome{result: result, err: runErr}
	}()

	return sess, nil
}

// Compact emits a compaction checkpoint on the controller's bus: external
// callers (e.g. a resumed-session host deciding the on-disk log has grown
// too large to replay verbatim) use this to collapse prior history into a
// single summary before the next goal is submitted. Nothing in this module
// calls it on its own behalf; the Agent Loop never produces one internally.
func (c *Controller) Compact(summary string) {
	c.cfg.Bus.Emit(bus.KindCompaction, c.cfg.RootSpec.Name, 0, map[string]any{"summary": summary})
}

// Resume loads a prior session's JSONL event log and replays it into a
// conversation history, suitable for seeding a fresh root agent's history
// before SubmitGoal is called again.
func Resume(logPath string) ([]llm.Message, error) {
	events, err := LoadEventLog(logPath)
	if err != nil {
		return nil, err
	}
	return ReplayEventLog(events)
}
