package learn

import (
	"context"
	"fmt"
	"sync"

	"github.com/prime-radiant-inc/sprout/pkg/bus"
	"github.com/prime-radiant-inc/sprout/pkg/genome"
	"github.com/prime-radiant-inc/sprout/pkg/llm"
	"github.com/prime-radiant-inc/sprout/pkg/logger"
	"github.com/prime-radiant-inc/sprout/pkg/metrics"
	"github.com/prime-radiant-inc/sprout/pkg/verify"
)

// Config wires the collaborators the Learn Process needs.
type Config struct {
	Bus      *bus.Bus
	Genome   *genome.Store
	Metrics  *metrics.Store
	Provider llm.Provider
	Model    string

	// PendingPath is where the pending-evaluations JSON is persisted.
	// Defaults to "<genome dir>/metrics/pending-evaluations.json".
	PendingPath string
}

// Queue is the single-consumer Learn Process: Push appends signals from any
// goroutine, and only the background loop removes them or adds to the
// recentImprovements set and the pending-evaluation list.
// EvaluatePendingImprovements also rewrites the pending list, under mu.
type Queue struct {
	cfg Config

	mu      sync.Mutex
	signals []verify.LearnSignal

	wake    chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool

	recentImprovements map[string]bool
	pending            []PendingEvaluation
}

// New constructs a Queue. Call StartBackground to begin processing.
func New(cfg Config) *Queue {
	if cfg.PendingPath == "" && cfg.Genome != nil {
		cfg.PendingPath = defaultPendingPath(cfg.Genome.Dir())
	}
	return &Queue{
		cfg:                cfg,
		wake:               make(chan struct{}, 1),
		recentImprovements: make(map[string]bool),
	}
}

// Push enqueues signal and wakes the background loop. Safe to call from any
// goroutine at any time.
func (q *Queue) Push(signal verify.LearnSignal) {
	q.mu.Lock()
	q.signals = append(q.signals, signal)
	q.mu.Unlock()
	q.notify()
}

// QueueSize returns the current number of unprocessed signals.
func (q *Queue) QueueSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.signals)
}

func (q *Queue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// StartBackground starts the consumer goroutine. Idempotent: calling it
// again while already running is a no-op.
func (q *Queue) StartBackground(ctx context.Context) {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.stopCh = make(chan struct{})
	q.doneCh = make(chan struct{})
	q.mu.Unlock()

	if q.pending == nil {
		if loaded, err := loadPending(q.cfg.PendingPath); err == nil {
			q.pending = loaded
		}
	}

	go q.run(ctx)
}

// StopBackground requests the loop stop, wakes it, drains remaining
// signals synchronously, and returns once processing is quiesced.
func (q *Queue) StopBackground() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	stop := q.stopCh
	done := q.doneCh
	q.mu.Unlock()

	close(stop)
	q.notify()
	<-done
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.doneCh)
	defer func() {
		q.mu.Lock()
		q.running = false
		q.mu.Unlock()
	}()

	for {
		q.drain(ctx)

		select {
		case <-q.stopCh:
			q.drain(ctx)
			return
		case <-ctx.Done():
			return
		case <-q.wake:
		}
	}
}

// drain processes every currently queued signal.
func (q *Queue) drain(ctx context.Context) {
	for {
		q.mu.Lock()
		if len(q.signals) == 0 {
			q.mu.Unlock()
			return
		}
		signal := q.signals[0]
		q.signals = q.signals[1:]
		q.mu.Unlock()

		q.process(ctx, signal)
	}
}

func (q *Queue) process(ctx context.Context, signal verify.LearnSignal) {
	if !q.shouldLearn(signal) {
		return
	}

	q.emit(bus.KindLearnStart, map[string]any{"agent_name": signal.AgentName, "kind": string(signal.Kind)})

	mutation, err := q.reason(ctx, signal)
	if err != nil {
		q.emit(bus.KindLearnEnd, map[string]any{"result": "error", "error": err.Error()})
		logger.Get().Warn("learn: reasoning failed", "agent", signal.AgentName, "err", err)
		return
	}
	if mutation == nil || mutation.Type == MutationSkip {
		q.emit(bus.KindLearnEnd, map[string]any{"result": "skipped"})
		return
	}

	pending, err := q.apply(signal, *mutation)
	if err != nil {
		q.emit(bus.KindLearnEnd, map[string]any{"result": "error", "error": err.Error()})
		return
	}

	q.mu.Lock()
	q.pending = append(q.pending, pending)
	q.recentImprovements[fmt.Sprintf("%s:%s", signal.AgentName, signal.Kind)] = true
	pendingCopy := append([]PendingEvaluation(nil), q.pending...)
	q.mu.Unlock()

	if err := savePending(q.cfg.PendingPath, pendingCopy); err != nil {
		q.emit(bus.KindWarning, map[string]any{"reason": "pending_evaluations_write_failed", "error": err.Error()})
	}

	q.emit(bus.KindLearnMutate, map[string]any{
		"mutation_type": string(mutation.Type),
		"agent_name":    pending.AgentName,
	})
	q.emit(bus.KindLearnEnd, map[string]any{"result": "applied"})
}

// shouldLearn filters a signal per spec.md §4.9's ordered rules.
func (q *Queue) shouldLearn(signal verify.LearnSignal) bool {
	if signal.Kind == verify.SignalFailure {
		return true
	}

	q.mu.Lock()
	skip := q.recentImprovements[fmt.Sprintf("%s:%s", signal.AgentName, signal.Kind)]
	q.mu.Unlock()
	if skip {
		return false
	}

	if q.cfg.Metrics == nil {
		return false
	}

	if signal.Kind == verify.SignalError && q.cfg.Metrics.StumbleCount(signal.AgentName, "error") < 2 {
		return false
	}

	if q.cfg.Metrics.StumbleCount(signal.AgentName, string(signal.Kind)) >= 3 {
		return true
	}

	return false
}

func (q *Queue) emit(kind bus.Kind, data map[string]any) {
	if q.cfg.Bus == nil {
		return
	}
	q.cfg.Bus.Emit(kind, "learn", 0, data)
}
