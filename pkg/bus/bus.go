// Package bus implements the Event Bus: a process-wide, multi-consumer
// fan-out channel that also serializes every emitted event to an
// append-only JSONL session log.
package bus

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prime-radiant-inc/sprout/pkg/logger"
	"github.com/prime-radiant-inc/sprout/pkg/observability"
)

// Kind enumerates the SessionEvent kinds from the data model.
type Kind string

const (
	KindSessionStart Kind = "session_start"
	KindPerceive     Kind = "perceive"
	KindRecall       Kind = "recall"
	KindPlanStart    Kind = "plan_start"
	KindPlanEnd      Kind = "plan_end"
	KindActStart     Kind = "act_start"
	KindActEnd       Kind = "act_end"
	KindPrimStart    Kind = "primitive_start"
	KindPrimEnd      Kind = "primitive_end"
	KindVerify       Kind = "verify"
	KindLearnSignal  Kind = "learn_signal"
	KindLearnStart   Kind = "learn_start"
	KindLearnEnd     Kind = "learn_end"
	KindLearnMutate  Kind = "learn_mutation"
	KindSteering     Kind = "steering"
	KindWarning      Kind = "warning"
	KindInterrupted  Kind = "interrupted"
	KindCompaction   Kind = "compaction"
	KindSessionEnd   Kind = "session_end"
)

// Event is the wire/record shape of a SessionEvent (spec.md §3, §6).
type Event struct {
	Kind      Kind           `json:"kind"`
	Timestamp int64          `json:"timestamp"`
	AgentID   string         `json:"agent_id"`
	Depth     int            `json:"depth"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent builds an Event stamped with the current time.
func NewEvent(kind Kind, agentID string, depth int, data map[string]any) *Event {
	if data == nil {
		data = map[string]any{}
	}
	return &Event{
		Kind:      kind,
		Timestamp: time.Now().UnixMilli(),
		AgentID:   agentID,
		Depth:     depth,
		Data:      data,
	}
}

// Listener receives every event emitted on the bus, in emission order.
type Listener func(*Event)

type subscription struct {
	id int
	fn Listener
}

// Unsubscribe detaches a previously registered Listener.
type Unsubscribe func()

// Bus fans events out to subscribers and appends them to an optional JSONL
// log file. Emit never blocks on the log write: writes are dispatched to a
// single background goroutine so that log order always equals emission
// order, and write errors never propagate to the caller.
type Bus struct {
	mu        sync.Mutex
	listeners []subscription
	nextID    int
	buffer    []*Event

	logFile *os.File
	writeCh chan *Event
	wg      sync.WaitGroup
	closeCh chan struct{}

	// Observability, if set, opens a span around every emitted event per
	// SPEC_FULL.md §4.1. Nil-safe: never set means tracing is off.
	Observability *observability.Provider
}

// New creates a Bus. If logPath is non-empty, events are additionally
// appended there as JSONL.
func New(logPath string) (*Bus, error) {
	b := &Bus{
		writeCh: make(chan *Event, 256),
		closeCh: make(chan struct{}),
	}

	if logPath != "" {
		file, _, err := logger.OpenLogFile(logPath)
		if err != nil {
			return nil, err
		}
		b.logFile = file
	}

	go b.writeLoop()
	return b, nil
}

func (b *Bus) writeLoop() {
	enc := func(e *Event) {
		if b.logFile == nil {
			return
		}
		line, err := json.Marshal(e)
		if err != nil {
			logger.Get().Debug("bus: marshal event failed", "err", err)
			return
		}
		line = append(line, '\n')
		if _, err := b.logFile.Write(line); err != nil {
			logger.Get().Debug("bus: write event failed", "err", err)
		}
	}

	for {
		select {
		case e := <-b.writeCh:
			enc(e)
			b.wg.Done()
		case <-b.closeCh:
			// Drain remaining queued writes before exiting.
			for {
				select {
				case e := <-b.writeCh:
					enc(e)
					b.wg.Done()
				default:
					return
				}
			}
		}
	}
}

// Subscribe registers fn to receive every future event. Returns a handle
// that detaches fn.
func (b *Bus) Subscribe(fn Listener) Unsubscribe {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners = append(b.listeners, subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.listeners {
			if s.id == id {
				b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// Emit constructs an event, invokes every current subscriber synchronously
// in registration order, appends it to the in-memory buffer, and (if a log
// file is configured) enqueues it for an asynchronous append. The buffer
// append and the write-channel send happen under the same lock, so two
// goroutines racing Emit concurrently always enqueue onto writeCh in the
// same order they appended to buffer: log order equals emission order.
func (b *Bus) Emit(kind Kind, agentID string, depth int, data map[string]any) *Event {
	event := NewEvent(kind, agentID, depth, data)
	_, endSpan := b.Observability.StartEventSpan(context.Background(), string(kind), agentID, depth)
	defer endSpan()

	b.mu.Lock()
	subs := make([]subscription, len(b.listeners))
	copy(subs, b.listeners)
	b.buffer = append(b.buffer, event)
	if b.logFile != nil {
		b.wg.Add(1)
		b.writeCh <- event
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(event)
	}

	return event
}

// Collected returns a snapshot of every event delivered so far, in emission
// order. It is a prefix-complete record: later calls return a superset
// prefix-preserving extension of earlier calls.
func (b *Bus) Collected() []*Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Event, len(b.buffer))
	copy(out, b.buffer)
	return out
}

// Flush waits for the write chain to drain.
func (b *Bus) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the background writer after draining pending writes and
// closes the log file.
func (b *Bus) Close() error {
	close(b.closeCh)
	b.wg.Wait()
	if b.logFile != nil {
		return b.logFile.Close()
	}
	return nil
}

// NewID returns a fresh unique identifier (session ids, delegation call ids,
// subagent log directory names).
func NewID() string {
	return uuid.New().String()
}
