package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Scripted is a deterministic test Provider. Each call to Complete pops the
// next response off a queue; Stream pops from the same queue and replays the
// response as one text event, one event per tool call, and a done event.
// Calling Complete or Stream past the end of the script returns a plain
// "exhausted" error, which is itself useful for asserting an agent doesn't
// over-call its model.
type Scripted struct {
	name string

	mu        sync.Mutex
	responses []Response
	next      int
	Requests  []Request // every request seen, for assertions
}

// NewScripted builds a Scripted provider named name that will return
// responses in order, one per call.
func NewScripted(name string, responses ...Response) *Scripted {
	return &Scripted{name: name, responses: responses}
}

func (s *Scripted) Name() string { return s.name }

func (s *Scripted) Complete(_ context.Context, req Request) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, req)
	if s.next >= len(s.responses) {
		return Response{}, fmt.Errorf("llm: scripted provider %q exhausted after %d calls", s.name, s.next)
	}
	resp := s.responses[s.next]
	s.next++
	return resp, nil
}

func (s *Scripted) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	resp, err := s.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamEvent, 4)
	go func() {
		defer close(ch)
		if text := resp.Message.TextContent(); text != "" {
			ch <- StreamEvent{Type: StreamText, Text: text}
		}
		for _, tc := range resp.Message.ToolCalls() {
			part := tc
			ch <- StreamEvent{Type: StreamToolCall, ToolCall: &part}
		}
		respCopy := resp
		ch <- StreamEvent{Type: StreamDone, Response: &respCopy}
	}()
	return ch, nil
}

// Delayed wraps a Provider so that Complete waits delay before (or instead
// of) returning the wrapped response, racing the request context so a
// caller that cancels mid-call observes ctx.Err() rather than a response.
// Used to exercise cancellation-during-plan behavior in tests.
type Delayed struct {
	Inner Provider
	Delay time.Duration
}

func (d *Delayed) Name() string { return d.Inner.Name() }

func (d *Delayed) Complete(ctx context.Context, req Request) (Response, error) {
	select {
	case <-time.After(d.Delay):
		return d.Inner.Complete(ctx, req)
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

func (d *Delayed) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	select {
	case <-time.After(d.Delay):
		return d.Inner.Stream(ctx, req)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
