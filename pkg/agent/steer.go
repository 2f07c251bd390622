package agent

import (
	"github.com/prime-radiant-inc/sprout/pkg/bus"
	"github.com/prime-radiant-inc/sprout/pkg/llm"
)

// Steer enqueues a steering message to be appended as a user message at the
// top of the next turn. Callable from any goroutine at any time; messages
// are consumed exactly once.
func (a *Agent) Steer(text string) {
	select {
	case a.steerCh <- text:
	default:
		// Drop rather than block the caller; steering is advisory.
	}
}

// drainSteering moves every currently queued steering message into history
// as a user message, emitting one steering event per message. Called
// exactly once at the top of each turn, so steering never lands mid-turn.
func (a *Agent) drainSteering() {
	for {
		select {
		case text := <-a.steerCh:
			a.history = append(a.history, llm.NewUserText(text))
			a.emit(bus.KindSteering, map[string]any{"text": text})
		default:
			return
		}
	}
}
