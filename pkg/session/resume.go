package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"

	"github.com/prime-radiant-inc/sprout/pkg/bus"
	"github.com/prime-radiant-inc/sprout/pkg/llm"
)

// LoadEventLog reads a JSONL session log from path into a slice of events,
// in file order.
func LoadEventLog(path string) ([]*bus.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("session: open event log: %w", err)
	}
	defer f.Close()

	var events []*bus.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e bus.Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("session: parse event log line: %w", err)
		}
		events = append(events, &e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("session: scan event log: %w", err)
	}
	return events, nil
}

// ReplayEventLog translates a root agent's (depth=0) event history back into
// a conversation, per spec.md §4.8's resume translation table. A compaction
// event discards everything replayed so far and reseeds with a single user
// message containing its summary — an idempotent checkpoint.
func ReplayEventLog(events []*bus.Event) ([]llm.Message, error) {
	var history []llm.Message

	for _, e := range events {
		if e.Depth != 0 {
			continue
		}

		switch e.Kind {
		case bus.KindPerceive:
			goal, _ := e.Data["goal"].(string)
			history = append(history, llm.NewUserText(goal))

		case bus.KindSteering:
			text, _ := e.Data["text"].(string)
			history = append(history, llm.NewUserText(text))

		case bus.KindPlanEnd:
			msg, err := decodeMessage(e.Data["assistant_message"])
			if err != nil {
				return nil, fmt.Errorf("session: replay plan_end: %w", err)
			}
			history = append(history, msg)

		case bus.KindPrimEnd, bus.KindActEnd:
			msg, err := decodeMessage(e.Data["tool_result_message"])
			if err != nil {
				return nil, fmt.Errorf("session: replay %s: %w", e.Kind, err)
			}
			history = append(history, msg)

		case bus.KindCompaction:
			summary, _ := e.Data["summary"].(string)
			history = []llm.Message{llm.NewUserText(summary)}
		}
	}

	return history, nil
}

// decodeMessage accepts either a live llm.Message (the in-process Bus path)
// or a map[string]any decoded from JSON (the reloaded-log path) and
// produces a typed Message either way.
func decodeMessage(raw any) (llm.Message, error) {
	if msg, ok := raw.(llm.Message); ok {
		return msg, nil
	}
	var msg llm.Message
	if err := mapstructure.Decode(raw, &msg); err != nil {
		return llm.Message{}, err
	}
	return msg, nil
}
