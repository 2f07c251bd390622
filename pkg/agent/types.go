package agent

import "github.com/prime-radiant-inc/sprout/pkg/verify"

// LearnQueue is the subset of the Learn Process an Agent depends on:
// enqueuing a classified stumble signal for asynchronous processing. It is
// declared here rather than satisfied by an import of pkg/learn, which would
// close a cycle (pkg/learn reasons about the same ActResult/LearnSignal
// shapes an Agent produces, but also depends on genome and metrics wiring
// an Agent doesn't need).
type LearnQueue interface {
	Push(signal verify.LearnSignal)
}

// Delegation is a tool_call interpreted as a request to run another agent.
type Delegation struct {
	CallID    string
	AgentName string
	Goal      string
	Hints     []string
}

// primitiveCall is a tool_call interpreted as a primitive invocation.
type primitiveCall struct {
	CallID string
	Name   string
	Args   map[string]any
}
