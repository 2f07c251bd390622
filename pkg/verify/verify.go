// Package verify implements the Verifier: pure classification of action and
// primitive outcomes into stumble signals for the Learn Process.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// InefficiencyTurnThreshold is the turn count above which an otherwise
// successful action is classified as an inefficiency stumble.
const InefficiencyTurnThreshold = 10

// SignalKind enumerates the kinds of LearnSignal the Verifier can produce.
type SignalKind string

const (
	SignalFailure      SignalKind = "failure"
	SignalTimeout      SignalKind = "timeout"
	SignalError        SignalKind = "error"
	SignalInefficiency SignalKind = "inefficiency"
	SignalRetry        SignalKind = "retry"
)

// ActResult is the outcome of one Agent Loop run.
type ActResult struct {
	AgentName string `json:"agent_name"`
	Goal      string `json:"goal"`
	Output    string `json:"output"`
	Success   bool   `json:"success"`
	Stumbles  int    `json:"stumbles"`
	Turns     int    `json:"turns"`
	TimedOut  bool   `json:"timed_out"`
}

// PrimitiveResult is the outcome of one primitive invocation.
type PrimitiveResult struct {
	Output  string `json:"output"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// LearnSignal is a classified post-action outcome that may trigger a
// genome mutation.
type LearnSignal struct {
	Kind      SignalKind `json:"kind"`
	Goal      string     `json:"goal"`
	AgentName string     `json:"agent_name"`
	Details   ActResult  `json:"details"`
	SessionID string     `json:"session_id,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

// VerifyResult is the verdict the Verifier reaches for one ActResult.
type VerifyResult struct {
	Success  bool
	Stumbled bool
	Output   string
	Kind     SignalKind
}

// VerifyAct classifies an ActResult, returning its verdict and, when the
// action stumbled, a LearnSignal describing it.
func VerifyAct(result ActResult, sessionID string) (VerifyResult, *LearnSignal) {
	var kind SignalKind
	switch {
	case !result.Success && result.TimedOut:
		kind = SignalTimeout
	case !result.Success:
		kind = SignalFailure
	case result.Stumbles > 0:
		kind = SignalError
	case result.Turns > InefficiencyTurnThreshold:
		kind = SignalInefficiency
	default:
		kind = ""
	}

	vr := VerifyResult{
		Success:  result.Success,
		Stumbled: kind != "",
		Output:   result.Output,
		Kind:     kind,
	}

	if kind == "" {
		return vr, nil
	}

	return vr, &LearnSignal{
		Kind:      kind,
		Goal:      result.Goal,
		AgentName: result.AgentName,
		Details:   result,
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// VerifyPrimitive classifies a primitive invocation outcome. When the
// primitive stumbled and a session is active, it produces an `error`
// LearnSignal whose agent_name is the primitive's own name.
func VerifyPrimitive(result PrimitiveResult, toolName, goal, sessionID string) (bool, *LearnSignal) {
	stumbled := !result.Success
	if !stumbled || sessionID == "" {
		return stumbled, nil
	}

	return stumbled, &LearnSignal{
		Kind:      SignalError,
		Goal:      goal,
		AgentName: toolName,
		Details: ActResult{
			AgentName: toolName,
			Goal:      goal,
			Output:    result.Output,
			Success:   result.Success,
			Stumbles:  1,
			Turns:     1,
		},
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Call is the minimal shape of a tool invocation needed for retry detection.
type Call struct {
	Name string
	Args map[string]any
}

// DetectRetries counts redundant calls in callHistory: calls that share a
// (name, canonical-json(args)) signature with an earlier call in the same
// history. The first occurrence of a signature is never counted; every
// repeat is.
func DetectRetries(callHistory []Call) int {
	seen := make(map[string]bool, len(callHistory))
	retries := 0
	for _, call := range callHistory {
		sig := signature(call)
		if seen[sig] {
			retries++
			continue
		}
		seen[sig] = true
	}
	return retries
}

// signature builds a stable (name, canonical-json(args)) fingerprint for a
// call, sorting map keys so that argument order never affects the result.
func signature(call Call) string {
	canon := canonicalize(call.Args)
	b, err := json.Marshal(canon)
	if err != nil {
		b = []byte(`"` + call.Name + `"`)
	}
	sum := sha256.Sum256(append([]byte(call.Name+":"), b...))
	return hex.EncodeToString(sum[:])
}

// canonicalize rewrites a map[string]any into a deterministically ordered
// representation usable as a stable JSON encoding key.
func canonicalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, 0, len(keys)*2)
		for _, k := range keys {
			out = append(out, k, canonicalize(val[k]))
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = canonicalize(e)
		}
		return out
	default:
		return val
	}
}
