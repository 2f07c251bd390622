package agent

import "errors"

// ErrDepthExceeded is returned by New when constraints.max_depth > 0 and
// depth >= max_depth: a fatal, session-terminating construction failure.
var ErrDepthExceeded = errors.New("agent: max depth exceeded")
