package assistant

import "fmt"

// OutOfScopeError means the topic gate rejected the question. Explanation is
// user-facing.
type OutOfScopeError struct {
	Explanation string
}

func (e *OutOfScopeError) Error() string { return "question out of scope: " + e.Explanation }

// UpstreamError wraps any failure talking to the completion provider,
// including malformed envelopes.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("upstream failure: %v", e.Err) }
func (e *UpstreamError) Unwrap() error { return e.Err }
