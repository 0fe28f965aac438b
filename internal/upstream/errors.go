package upstream

import "fmt"

// TransportError is a failure of the transport itself: connection refused,
// DNS, timeout. These are retried.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string   { return fmt.Sprintf("upstream transport: %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error   { return e.Err }
func (e *TransportError) Retryable() bool { return true }

// StatusError is a received non-2xx response from the provider. Fatal for the
// call; never retried, to avoid amplifying provider-side outages.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string   { return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body) }
func (e *StatusError) Retryable() bool { return false }

// MalformedResponseError is a 2xx response whose envelope does not carry the
// expected chat-completions shape.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string   { return "upstream malformed response: " + e.Reason }
func (e *MalformedResponseError) Retryable() bool { return false }
