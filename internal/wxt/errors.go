package wxt

import (
	"errors"
	"fmt"
)

// ErrRetriesExceeded is returned by the acquisition loop once the
// consecutive-failure budget is spent. Nothing further is yielded after it.
var ErrRetriesExceeded = errors.New("max tries exceeded")

// TransportError wraps an I/O failure from the underlying transport. The
// acquisition loop counts it against the retry budget.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IncompleteFrameError reports a fixed-length frame of the wrong size.
// Treated like a transport failure for retry purposes.
type IncompleteFrameError struct {
	Got  int
	Want int
}

func (e *IncompleteFrameError) Error() string {
	return fmt.Sprintf("incomplete frame: got %d bytes, expected %d", e.Got, e.Want)
}

// MalformedFieldError reports a token that could not be decoded into a
// (code, tagged value) pair. The whole packet is rejected and the attempt
// counts as failed.
type MalformedFieldError struct {
	Token  string
	Reason string
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("malformed field %q: %s", e.Token, e.Reason)
}
