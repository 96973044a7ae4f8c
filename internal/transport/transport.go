package transport

import "io"

// Transport opens byte-stream sessions to a sensor. One session covers one
// acquisition attempt; the caller closes it before opening another, so the
// underlying resource never outlives a single poll.
type Transport interface {
	Open() (io.ReadCloser, error)
}
