package wxt

import (
	"bufio"
	"io"
	"log"
)

// restartSentinel marks the start of a legacy frame. Seen mid-line it means
// the previous frame was abandoned by the transmitter.
const restartSentinel = '!'

// legacyFrameLen is the payload length of the fixed-length legacy frame:
// 48 hex ASCII characters between the leading sentinels and the trailing CR.
const legacyFrameLen = 48

// Framer extracts candidate frames from a noisy serial byte stream. A frame
// ends at CR or LF, or at a restart sentinel once at least one byte has been
// buffered. A sentinel with nothing buffered just clears the buffer, so the
// leading "!!" of a legacy frame never reaches the caller.
type Framer struct {
	r     *bufio.Reader
	debug bool
}

func NewFramer(r io.Reader, debug bool) *Framer {
	return &Framer{r: bufio.NewReader(r), debug: debug}
}

// ReadFrame returns the next non-empty candidate frame without its
// terminator. Read errors from the transport, including timeouts, are
// returned as TransportError.
func (f *Framer) ReadFrame() ([]byte, error) {
	var buf []byte
	for {
		c, err := f.r.ReadByte()
		if err != nil {
			return nil, &TransportError{Op: "read", Err: err}
		}
		switch {
		case c == '\r' || c == '\n':
			if len(buf) == 0 {
				continue
			}
			if f.debug {
				log.Printf("framer: frame %q", buf)
			}
			return buf, nil
		case c == restartSentinel:
			if len(buf) == 0 {
				continue
			}
			if f.debug {
				log.Printf("framer: frame %q (restart)", buf)
			}
			return buf, nil
		default:
			buf = append(buf, c)
		}
	}
}

// ReadLegacyFrame returns the next frame and requires it to be exactly the
// legacy frame length. Anything else is an IncompleteFrameError.
func (f *Framer) ReadLegacyFrame() (string, error) {
	buf, err := f.ReadFrame()
	if err != nil {
		return "", err
	}
	if len(buf) != legacyFrameLen {
		return "", &IncompleteFrameError{Got: len(buf), Want: legacyFrameLen}
	}
	return string(buf), nil
}
