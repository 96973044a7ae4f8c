package transport

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.bug.st/serial"
)

// Serial opens a serial port for each session. 8N1 framing; the read timeout
// bounds every blocking read so a silent sensor turns into a failed attempt
// rather than a hung poll.
type Serial struct {
	PortName    string
	BaudRate    int
	ReadTimeout time.Duration
}

func (s *Serial) Open() (io.ReadCloser, error) {
	mode := &serial.Mode{
		BaudRate: s.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.PortName, err)
	}
	if s.ReadTimeout > 0 {
		if err := port.SetReadTimeout(s.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout: %w", err)
		}
	}
	return &serialSession{port: port}, nil
}

type serialSession struct {
	port serial.Port
}

// Read maps the library's zero-byte timeout result to an error. Without this
// a timed-out port looks like an endless stream of empty reads.
func (s *serialSession) Read(p []byte) (int, error) {
	n, err := s.port.Read(p)
	if n == 0 && err == nil {
		return 0, os.ErrDeadlineExceeded
	}
	return n, err
}

func (s *serialSession) Close() error {
	return s.port.Close()
}
