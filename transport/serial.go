package transport

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tarm/serial"
)

// Serial is a USB serial (tty / COM) link.
type Serial struct {
	Baud        int
	ReadTimeout time.Duration

	mu   sync.Mutex
	port *serial.Port
	path string
}

func NewSerial(baud int, readTimeout time.Duration) *Serial {
	return &Serial{Baud: baud, ReadTimeout: readTimeout}
}

func (s *Serial) String() string { return "serial(" + s.path + ")" }

func (s *Serial) Open(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return ErrAlreadyOpen
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        path,
		Baud:        s.Baud,
		ReadTimeout: s.ReadTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return fmt.Errorf("open serial %s: %w", path, err)
	}
	s.port, s.path = p, path
	log.Debug().Str("path", path).Int("baud", s.Baud).Msg("serial port open")
	return nil
}

func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return ErrNotOpen
	}
	err := s.port.Close()
	s.port = nil
	return err
}

func (s *Serial) Write(p []byte) (int, error) {
	port := s.get()
	if port == nil {
		return 0, ErrNotOpen
	}
	return port.Write(p)
}

func (s *Serial) Read(p []byte) (int, error) {
	port := s.get()
	if port == nil {
		return 0, ErrNotOpen
	}
	n, err := port.Read(p)
	return idle(n, err, s.ReadTimeout)
}

// idle turns the zero-byte io.EOF a port with a read timeout returns when
// nothing arrived into os.ErrDeadlineExceeded, so readers can tell a quiet
// device from a closed one.
func idle(n int, err error, timeout time.Duration) (int, error) {
	if n == 0 && err == io.EOF && timeout > 0 {
		return 0, os.ErrDeadlineExceeded
	}
	return n, err
}

func (s *Serial) get() *serial.Port {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}
