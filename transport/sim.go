package transport

import (
	"io"
	"strings"
	"sync"

	"github.com/coreman2200/grid40h/proto40h"
)

// Sim is an in-memory 40h. It applies the frames written to it to an 8x8
// LED state and hands injected key frames back through Read.
type Sim struct {
	mu        sync.Mutex
	open      bool
	path      string
	rows      [proto40h.Rows]byte // bit x of rows[y] is LED (x,y)
	intensity byte
	frames    int
	unknown   int
	partial   []byte

	in      chan []byte
	pending []byte
	done    chan struct{}
}

func NewSim() *Sim {
	return &Sim{in: make(chan []byte, 64)}
}

func (s *Sim) String() string { return "sim(" + s.path + ")" }

func (s *Sim) Open(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return ErrAlreadyOpen
	}
	s.open, s.path = true, path
	s.done = make(chan struct{})
	return nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrNotOpen
	}
	s.open = false
	close(s.done)
	return nil
}

// Write applies every whole frame in p. A trailing odd byte is kept until
// the next write completes it.
func (s *Sim) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, ErrNotOpen
	}
	buf := append(s.partial, p...)
	for len(buf) >= proto40h.FrameSize {
		s.apply(buf[0], buf[1])
		buf = buf[proto40h.FrameSize:]
	}
	s.partial = append([]byte(nil), buf...)
	return len(p), nil
}

func (s *Sim) apply(b0, b1 byte) {
	s.frames++
	switch {
	case b0 == proto40h.OpLedOn:
		s.rows[b1&0x7] |= 1 << (b1 >> 4 & 0x7)
	case b0 == proto40h.OpLedOff:
		s.rows[b1&0x7] &^= 1 << (b1 >> 4 & 0x7)
	case b0 == proto40h.OpIntensity:
		s.intensity = b1
	case b0&0xF8 == proto40h.OpLedRow:
		s.rows[b0&0x7] = b1
	case b0&0xF8 == proto40h.OpLedCol:
		col := b0 & 0x7
		for y := range s.rows {
			if b1&(1<<y) != 0 {
				s.rows[y] |= 1 << col
			} else {
				s.rows[y] &^= 1 << col
			}
		}
	default:
		s.unknown++
	}
}

// Read blocks until an injected frame is available or the sim is closed.
func (s *Sim) Read(p []byte) (int, error) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return 0, ErrNotOpen
	}
	done := s.done
	if len(s.pending) == 0 {
		s.mu.Unlock()
		select {
		case b := <-s.in:
			s.mu.Lock()
			s.pending = append(s.pending, b...)
		case <-done:
			return 0, io.EOF
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	s.mu.Unlock()
	return n, nil
}

// Inject queues raw bytes for Read.
func (s *Sim) Inject(b []byte) {
	s.in <- append([]byte(nil), b...)
}

// Press queues a key-down frame for (x,y).
func (s *Sim) Press(x, y uint) {
	s.Inject([]byte{proto40h.OpButtonDown, byte((x&0xF)<<4 | y&0xF)})
}

// Lift queues a key-up frame for (x,y).
func (s *Sim) Lift(x, y uint) {
	s.Inject([]byte{proto40h.OpButtonUp, byte((x&0xF)<<4 | y&0xF)})
}

// Rows returns the current row bitmaps.
func (s *Sim) Rows() [proto40h.Rows]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

func (s *Sim) Lit(x, y uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[y&0x7]&(1<<(x&0x7)) != 0
}

func (s *Sim) Intensity() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intensity
}

// Frames returns how many frames were applied, and how many of those had
// an opcode the 40h ignores.
func (s *Sim) Frames() (total, unknown int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames, s.unknown
}

// Render draws the grid, row 0 first, '#' for lit.
func (s *Sim) Render() string {
	rows := s.Rows()
	var b strings.Builder
	for y := range rows {
		for x := 0; x < proto40h.Rows; x++ {
			if x > 0 {
				b.WriteByte(' ')
			}
			if rows[y]&(1<<x) != 0 {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
