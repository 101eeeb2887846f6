package transport

import (
	"io"
	"sync"

	"periph.io/x/conn/v3"
)

// Opener connects to path and returns the wire connection plus whatever
// must be closed to release it.
type Opener func(path string) (conn.Conn, io.Closer, error)

// Conn adapts a periph.io conn.Conn to monome.Transport. A write is a
// single Tx with no read buffer; a read is a single Tx with no write.
type Conn struct {
	mu     sync.Mutex
	open   Opener
	c      conn.Conn
	closer io.Closer
}

// NewConn returns a transport that connects with open on Open.
func NewConn(open Opener) *Conn {
	return &Conn{open: open}
}

// Wrap returns an already connected transport over c. Open is a no-op
// until the transport is closed.
func Wrap(c conn.Conn) *Conn {
	return &Conn{c: c}
}

func (t *Conn) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.c == nil {
		return "conn(closed)"
	}
	return "conn(" + t.c.String() + ")"
}

func (t *Conn) Open(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.c != nil {
		if t.open == nil {
			return nil
		}
		return ErrAlreadyOpen
	}
	if t.open == nil {
		return ErrNotOpen
	}
	c, closer, err := t.open(path)
	if err != nil {
		return err
	}
	t.c, t.closer = c, closer
	return nil
}

func (t *Conn) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.c == nil {
		return ErrNotOpen
	}
	t.c = nil
	if t.closer != nil {
		err := t.closer.Close()
		t.closer = nil
		return err
	}
	return nil
}

func (t *Conn) Write(p []byte) (int, error) {
	c := t.conn()
	if c == nil {
		return 0, ErrNotOpen
	}
	if err := c.Tx(p, nil); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *Conn) Read(p []byte) (int, error) {
	c := t.conn()
	if c == nil {
		return 0, ErrNotOpen
	}
	if err := c.Tx(nil, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *Conn) conn() conn.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.c
}
