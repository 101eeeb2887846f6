// Package poller reads frames off a transport, decodes them and hands the
// events to registered handlers.
package poller

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/grid40h/monome"
)

type HandlerFunc func(monome.Event)

// Decoder turns one frame into an event. monome.Device and
// grid.Controller both satisfy it.
type Decoder interface {
	DecodeEvent(frame []byte) (monome.Event, error)
}

type Poller struct {
	r    io.Reader
	dec  Decoder
	buf  []byte
	have int

	mu       sync.RWMutex
	handlers map[monome.EventType][]HandlerFunc
	any      []HandlerFunc
	events   int
	dropped  int
}

// New returns a poller reading frameSize-byte frames from r.
func New(r io.Reader, dec Decoder, frameSize int) *Poller {
	return &Poller{
		r:        r,
		dec:      dec,
		buf:      make([]byte, frameSize),
		handlers: map[monome.EventType][]HandlerFunc{},
	}
}

// Handle registers h for events of type t.
func (p *Poller) Handle(t monome.EventType, h HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[t] = append(p.handlers[t], h)
}

// HandleAll registers h for every event.
func (p *Poller) HandleAll(h HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.any = append(p.any, h)
}

// Next blocks for one frame and decodes it. On an unrecognized frame the
// leading byte is dropped so the next call can realign on the following
// one. Bytes of a frame cut off by a read error are kept for the next call.
func (p *Poller) Next() (monome.Event, error) {
	n, err := io.ReadFull(p.r, p.buf[p.have:])
	p.have += n
	if err != nil {
		return monome.Event{}, err
	}
	ev, err := p.dec.DecodeEvent(p.buf)
	if err != nil {
		if errors.Is(err, monome.ErrUnrecognized) {
			copy(p.buf, p.buf[1:])
			p.have = len(p.buf) - 1
			p.mu.Lock()
			p.dropped++
			p.mu.Unlock()
		} else {
			p.have = 0
		}
		return monome.Event{}, err
	}
	p.have = 0
	return ev, nil
}

// Run dispatches events until ctx is done or the reader fails. A read
// timeout only means the device was quiet. A blocked read only returns
// once the transport is closed, so callers cancel ctx and then close the
// transport.
func (p *Poller) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		ev, err := p.Next()
		if errors.Is(err, monome.ErrUnrecognized) {
			log.Debug().Err(err).Msg("skipping frame")
			continue
		}
		if isTimeout(err) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		p.dispatch(ev)
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func (p *Poller) dispatch(ev monome.Event) {
	p.mu.Lock()
	p.events++
	hs := append(append([]HandlerFunc(nil), p.handlers[ev.Type]...), p.any...)
	p.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}

// Counts returns the number of events dispatched and frames dropped.
func (p *Poller) Counts() (events, dropped int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.events, p.dropped
}
