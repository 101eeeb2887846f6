package poller

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/grid40h/monome"
	"github.com/coreman2200/grid40h/proto40h"
	"github.com/coreman2200/grid40h/transport"
)

func TestNextRealignsAfterGarbage(t *testing.T) {
	in := bytes.NewReader([]byte{
		0x01, 0x35, // down 3,5
		0x7F,       // stray byte
		0x00, 0x72, // up 7,2
	})
	p := New(in, proto40h.New(nil), proto40h.FrameSize)

	ev, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, monome.Event{Type: monome.ButtonDown, X: 3, Y: 5}, ev)

	_, err = p.Next()
	assert.ErrorIs(t, err, monome.ErrUnrecognized)

	ev, err = p.Next()
	require.NoError(t, err)
	assert.Equal(t, monome.Event{Type: monome.ButtonUp, X: 7, Y: 2}, ev)

	_, err = p.Next()
	assert.ErrorIs(t, err, io.EOF)

	_, dropped := p.Counts()
	assert.Equal(t, 1, dropped)
}

func TestRunDispatchesByType(t *testing.T) {
	in := bytes.NewReader([]byte{
		0x01, 0x11,
		0x10, 0x00,
		0x00, 0x11,
		0x21, 0x44, // output frame, skipped
		0x01, 0x22,
	})
	p := New(in, proto40h.New(nil), proto40h.FrameSize)

	var downs, all []monome.Event
	p.Handle(monome.ButtonDown, func(ev monome.Event) { downs = append(downs, ev) })
	p.HandleAll(func(ev monome.Event) { all = append(all, ev) })

	err := p.Run(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, []monome.Event{
		{Type: monome.ButtonDown, X: 1, Y: 1},
		{Type: monome.ButtonDown, X: 2, Y: 2},
	}, downs)
	require.Len(t, all, 4)
	assert.Equal(t, monome.AuxInput, all[1].Type)

	events, _ := p.Counts()
	assert.Equal(t, 4, events)
}

func TestRunStopsOnCancelAndClose(t *testing.T) {
	sim := transport.NewSim()
	require.NoError(t, sim.Open(""))
	p := New(sim, proto40h.New(sim), proto40h.FrameSize)

	got := make(chan monome.Event, 1)
	p.Handle(monome.ButtonDown, func(ev monome.Event) { got <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	sim.Press(4, 6)
	select {
	case ev := <-got:
		assert.Equal(t, monome.Event{Type: monome.ButtonDown, X: 4, Y: 6}, ev)
	case <-time.After(time.Second):
		t.Fatal("no event")
	}

	cancel()
	require.NoError(t, sim.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

type chunk struct {
	b   []byte
	err error
}

// quietReader plays back chunks, one per Read, then reports io.EOF.
type quietReader struct{ chunks []chunk }

func (r *quietReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	c := r.chunks[0]
	r.chunks = r.chunks[1:]
	return copy(p, c.b), c.err
}

func TestRunWaitsThroughReadTimeouts(t *testing.T) {
	in := &quietReader{chunks: []chunk{
		{err: os.ErrDeadlineExceeded},
		{b: []byte{0x01}},
		{err: os.ErrDeadlineExceeded}, // frame split by a quiet interval
		{b: []byte{0x35}},
		{err: os.ErrDeadlineExceeded},
		{b: []byte{0x00, 0x35}},
	}}
	p := New(in, proto40h.New(nil), proto40h.FrameSize)

	var got []monome.Event
	p.HandleAll(func(ev monome.Event) { got = append(got, ev) })

	assert.ErrorIs(t, p.Run(context.Background()), io.EOF)
	assert.Equal(t, []monome.Event{
		{Type: monome.ButtonDown, X: 3, Y: 5},
		{Type: monome.ButtonUp, X: 3, Y: 5},
	}, got)
}
