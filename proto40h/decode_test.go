package proto40h_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/grid40h/monome"
	. "github.com/coreman2200/grid40h/proto40h"
)

func TestDecodeButtons(t *testing.T) {
	cases := []struct {
		frame []byte
		want  monome.Event
	}{
		{[]byte{OpButtonDown, 0x35}, monome.Event{Type: monome.ButtonDown, X: 3, Y: 5}},
		{[]byte{OpButtonUp, 0x72}, monome.Event{Type: monome.ButtonUp, X: 7, Y: 2}},
		{[]byte{OpButtonDown, 0x00}, monome.Event{Type: monome.ButtonDown}},
		// the decoder takes whole nibbles; it does not mask to 3 bits
		{[]byte{OpButtonUp, 0xFE}, monome.Event{Type: monome.ButtonUp, X: 15, Y: 14}},
	}
	for _, c := range cases {
		got, err := DecodeEvent(c.frame)
		require.NoError(t, err, "%#v", c.frame)
		assert.Equal(t, c.want, got)
	}
}

func TestDecodeAuxIsInert(t *testing.T) {
	got, err := DecodeEvent([]byte{OpAuxInput, 0xAB})
	require.NoError(t, err)
	assert.Equal(t, monome.Event{Type: monome.AuxInput}, got)
}

func TestDecodeRejectsEverythingElse(t *testing.T) {
	known := map[byte]bool{OpButtonDown: true, OpButtonUp: true, OpAuxInput: true}
	for b := 0; b < 256; b++ {
		if known[byte(b)] {
			continue
		}
		_, err := DecodeEvent([]byte{byte(b), 0x11})
		assert.ErrorIs(t, err, monome.ErrUnrecognized, "byte 0x%02x", b)
	}
}

// Output frames never come back in; they must not decode.
func TestDecodeIgnoresOutputFrames(t *testing.T) {
	for _, f := range []Frame{
		LedFrameOf(OpLedOn, 1, 1),
		ColRowFrame(OpLedRow, 2, 0xFF),
		ColRowFrame(OpLedCol, 2, 0xFF),
		IntensityFrame(8),
	} {
		_, err := DecodeEvent(f[:])
		assert.ErrorIs(t, err, monome.ErrUnrecognized)
	}
}

func TestDecodeWrongLength(t *testing.T) {
	for _, f := range [][]byte{
		nil,
		{OpButtonDown},
		{OpButtonDown, 0x35, 0x00},
		{OpButtonUp, 0x35, OpButtonDown, 0x35},
	} {
		_, err := DecodeEvent(f)
		assert.ErrorIs(t, err, monome.ErrUnrecognized, "% x", f)
	}
}

func TestDeviceDecodeEvent(t *testing.T) {
	d := New(nil)
	ev, err := d.DecodeEvent([]byte{OpButtonDown, 0x35})
	require.NoError(t, err)
	assert.Equal(t, "button_down(3,5)", ev.String())
}

func TestClearFrames(t *testing.T) {
	frames := ClearFrames()
	require.Len(t, frames, 8)
	for i, f := range frames {
		assert.Equal(t, Frame{OpLedRow | byte(i), 0}, f)
	}
}
