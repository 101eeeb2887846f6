package proto40h

import (
	"fmt"

	"github.com/coreman2200/grid40h/monome"
)

// DecodeEvent parses one incoming frame. Only button and aux frames travel
// from the device to the host, so output-direction opcodes are rejected
// like any other unknown byte, and so is anything but exactly one frame.
func DecodeEvent(frame []byte) (monome.Event, error) {
	if len(frame) != FrameSize {
		return monome.Event{}, fmt.Errorf("%w: frame of %d bytes", monome.ErrUnrecognized, len(frame))
	}

	switch frame[0] {
	case OpButtonDown, OpButtonUp:
		t := monome.ButtonUp
		if frame[0] == OpButtonDown {
			t = monome.ButtonDown
		}
		return monome.Event{
			Type: t,
			X:    uint(frame[1] >> 4),
			Y:    uint(frame[1] & 0x0F),
		}, nil

	case OpAuxInput:
		// reserved for the ADC inputs; nothing is extracted yet
		return monome.Event{Type: monome.AuxInput}, nil
	}

	return monome.Event{}, fmt.Errorf("%w: leading byte 0x%02x", monome.ErrUnrecognized, frame[0])
}
