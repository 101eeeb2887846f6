// Package proto40h binds the 40h grid protocol to the monome.Device
// capability table. Every message on the wire is a fixed 2-byte frame.
package proto40h

// FrameSize is the length of every 40h frame, in either direction.
const FrameSize = 2

// Opcodes, high nibble of byte 0.
const (
	OpButtonUp   byte = 0x00
	OpButtonDown byte = 0x01
	OpAuxInput   byte = 0x10
	OpLedOff     byte = 0x20
	OpLedOn      byte = 0x21
	OpIntensity  byte = 0x30
	OpLedRow     byte = 0x70
	OpLedCol     byte = 0x80
)

// Rows is the number of rows (and columns) on the grid.
const Rows = 8

type Frame [FrameSize]byte

// LedFrameOf encodes a single LED command. Coordinates are masked to 3 bits.
func LedFrameOf(op byte, x, y uint) Frame {
	x &= 0x7
	y &= 0x7
	return Frame{op, byte(x<<4 | y)}
}

// ColRowFrame encodes a row or column bitmap. The index is masked to 3 bits.
func ColRowFrame(op byte, index uint, bitmap byte) Frame {
	return Frame{op | byte(index&0x7), bitmap}
}

// IntensityFrame encodes a brightness level. The level is truncated to a
// byte, not range checked.
func IntensityFrame(level uint) Frame {
	return Frame{OpIntensity, byte(level)}
}

// ClearFrames returns the eight zero-row frames that blank the grid.
func ClearFrames() []Frame {
	out := make([]Frame, Rows)
	for i := range out {
		out[i] = ColRowFrame(OpLedRow, uint(i), 0)
	}
	return out
}
