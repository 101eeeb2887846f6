package proto40h

import (
	"errors"
	"fmt"

	"github.com/coreman2200/grid40h/monome"
)

// Name is the generation name the binding registers under.
const Name = "40h"

func init() {
	monome.Register(Name, func(t monome.Transport) monome.Device { return New(t) })
}

// Device is a 40h handle. It carries no protocol state; the only thing it
// holds is the transport it writes through.
type Device struct {
	t monome.Transport
}

var _ monome.Device = &Device{}

// New returns a handle bound to t. The caller owns it until Release.
func New(t monome.Transport) *Device {
	return &Device{t: t}
}

func (d *Device) String() string { return "monome40h" }

func (d *Device) Open(path string) error {
	if d.t == nil {
		return monome.ErrReleased
	}
	return d.t.Open(path)
}

func (d *Device) Close() error {
	if d.t == nil {
		return monome.ErrReleased
	}
	return d.t.Close()
}

// Release drops the transport. An open transport stays open; Close it first.
func (d *Device) Release() {
	d.t = nil
}

func (d *Device) write(f Frame) error {
	if d.t == nil {
		return monome.ErrReleased
	}
	n, err := d.t.Write(f[:])
	if err != nil {
		return fmt.Errorf("%w: %w", monome.ErrWriteMismatch, err)
	}
	if n != FrameSize {
		return fmt.Errorf("%w: wrote %d of %d bytes", monome.ErrWriteMismatch, n, FrameSize)
	}
	return nil
}

// Clear blanks all eight rows. The 40h has no "all on" clear, so status is
// ignored. Every row is attempted even if an earlier one fails; the byte
// count covers the rows that went out whole.
func (d *Device) Clear(status monome.ClearStatus) (int, error) {
	var (
		n    int
		errs []error
	)
	for i, f := range ClearFrames() {
		if err := d.write(f); err != nil {
			errs = append(errs, &monome.RowError{Row: uint(i), Err: err})
			continue
		}
		n += FrameSize
	}
	return n, errors.Join(errs...)
}

func (d *Device) Intensity(level uint) error {
	return d.write(IntensityFrame(level))
}

// Mode is accepted and ignored. The 40h splits mode into separate test and
// shutdown commands, which would need per-handle state this binding does
// not keep.
func (d *Device) Mode(mode monome.Mode) error {
	return nil
}

func (d *Device) LedOn(x, y uint) error {
	return d.write(LedFrameOf(OpLedOn, x, y))
}

func (d *Device) LedOff(x, y uint) error {
	return d.write(LedFrameOf(OpLedOff, x, y))
}

func (d *Device) LedCol8(col uint, data []byte) error {
	if len(data) == 0 {
		return monome.ErrNoData
	}
	return d.write(ColRowFrame(OpLedCol, col, data[0]))
}

func (d *Device) LedRow8(row uint, data []byte) error {
	if len(data) == 0 {
		return monome.ErrNoData
	}
	return d.write(ColRowFrame(OpLedRow, row, data[0]))
}

// LedCol16 is LedCol8: the 40h is a single 8x8 grid.
func (d *Device) LedCol16(col uint, data []byte) error { return d.LedCol8(col, data) }

// LedRow16 is LedRow8: the 40h is a single 8x8 grid.
func (d *Device) LedRow16(row uint, data []byte) error { return d.LedRow8(row, data) }

// LedFrame sends rows 0..7 as row commands. quadrant is unused.
//
// A zero row ends the frame: that row and everything after it are not
// sent and ErrFrameSentinel is returned. Callers that need an all-off row
// must send it with LedRow8. Both the sentinel and a write failure come
// back as a *monome.RowError naming the first row not sent.
func (d *Device) LedFrame(quadrant uint, rows []byte) error {
	if len(rows) < Rows {
		return monome.ErrNoData
	}
	for i := 0; i < Rows; i++ {
		if rows[i] == 0 {
			return &monome.RowError{Row: uint(i), Err: monome.ErrFrameSentinel}
		}
		if err := d.LedRow8(uint(i), rows[i:i+1]); err != nil {
			return &monome.RowError{Row: uint(i), Err: err}
		}
	}
	return nil
}

func (d *Device) DecodeEvent(frame []byte) (monome.Event, error) {
	return DecodeEvent(frame)
}
