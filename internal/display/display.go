// Package display exposes the grid as a periph.io display.Drawer, so any
// image can be pushed to the LEDs.
package display

import (
	"errors"
	"image"
	"image/color"

	"periph.io/x/conn/v3/display"

	"github.com/coreman2200/grid40h/internal/grid"
	"github.com/coreman2200/grid40h/monome"
)

// DefaultThreshold is the gray level at or above which an LED is lit.
const DefaultThreshold = 0x80

// Drawer is a 1-bit 8x8 display. Pixels outside the drawn rectangle keep
// their current state.
type Drawer struct {
	c         *grid.Controller
	Threshold uint8
}

var _ display.Drawer = &Drawer{}

func New(c *grid.Controller) *Drawer {
	return &Drawer{c: c, Threshold: DefaultThreshold}
}

func (d *Drawer) String() string { return "display(" + d.c.String() + ")" }

// Halt blanks the grid.
func (d *Drawer) Halt() error {
	return d.c.Apply(grid.Command{Op: "clear"})
}

func (d *Drawer) ColorModel() color.Model { return color.GrayModel }

func (d *Drawer) Bounds() image.Rectangle { return image.Rect(0, 0, grid.Size, grid.Size) }

func (d *Drawer) Draw(dstRect image.Rectangle, src image.Image, srcPts image.Point) error {
	rows := d.c.Rows()
	r := dstRect.Intersect(d.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			sx := srcPts.X + x - dstRect.Min.X
			sy := srcPts.Y + y - dstRect.Min.Y
			if !image.Pt(sx, sy).In(src.Bounds()) {
				continue
			}
			g := color.GrayModel.Convert(src.At(sx, sy)).(color.Gray)
			if g.Y >= d.Threshold {
				rows[y] |= 1 << x
			} else {
				rows[y] &^= 1 << x
			}
		}
	}
	return d.send(rows)
}

// send pushes a full frame. A frame stops at its first dark row, so rows
// from there on go out one by one.
func (d *Drawer) send(rows [grid.Size]byte) error {
	cmd := grid.Command{Op: "led_frame", Rows: make([]uint, grid.Size)}
	for i, v := range rows {
		cmd.Rows[i] = uint(v)
	}
	err := d.c.Apply(cmd)
	if !errors.Is(err, monome.ErrFrameSentinel) {
		return err
	}

	start := 0
	for start < grid.Size && rows[start] != 0 {
		start++
	}
	for i := start; i < grid.Size; i++ {
		if err := d.c.Apply(grid.Command{Op: "led_row", Index: uint(i), Value: uint(rows[i])}); err != nil {
			return err
		}
	}
	return nil
}
