// Package grid shares one monome.Device between the poller, the websocket
// server and the MQTT bridge, and keeps a shadow of what the LEDs show.
package grid

import (
	"errors"
	"fmt"
	"sync"

	"github.com/coreman2200/grid40h/monome"
)

const Size = 8

var ErrUnknownOp = errors.New("grid: unknown op")

// Command is one LED operation as it arrives over JSON.
type Command struct {
	Op       string `json:"op"`
	X        uint   `json:"x,omitempty"`
	Y        uint   `json:"y,omitempty"`
	Index    uint   `json:"index,omitempty"`
	Value    uint   `json:"value,omitempty"` // bitmap, level, mode or clear status
	Quadrant uint   `json:"quadrant,omitempty"`
	Rows     []uint `json:"rows,omitempty"`
}

type Stats struct {
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
}

// Controller serialises access to a device. The device itself is not safe
// for concurrent use.
type Controller struct {
	mu    sync.Mutex
	dev   monome.Device
	rows  [Size]byte // bit x of rows[y] is LED (x,y)
	stats Stats
}

func New(dev monome.Device) *Controller {
	return &Controller{dev: dev}
}

func (c *Controller) String() string { return c.dev.String() }

// Apply runs cmd against the device and updates the shadow state with
// whatever is known to have been sent.
func (c *Controller) Apply(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.apply(cmd)
	// a frame cut short by a dark row still sent everything ahead of it
	if err != nil && !errors.Is(err, monome.ErrFrameSentinel) {
		c.stats.Failed++
	} else {
		c.stats.Applied++
	}
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Op, err)
	}
	return nil
}

func (c *Controller) apply(cmd Command) error {
	switch cmd.Op {
	case "clear":
		_, err := c.dev.Clear(monome.ClearStatus(cmd.Value))
		failed := failedRows(err)
		if err != nil && len(failed) == 0 {
			return err
		}
		for i := range c.rows {
			if !failed[uint(i)] {
				c.rows[i] = 0
			}
		}
		return err

	case "intensity":
		return c.dev.Intensity(cmd.Value)

	case "mode":
		return c.dev.Mode(monome.Mode(cmd.Value))

	case "led_on":
		if err := c.dev.LedOn(cmd.X, cmd.Y); err != nil {
			return err
		}
		c.rows[cmd.Y&0x7] |= 1 << (cmd.X & 0x7)

	case "led_off":
		if err := c.dev.LedOff(cmd.X, cmd.Y); err != nil {
			return err
		}
		c.rows[cmd.Y&0x7] &^= 1 << (cmd.X & 0x7)

	case "led_row":
		if err := c.dev.LedRow8(cmd.Index, []byte{byte(cmd.Value)}); err != nil {
			return err
		}
		c.rows[cmd.Index&0x7] = byte(cmd.Value)

	case "led_col":
		if err := c.dev.LedCol8(cmd.Index, []byte{byte(cmd.Value)}); err != nil {
			return err
		}
		c.setCol(cmd.Index&0x7, byte(cmd.Value))

	case "led_frame":
		rows := make([]byte, len(cmd.Rows))
		for i, v := range cmd.Rows {
			rows[i] = byte(v)
		}
		err := c.dev.LedFrame(cmd.Quadrant, rows)
		sent := Size
		if err != nil {
			var re *monome.RowError
			if !errors.As(err, &re) {
				return err
			}
			sent = int(re.Row)
		}
		for i := 0; i < sent && i < len(rows); i++ {
			c.rows[i] = rows[i]
		}
		return err

	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, cmd.Op)
	}
	return nil
}

// failedRows returns the rows named by the RowErrors in err, which may be
// a single error or a join of them.
func failedRows(err error) map[uint]bool {
	if err == nil {
		return nil
	}
	errs := []error{err}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		errs = j.Unwrap()
	}
	rows := map[uint]bool{}
	for _, e := range errs {
		var re *monome.RowError
		if errors.As(e, &re) {
			rows[re.Row&0x7] = true
		}
	}
	return rows
}

func (c *Controller) setCol(col uint, bits byte) {
	for y := range c.rows {
		if bits&(1<<y) != 0 {
			c.rows[y] |= 1 << col
		} else {
			c.rows[y] &^= 1 << col
		}
	}
}

// Do runs fn with exclusive use of the device. The shadow state is not
// updated.
func (c *Controller) Do(fn func(monome.Device) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.dev)
}

func (c *Controller) DecodeEvent(frame []byte) (monome.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dev.DecodeEvent(frame)
}

// Rows returns the shadow row bitmaps.
func (c *Controller) Rows() [Size]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
