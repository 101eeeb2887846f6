// Package transport provides the byte links a grid device is driven over:
// USB serial ports, periph.io UART ports and an in-memory simulator.
package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/coreman2200/grid40h/monome"
	"periph.io/x/conn/v3/physic"
)

// DefaultBaud is the line rate of the 40h's FTDI link.
const DefaultBaud = 115200

var (
	ErrNotOpen     = errors.New("transport: not open")
	ErrAlreadyOpen = errors.New("transport: already open")
	ErrUnknownKind = errors.New("transport: unknown kind")
)

// Options configures New. Zero values fall back to defaults.
type Options struct {
	Baud        int
	ReadTimeout time.Duration
}

func (o Options) baud() int {
	if o.Baud <= 0 {
		return DefaultBaud
	}
	return o.Baud
}

// New returns an unopened transport of the given kind: "serial", "uart"
// or "sim".
func New(kind string, o Options) (monome.Transport, error) {
	switch kind {
	case "serial", "":
		return NewSerial(o.baud(), o.ReadTimeout), nil
	case "uart":
		return NewUART(physic.Frequency(o.baud()) * physic.Hertz), nil
	case "sim":
		return NewSim(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
