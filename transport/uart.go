package transport

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/uart"
	"periph.io/x/conn/v3/uart/uartreg"
)

// NewUART returns a transport that opens a periph.io UART port by name
// (or alias, or number; "" is the first registered port) and connects at
// baud, 8N1 without flow control. host.Init must have run so ports are
// registered.
func NewUART(baud physic.Frequency) *Conn {
	return NewConn(func(name string) (conn.Conn, io.Closer, error) {
		p, err := uartreg.Open(name)
		if err != nil {
			return nil, nil, fmt.Errorf("open uart %q: %w", name, err)
		}
		c, err := p.Connect(baud, uart.One, uart.NoParity, uart.NoFlow, 8)
		if err != nil {
			_ = p.Close()
			return nil, nil, fmt.Errorf("connect uart %q: %w", name, err)
		}
		log.Debug().Str("port", p.String()).Str("baud", baud.String()).Msg("uart connected")
		return c, p, nil
	})
}
