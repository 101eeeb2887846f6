package monome

import "fmt"

type EventType uint8

const (
	ButtonUp EventType = iota
	ButtonDown
	AuxInput
)

func (t EventType) String() string {
	switch t {
	case ButtonUp:
		return "button_up"
	case ButtonDown:
		return "button_down"
	case AuxInput:
		return "aux_input"
	}
	return fmt.Sprintf("event(%d)", uint8(t))
}

// Event is one decoded input frame. X and Y are only meaningful for
// button events.
type Event struct {
	Type EventType
	X    uint
	Y    uint
}

func (e Event) String() string {
	if e.Type == AuxInput {
		return e.Type.String()
	}
	return fmt.Sprintf("%s(%d,%d)", e.Type, e.X, e.Y)
}
