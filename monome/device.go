// Package monome defines the generation-independent grid device: the
// capability table every protocol binding implements, the transport it
// talks through, and the events it decodes.
package monome

// Transport abstracts the byte link to the hardware (usually a USB serial
// port). Implementations live in package transport.
type Transport interface {
	// Open connects to the device at path.
	Open(path string) error
	// Close releases the link.
	Close() error
	// Write sends p unbuffered and reports how many bytes were accepted.
	Write(p []byte) (int, error)
	// Read blocks until at least one byte is available.
	Read(p []byte) (int, error)
}

// ClearStatus is the fill requested by Clear.
type ClearStatus uint

const (
	ClearOff ClearStatus = iota
	ClearOn
)

// Mode is the device-wide display mode.
type Mode uint

const (
	ModeNormal Mode = iota
	ModeTest
	ModeShutdown
)

// Device is the capability table a protocol generation exposes. A caller
// drives any generation through it without knowing the wire format.
//
// A Device is owned by a single caller and is not safe for concurrent use.
type Device interface {
	String() string

	Open(path string) error
	Close() error
	// Release frees the handle. It does not close an open transport; call
	// Close first.
	Release()

	Clear(status ClearStatus) (int, error)
	Intensity(level uint) error
	Mode(mode Mode) error

	LedOn(x, y uint) error
	LedOff(x, y uint) error
	LedCol8(col uint, data []byte) error
	LedRow8(row uint, data []byte) error
	LedCol16(col uint, data []byte) error
	LedRow16(row uint, data []byte) error
	LedFrame(quadrant uint, rows []byte) error

	// DecodeEvent parses one incoming frame.
	DecodeEvent(frame []byte) (Event, error)
}
