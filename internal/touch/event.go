// Package touch reads multitouch contacts from Linux evdev devices and routes
// the touches the gesture classifier gives up on to other applications.
package touch

import "fmt"

// Kind is the phase of a touch sample.
type Kind int

const (
	Begin Kind = iota
	Update
	End
)

func (k Kind) String() string {
	switch k {
	case Begin:
		return "begin"
	case Update:
		return "update"
	case End:
		return "end"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one sample of a touch in screen coordinates.
type Event struct {
	Kind     Kind
	TouchID  int32
	DeviceID int32

	X, Y float64

	// RawX and RawY are the device axis values X and Y were scaled from.
	RawX, RawY int32
}

// InputEvent is an evdev input_event without its timestamp.
type InputEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

// Event types and codes from linux/input-event-codes.h.
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport  = 0
	synDropped = 3

	btnTouch = 0x14a

	absX            = 0x00
	absY            = 0x01
	absMTSlot       = 0x2f
	absMTPositionX  = 0x35
	absMTPositionY  = 0x36
	absMTTrackingID = 0x39

	inputPropDirect = 0x01
)

// TouchID combines a device id and a kernel tracking id into an id that is
// unique across devices.
func TouchID(deviceID, trackingID int32) int32 {
	return deviceID<<16 | trackingID&0xffff
}
