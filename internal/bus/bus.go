// Package bus exposes the daemon on D-Bus and provides the client used by
// the edgy command line.
//
// The service owns a well-known name (org.edgy.Daemon1 by default) and
// exports a single object:
//
//	/org/edgy/Daemon1  org.edgy.Daemon1
//	  Passthrough() -> (b)
//	  SetPassthrough(b)
//	  TogglePassthrough() -> (b)
//	  Status() -> (a{sv})
//	  signal Gesture(s edge, s direction, u fingers)
package bus

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	// Interface is the D-Bus interface of the daemon object.
	Interface = "org.edgy.Daemon1"

	// ObjectPath is where the daemon object is exported.
	ObjectPath = dbus.ObjectPath("/org/edgy/Daemon1")

	// GestureSignal is the fully qualified name of the gesture signal.
	GestureSignal = Interface + ".Gesture"

	// ErrorFailed is the D-Bus error name for controller failures.
	ErrorFailed = Interface + ".Error.Failed"
)

// Controller is the daemon side of the bus. Implementations must be safe for
// concurrent use; godbus dispatches method calls on its own goroutines.
type Controller interface {
	Passthrough() (bool, error)
	SetPassthrough(on bool) error
	TogglePassthrough() (bool, error)
	Status() (Status, error)
}

// Status is a snapshot of the running daemon.
type Status struct {
	Instance    string
	Passthrough bool
	Devices     []string
	Grabbed     bool
	Actions     uint32

	// Current epoch
	Active    int32
	Edge      string
	Direction string
	Fingers   uint32
	Ruined    bool

	// Counters since start
	Gestures  uint64
	Accepted  uint64
	Rejected  uint64
	Forwarded uint64
}

func (s Status) toMap() map[string]dbus.Variant {
	devices := s.Devices
	if devices == nil {
		devices = []string{}
	}
	return map[string]dbus.Variant{
		"instance":    dbus.MakeVariant(s.Instance),
		"passthrough": dbus.MakeVariant(s.Passthrough),
		"devices":     dbus.MakeVariant(devices),
		"grabbed":     dbus.MakeVariant(s.Grabbed),
		"actions":     dbus.MakeVariant(s.Actions),
		"active":      dbus.MakeVariant(s.Active),
		"edge":        dbus.MakeVariant(s.Edge),
		"direction":   dbus.MakeVariant(s.Direction),
		"fingers":     dbus.MakeVariant(s.Fingers),
		"ruined":      dbus.MakeVariant(s.Ruined),
		"gestures":    dbus.MakeVariant(s.Gestures),
		"accepted":    dbus.MakeVariant(s.Accepted),
		"rejected":    dbus.MakeVariant(s.Rejected),
		"forwarded":   dbus.MakeVariant(s.Forwarded),
	}
}

// statusFromMap decodes a Status dictionary. Unknown keys are ignored so
// that older clients keep working against newer daemons.
func statusFromMap(m map[string]dbus.Variant) (Status, error) {
	var s Status
	fields := map[string]any{
		"instance":    &s.Instance,
		"passthrough": &s.Passthrough,
		"devices":     &s.Devices,
		"grabbed":     &s.Grabbed,
		"actions":     &s.Actions,
		"active":      &s.Active,
		"edge":        &s.Edge,
		"direction":   &s.Direction,
		"fingers":     &s.Fingers,
		"ruined":      &s.Ruined,
		"gestures":    &s.Gestures,
		"accepted":    &s.Accepted,
		"rejected":    &s.Rejected,
		"forwarded":   &s.Forwarded,
	}
	for key, dst := range fields {
		v, ok := m[key]
		if !ok {
			continue
		}
		if err := v.Store(dst); err != nil {
			return Status{}, fmt.Errorf("status field %s: %w", key, err)
		}
	}
	return s, nil
}
