package daemon

import (
	"edgy/internal/bus"
	"edgy/internal/gesture"
)

var _ bus.Controller = (*Daemon)(nil)

// Passthrough reports whether passthrough mode is on.
func (d *Daemon) Passthrough() (bool, error) {
	var on bool
	err := d.call(func(s *State) { on = s.Classifier.AcceptAll() })
	return on, err
}

// SetPassthrough turns passthrough mode on or off.
func (d *Daemon) SetPassthrough(on bool) error {
	return d.call(func(s *State) { s.Classifier.SetAcceptAll(on) })
}

// TogglePassthrough flips passthrough mode and returns the new value.
func (d *Daemon) TogglePassthrough() (bool, error) {
	var on bool
	err := d.call(func(s *State) {
		on = !s.Classifier.AcceptAll()
		s.Classifier.SetAcceptAll(on)
	})
	return on, err
}

// Status returns a snapshot of the pipeline.
func (d *Daemon) Status() (bus.Status, error) {
	var st bus.Status
	err := d.call(func(s *State) { st = d.status(s) })
	return st, err
}

func (d *Daemon) status(s *State) bus.Status {
	snap := s.Classifier.Snapshot()
	stats := s.Router.Stats()

	st := bus.Status{
		Instance:    d.id,
		Passthrough: snap.AcceptAll,
		Devices:     append([]string(nil), s.Devices...),
		Grabbed:     d.grabbed,
		Actions:     uint32(s.Registry.Len()),
		Active:      int32(snap.Active),
		Fingers:     snap.Fingers,
		Ruined:      snap.Ruined,
		Gestures:    s.Gestures,
		Accepted:    stats.Accepted,
		Rejected:    stats.Rejected,
		Forwarded:   stats.Forwarded,
	}
	if snap.Edge != gesture.EdgeNone {
		st.Edge = snap.Edge.String()
	}
	if snap.Direction != gesture.DirectionNone {
		st.Direction = snap.Direction.String()
	}
	return st
}
