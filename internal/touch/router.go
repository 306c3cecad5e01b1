package touch

import (
	"io"
	"log/slog"
)

// Sink receives the touches nobody claimed, one frame at a time.
type Sink interface {
	Write(frame []Event) error
}

type decision int

const (
	undecided decision = iota
	accepted
	rejected
)

type routed struct {
	decision decision
	samples  []Event
}

// RouterStats counts routing decisions.
type RouterStats struct {
	Accepted  uint64
	Rejected  uint64
	Forwarded uint64
	Pending   int
}

// Router implements gesture.Decider over evdev touches. Samples of undecided
// touches are held back. Accepted touches are consumed; rejected touches are
// replayed to the sink and followed live from then on. Without a sink the
// decisions are only recorded.
//
// A Router must be used from the goroutine that drives the classifier.
type Router struct {
	sink    Sink
	log     *slog.Logger
	touches map[int32]*routed
	stats   RouterStats
}

// NewRouter creates a router forwarding rejected touches to sink, which may
// be nil.
func NewRouter(sink Sink, log *slog.Logger) *Router {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Router{
		sink:    sink,
		log:     log,
		touches: make(map[int32]*routed),
	}
}

// SetSink replaces the sink for touches rejected from now on.
func (r *Router) SetSink(sink Sink) {
	r.sink = sink
}

// Observe must be called with every event before it is handed to the
// classifier.
func (r *Router) Observe(ev Event) {
	t, ok := r.touches[ev.TouchID]
	if !ok {
		if ev.Kind != Begin {
			return
		}
		t = &routed{}
		r.touches[ev.TouchID] = t
	}

	switch t.decision {
	case undecided:
		t.samples = append(t.samples, ev)
	case rejected:
		r.forward([]Event{ev})
		if ev.Kind == End {
			delete(r.touches, ev.TouchID)
		}
	case accepted:
		if ev.Kind == End {
			delete(r.touches, ev.TouchID)
		}
	}
}

// Accept consumes the touch.
func (r *Router) Accept(touchID, deviceID int32) {
	t, ok := r.touches[touchID]
	if !ok || t.decision != undecided {
		return
	}
	r.stats.Accepted++
	r.log.Debug("touch accepted", "touch", touchID, "device", deviceID)

	if ended(t.samples) {
		delete(r.touches, touchID)
		return
	}
	t.decision = accepted
	t.samples = nil
}

// Reject replays the held samples of the touch to the sink, one frame per
// sample, so the receiving side sees the touch go down before it lifts.
func (r *Router) Reject(touchID, deviceID int32) {
	t, ok := r.touches[touchID]
	if !ok || t.decision != undecided {
		return
	}
	r.stats.Rejected++
	r.log.Debug("touch rejected", "touch", touchID, "device", deviceID, "replay", len(t.samples))

	for _, ev := range t.samples {
		r.forward([]Event{ev})
	}
	if ended(t.samples) {
		delete(r.touches, touchID)
		return
	}
	t.decision = rejected
	t.samples = nil
}

// Stats returns the routing counters.
func (r *Router) Stats() RouterStats {
	s := r.stats
	for _, t := range r.touches {
		if t.decision == undecided {
			s.Pending++
		}
	}
	return s
}

func (r *Router) forward(frame []Event) {
	if r.sink == nil || len(frame) == 0 {
		return
	}
	if err := r.sink.Write(frame); err != nil {
		r.log.Warn("forward touch failed", "touch", frame[0].TouchID, "error", err)
		return
	}
	r.stats.Forwarded += uint64(len(frame))
}

func ended(samples []Event) bool {
	return len(samples) > 0 && samples[len(samples)-1].Kind == End
}
