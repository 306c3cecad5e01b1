package gesture

import (
	"io"
	"log/slog"
)

// Decider receives the per-touch decisions of a Classifier. Accepting a touch
// claims it for gesture recognition; rejecting it hands it back to the rest of
// the system. Each touch receives at most one decision.
type Decider interface {
	Accept(touchID, deviceID int32)
	Reject(touchID, deviceID int32)
}

// Switch exposes the passthrough flag of a Classifier to gesture effects.
type Switch interface {
	AcceptAll() bool
	SetAcceptAll(on bool)
}

// Gesture is the signature of a completed swipe.
type Gesture struct {
	Edge      Edge
	Direction Direction
	Fingers   uint32
}

// Handler is invoked once for every completed gesture. It runs synchronously
// on the classifier's caller and may change the passthrough flag through sw.
type Handler interface {
	HandleGesture(sw Switch, g Gesture)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(sw Switch, g Gesture)

// HandleGesture calls f(sw, g).
func (f HandlerFunc) HandleGesture(sw Switch, g Gesture) { f(sw, g) }

// TouchRecord is a live touch of the current epoch.
type TouchRecord struct {
	ID       int32
	DeviceID int32
	StartX   float64
	StartY   float64

	// Decided is set once the touch has been accepted or rejected.
	Decided bool
}

// epoch is the state of one candidate gesture. edge and direction are set at
// most once; ruined never reverts until reset.
type epoch struct {
	touches   map[int32]*TouchRecord
	edge      Edge
	direction Direction
	decided   uint32
	ruined    bool
}

// Status is a read-only view of the classifier state.
type Status struct {
	Active    int
	Edge      Edge
	Direction Direction
	Fingers   uint32
	Ruined    bool
	AcceptAll bool
}

// Classifier is the touch classification state machine. It is not safe for
// concurrent use; callers must serialize Begin, Update, End and every other
// method on a single goroutine.
type Classifier struct {
	params    Params
	decider   Decider
	handler   Handler
	acceptAll bool
	epoch     epoch
	log       *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger used for decision tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.log = l
		}
	}
}

// WithAcceptAll starts the classifier in passthrough mode.
func WithAcceptAll(on bool) Option {
	return func(c *Classifier) { c.acceptAll = on }
}

// NewClassifier creates a classifier reporting decisions to d and completed
// gestures to h.
func NewClassifier(p Params, d Decider, h Handler, opts ...Option) *Classifier {
	c := &Classifier{
		params:  p,
		decider: d,
		handler: h,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		epoch:   epoch{touches: make(map[int32]*TouchRecord)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AcceptAll reports whether passthrough mode is active.
func (c *Classifier) AcceptAll() bool {
	return c.acceptAll
}

// SetAcceptAll turns passthrough mode on or off. The change applies from the
// next touch event on.
func (c *Classifier) SetAcceptAll(on bool) {
	if c.acceptAll != on {
		c.log.Info("passthrough changed", "accept_all", on)
	}
	c.acceptAll = on
}

// Params returns the current geometry parameters.
func (c *Classifier) Params() Params {
	return c.params
}

// SetParams replaces the geometry parameters. Touches already tracked keep
// their recorded start points.
func (c *Classifier) SetParams(p Params) {
	c.params = p
}

// Snapshot returns the current state.
func (c *Classifier) Snapshot() Status {
	return Status{
		Active:    len(c.epoch.touches),
		Edge:      c.epoch.edge,
		Direction: c.epoch.direction,
		Fingers:   c.epoch.decided,
		Ruined:    c.epoch.ruined,
		AcceptAll: c.acceptAll,
	}
}

// Begin handles a new touch at (x, y).
func (c *Classifier) Begin(touchID, deviceID int32, x, y float64) {
	if c.epoch.ruined {
		c.reject(touchID, deviceID, "epoch ruined")
		return
	}

	edge := ClassifyEdge(x, y, c.params)
	if edge == EdgeNone || (c.epoch.edge != EdgeNone && c.epoch.edge != edge) {
		reason := "outside border zone"
		if edge != EdgeNone {
			reason = "edge conflict"
		}
		c.reject(touchID, deviceID, reason)
		// A stray touch with nothing in flight does not start a ruined epoch.
		if len(c.epoch.touches) > 0 {
			c.ruin(reason)
		}
		return
	}

	c.epoch.edge = edge
	t := &TouchRecord{
		ID:       touchID,
		DeviceID: deviceID,
		StartX:   x,
		StartY:   y,
		Decided:  c.acceptAll,
	}
	if c.acceptAll {
		c.decider.Accept(touchID, deviceID)
	}
	c.epoch.touches[touchID] = t

	c.log.Debug("touch began", "touch", touchID, "device", deviceID, "edge", edge)
}

// Update handles movement of a tracked touch. Unknown touches are ignored.
func (c *Classifier) Update(touchID int32, x, y float64) {
	t, ok := c.epoch.touches[touchID]
	if !ok {
		return
	}
	c.classify(t, x, y)
}

// End handles the release of a tracked touch at (x, y). When the last touch of
// the epoch ends, the gesture is reported if it is consistent and the epoch is
// reset. Unknown touches are ignored.
func (c *Classifier) End(touchID int32, x, y float64) {
	t, ok := c.epoch.touches[touchID]
	if !ok {
		return
	}

	c.classify(t, x, y)
	if !t.Decided {
		c.ruin("touch ended undecided")
	}

	if len(c.epoch.touches) > 1 {
		delete(c.epoch.touches, touchID)
		return
	}

	e := c.epoch
	complete := e.edge != EdgeNone && e.direction != DirectionNone && !e.ruined
	if !complete {
		c.rejectUndecided()
	}
	c.reset()

	if complete {
		g := Gesture{Edge: e.edge, Direction: e.direction, Fingers: e.decided}
		c.log.Info("gesture", "edge", g.Edge, "direction", g.Direction, "fingers", g.Fingers)
		if c.handler != nil {
			c.handler.HandleGesture(c, g)
		}
	}
}

// classify registers the direction of t at (x, y) with the epoch.
func (c *Classifier) classify(t *TouchRecord, x, y float64) {
	d := ClassifyDirection(x-t.StartX, y-t.StartY, c.params.DetectionThreshold)

	switch {
	case d == DirectionNone:
	case c.epoch.direction == DirectionNone:
		if !ValidPairing(c.epoch.edge, d) {
			c.epoch.ruined = true
			c.log.Debug("epoch ruined", "reason", "invalid direction", "edge", c.epoch.edge, "direction", d)
		} else if !t.Decided {
			c.epoch.direction = d
			c.admit(t)
		}
	case c.epoch.direction == d:
		if !t.Decided {
			c.admit(t)
		}
	default:
		c.epoch.ruined = true
		c.log.Debug("epoch ruined", "reason", "direction conflict", "direction", d)
	}

	if c.epoch.ruined {
		c.rejectUndecided()
	}
}

// admit accepts t as a finger of the current gesture.
func (c *Classifier) admit(t *TouchRecord) {
	c.epoch.decided++
	t.Decided = true
	c.decider.Accept(t.ID, t.DeviceID)
	c.log.Debug("touch accepted", "touch", t.ID, "device", t.DeviceID, "direction", c.epoch.direction)
}

// reject rejects a touch, or accepts it in passthrough mode.
func (c *Classifier) reject(touchID, deviceID int32, reason string) {
	if c.acceptAll {
		c.decider.Accept(touchID, deviceID)
		return
	}
	c.decider.Reject(touchID, deviceID)
	c.log.Debug("touch rejected", "touch", touchID, "device", deviceID, "reason", reason)
}

// ruin marks the epoch as unable to form a gesture and rejects every touch
// still waiting for a decision.
func (c *Classifier) ruin(reason string) {
	if !c.epoch.ruined {
		c.log.Debug("epoch ruined", "reason", reason, "active", len(c.epoch.touches))
	}
	c.epoch.ruined = true
	c.rejectUndecided()
}

// rejectUndecided rejects all undecided touches. Accepted touches are never
// retracted.
func (c *Classifier) rejectUndecided() {
	for _, t := range c.epoch.touches {
		if t.Decided {
			continue
		}
		t.Decided = true
		c.reject(t.ID, t.DeviceID, "forced")
	}
}

func (c *Classifier) reset() {
	clear(c.epoch.touches)
	c.epoch.edge = EdgeNone
	c.epoch.direction = DirectionNone
	c.epoch.decided = 0
	c.epoch.ruined = false
}
