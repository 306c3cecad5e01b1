// Package gesture classifies multi-touch sequences into edge swipes.
//
// A gesture starts with one or more touches inside the border zone of the
// surface, all on the same edge, and completes when every touch has ended
// after moving in one consistent direction. The Classifier decides per touch
// whether it belongs to such a gesture (accept) or not (reject), and reports
// the completed gesture through a Handler.
package gesture

import (
	"fmt"
	"math"
)

// Edge is a border of the touch surface.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeTop
	EdgeRight
	EdgeBottom
	EdgeLeft
)

func (e Edge) String() string {
	switch e {
	case EdgeTop:
		return "top"
	case EdgeRight:
		return "right"
	case EdgeBottom:
		return "bottom"
	case EdgeLeft:
		return "left"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e Edge) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// ParseEdge is the inverse of Edge.String.
func ParseEdge(s string) (Edge, bool) {
	for e := EdgeNone; e <= EdgeLeft; e++ {
		if e.String() == s {
			return e, true
		}
	}
	return EdgeNone, false
}

// Direction is the direction a touch moves toward.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionUp
	DirectionRight
	DirectionDown
	DirectionLeft
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionRight:
		return "right"
	case DirectionDown:
		return "down"
	case DirectionLeft:
		return "left"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseDirection is the inverse of Direction.String.
func ParseDirection(s string) (Direction, bool) {
	for d := DirectionNone; d <= DirectionLeft; d++ {
		if d.String() == s {
			return d, true
		}
	}
	return DirectionNone, false
}

// Params holds the surface geometry used for classification.
type Params struct {
	// ScreenWidth and ScreenHeight are the surface size in pixels.
	ScreenWidth  float64
	ScreenHeight float64

	// ZoneWidth is the maximum distance from an edge, in pixels, at which a
	// touch still counts as starting on that edge.
	ZoneWidth float64

	// DetectionThreshold is the displacement, in pixels, a touch must exceed
	// along its dominant axis before a direction is registered.
	DetectionThreshold float64
}

// Validate reports whether all parameters are positive.
func (p Params) Validate() error {
	switch {
	case p.ScreenWidth <= 0 || p.ScreenHeight <= 0:
		return fmt.Errorf("gesture: invalid screen size %gx%g", p.ScreenWidth, p.ScreenHeight)
	case p.ZoneWidth <= 0:
		return fmt.Errorf("gesture: invalid zone width %g", p.ZoneWidth)
	case p.DetectionThreshold <= 0:
		return fmt.Errorf("gesture: invalid detection threshold %g", p.DetectionThreshold)
	}
	return nil
}

// ClassifyEdge returns the edge whose border zone contains (x, y), or EdgeNone
// for interior points.
//
// Candidates are checked in the order left, right, bottom, top and a candidate
// only wins if its distance is strictly smaller than all three others. A point
// equidistant from two nearest edges (a corner of a square surface, say)
// therefore has no edge.
func ClassifyEdge(x, y float64, p Params) Edge {
	left := x
	top := y
	right := p.ScreenWidth - x - 1
	bottom := p.ScreenHeight - y - 1

	z := p.ZoneWidth
	if left > z && right > z && bottom > z && top > z {
		return EdgeNone
	}

	switch {
	case left < top && left < bottom && left < right:
		return EdgeLeft
	case right < top && right < bottom && right < left:
		return EdgeRight
	case bottom < top && bottom < right && bottom < left:
		return EdgeBottom
	case top < bottom && top < right && top < left:
		return EdgeTop
	}
	return EdgeNone
}

// ClassifyDirection returns the direction of the displacement (dx, dy). The
// axis with the larger magnitude wins if that magnitude exceeds threshold.
// Equal magnitudes yield DirectionNone.
func ClassifyDirection(dx, dy, threshold float64) Direction {
	ax, ay := math.Abs(dx), math.Abs(dy)

	switch {
	case ax > ay && ax > threshold:
		if dx > 0 {
			return DirectionRight
		}
		return DirectionLeft
	case ay > ax && ay > threshold:
		if dy > 0 {
			return DirectionDown
		}
		return DirectionUp
	}
	return DirectionNone
}

// ValidPairing reports whether a swipe from edge e may move in direction d.
// Side edges pair with horizontal directions, top and bottom with vertical ones.
func ValidPairing(e Edge, d Direction) bool {
	horizontal := d == DirectionLeft || d == DirectionRight
	vertical := d == DirectionUp || d == DirectionDown

	switch e {
	case EdgeLeft, EdgeRight:
		return horizontal
	case EdgeTop, EdgeBottom:
		return vertical
	}
	return false
}
