package touch

import (
	"maps"
	"slices"
)

// Axis is the value range of an absolute axis.
type Axis struct {
	Min int32
	Max int32
}

// Span returns the number of distinct values of the axis.
func (a Axis) Span() int32 {
	return a.Max - a.Min + 1
}

type slot struct {
	tracking int32
	x, y     int32

	// changes since the last SYN_REPORT
	began  bool
	moved  bool
	hasEnd bool
	ended  int32
	oldX   int32
	oldY   int32

	// a contact that began and lifted before the SYN_REPORT
	tapped bool
	tap    int32
	tapX   int32
	tapY   int32
}

// Decoder turns a multitouch protocol B event stream of one device into
// touch events. It is not safe for concurrent use.
type Decoder struct {
	device int32
	x, y   Axis
	width  float64
	height float64

	cur      int32
	slots    map[int32]*slot
	dropping bool
}

// NewDecoder creates a decoder scaling the x and y axis ranges of device onto
// a screen of width by height pixels.
func NewDecoder(device int32, x, y Axis, width, height float64) *Decoder {
	return &Decoder{
		device: device,
		x:      x,
		y:      y,
		width:  width,
		height: height,
		slots:  make(map[int32]*slot),
	}
}

func (d *Decoder) slot() *slot {
	s, ok := d.slots[d.cur]
	if !ok {
		s = &slot{tracking: -1}
		d.slots[d.cur] = s
	}
	return s
}

// Feed consumes one input event and appends the touch events completed by it
// to out. Touch events are only produced on SYN_REPORT.
//
// After SYN_DROPPED everything up to the next SYN_REPORT is discarded and all
// active contacts are ended, since their state is no longer known. A contact
// still on the screen comes back with its next tracking id.
func (d *Decoder) Feed(ev InputEvent, out []Event) []Event {
	if ev.Type == evSyn {
		switch ev.Code {
		case synDropped:
			d.dropping = true
		case synReport:
			if d.dropping {
				d.dropping = false
				return d.endAll(out)
			}
			return d.flush(out)
		}
		return out
	}
	if d.dropping || ev.Type != evAbs {
		return out
	}

	switch ev.Code {
	case absMTSlot:
		d.cur = ev.Value
	case absMTTrackingID:
		s := d.slot()
		if s.tracking >= 0 && !s.began && !s.hasEnd {
			s.hasEnd = true
			s.ended = s.tracking
			s.oldX, s.oldY = s.x, s.y
		}
		if s.began && !s.tapped {
			s.tapped = true
			s.tap = s.tracking
			s.tapX, s.tapY = s.x, s.y
		}
		s.tracking = ev.Value
		s.began = ev.Value >= 0
		s.moved = false
	case absMTPositionX:
		s := d.slot()
		s.x = ev.Value
		s.moved = true
	case absMTPositionY:
		s := d.slot()
		s.y = ev.Value
		s.moved = true
	}
	return out
}

func (d *Decoder) flush(out []Event) []Event {
	for _, n := range d.slotOrder() {
		s := d.slots[n]
		if s.hasEnd {
			out = append(out, d.event(End, s.ended, s.oldX, s.oldY))
			s.hasEnd = false
		}
		if s.tapped {
			out = append(out,
				d.event(Begin, s.tap, s.tapX, s.tapY),
				d.event(End, s.tap, s.tapX, s.tapY))
			s.tapped = false
		}
		switch {
		case s.began:
			out = append(out, d.event(Begin, s.tracking, s.x, s.y))
		case s.moved && s.tracking >= 0:
			out = append(out, d.event(Update, s.tracking, s.x, s.y))
		}
		s.began = false
		s.moved = false
	}
	return out
}

func (d *Decoder) endAll(out []Event) []Event {
	for _, n := range d.slotOrder() {
		s := d.slots[n]
		if s.hasEnd {
			out = append(out, d.event(End, s.ended, s.oldX, s.oldY))
		}
		if s.tracking >= 0 && !s.began {
			out = append(out, d.event(End, s.tracking, s.x, s.y))
		}
		d.slots[n] = &slot{tracking: -1, x: s.x, y: s.y}
	}
	return out
}

func (d *Decoder) slotOrder() []int32 {
	return slices.Sorted(maps.Keys(d.slots))
}

func (d *Decoder) event(kind Kind, tracking, x, y int32) Event {
	return Event{
		Kind:     kind,
		TouchID:  TouchID(d.device, tracking),
		DeviceID: d.device,
		X:        scale(x, d.x, d.width),
		Y:        scale(y, d.y, d.height),
		RawX:     x,
		RawY:     y,
	}
}

func scale(v int32, a Axis, size float64) float64 {
	if a.Max <= a.Min || size <= 0 {
		return float64(v)
	}
	return float64(v-a.Min) * size / float64(a.Span())
}
