//go:build linux

package touch

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// uinput ioctls from linux/uinput.h.
const (
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetAbsBit  = 0x40045567
	uiSetPropBit = 0x4004556e
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiDevSetup   = 0x405c5503
	uiAbsSetup   = 0x401c5504

	busVirtual = 0x06
)

// UinputPath is the uinput control node.
var UinputPath = "/dev/uinput"

// MaxMirrorSlots is the number of contacts the mirror device reports at once.
const MaxMirrorSlots = 10

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// uinputSetup matches struct uinput_setup.
type uinputSetup struct {
	ID           inputID
	Name         [80]byte
	FFEffectsMax uint32
}

// uinputAbsSetup matches struct uinput_abs_setup.
type uinputAbsSetup struct {
	Code uint16
	_    uint16
	Info absInfo
}

// Mirror is a virtual multitouch screen created through uinput. Touches
// written to it are seen by other applications as coming from a touch screen
// of the configured size, in screen coordinates.
type Mirror struct {
	f     *os.File
	name  string
	slots [MaxMirrorSlots]int32
	used  [MaxMirrorSlots]bool
	track int32
	down  bool
	buf   []byte
}

// NewMirror creates the virtual device.
func NewMirror(name string, width, height int32) (*Mirror, error) {
	f, err := os.OpenFile(UinputPath, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", UinputPath, err)
	}
	m := &Mirror{f: f, name: name}
	if err := m.create(width, height); err != nil {
		f.Close()
		return nil, fmt.Errorf("create mirror device: %w", err)
	}
	return m, nil
}

func (m *Mirror) create(width, height int32) error {
	fd := int(m.f.Fd())

	for _, ev := range []int{evSyn, evKey, evAbs} {
		if err := unix.IoctlSetInt(fd, uiSetEvBit, ev); err != nil {
			return fmt.Errorf("UI_SET_EVBIT: %w", err)
		}
	}
	if err := unix.IoctlSetInt(fd, uiSetKeyBit, btnTouch); err != nil {
		return fmt.Errorf("UI_SET_KEYBIT: %w", err)
	}
	if err := unix.IoctlSetInt(fd, uiSetPropBit, inputPropDirect); err != nil {
		return fmt.Errorf("UI_SET_PROPBIT: %w", err)
	}

	axes := []uinputAbsSetup{
		{Code: absX, Info: absInfo{Maximum: width - 1}},
		{Code: absY, Info: absInfo{Maximum: height - 1}},
		{Code: absMTSlot, Info: absInfo{Maximum: MaxMirrorSlots - 1}},
		{Code: absMTTrackingID, Info: absInfo{Maximum: 0xffff}},
		{Code: absMTPositionX, Info: absInfo{Maximum: width - 1}},
		{Code: absMTPositionY, Info: absInfo{Maximum: height - 1}},
	}
	for i := range axes {
		if err := unix.IoctlSetInt(fd, uiSetAbsBit, int(axes[i].Code)); err != nil {
			return fmt.Errorf("UI_SET_ABSBIT(%#x): %w", axes[i].Code, err)
		}
		if err := ioctlPtr(fd, uiAbsSetup, unsafe.Pointer(&axes[i])); err != nil {
			return fmt.Errorf("UI_ABS_SETUP(%#x): %w", axes[i].Code, err)
		}
	}

	setup := uinputSetup{ID: inputID{Bustype: busVirtual, Vendor: 0x1209, Product: 0xed67, Version: 1}}
	copy(setup.Name[:len(setup.Name)-1], m.name)
	if err := ioctlPtr(fd, uiDevSetup, unsafe.Pointer(&setup)); err != nil {
		return fmt.Errorf("UI_DEV_SETUP: %w", err)
	}
	if err := ioctlPtr(fd, uiDevCreate, nil); err != nil {
		return fmt.Errorf("UI_DEV_CREATE: %w", err)
	}
	return nil
}

func ioctlPtr(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// Name returns the name of the virtual device.
func (m *Mirror) Name() string { return m.name }

// Write emits frame as one multitouch report. A touch that begins and ends
// within frame is reported down in a report of its own before it lifts.
func (m *Mirror) Write(frame []Event) error {
	m.buf = m.buf[:0]
	var fresh [MaxMirrorSlots]bool
	for _, ev := range frame {
		if ev.Kind == End {
			if s := m.slotOf(ev.TouchID, false); s >= 0 && fresh[s] {
				m.report()
				fresh = [MaxMirrorSlots]bool{}
			}
		}
		if s := m.encode(ev); s >= 0 && ev.Kind == Begin {
			fresh[s] = true
		}
	}
	m.report()

	if _, err := m.f.Write(m.buf); err != nil {
		return fmt.Errorf("write %s: %w", m.name, err)
	}
	return nil
}

// report closes the current report, toggling BTN_TOUCH when the first
// contact went down or the last one lifted.
func (m *Mirror) report() {
	active := false
	for _, u := range m.used {
		active = active || u
	}
	if active != m.down {
		m.down = active
		v := int32(0)
		if active {
			v = 1
		}
		m.put(evKey, btnTouch, v)
	}
	m.put(evSyn, synReport, 0)
}

func (m *Mirror) encode(ev Event) int {
	s := m.slotOf(ev.TouchID, ev.Kind == Begin)
	if s < 0 {
		return s
	}
	m.put(evAbs, absMTSlot, int32(s))

	switch ev.Kind {
	case Begin:
		m.track = (m.track + 1) & 0xffff
		m.put(evAbs, absMTTrackingID, m.track)
		fallthrough
	case Update:
		x, y := int32(ev.X), int32(ev.Y)
		m.put(evAbs, absMTPositionX, x)
		m.put(evAbs, absMTPositionY, y)
		m.put(evAbs, absX, x)
		m.put(evAbs, absY, y)
	case End:
		m.put(evAbs, absMTTrackingID, -1)
		m.used[s] = false
	}
	return s
}

// slotOf returns the slot of a touch, allocating one for a new touch. It
// returns -1 when the touch is unknown or all slots are taken.
func (m *Mirror) slotOf(touchID int32, alloc bool) int {
	for i := range m.slots {
		if m.used[i] && m.slots[i] == touchID {
			return i
		}
	}
	if !alloc {
		return -1
	}
	for i := range m.slots {
		if !m.used[i] {
			m.used[i] = true
			m.slots[i] = touchID
			return i
		}
	}
	return -1
}

// put appends one input_event with a zero timestamp; the kernel stamps it.
func (m *Mirror) put(typ, code uint16, value int32) {
	var ev [8]byte
	binary.NativeEndian.PutUint16(ev[0:2], typ)
	binary.NativeEndian.PutUint16(ev[2:4], code)
	binary.NativeEndian.PutUint32(ev[4:8], uint32(value))
	m.buf = append(m.buf, make([]byte, inputEventSize-8)...)
	m.buf = append(m.buf, ev[:]...)
}

// Close destroys the virtual device.
func (m *Mirror) Close() error {
	destroyErr := ioctlPtr(int(m.f.Fd()), uiDevDestroy, nil)
	if err := m.f.Close(); err != nil {
		return err
	}
	return destroyErr
}
