//go:build linux

package touch

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	evIOCGRAB = 0x40044590
)

func evIOCGNAME(n int) uint {
	return 0x80000000 | uint(n)<<16 | 0x4506
}

func evIOCGABS(abs int) uint {
	return 0x80000000 | uint(unsafe.Sizeof(absInfo{}))<<16 | uint(0x4540+abs)
}

// absInfo matches struct input_absinfo.
type absInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// inputEventSize is sizeof(struct input_event); the timestamp is a native
// struct timeval.
var inputEventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

// Device is an open evdev touch device.
type Device struct {
	f    *os.File
	path string
	id   int32
	name string
	x, y Axis

	grabbed bool
}

// OpenDevice opens the evdev node at path. id identifies the device in the
// touch events it produces.
func OpenDevice(path string, id int32) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	d := &Device{f: f, path: path, id: id}
	if err := d.probe(); err != nil {
		f.Close()
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}
	return d, nil
}

func (d *Device) probe() error {
	buf := make([]byte, 256)
	if err := d.ioctl(evIOCGNAME(len(buf)), unsafe.Pointer(&buf[0])); err != nil {
		return fmt.Errorf("EVIOCGNAME: %w", err)
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	d.name = string(buf)

	var err error
	if d.x, err = d.axis(absMTPositionX); err != nil {
		return err
	}
	if d.y, err = d.axis(absMTPositionY); err != nil {
		return err
	}
	return nil
}

func (d *Device) axis(code int) (Axis, error) {
	var info absInfo
	if err := d.ioctl(evIOCGABS(code), unsafe.Pointer(&info)); err != nil {
		return Axis{}, fmt.Errorf("EVIOCGABS(%#x): %w", code, err)
	}
	return Axis{Min: info.Minimum, Max: info.Maximum}, nil
}

func (d *Device) ioctl(req uint, arg unsafe.Pointer) error {
	conn, err := d.f.SyscallConn()
	if err != nil {
		return err
	}
	var errno unix.Errno
	err = conn.Control(func(fd uintptr) {
		_, _, errno = unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), uintptr(arg))
	})
	if err != nil {
		return err
	}
	if errno != 0 {
		return errno
	}
	return nil
}

// Path returns the device node.
func (d *Device) Path() string { return d.path }

// ID returns the device id given to OpenDevice.
func (d *Device) ID() int32 { return d.id }

// Name returns the kernel device name.
func (d *Device) Name() string { return d.name }

// AxisX returns the range of the multitouch x axis.
func (d *Device) AxisX() Axis { return d.x }

// AxisY returns the range of the multitouch y axis.
func (d *Device) AxisY() Axis { return d.y }

// Grab takes the device exclusively; other readers see no events until
// Ungrab or Close.
func (d *Device) Grab() error {
	if err := d.setGrab(1); err != nil {
		return fmt.Errorf("grab %s: %w", d.path, err)
	}
	d.grabbed = true
	return nil
}

// Ungrab releases an exclusive grab.
func (d *Device) Ungrab() error {
	if !d.grabbed {
		return nil
	}
	if err := d.setGrab(0); err != nil {
		return fmt.Errorf("ungrab %s: %w", d.path, err)
	}
	d.grabbed = false
	return nil
}

func (d *Device) setGrab(v int) error {
	conn, err := d.f.SyscallConn()
	if err != nil {
		return err
	}
	var ioErr error
	err = conn.Control(func(fd uintptr) {
		ioErr = unix.IoctlSetInt(int(fd), evIOCGRAB, v)
	})
	if err != nil {
		return err
	}
	return ioErr
}

// Read decodes events from the device and sends the touch events of each
// frame to out until ctx is done or the device fails.
func (d *Device) Read(ctx context.Context, dec *Decoder, out chan<- []Event) error {
	stop := context.AfterFunc(ctx, func() {
		d.f.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, 64*inputEventSize)
	var frame []Event

	for {
		n, err := d.f.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			return fmt.Errorf("read %s: %w", d.path, err)
		}

		for off := 0; off+inputEventSize <= n; off += inputEventSize {
			b := buf[off+inputEventSize-8 : off+inputEventSize]
			ev := InputEvent{
				Type:  binary.NativeEndian.Uint16(b[0:2]),
				Code:  binary.NativeEndian.Uint16(b[2:4]),
				Value: int32(binary.NativeEndian.Uint32(b[4:8])),
			}

			frame = dec.Feed(ev, frame)
			if ev.Type != evSyn || ev.Code != synReport || len(frame) == 0 {
				continue
			}
			select {
			case out <- frame:
			case <-ctx.Done():
				return ctx.Err()
			}
			frame = nil
		}
	}
}

// Close releases any grab and closes the device.
func (d *Device) Close() error {
	ungrabErr := d.Ungrab()
	if err := d.f.Close(); err != nil {
		return err
	}
	return ungrabErr
}
