package touch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"os"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrNoDevices is returned when no usable touch device was found.
	ErrNoDevices = errors.New("no multitouch devices found")

	// ErrNotSupported is returned on platforms without evdev.
	ErrNotSupported = errors.New("touch devices are only supported on linux")
)

// DeviceListPath is the kernel's list of input devices.
var DeviceListPath = "/proc/bus/input/devices"

// DeviceInfo describes an input device as listed in /proc/bus/input/devices.
type DeviceInfo struct {
	Name     string
	Phys     string
	Handlers []string

	props []uint64
	abs   []uint64
}

// EventPath returns the /dev/input/eventN node of the device, or "".
func (d DeviceInfo) EventPath() string {
	for _, h := range d.Handlers {
		if strings.HasPrefix(h, "event") {
			return "/dev/input/" + h
		}
	}
	return ""
}

// Multitouch reports whether the device speaks multitouch protocol B.
func (d DeviceInfo) Multitouch() bool {
	return hasBit(d.abs, absMTSlot) &&
		hasBit(d.abs, absMTTrackingID) &&
		hasBit(d.abs, absMTPositionX) &&
		hasBit(d.abs, absMTPositionY)
}

// Direct reports whether the device is a touch screen rather than a touchpad.
func (d DeviceInfo) Direct() bool {
	return hasBit(d.props, inputPropDirect)
}

// ParseDeviceList parses the format of /proc/bus/input/devices.
func ParseDeviceList(r io.Reader) ([]DeviceInfo, error) {
	var (
		devices []DeviceInfo
		cur     DeviceInfo
		seen    bool
	)
	flush := func() {
		if seen {
			devices = append(devices, cur)
		}
		cur = DeviceInfo{}
		seen = false
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		if len(line) < 3 || line[1] != ':' {
			continue
		}
		seen = true

		key, value, _ := strings.Cut(strings.TrimSpace(line[2:]), "=")
		switch {
		case line[0] == 'N' && key == "Name":
			cur.Name = strings.Trim(value, `"`)
		case line[0] == 'P' && key == "Phys":
			cur.Phys = value
		case line[0] == 'H' && key == "Handlers":
			cur.Handlers = strings.Fields(value)
		case line[0] == 'B' && key == "PROP":
			bm, err := parseBitmap(value)
			if err != nil {
				return nil, fmt.Errorf("device %q: PROP: %w", cur.Name, err)
			}
			cur.props = bm
		case line[0] == 'B' && key == "ABS":
			bm, err := parseBitmap(value)
			if err != nil {
				return nil, fmt.Errorf("device %q: ABS: %w", cur.Name, err)
			}
			cur.abs = bm
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return devices, nil
}

// parseBitmap parses a kernel capability bitmap: hex words of the native long
// size, most significant first.
func parseBitmap(s string) ([]uint64, error) {
	fields := strings.Fields(s)
	words := make([]uint64, 0, len(fields))
	for i := len(fields) - 1; i >= 0; i-- {
		w, err := strconv.ParseUint(fields[i], 16, bits.UintSize)
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, nil
}

func hasBit(words []uint64, bit int) bool {
	i := bit / bits.UintSize
	if i >= len(words) {
		return false
	}
	return words[i]&(1<<(bit%bits.UintSize)) != 0
}

// SelectDevices picks the multitouch devices from all. With no names every
// touch screen is selected. Otherwise devices are selected by exact name, in
// the order of names; names matching nothing are returned as missing.
func SelectDevices(all []DeviceInfo, names []string) (selected []DeviceInfo, missing []string, err error) {
	for _, d := range all {
		if !d.Multitouch() || d.EventPath() == "" {
			continue
		}
		if len(names) == 0 && d.Direct() {
			selected = append(selected, d)
		}
	}

	if len(names) > 0 {
		for _, name := range names {
			found := false
			for _, d := range all {
				if d.Name != name || !d.Multitouch() || d.EventPath() == "" {
					continue
				}
				if !slices.ContainsFunc(selected, func(s DeviceInfo) bool { return s.EventPath() == d.EventPath() }) {
					selected = append(selected, d)
				}
				found = true
			}
			if !found {
				missing = append(missing, name)
			}
		}
	}

	if len(selected) == 0 {
		return nil, missing, ErrNoDevices
	}
	return selected, missing, nil
}

// FindDevices reads the system device list and selects devices by name as
// SelectDevices does.
func FindDevices(names []string) ([]DeviceInfo, []string, error) {
	f, err := os.Open(DeviceListPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read device list: %w", err)
	}
	defer f.Close()

	all, err := ParseDeviceList(f)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", DeviceListPath, err)
	}
	return SelectDevices(all, names)
}

// ListDevices returns every multitouch device, touch screens and touchpads.
func ListDevices() ([]DeviceInfo, error) {
	f, err := os.Open(DeviceListPath)
	if err != nil {
		return nil, fmt.Errorf("read device list: %w", err)
	}
	defer f.Close()

	all, err := ParseDeviceList(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", DeviceListPath, err)
	}

	var out []DeviceInfo
	for _, d := range all {
		if d.Multitouch() {
			out = append(out, d)
		}
	}
	return out, nil
}
