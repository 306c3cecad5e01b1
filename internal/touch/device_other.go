//go:build !linux

package touch

import "context"

// Device is an open evdev touch device. Only available on linux.
type Device struct{}

// OpenDevice returns ErrNotSupported.
func OpenDevice(path string, id int32) (*Device, error) {
	return nil, ErrNotSupported
}

func (d *Device) Path() string  { return "" }
func (d *Device) ID() int32     { return 0 }
func (d *Device) Name() string  { return "" }
func (d *Device) AxisX() Axis   { return Axis{} }
func (d *Device) AxisY() Axis   { return Axis{} }
func (d *Device) Grab() error   { return ErrNotSupported }
func (d *Device) Ungrab() error { return nil }
func (d *Device) Close() error  { return nil }

func (d *Device) Read(ctx context.Context, dec *Decoder, out chan<- []Event) error {
	return ErrNotSupported
}
