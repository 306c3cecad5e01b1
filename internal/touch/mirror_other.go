//go:build !linux

package touch

// Mirror is a virtual multitouch screen. Only available on linux.
type Mirror struct{}

// NewMirror returns ErrNotSupported.
func NewMirror(name string, width, height int32) (*Mirror, error) {
	return nil, ErrNotSupported
}

func (m *Mirror) Name() string              { return "" }
func (m *Mirror) Write(frame []Event) error { return ErrNotSupported }
func (m *Mirror) Close() error              { return nil }
