package bus

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"edgy/internal/gesture"
)

// ErrNameTaken is returned by Serve when another process owns the name.
var ErrNameTaken = errors.New("bus name already taken")

// object is the exported D-Bus object. Every exported method becomes a D-Bus
// method, so it must not grow any other exported methods.
type object struct {
	ctl Controller
	log *slog.Logger
}

func (o *object) fail(method string, err error) *dbus.Error {
	o.log.Warn("bus call failed", "method", method, "error", err)
	return dbus.NewError(ErrorFailed, []any{err.Error()})
}

// Passthrough reports whether passthrough mode is on.
func (o *object) Passthrough() (bool, *dbus.Error) {
	on, err := o.ctl.Passthrough()
	if err != nil {
		return false, o.fail("Passthrough", err)
	}
	return on, nil
}

// SetPassthrough turns passthrough mode on or off.
func (o *object) SetPassthrough(on bool) *dbus.Error {
	if err := o.ctl.SetPassthrough(on); err != nil {
		return o.fail("SetPassthrough", err)
	}
	return nil
}

// TogglePassthrough flips passthrough mode and returns the new value.
func (o *object) TogglePassthrough() (bool, *dbus.Error) {
	on, err := o.ctl.TogglePassthrough()
	if err != nil {
		return false, o.fail("TogglePassthrough", err)
	}
	return on, nil
}

// Status returns a snapshot of the daemon.
func (o *object) Status() (map[string]dbus.Variant, *dbus.Error) {
	st, err := o.ctl.Status()
	if err != nil {
		return nil, o.fail("Status", err)
	}
	return st.toMap(), nil
}

func introspection(o *object) *introspect.Node {
	return &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: introspect.Methods(o),
				Signals: []introspect.Signal{
					{
						Name: "Gesture",
						Args: []introspect.Arg{
							{Name: "edge", Type: "s"},
							{Name: "direction", Type: "s"},
							{Name: "fingers", Type: "u"},
						},
					},
				},
			},
		},
	}
}

// Service is a running daemon endpoint on a bus connection.
type Service struct {
	conn  *dbus.Conn
	name  string
	owned bool
}

type serveOptions struct {
	log   *slog.Logger
	owned bool
}

// ServeOption configures Serve.
type ServeOption func(*serveOptions)

// WithLogger sets the logger for failed calls.
func WithLogger(l *slog.Logger) ServeOption {
	return func(o *serveOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// OwnConn hands the connection to the service, which closes it on Close.
func OwnConn() ServeOption {
	return func(o *serveOptions) { o.owned = true }
}

// Serve exports ctl on conn and requests name. The name is requested without
// queueing; if another daemon holds it ErrNameTaken is returned.
func Serve(conn *dbus.Conn, ctl Controller, name string, opts ...ServeOption) (*Service, error) {
	so := serveOptions{log: discardLogger()}
	for _, opt := range opts {
		opt(&so)
	}
	o := &object{ctl: ctl, log: so.log}

	if err := conn.Export(o, ObjectPath, Interface); err != nil {
		return nil, fmt.Errorf("export daemon object: %w", err)
	}
	if err := conn.Export(introspect.NewIntrospectable(introspection(o)), ObjectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, fmt.Errorf("export introspection: %w", err)
	}

	reply, err := conn.RequestName(name, dbus.NameFlagDoNotQueue)
	if err != nil {
		unexport(conn)
		return nil, fmt.Errorf("request bus name %s: %w", name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		unexport(conn)
		return nil, fmt.Errorf("%s: %w", name, ErrNameTaken)
	}

	return &Service{conn: conn, name: name, owned: so.owned}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func unexport(conn *dbus.Conn) {
	conn.Export(nil, ObjectPath, Interface)
	conn.Export(nil, ObjectPath, "org.freedesktop.DBus.Introspectable")
}

// Name returns the owned bus name.
func (s *Service) Name() string {
	return s.name
}

// EmitGesture broadcasts a completed gesture.
func (s *Service) EmitGesture(g gesture.Gesture) error {
	return s.conn.Emit(ObjectPath, GestureSignal, g.Edge.String(), g.Direction.String(), g.Fingers)
}

// Close releases the name and removes the exported object. The connection
// is closed too when the service owns it.
func (s *Service) Close() error {
	unexport(s.conn)
	_, err := s.conn.ReleaseName(s.name)
	if err != nil {
		err = fmt.Errorf("release bus name %s: %w", s.name, err)
	}
	if s.owned {
		if cerr := s.conn.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close bus connection: %w", cerr)
		}
	}
	return err
}
