package bus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"edgy/internal/gesture"
)

// Client talks to a running daemon.
type Client struct {
	conn  *dbus.Conn
	obj   dbus.BusObject
	owned bool
}

// Dial opens a private session bus connection to the daemon owning name.
func Dial(name string) (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	c := NewClient(conn, name)
	c.owned = true
	return c, nil
}

// NewClient wraps an existing connection. Close leaves conn open.
func NewClient(conn *dbus.Conn, name string) *Client {
	return &Client{
		conn: conn,
		obj:  conn.Object(name, ObjectPath),
	}
}

// Passthrough reports whether passthrough mode is on.
func (c *Client) Passthrough(ctx context.Context) (bool, error) {
	var on bool
	if err := c.obj.CallWithContext(ctx, Interface+".Passthrough", 0).Store(&on); err != nil {
		return false, fmt.Errorf("Passthrough: %w", err)
	}
	return on, nil
}

// SetPassthrough turns passthrough mode on or off.
func (c *Client) SetPassthrough(ctx context.Context, on bool) error {
	if err := c.obj.CallWithContext(ctx, Interface+".SetPassthrough", 0, on).Err; err != nil {
		return fmt.Errorf("SetPassthrough: %w", err)
	}
	return nil
}

// TogglePassthrough flips passthrough mode and returns the new value.
func (c *Client) TogglePassthrough(ctx context.Context) (bool, error) {
	var on bool
	if err := c.obj.CallWithContext(ctx, Interface+".TogglePassthrough", 0).Store(&on); err != nil {
		return false, fmt.Errorf("TogglePassthrough: %w", err)
	}
	return on, nil
}

// Status fetches a snapshot of the daemon.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var m map[string]dbus.Variant
	if err := c.obj.CallWithContext(ctx, Interface+".Status", 0).Store(&m); err != nil {
		return Status{}, fmt.Errorf("Status: %w", err)
	}
	return statusFromMap(m)
}

// WatchGestures calls fn for every Gesture signal until ctx is done.
func (c *Client) WatchGestures(ctx context.Context, fn func(gesture.Gesture)) error {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(ObjectPath),
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchMember("Gesture"),
	}
	if err := c.conn.AddMatchSignalContext(ctx, opts...); err != nil {
		return fmt.Errorf("subscribe to gestures: %w", err)
	}
	defer c.conn.RemoveMatchSignal(opts...)

	ch := make(chan *dbus.Signal, 16)
	c.conn.Signal(ch)
	defer c.conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return nil
			}
			if g, ok := parseGestureSignal(sig); ok {
				fn(g)
			}
		}
	}
}

func parseGestureSignal(sig *dbus.Signal) (gesture.Gesture, bool) {
	if sig.Name != GestureSignal || sig.Path != ObjectPath {
		return gesture.Gesture{}, false
	}
	var edge, dir string
	var g gesture.Gesture
	if err := dbus.Store(sig.Body, &edge, &dir, &g.Fingers); err != nil {
		return gesture.Gesture{}, false
	}
	var ok bool
	if g.Edge, ok = gesture.ParseEdge(edge); !ok {
		return gesture.Gesture{}, false
	}
	if g.Direction, ok = gesture.ParseDirection(dir); !ok {
		return gesture.Gesture{}, false
	}
	return g, true
}

// Close closes the connection if Dial opened it.
func (c *Client) Close() error {
	if c.owned {
		return c.conn.Close()
	}
	return nil
}
