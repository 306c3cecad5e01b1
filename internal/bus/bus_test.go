package bus

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgy/internal/gesture"
)

type fakeController struct {
	on     bool
	status Status
	err    error
}

func (f *fakeController) Passthrough() (bool, error) {
	return f.on, f.err
}

func (f *fakeController) SetPassthrough(on bool) error {
	if f.err != nil {
		return f.err
	}
	f.on = on
	return nil
}

func (f *fakeController) TogglePassthrough() (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.on = !f.on
	return f.on, nil
}

func (f *fakeController) Status() (Status, error) {
	st := f.status
	st.Passthrough = f.on
	return st, f.err
}

func newObject(ctl Controller) *object {
	so := serveOptions{log: discardLogger()}
	WithLogger(nil)(&so)
	return &object{ctl: ctl, log: so.log}
}

func TestObjectMethods(t *testing.T) {
	ctl := &fakeController{}
	o := newObject(ctl)

	on, derr := o.Passthrough()
	assert.Nil(t, derr)
	assert.False(t, on)

	assert.Nil(t, o.SetPassthrough(true))
	assert.True(t, ctl.on)

	on, derr = o.TogglePassthrough()
	assert.Nil(t, derr)
	assert.False(t, on)
	assert.False(t, ctl.on)
}

func TestObjectErrors(t *testing.T) {
	ctl := &fakeController{err: errors.New("daemon stopped")}
	o := newObject(ctl)

	_, derr := o.Passthrough()
	require.NotNil(t, derr)
	assert.Equal(t, ErrorFailed, derr.Name)
	assert.Equal(t, []any{"daemon stopped"}, derr.Body)

	derr = o.SetPassthrough(true)
	require.NotNil(t, derr)
	assert.Equal(t, ErrorFailed, derr.Name)

	_, derr = o.Status()
	require.NotNil(t, derr)
}

func TestStatusMap(t *testing.T) {
	want := Status{
		Instance:    "5d1c",
		Passthrough: true,
		Devices:     []string{"ELAN Touchscreen"},
		Grabbed:     true,
		Actions:     2,
		Active:      3,
		Edge:        "bottom",
		Direction:   "up",
		Fingers:     3,
		Gestures:    7,
		Accepted:    21,
		Rejected:    4,
		Forwarded:   40,
	}

	m := want.toMap()
	assert.Equal(t, "bottom", m["edge"].Value())
	assert.Equal(t, "a{sv}", dbus.SignatureOf(m).String())

	got, err := statusFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStatusMapTolerance(t *testing.T) {
	m := Status{}.toMap()
	assert.Equal(t, []string{}, m["devices"].Value())

	delete(m, "gestures")
	m["future"] = dbus.MakeVariant(1.5)
	got, err := statusFromMap(m)
	require.NoError(t, err)
	assert.Zero(t, got.Gestures)

	m["fingers"] = dbus.MakeVariant("three")
	_, err = statusFromMap(m)
	assert.Error(t, err)
}

func TestIntrospection(t *testing.T) {
	node := introspection(newObject(&fakeController{}))
	require.Len(t, node.Interfaces, 2)

	iface := node.Interfaces[1]
	assert.Equal(t, Interface, iface.Name)

	var names []string
	for _, m := range iface.Methods {
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t, []string{"Passthrough", "SetPassthrough", "TogglePassthrough", "Status"}, names)
	require.Len(t, iface.Signals, 1)
	assert.Equal(t, "Gesture", iface.Signals[0].Name)
}

func TestParseGestureSignal(t *testing.T) {
	sig := &dbus.Signal{
		Path: ObjectPath,
		Name: GestureSignal,
		Body: []any{"bottom", "up", uint32(3)},
	}
	g, ok := parseGestureSignal(sig)
	require.True(t, ok)
	assert.Equal(t, gesture.Gesture{Edge: gesture.EdgeBottom, Direction: gesture.DirectionUp, Fingers: 3}, g)

	for _, bad := range []*dbus.Signal{
		{Path: ObjectPath, Name: Interface + ".Other", Body: sig.Body},
		{Path: "/elsewhere", Name: GestureSignal, Body: sig.Body},
		{Path: ObjectPath, Name: GestureSignal, Body: []any{"bottom", "up"}},
		{Path: ObjectPath, Name: GestureSignal, Body: []any{"middle", "up", uint32(3)}},
		{Path: ObjectPath, Name: GestureSignal, Body: []any{"bottom", "sideways", uint32(3)}},
	} {
		_, ok := parseGestureSignal(bad)
		assert.False(t, ok, "%+v", bad)
	}
}

// TestSessionBus runs the service against a real session bus when one is
// available.
func TestSessionBus(t *testing.T) {
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no session bus")
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		t.Skipf("session bus unavailable: %v", err)
	}
	defer conn.Close()

	name := fmt.Sprintf("org.edgy.Test.P%d", os.Getpid())
	ctl := &fakeController{status: Status{Instance: "test", Devices: []string{"a"}}}
	svc, err := Serve(conn, ctl, name)
	require.NoError(t, err)
	defer svc.Close()

	client, err := Dial(name)
	require.NoError(t, err)
	defer client.Close()

	ctx := t.Context()
	require.NoError(t, client.SetPassthrough(ctx, true))
	on, err := client.Passthrough(ctx)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = client.TogglePassthrough(ctx)
	require.NoError(t, err)
	assert.False(t, on)

	st, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test", st.Instance)
	assert.Equal(t, []string{"a"}, st.Devices)

	other, err := dbus.ConnectSessionBus()
	require.NoError(t, err)
	defer other.Close()
	_, err = Serve(other, ctl, name)
	assert.ErrorIs(t, err, ErrNameTaken)

	got := make(chan gesture.Gesture, 1)
	go client.WatchGestures(ctx, func(g gesture.Gesture) { got <- g })

	want := gesture.Gesture{Edge: gesture.EdgeLeft, Direction: gesture.DirectionRight, Fingers: 2}
	// the match rule is installed asynchronously; emit until seen
	require.Eventually(t, func() bool {
		if svc.EmitGesture(want) != nil {
			return false
		}
		select {
		case g := <-got:
			return assert.Equal(t, want, g)
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
}

func TestServiceOwnedConn(t *testing.T) {
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no session bus")
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		t.Skipf("session bus unavailable: %v", err)
	}

	name := fmt.Sprintf("org.edgy.Test.Owned%d", os.Getpid())
	svc, err := Serve(conn, &fakeController{}, name, OwnConn())
	require.NoError(t, err)
	require.True(t, conn.Connected())

	require.NoError(t, svc.Close())
	assert.False(t, conn.Connected())

	// the name is free again
	next, err := dbus.ConnectSessionBus()
	require.NoError(t, err)
	svc, err = Serve(next, &fakeController{}, name, OwnConn())
	require.NoError(t, err)
	assert.NoError(t, svc.Close())
	assert.False(t, next.Connected())
}
