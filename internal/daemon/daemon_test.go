package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgy/internal/action"
	"edgy/internal/config"
	"edgy/internal/gesture"
	"edgy/internal/touch"
)

type fakeSource struct {
	id      int32
	name    string
	frames  chan []touch.Event
	mu      sync.Mutex
	grabbed bool
	closed  bool
}

func newFakeSource(id int32, name string) *fakeSource {
	return &fakeSource{id: id, name: name, frames: make(chan []touch.Event, 16)}
}

func (f *fakeSource) Path() string      { return "/dev/input/fake" + f.name }
func (f *fakeSource) ID() int32         { return f.id }
func (f *fakeSource) Name() string      { return f.name }
func (f *fakeSource) AxisX() touch.Axis { return touch.Axis{Min: 0, Max: 999} }
func (f *fakeSource) AxisY() touch.Axis { return touch.Axis{Min: 0, Max: 999} }

func (f *fakeSource) Grab() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grabbed = true
	return nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) state() (grabbed, closed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grabbed, f.closed
}

func (f *fakeSource) Read(ctx context.Context, dec *touch.Decoder, out chan<- []touch.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-f.frames:
			if !ok {
				return errors.New("device unplugged")
			}
			select {
			case out <- frame:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

type fakeMirror struct {
	mu     sync.Mutex
	events []touch.Event
	closed bool
}

func (m *fakeMirror) Write(frame []touch.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, frame...)
	return nil
}

func (m *fakeMirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *fakeMirror) snapshot() ([]touch.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]touch.Event(nil), m.events...), m.closed
}

type fakeSpawner struct {
	mu       sync.Mutex
	commands []string
}

func (s *fakeSpawner) Spawn(command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, command)
	return nil
}

func (s *fakeSpawner) spawned() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

type harness struct {
	d       *Daemon
	sources []*fakeSource
	mirror  *fakeMirror
	spawner *fakeSpawner
	found   []string
	cancel  context.CancelFunc
	result  chan error
}

func begin(id int32, x, y float64) touch.Event {
	return touch.Event{Kind: touch.Begin, TouchID: id, X: x, Y: y}
}

func update(id int32, x, y float64) touch.Event {
	return touch.Event{Kind: touch.Update, TouchID: id, X: x, Y: y}
}

func end(id int32, x, y float64) touch.Event {
	return touch.Event{Kind: touch.End, TouchID: id, X: x, Y: y}
}

func newHarness(t *testing.T, cfg *config.Config, devices int, opts ...Option) *harness {
	t.Helper()

	h := &harness{mirror: &fakeMirror{}, spawner: &fakeSpawner{}}
	var infos []touch.DeviceInfo
	for i := range devices {
		name := string(rune('A' + i))
		h.sources = append(h.sources, newFakeSource(int32(i), name))
		infos = append(infos, touch.DeviceInfo{Name: name, Handlers: []string{"event" + name}})
	}

	descriptors, err := action.ParseAll(cfg.Actions)
	require.NoError(t, err)

	opts = append([]Option{
		WithSpawner(h.spawner),
		WithDeviceFinder(func(names []string) ([]touch.DeviceInfo, []string, error) {
			h.found = names
			return infos, nil, nil
		}),
		WithOpener(func(path string, id int32) (Source, error) {
			return h.sources[id], nil
		}),
		WithMirror(func(name string, width, height int32) (MirrorSink, error) {
			return h.mirror, nil
		}),
	}, opts...)

	h.d = New(cfg, descriptors, opts...)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.result = make(chan error, 1)
	go func() { h.result <- h.d.Run(ctx) }()
	t.Cleanup(cancel)
}

func (h *harness) stop(t *testing.T) error {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.result:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
		return nil
	}
}

func testConfig(actions ...string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Actions = actions
	return cfg
}

func TestRunGestureAndPassthroughDevice(t *testing.T) {
	cfg := testConfig(
		"from bottom to up with 2 fingers run command 'launcher'",
		"from left to right with 1 finger run 'other'",
	)
	cfg.Devices.Grab = true

	got := make(chan gesture.Gesture, 1)
	h := newHarness(t, cfg, 1, OnGesture(func(g gesture.Gesture) { got <- g }))
	h.start(t)

	src := h.sources[0]
	src.frames <- []touch.Event{begin(1, 500, 990), begin(2, 520, 990)}
	src.frames <- []touch.Event{update(1, 500, 900), update(2, 520, 900)}
	src.frames <- []touch.Event{end(1, 500, 880), end(2, 520, 880)}

	select {
	case g := <-got:
		assert.Equal(t, gesture.Gesture{Edge: gesture.EdgeBottom, Direction: gesture.DirectionUp, Fingers: 2}, g)
	case <-time.After(5 * time.Second):
		t.Fatal("no gesture")
	}
	assert.Equal(t, []string{"launcher"}, h.spawner.spawned())

	// an interior touch belongs to other applications
	src.frames <- []touch.Event{begin(3, 500, 500)}
	src.frames <- []touch.Event{update(3, 510, 500)}
	src.frames <- []touch.Event{end(3, 510, 500)}

	require.Eventually(t, func() bool {
		st, err := h.d.Status()
		return err == nil && st.Forwarded == 3
	}, 5*time.Second, 10*time.Millisecond)

	st, err := h.d.Status()
	require.NoError(t, err)
	assert.Equal(t, h.d.ID(), st.Instance)
	assert.Equal(t, []string{"A"}, st.Devices)
	assert.True(t, st.Grabbed)
	assert.Equal(t, uint32(2), st.Actions)
	assert.Equal(t, uint64(1), st.Gestures)
	assert.Equal(t, uint64(2), st.Accepted)
	assert.Equal(t, uint64(1), st.Rejected)
	assert.Zero(t, st.Active)

	require.NoError(t, h.stop(t))

	events, closed := h.mirror.snapshot()
	assert.True(t, closed)
	require.Len(t, events, 3)
	assert.Equal(t, []touch.Kind{touch.Begin, touch.Update, touch.End},
		[]touch.Kind{events[0].Kind, events[1].Kind, events[2].Kind})
	assert.Equal(t, int32(3), events[0].TouchID)

	grabbed, srcClosed := src.state()
	assert.True(t, grabbed)
	assert.True(t, srcClosed)
}

func TestRunWithoutGrab(t *testing.T) {
	h := newHarness(t, testConfig(), 2)
	h.d.cfg.Devices.Names = []string{"A", "B"}
	h.start(t)

	require.Eventually(t, func() bool {
		st, err := h.d.Status()
		return err == nil && len(st.Devices) == 2
	}, 5*time.Second, 10*time.Millisecond)

	st, err := h.d.Status()
	require.NoError(t, err)
	assert.False(t, st.Grabbed)
	assert.Equal(t, []string{"A", "B"}, h.found)

	w, hgt := h.d.Screen()
	assert.Equal(t, 1000.0, w)
	assert.Equal(t, 1000.0, hgt)

	require.NoError(t, h.stop(t))
	for _, src := range h.sources {
		grabbed, closed := src.state()
		assert.False(t, grabbed)
		assert.True(t, closed)
	}
	_, mirrorClosed := h.mirror.snapshot()
	assert.False(t, mirrorClosed)
}

func TestRunScreenFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Screen.Width = 1920
	cfg.Screen.Height = 1080
	h := newHarness(t, cfg, 1)
	h.start(t)

	w, hgt := h.d.Screen()
	assert.Equal(t, 1920.0, w)
	assert.Equal(t, 1080.0, hgt)

	require.NoError(t, h.stop(t))
}

func TestRunNoDevices(t *testing.T) {
	d := New(testConfig(), nil, WithDeviceFinder(func([]string) ([]touch.DeviceInfo, []string, error) {
		return nil, []string{"ELAN"}, touch.ErrNoDevices
	}))
	err := d.Run(context.Background())
	assert.ErrorIs(t, err, touch.ErrNoDevices)

	_, err = d.Passthrough()
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestRunOpenFailures(t *testing.T) {
	openErr := errors.New("permission denied")
	d := New(testConfig(), nil,
		WithDeviceFinder(func([]string) ([]touch.DeviceInfo, []string, error) {
			return []touch.DeviceInfo{{Name: "A", Handlers: []string{"event3"}}}, nil, nil
		}),
		WithOpener(func(path string, id int32) (Source, error) {
			assert.Equal(t, "/dev/input/event3", path)
			return nil, openErr
		}),
	)
	err := d.Run(context.Background())
	assert.ErrorIs(t, err, touch.ErrNoDevices)
	assert.ErrorIs(t, err, openErr)
}

func TestRunAllDevicesLost(t *testing.T) {
	h := newHarness(t, testConfig(), 2)
	h.start(t)

	close(h.sources[0].frames)
	close(h.sources[1].frames)

	select {
	case err := <-h.result:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "device unplugged")
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}

	select {
	case <-h.d.Done():
	default:
		t.Error("Done not closed")
	}
}

func TestRunTwice(t *testing.T) {
	h := newHarness(t, testConfig(), 1)
	h.start(t)

	_, err := h.d.Passthrough()
	require.NoError(t, err)
	assert.ErrorIs(t, h.d.Run(context.Background()), ErrAlreadyRunning)

	require.NoError(t, h.stop(t))
}

func TestPassthroughControl(t *testing.T) {
	h := newHarness(t, testConfig(), 1)
	h.start(t)

	on, err := h.d.Passthrough()
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, h.d.SetPassthrough(true))
	st, err := h.d.Status()
	require.NoError(t, err)
	assert.True(t, st.Passthrough)

	// in passthrough every touch is consumed
	h.sources[0].frames <- []touch.Event{begin(1, 500, 500)}
	require.Eventually(t, func() bool {
		st, err := h.d.Status()
		return err == nil && st.Accepted == 1
	}, 5*time.Second, 10*time.Millisecond)

	on, err = h.d.TogglePassthrough()
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, h.stop(t))

	_, err = h.d.TogglePassthrough()
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestGestureEffectTogglesPassthrough(t *testing.T) {
	h := newHarness(t, testConfig("from top to down with one finger toggle touchscreen"), 1)
	h.start(t)

	h.sources[0].frames <- []touch.Event{begin(1, 500, 5)}
	h.sources[0].frames <- []touch.Event{end(1, 500, 100)}

	require.Eventually(t, func() bool {
		on, err := h.d.Passthrough()
		return err == nil && on
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, h.stop(t))
}

func TestApplyConfig(t *testing.T) {
	h := newHarness(t, testConfig("from left to right with 2 fingers run 'a'"), 1)
	h.start(t)

	next := testConfig(
		"from right to left with 2 fingers run 'b'",
		"from top to down with 3 fingers disable touch",
	)
	next.Gesture.ZoneWidth = 100
	require.NoError(t, h.d.ApplyConfig(context.Background(), next))

	err := h.d.Do(context.Background(), func(s *State) {
		assert.Equal(t, 2, s.Registry.Len())
		assert.Equal(t, 100.0, s.Classifier.Params().ZoneWidth)
		assert.Equal(t, 1000.0, s.Classifier.Params().ScreenWidth)
	})
	require.NoError(t, err)

	bad := testConfig("from left to nowhere with 2 fingers run 'c'")
	err = h.d.ApplyConfig(context.Background(), bad)
	var perr *action.ParseError
	assert.ErrorAs(t, err, &perr)

	st, err := h.d.Status()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), st.Actions)

	require.NoError(t, h.stop(t))
}

func TestDoHonoursContext(t *testing.T) {
	d := New(testConfig(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Do(ctx, func(*State) { t.Error("ran without a loop") })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatch(t *testing.T) {
	cfg := testConfig("from right to left with 1 finger run 'back'")
	cfg.Screen.Width = 800
	cfg.Screen.Height = 600
	spawner := &fakeSpawner{}
	d := New(cfg, nil, WithSpawner(spawner))
	descriptors, err := action.ParseAll(cfg.Actions)
	require.NoError(t, err)
	d.state.Registry.Replace(descriptors)

	d.dispatch([]touch.Event{begin(1, 795, 300)})
	d.dispatch([]touch.Event{update(1, 700, 300)})
	assert.Equal(t, 1, d.state.Classifier.Snapshot().Active)
	d.dispatch([]touch.Event{end(1, 650, 300)})

	assert.Equal(t, []string{"back"}, spawner.spawned())
	assert.Equal(t, uint64(1), d.state.Gestures)
	assert.Equal(t, touch.RouterStats{Accepted: 1}, d.state.Router.Stats())
}
