// Package daemon runs the gesture pipeline: it opens the configured touch
// devices, feeds their events through the router and the classifier on a
// single owner goroutine, and serves control requests on that same goroutine.
package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"edgy/internal/action"
	"edgy/internal/config"
	"edgy/internal/gesture"
	"edgy/internal/touch"
)

var (
	// ErrNotRunning is returned by control requests once Run has returned.
	ErrNotRunning = errors.New("daemon not running")

	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("daemon already running")
)

// requestTimeout bounds control requests made through the bus.
const requestTimeout = 2 * time.Second

// frameBuffer is the capacity of the channel between readers and the loop.
const frameBuffer = 64

// Source is an open touch device.
type Source interface {
	Path() string
	ID() int32
	Name() string
	AxisX() touch.Axis
	AxisY() touch.Axis
	Grab() error
	Read(ctx context.Context, dec *touch.Decoder, out chan<- []touch.Event) error
	Close() error
}

// MirrorSink is a sink that owns an OS resource.
type MirrorSink interface {
	touch.Sink
	Close() error
}

// State is the loop-owned pipeline handed to Do closures.
type State struct {
	Classifier *gesture.Classifier
	Registry   *action.Registry
	Router     *touch.Router

	// Devices are the names of the devices being read.
	Devices []string

	// Gestures counts completed gestures.
	Gestures uint64
}

// Daemon is the gesture daemon.
type Daemon struct {
	id  string
	cfg *config.Config
	log *slog.Logger

	state     State
	listeners []func(gesture.Gesture)
	screenW   float64
	screenH   float64
	grabbed   bool

	find      func(names []string) ([]touch.DeviceInfo, []string, error)
	open      func(path string, id int32) (Source, error)
	newMirror func(name string, width, height int32) (MirrorSink, error)
	spawner   action.Spawner

	requests chan func()
	stopped  chan struct{}
	running  atomic.Bool
	stopOnce sync.Once
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithLogger sets the daemon logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Daemon) {
		if l != nil {
			d.log = l
		}
	}
}

// WithSpawner replaces the spawner used for run command actions.
func WithSpawner(s action.Spawner) Option {
	return func(d *Daemon) { d.spawner = s }
}

// WithDeviceFinder replaces the device discovery.
func WithDeviceFinder(find func(names []string) ([]touch.DeviceInfo, []string, error)) Option {
	return func(d *Daemon) { d.find = find }
}

// WithOpener replaces how devices are opened.
func WithOpener(open func(path string, id int32) (Source, error)) Option {
	return func(d *Daemon) { d.open = open }
}

// WithMirror replaces how the passthrough device is created.
func WithMirror(newMirror func(name string, width, height int32) (MirrorSink, error)) Option {
	return func(d *Daemon) { d.newMirror = newMirror }
}

// OnGesture registers fn to be called on the owner goroutine after the
// actions of every completed gesture ran.
func OnGesture(fn func(gesture.Gesture)) Option {
	return func(d *Daemon) { d.listeners = append(d.listeners, fn) }
}

// New creates a daemon for cfg running descriptors. The screen size may be
// unknown until Run has opened the devices.
func New(cfg *config.Config, descriptors []action.Descriptor, opts ...Option) *Daemon {
	d := &Daemon{
		id:       uuid.NewString(),
		cfg:      cfg.Clone(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		find:     touch.FindDevices,
		open:     openDevice,
		requests: make(chan func()),
		stopped:  make(chan struct{}),
	}
	d.newMirror = func(name string, width, height int32) (MirrorSink, error) {
		return touch.NewMirror(name, width, height)
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With("instance", d.id)

	regOpts := []action.RegistryOption{action.WithLogger(d.log)}
	if d.spawner != nil {
		regOpts = append(regOpts, action.WithSpawner(d.spawner))
	}
	d.state.Registry = action.NewRegistry(descriptors, regOpts...)
	d.state.Router = touch.NewRouter(nil, d.log)
	d.state.Classifier = gesture.NewClassifier(
		d.cfg.Params(float64(d.cfg.Screen.Width), float64(d.cfg.Screen.Height)),
		d.state.Router,
		gesture.HandlerFunc(d.handleGesture),
		gesture.WithLogger(d.log),
	)
	return d
}

func openDevice(path string, id int32) (Source, error) {
	dev, err := touch.OpenDevice(path, id)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// ID returns the instance id of this daemon.
func (d *Daemon) ID() string {
	return d.id
}

func (d *Daemon) handleGesture(sw gesture.Switch, g gesture.Gesture) {
	d.state.Gestures++
	d.log.Info("gesture", "edge", g.Edge, "direction", g.Direction, "fingers", g.Fingers)
	d.state.Registry.HandleGesture(sw, g)
	for _, fn := range d.listeners {
		fn(g)
	}
}

// dispatch hands a decoded frame to the router and the classifier.
func (d *Daemon) dispatch(frame []touch.Event) {
	c := d.state.Classifier
	for _, ev := range frame {
		d.state.Router.Observe(ev)
		switch ev.Kind {
		case touch.Begin:
			c.Begin(ev.TouchID, ev.DeviceID, ev.X, ev.Y)
		case touch.Update:
			c.Update(ev.TouchID, ev.X, ev.Y)
		case touch.End:
			c.End(ev.TouchID, ev.X, ev.Y)
		}
	}
}

// Do runs fn on the owner goroutine and waits for it to finish.
func (d *Daemon) Do(ctx context.Context, fn func(*State)) error {
	done := make(chan struct{})
	req := func() {
		defer close(done)
		fn(&d.state)
	}

	select {
	case d.requests <- req:
	case <-d.stopped:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Daemon) call(fn func(*State)) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	return d.Do(ctx, fn)
}

// ApplyConfig replaces the actions and gesture parameters with those of cfg.
// Device selection and grabbing only change on restart.
func (d *Daemon) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	descriptors, err := action.ParseAll(cfg.Actions)
	if err != nil {
		return err
	}
	cfg = cfg.Clone()

	return d.Do(ctx, func(s *State) {
		if !sameDevices(d.cfg.Devices, cfg.Devices) {
			d.log.Warn("device settings changed, restart to apply")
		}
		w, h := d.screenW, d.screenH
		if cfg.Screen.Width > 0 && cfg.Screen.Height > 0 {
			w, h = float64(cfg.Screen.Width), float64(cfg.Screen.Height)
		}
		params := cfg.Params(w, h)
		if err := params.Validate(); err != nil {
			d.log.Warn("keeping gesture parameters", "error", err)
		} else {
			s.Classifier.SetParams(params)
		}
		s.Registry.Replace(descriptors)
		d.cfg = cfg
		d.log.Info("configuration applied", "actions", len(descriptors))
	})
}

func sameDevices(a, b config.DevicesConfig) bool {
	if a.Grab != b.Grab || a.MirrorName != b.MirrorName || len(a.Names) != len(b.Names) {
		return false
	}
	for i := range a.Names {
		if a.Names[i] != b.Names[i] {
			return false
		}
	}
	return true
}

// Screen returns the surface size in use. It is zero before Run resolved it.
func (d *Daemon) Screen() (width, height float64) {
	var w, h float64
	if err := d.call(func(*State) { w, h = d.screenW, d.screenH }); err != nil {
		return 0, 0
	}
	return w, h
}

// stop marks the daemon as stopped. Safe to call more than once.
func (d *Daemon) stop() {
	d.stopOnce.Do(func() { close(d.stopped) })
}

// Done is closed when Run has returned.
func (d *Daemon) Done() <-chan struct{} {
	return d.stopped
}
