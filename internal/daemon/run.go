package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"edgy/internal/touch"
)

type readerExit struct {
	src Source
	err error
}

// Run opens the devices and processes their events until ctx is cancelled
// or every device has failed. Devices are ungrabbed and the mirror device is
// destroyed before Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer d.stop()

	sources, err := d.openSources()
	if err != nil {
		return err
	}
	defer func() {
		for _, src := range sources {
			if err := src.Close(); err != nil {
				d.log.Warn("close device", "path", src.Path(), "error", err)
			}
		}
	}()

	if err := d.resolveScreen(sources[0]); err != nil {
		return err
	}

	if d.cfg.Devices.Grab {
		mirror, err := d.newMirror(d.cfg.Devices.MirrorName, int32(d.screenW), int32(d.screenH))
		if err != nil {
			return fmt.Errorf("create passthrough device: %w", err)
		}
		defer func() {
			d.state.Router.SetSink(nil)
			if err := mirror.Close(); err != nil {
				d.log.Warn("destroy passthrough device", "error", err)
			}
		}()
		d.state.Router.SetSink(mirror)

		for _, src := range sources {
			if err := src.Grab(); err != nil {
				return fmt.Errorf("grab %s: %w", src.Path(), err)
			}
		}
		d.grabbed = true
		d.log.Info("devices grabbed", "mirror", d.cfg.Devices.MirrorName)
	}

	readCtx, cancel := context.WithCancel(ctx)
	frames := make(chan []touch.Event, frameBuffer)
	exits := make(chan readerExit, len(sources))
	var wg sync.WaitGroup
	defer wg.Wait()
	// cancel runs before Wait
	defer cancel()

	for _, src := range sources {
		dec := touch.NewDecoder(src.ID(), src.AxisX(), src.AxisY(), d.screenW, d.screenH)
		wg.Go(func() {
			err := src.Read(readCtx, dec, frames)
			exits <- readerExit{src: src, err: err}
		})
	}

	d.log.Info("daemon started",
		"devices", d.state.Devices,
		"screen_width", d.screenW,
		"screen_height", d.screenH,
		"actions", d.state.Registry.Len(),
	)

	alive := len(sources)
	for {
		select {
		case <-ctx.Done():
			d.log.Info("daemon stopping")
			return nil

		case frame := <-frames:
			d.dispatch(frame)

		case req := <-d.requests:
			req()

		case exit := <-exits:
			if exit.err == nil || errors.Is(exit.err, context.Canceled) {
				exit.err = errors.New("reader stopped")
			}
			d.log.Error("device lost", "path", exit.src.Path(), "error", exit.err)
			alive--
			if alive == 0 {
				return fmt.Errorf("all touch devices failed: %w", exit.err)
			}
		}
	}
}

// openSources finds and opens the configured devices. Devices that fail to
// open are skipped; it is an error if none could be opened.
func (d *Daemon) openSources() ([]Source, error) {
	infos, missing, err := d.find(d.cfg.Devices.Names)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		d.log.Warn("devices not found", "names", missing)
	}

	var sources []Source
	var errs []error
	for i, info := range infos {
		src, err := d.open(info.EventPath(), int32(i))
		if err != nil {
			d.log.Warn("open device", "name", info.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		d.log.Info("device opened", "name", src.Name(), "path", src.Path(), "id", src.ID())
		sources = append(sources, src)
		d.state.Devices = append(d.state.Devices, src.Name())
	}

	switch {
	case len(sources) > 0:
	case len(errs) > 0:
		return nil, fmt.Errorf("%w: %w", touch.ErrNoDevices, errors.Join(errs...))
	default:
		return nil, touch.ErrNoDevices
	}
	return sources, nil
}

// resolveScreen sets the surface size from the configuration, or from the
// axis ranges of the first device when none is configured.
func (d *Daemon) resolveScreen(first Source) error {
	w, h := float64(d.cfg.Screen.Width), float64(d.cfg.Screen.Height)
	if w <= 0 || h <= 0 {
		w, h = float64(first.AxisX().Span()), float64(first.AxisY().Span())
	}
	d.screenW, d.screenH = w, h

	params := d.cfg.Params(w, h)
	if err := params.Validate(); err != nil {
		return fmt.Errorf("gesture parameters: %w", err)
	}
	d.state.Classifier.SetParams(params)
	return nil
}
