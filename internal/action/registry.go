// Package action parses gesture action phrases and runs the effects of
// configured actions when a gesture completes.
package action

import (
	"io"
	"log/slog"

	"edgy/internal/gesture"
)

// Registry holds the configured actions in declaration order. It implements
// gesture.Handler and, like the classifier it is attached to, must only be
// used from a single goroutine.
type Registry struct {
	actions []Descriptor
	spawner Spawner
	log     *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithSpawner sets the spawner used by RunCommand effects.
func WithSpawner(s Spawner) RegistryOption {
	return func(r *Registry) { r.spawner = s }
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry creates a registry for actions. By default commands are spawned
// with a ShellSpawner.
func NewRegistry(actions []Descriptor, opts ...RegistryOption) *Registry {
	r := &Registry{
		actions: append([]Descriptor(nil), actions...),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.spawner == nil {
		r.spawner = NewShellSpawner(r.log)
	}
	return r
}

// HandleGesture runs the effect of every action matching g, in declaration
// order. A failing effect is logged and does not stop the others.
func (r *Registry) HandleGesture(sw gesture.Switch, g gesture.Gesture) {
	env := Env{Switch: sw, Spawner: r.spawner}

	matched := 0
	for _, a := range r.actions {
		if !a.Matches(g) {
			continue
		}
		matched++
		if err := a.Effect.Apply(env); err != nil {
			r.log.Error("action failed", "action", a.String(), "error", err)
			continue
		}
		r.log.Info("action applied", "action", a.String())
	}

	if matched == 0 {
		r.log.Debug("no action for gesture", "edge", g.Edge, "direction", g.Direction, "fingers", g.Fingers)
	}
}

// Match returns the actions matching g.
func (r *Registry) Match(g gesture.Gesture) []Descriptor {
	var out []Descriptor
	for _, a := range r.actions {
		if a.Matches(g) {
			out = append(out, a)
		}
	}
	return out
}

// Replace swaps the configured actions.
func (r *Registry) Replace(actions []Descriptor) {
	r.actions = append([]Descriptor(nil), actions...)
}

// Actions returns a copy of the configured actions.
func (r *Registry) Actions() []Descriptor {
	return append([]Descriptor(nil), r.actions...)
}

// Len returns the number of configured actions.
func (r *Registry) Len() int {
	return len(r.actions)
}
