package action

import (
	"errors"
	"fmt"
	"strings"

	"edgy/internal/gesture"
)

// Env is what an effect may act upon.
type Env struct {
	Switch  gesture.Switch
	Spawner Spawner
}

// Effect is the action performed when a gesture matches.
type Effect interface {
	Apply(env Env) error
	String() string
}

// RunCommand starts Command as a detached process.
type RunCommand struct {
	Command string
}

// Apply spawns the command without waiting for it.
func (r RunCommand) Apply(env Env) error {
	if env.Spawner == nil {
		return errors.New("no spawner configured")
	}
	return env.Spawner.Spawn(r.Command)
}

func (r RunCommand) String() string {
	return "run command " + quote(r.Command)
}

// SetPassthrough turns passthrough mode on (touch screen disabled for other
// applications, every touch accepted) or off.
type SetPassthrough struct {
	On bool
}

// Apply sets the passthrough flag.
func (s SetPassthrough) Apply(env Env) error {
	env.Switch.SetAcceptAll(s.On)
	return nil
}

func (s SetPassthrough) String() string {
	if s.On {
		return "disable touch screen"
	}
	return "enable touch screen"
}

// TogglePassthrough flips passthrough mode.
type TogglePassthrough struct{}

// Apply flips the passthrough flag.
func (TogglePassthrough) Apply(env Env) error {
	env.Switch.SetAcceptAll(!env.Switch.AcceptAll())
	return nil
}

func (TogglePassthrough) String() string {
	return "toggle touch screen"
}

// Descriptor binds a gesture signature to an effect.
type Descriptor struct {
	Edge      gesture.Edge
	Direction gesture.Direction
	Fingers   uint32
	Effect    Effect
}

// Gesture returns the signature the descriptor matches.
func (d Descriptor) Gesture() gesture.Gesture {
	return gesture.Gesture{Edge: d.Edge, Direction: d.Direction, Fingers: d.Fingers}
}

// Matches reports whether g has exactly the descriptor's signature.
func (d Descriptor) Matches(g gesture.Gesture) bool {
	return d.Gesture() == g
}

// String renders the descriptor in canonical phrase form. The result parses
// back to an equal descriptor.
func (d Descriptor) String() string {
	fingers := fmt.Sprintf("%d fingers", d.Fingers)
	if d.Fingers == 1 {
		fingers = "1 finger"
	}
	effect := "nothing"
	if d.Effect != nil {
		effect = d.Effect.String()
	}
	return fmt.Sprintf("from %s to %s with %s %s", d.Edge, d.Direction, fingers, effect)
}

func quote(s string) string {
	if strings.Contains(s, `"`) {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}
