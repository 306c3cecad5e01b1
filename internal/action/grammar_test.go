package action

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgy/internal/gesture"
)

func TestParseEquivalentForms(t *testing.T) {
	want := Descriptor{
		Edge:      gesture.EdgeBottom,
		Direction: gesture.DirectionUp,
		Fingers:   3,
		Effect:    RunCommand{Command: "notify-send hi"},
	}

	phrases := []string{
		"from bottom to up with 3 fingers run command 'notify-send hi'",
		"with 3 fingers to up from bottom run cmd 'notify-send hi'",
		`run "notify-send hi" from bottom to up with three fingers`,
		`execute command 'notify-send hi' 3 touches bottom to top`,
		`exec 'notify-send hi' with 3 fingers down to up`,
		`FROM Bottom TO Up WITH 3 Fingers RUN Command 'notify-send hi'`,
		"  from   bottom\tto up 3 fingers   run 'notify-send hi'  ",
		"to up from down 3 fingers run cmd \"notify-send hi\"",
		"up from bottom with 3 touches run 'notify-send hi'",
	}

	for _, s := range phrases {
		t.Run(s, func(t *testing.T) {
			got, err := Parse(s)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseEffects(t *testing.T) {
	tests := []struct {
		phrase string
		want   Effect
	}{
		{"from left to right with 2 fingers disable touch", SetPassthrough{On: true}},
		{"from left to right with 2 fingers stop touch screen", SetPassthrough{On: true}},
		{"from left to right with 2 fingers turn off touchscreen", SetPassthrough{On: true}},
		{"from left to right with 2 fingers enable touch screen", SetPassthrough{On: false}},
		{"start touch from left to right with 2 fingers", SetPassthrough{On: false}},
		{"turn on touch screen from left to right with 2 fingers", SetPassthrough{On: false}},
		{"toggle touch screen from left to right with 2 fingers", TogglePassthrough{}},
		{"from left to right with 2 fingers toggle touchscreen", TogglePassthrough{}},
		{`from left to right with 2 fingers run 'Keep CASE'`, RunCommand{Command: "Keep CASE"}},
		{`from left to right with 2 fingers run "it's quoted"`, RunCommand{Command: "it's quoted"}},
	}

	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			got, err := Parse(tt.phrase)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Effect)
			assert.Equal(t, gesture.EdgeLeft, got.Edge)
			assert.Equal(t, gesture.DirectionRight, got.Direction)
			assert.Equal(t, uint32(2), got.Fingers)
		})
	}
}

func TestParseGestureSynonyms(t *testing.T) {
	tests := []struct {
		phrase    string
		edge      gesture.Edge
		direction gesture.Direction
		fingers   uint32
	}{
		{"from top to down with 2 fingers toggle touch", gesture.EdgeTop, gesture.DirectionDown, 2},
		{"from up to bottom with 2 fingers toggle touch", gesture.EdgeTop, gesture.DirectionDown, 2},
		{"from down to top with 2 fingers toggle touch", gesture.EdgeBottom, gesture.DirectionUp, 2},
		{"from right to left with 4 fingers toggle touch", gesture.EdgeRight, gesture.DirectionLeft, 4},
		{"with one finger from left to right toggle touch", gesture.EdgeLeft, gesture.DirectionRight, 1},
		{"1 touch from left to right toggle touch", gesture.EdgeLeft, gesture.DirectionRight, 1},
		{"one touches from left to right toggle touch", gesture.EdgeLeft, gesture.DirectionRight, 1},
		{"1 fingers from left to right toggle touch", gesture.EdgeLeft, gesture.DirectionRight, 1},
		{"ten fingers from left to right toggle touch", gesture.EdgeLeft, gesture.DirectionRight, 10},
		{"12 fingers from left to right toggle touch", gesture.EdgeLeft, gesture.DirectionRight, 12},
		{"toggle touch 1 touch from left to right", gesture.EdgeLeft, gesture.DirectionRight, 1},
	}

	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			got, err := Parse(tt.phrase)
			require.NoError(t, err)
			assert.Equal(t, tt.edge, got.Edge)
			assert.Equal(t, tt.direction, got.Direction)
			assert.Equal(t, tt.fingers, got.Fingers)
		})
	}
}

func TestParseFailures(t *testing.T) {
	phrases := []string{
		"from bottom to sideways with 3 fingers run 'x'",
		"",
		"from bottom to up with 3 fingers",
		"run 'x'",
		"from bottom to up with 0 fingers run 'x'",
		"from bottom to up with -1 fingers run 'x'",
		"from bottom to up with 99999999999 fingers run 'x'",
		"from bottom to up with two finger run 'x'",
		"from bottom to up with 3 fingers run x",
		"from bottom to up with 3 fingers run 'x",
		"from bottom to up with 3 fingers run ''",
		`from bottom to up with 3 fingers run 'x"`,
		"from bottom to up with 3 fingers run 'x'y",
		"from bottom to up with 3 fingers run 'x' please",
		"from bottom to up with 3 fingers toggle screen",
		"from bottom to up with 3 fingers turn touch",
		"with with 3 fingers from bottom to up run 'x'",
		"from bottom up with 3 fingers run 'x'",
		"run 'x' toggle touch from bottom to up with 3 fingers",
		"eleven fingers from bottom to up run 'x'",
	}

	for _, s := range phrases {
		t.Run(s, func(t *testing.T) {
			d, err := Parse(s)
			require.Error(t, err)
			assert.Equal(t, Descriptor{}, d)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, s, pe.Input)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	s := "from bottom to sideways with 3 fingers run 'x'"
	_, err := Parse(s)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 15, pe.Offset)
	assert.Equal(t, `"sideways"`, pe.Found)
	assert.Contains(t, pe.Expected, "direction")
	assert.Contains(t, err.Error(), "offset 15")
}

func TestParseErrorLexical(t *testing.T) {
	_, err := Parse("from left to right with 2 fingers run 'unterminated")

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "unterminated quoted string", pe.Msg)
	assert.Equal(t, 38, pe.Offset)
}

func TestParseAll(t *testing.T) {
	ds, err := ParseAll([]string{
		"from bottom to up with 3 fingers run 'a'",
		"from top to down with 3 fingers toggle touch",
	})
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, RunCommand{Command: "a"}, ds[0].Effect)
	assert.Equal(t, TogglePassthrough{}, ds[1].Effect)

	_, err = ParseAll([]string{
		"from bottom to up with 3 fingers run 'a'",
		"from bottom to nowhere with 3 fingers run 'b'",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action 2")
	assert.Contains(t, err.Error(), "nowhere")

	var pe *ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestDescriptorStringRoundTrip(t *testing.T) {
	phrases := []string{
		"with 3 fingers to up from bottom run cmd 'notify-send hi'",
		`run 'echo "x"' with one finger from left to right`,
		"turn off touch with 2 fingers from top to down",
		"start touchscreen 2 touches right to left",
		"toggle touch with 5 fingers from down to up",
	}

	for _, s := range phrases {
		t.Run(s, func(t *testing.T) {
			d, err := Parse(s)
			require.NoError(t, err)

			again, err := Parse(d.String())
			require.NoError(t, err, "canonical form %q", d.String())
			assert.Equal(t, d, again)
		})
	}

	d, err := Parse("with 3 fingers to up from bottom run cmd 'notify-send hi'")
	require.NoError(t, err)
	assert.Equal(t, `from bottom to up with 3 fingers run command "notify-send hi"`, d.String())
}
