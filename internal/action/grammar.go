package action

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"edgy/internal/gesture"
)

// ParseError describes why an action phrase could not be parsed.
type ParseError struct {
	Input  string
	Offset int

	// Expected lists what the parser would have accepted at Offset.
	Expected []string
	Found    string

	// Msg is set for lexical errors instead of Expected.
	Msg string
}

func (e *ParseError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("action: offset %d: %s", e.Offset, e.Msg)
	}
	return fmt.Sprintf("action: offset %d: expected %s, found %s",
		e.Offset, strings.Join(e.Expected, " or "), e.Found)
}

var numberWords = map[string]uint32{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// up and down double as top and bottom; the clause position decides.
var edgeWords = map[string]gesture.Edge{
	"top": gesture.EdgeTop, "up": gesture.EdgeTop,
	"right":  gesture.EdgeRight,
	"bottom": gesture.EdgeBottom, "down": gesture.EdgeBottom,
	"left": gesture.EdgeLeft,
}

var directionWords = map[string]gesture.Direction{
	"up": gesture.DirectionUp, "top": gesture.DirectionUp,
	"right": gesture.DirectionRight,
	"down":  gesture.DirectionDown, "bottom": gesture.DirectionDown,
	"left": gesture.DirectionLeft,
}

// Parse parses an action phrase such as
//
//	from bottom to up with 3 fingers run command 'rofi -show run'
//
// The effect clause and the gesture clause may come in either order. Within
// the gesture clause the finger count and the from/to part may also be swapped:
//
//	run cmd "xdg-open ." with 3 fingers to up from bottom
func Parse(s string) (Descriptor, error) {
	toks, err := tokenize(s)
	if err != nil {
		return Descriptor{}, err
	}

	p := &parser{input: s, toks: toks}
	d, ok := p.descriptor()
	if !ok {
		return Descriptor{}, p.failure()
	}
	return d, nil
}

// ParseAll parses every phrase and fails on the first invalid one.
func ParseAll(phrases []string) ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(phrases))
	for i, s := range phrases {
		d, err := Parse(s)
		if err != nil {
			return nil, fmt.Errorf("action %d %q: %w", i+1, s, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// parser is a backtracking recursive-descent parser over the token list.
// Alternatives are tried in order; each resets pos when it fails.
type parser struct {
	input string
	toks  []token
	pos   int

	// furthest failure, for error reporting
	failPos  int
	expected []string
}

func (p *parser) descriptor() (Descriptor, bool) {
	start := p.pos

	if eff, ok := p.effect(); ok {
		if d, ok := p.gesture(); ok && p.end() {
			d.Effect = eff
			return d, true
		}
	}
	p.pos = start

	if d, ok := p.gesture(); ok {
		if eff, ok := p.effect(); ok && p.end() {
			d.Effect = eff
			return d, true
		}
	}
	p.pos = start
	return Descriptor{}, false
}

// gesture := ["with"] fingers fromto | fromto ["with"] fingers
func (p *parser) gesture() (Descriptor, bool) {
	start := p.pos

	p.word("with")
	if n, ok := p.fingers(); ok {
		if e, d, ok := p.fromTo(); ok {
			return Descriptor{Edge: e, Direction: d, Fingers: n}, true
		}
	}
	p.pos = start

	if e, d, ok := p.fromTo(); ok {
		p.word("with")
		if n, ok := p.fingers(); ok {
			return Descriptor{Edge: e, Direction: d, Fingers: n}, true
		}
	}
	p.pos = start
	return Descriptor{}, false
}

// fromto := ["from"] edge "to" direction | ["to"] direction "from" edge
func (p *parser) fromTo() (gesture.Edge, gesture.Direction, bool) {
	start := p.pos

	p.word("from")
	if e, ok := p.edge(); ok && p.word("to") {
		if d, ok := p.direction(); ok {
			return e, d, true
		}
	}
	p.pos = start

	p.word("to")
	if d, ok := p.direction(); ok && p.word("from") {
		if e, ok := p.edge(); ok {
			return e, d, true
		}
	}
	p.pos = start
	return gesture.EdgeNone, gesture.DirectionNone, false
}

// fingers := count ("fingers"|"touches") | ("one"|"1") ("finger"|"touch")
func (p *parser) fingers() (uint32, bool) {
	start := p.pos

	if n, ok := p.count(); ok && p.word("fingers", "touches") {
		return n, true
	}
	p.pos = start

	if p.word("one", "1") && p.word("finger", "touch") {
		return 1, true
	}
	p.pos = start
	return 0, false
}

// effect := run | disable | enable | toggle
func (p *parser) effect() (Effect, bool) {
	start := p.pos

	if p.word("run", "execute", "exec") {
		p.word("command", "cmd")
		if cmd, ok := p.quoted(); ok {
			return RunCommand{Command: cmd}, true
		}
	}
	p.pos = start

	if (p.word("disable", "stop") || p.phrase("turn", "off")) && p.touchscreen() {
		return SetPassthrough{On: true}, true
	}
	p.pos = start

	if (p.word("enable", "start") || p.phrase("turn", "on")) && p.touchscreen() {
		return SetPassthrough{On: false}, true
	}
	p.pos = start

	if p.word("toggle") && p.touchscreen() {
		return TogglePassthrough{}, true
	}
	p.pos = start
	return nil, false
}

// touchscreen := "touch" ["screen"] | "touchscreen"
func (p *parser) touchscreen() bool {
	if p.word("touchscreen") {
		return true
	}
	if p.word("touch") {
		p.word("screen")
		return true
	}
	return false
}

func (p *parser) edge() (gesture.Edge, bool) {
	if t, ok := p.peek(); ok && t.kind == tokenWord {
		if e, ok := edgeWords[t.text]; ok {
			p.pos++
			return e, true
		}
	}
	p.fail("edge")
	return gesture.EdgeNone, false
}

func (p *parser) direction() (gesture.Direction, bool) {
	if t, ok := p.peek(); ok && t.kind == tokenWord {
		if d, ok := directionWords[t.text]; ok {
			p.pos++
			return d, true
		}
	}
	p.fail("direction")
	return gesture.DirectionNone, false
}

func (p *parser) count() (uint32, bool) {
	if t, ok := p.peek(); ok && t.kind == tokenWord {
		if n, ok := numberWords[t.text]; ok {
			p.pos++
			return n, true
		}
		if n, err := strconv.ParseUint(t.text, 10, 32); err == nil && n > 0 {
			p.pos++
			return uint32(n), true
		}
	}
	p.fail("finger count")
	return 0, false
}

func (p *parser) quoted() (string, bool) {
	if t, ok := p.peek(); ok && t.kind == tokenString {
		p.pos++
		return t.text, true
	}
	p.fail("quoted command")
	return "", false
}

// word consumes the next token if it is one of words.
func (p *parser) word(words ...string) bool {
	if t, ok := p.peek(); ok && t.kind == tokenWord && slices.Contains(words, t.text) {
		p.pos++
		return true
	}
	for _, w := range words {
		p.fail(strconv.Quote(w))
	}
	return false
}

// phrase consumes words in sequence, or nothing.
func (p *parser) phrase(words ...string) bool {
	start := p.pos
	for _, w := range words {
		if !p.word(w) {
			p.pos = start
			return false
		}
	}
	return true
}

func (p *parser) end() bool {
	if p.pos == len(p.toks) {
		return true
	}
	p.fail("end of input")
	return false
}

func (p *parser) peek() (token, bool) {
	if p.pos < len(p.toks) {
		return p.toks[p.pos], true
	}
	return token{}, false
}

// fail records that what was expected at the current position. Only the
// furthest position is kept, which is where the phrase actually went wrong.
func (p *parser) fail(what string) {
	switch {
	case p.pos > p.failPos:
		p.failPos = p.pos
		p.expected = []string{what}
	case p.pos == p.failPos && !slices.Contains(p.expected, what):
		p.expected = append(p.expected, what)
	}
}

func (p *parser) failure() *ParseError {
	e := &ParseError{Input: p.input, Expected: p.expected, Found: "end of input", Offset: len(p.input)}
	if p.failPos < len(p.toks) {
		t := p.toks[p.failPos]
		e.Offset = t.offset
		e.Found = t.describe()
	}
	if len(e.Expected) == 0 {
		e.Expected = []string{"action"}
	}
	return e
}
