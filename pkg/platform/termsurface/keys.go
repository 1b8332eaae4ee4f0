package termsurface

import "github.com/taigrr/nanoview/pkg/input"

type matcher interface {
	MatchString(s ...string) bool
}

type binding struct {
	names []string
	key   input.Key
	shift bool
}

// Shifted letters also hold shift, since terminals do not report shift on
// its own.
var bindings = []binding{
	{[]string{"w", "up"}, input.KeyW, false},
	{[]string{"s", "down"}, input.KeyS, false},
	{[]string{"a", "left"}, input.KeyA, false},
	{[]string{"d", "right"}, input.KeyD, false},
	{[]string{"q", "pgup"}, input.KeyQ, false},
	{[]string{"z", "pgdown"}, input.KeyZ, false},
	{[]string{"shift+w", "W"}, input.KeyW, true},
	{[]string{"shift+s", "S"}, input.KeyS, true},
	{[]string{"shift+a", "A"}, input.KeyA, true},
	{[]string{"shift+d", "D"}, input.KeyD, true},
	{[]string{"shift+q", "Q"}, input.KeyQ, true},
	{[]string{"shift+z", "Z"}, input.KeyZ, true},
	{[]string{"x"}, input.KeyX, false},
	{[]string{"=", "+"}, input.KeyEqual, false},
	{[]string{"-", "_"}, input.KeyMinus, false},
	{[]string{"5"}, input.Key5, false},
	{[]string{"6"}, input.Key6, false},
	{[]string{"7"}, input.Key7, false},
	{[]string{"8"}, input.Key8, false},
	{[]string{"esc", "escape"}, input.KeyEscape, false},
}

// keyFor returns the viewer key for a key event and whether shift was held.
func keyFor(ev matcher) (input.Key, bool) {
	for _, b := range bindings {
		if ev.MatchString(b.names...) {
			return b.key, b.shift
		}
	}
	return input.KeyUnknown, false
}
