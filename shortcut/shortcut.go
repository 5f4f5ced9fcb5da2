// Package shortcut parses keyboard shortcut specifications and manages
// global hotkey bindings.
package shortcut

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vcaesar/keycode"
)

// ErrInvalidShortcut reports an unparseable shortcut specification.
var ErrInvalidShortcut = errors.New("shortcut: invalid shortcut")

// ErrRegistrationFailed reports that the host rejected a binding.
var ErrRegistrationFailed = errors.New("shortcut: registration failed")

// Modifier is a bitmask of the recognized modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
	ModMeta
)

// keyDef pairs the hook-layer token of a key with its canonical
// rendering.
type keyDef struct {
	hook    string
	display string
}

// Shortcut is a parsed key combination: zero or more modifiers plus
// exactly one key. Shortcuts are comparable; two parsed from equivalent
// specs (case, aliases) compare equal.
type Shortcut struct {
	Mods Modifier
	key  keyDef
}

// modTokens and keyTokens are the static parse tables. Every accepted
// token, including aliases, appears as a lowercase map key.
var modTokens = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"meta":    ModMeta,
	"super":   ModMeta,
	"cmd":     ModMeta,
	"command": ModMeta,
}

var keyTokens = buildKeyTokens()

func buildKeyTokens() map[string]keyDef {
	tokens := make(map[string]keyDef, 64)

	for c := 'a'; c <= 'z'; c++ {
		s := string(c)
		tokens[s] = keyDef{hook: s, display: strings.ToUpper(s)}
	}
	for c := '0'; c <= '9'; c++ {
		s := string(c)
		tokens[s] = keyDef{hook: s, display: s}
	}
	for i := 1; i <= 12; i++ {
		s := "f" + strconv.Itoa(i)
		tokens[s] = keyDef{hook: s, display: strings.ToUpper(s)}
	}

	named := []struct {
		def     keyDef
		aliases []string
	}{
		{keyDef{"space", "Space"}, []string{"space"}},
		{keyDef{"enter", "Enter"}, []string{"enter", "return"}},
		{keyDef{"tab", "Tab"}, []string{"tab"}},
		{keyDef{"esc", "Escape"}, []string{"escape", "esc"}},
		{keyDef{"backspace", "Backspace"}, []string{"backspace"}},
		{keyDef{"delete", "Delete"}, []string{"delete", "del"}},
		{keyDef{"insert", "Insert"}, []string{"insert", "ins"}},
		{keyDef{"home", "Home"}, []string{"home"}},
		{keyDef{"end", "End"}, []string{"end"}},
		{keyDef{"pageup", "PageUp"}, []string{"pageup"}},
		{keyDef{"pagedown", "PageDown"}, []string{"pagedown"}},
		{keyDef{"up", "Up"}, []string{"up", "arrowup"}},
		{keyDef{"down", "Down"}, []string{"down", "arrowdown"}},
		{keyDef{"left", "Left"}, []string{"left", "arrowleft"}},
		{keyDef{"right", "Right"}, []string{"right", "arrowright"}},
	}
	for _, n := range named {
		for _, a := range n.aliases {
			tokens[a] = n.def
		}
	}
	return tokens
}

// Parse converts a "+"-delimited specification such as "Ctrl+Shift+V"
// into a Shortcut. Tokens are case-insensitive; the spec must contain
// exactly one key token and may contain any number of modifier tokens.
func Parse(spec string) (Shortcut, error) {
	var sc Shortcut
	var haveKey bool

	for _, raw := range strings.Split(spec, "+") {
		token := strings.ToLower(strings.TrimSpace(raw))
		if token == "" {
			return Shortcut{}, fmt.Errorf("%w: empty token in %q", ErrInvalidShortcut, spec)
		}
		if mod, ok := modTokens[token]; ok {
			sc.Mods |= mod
			continue
		}
		def, ok := keyTokens[token]
		if !ok {
			return Shortcut{}, fmt.Errorf("%w: unknown token %q", ErrInvalidShortcut, raw)
		}
		if haveKey {
			return Shortcut{}, fmt.Errorf("%w: multiple keys in %q", ErrInvalidShortcut, spec)
		}
		sc.key = def
		haveKey = true
	}

	if !haveKey {
		return Shortcut{}, fmt.Errorf("%w: missing key in %q", ErrInvalidShortcut, spec)
	}
	return sc, nil
}

// MustParse is Parse for compile-time-constant specs; it panics on error.
func MustParse(spec string) Shortcut {
	sc, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return sc
}

// String renders the canonical spec form, e.g. "Ctrl+Shift+V".
func (s Shortcut) String() string {
	var parts []string
	if s.Mods&ModCtrl != 0 {
		parts = append(parts, "Ctrl")
	}
	if s.Mods&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	if s.Mods&ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if s.Mods&ModMeta != 0 {
		parts = append(parts, "Meta")
	}
	return strings.Join(append(parts, s.key.display), "+")
}

// KeyCode returns the hook-layer key code of the shortcut's key.
func (s Shortcut) KeyCode() uint16 {
	return keycode.Keycode[s.key.hook]
}

// hookTokens renders the combination for hook registration, key first.
func (s Shortcut) hookTokens() []string {
	tokens := []string{s.key.hook}
	if s.Mods&ModCtrl != 0 {
		tokens = append(tokens, "ctrl")
	}
	if s.Mods&ModShift != 0 {
		tokens = append(tokens, "shift")
	}
	if s.Mods&ModAlt != 0 {
		tokens = append(tokens, "alt")
	}
	if s.Mods&ModMeta != 0 {
		tokens = append(tokens, "cmd")
	}
	return tokens
}
