package shortcut

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/harunnryd/voxd/internal/errors"
)

// Key is a virtual key code. Codes follow the Windows virtual-key table so
// the low-level hook can pass them through unchanged.
type Key uint32

const (
	KeyBackspace Key = 0x08
	KeyTab       Key = 0x09
	KeyEnter     Key = 0x0D
	KeyShift     Key = 0x10
	KeyControl   Key = 0x11
	KeyAlt       Key = 0x12
	KeyEscape    Key = 0x1B
	KeySpace     Key = 0x20
	KeyDelete    Key = 0x2E
	KeyLeftWin   Key = 0x5B
	KeyRightWin  Key = 0x5C
	KeyF1        Key = 0x70
	KeyLShift    Key = 0xA0
	KeyRShift    Key = 0xA1
	KeyLControl  Key = 0xA2
	KeyRControl  Key = 0xA3
	KeyLAlt      Key = 0xA4
	KeyRAlt      Key = 0xA5
)

// KeyEvent is one key transition seen by the hook.
type KeyEvent struct {
	Key      Key
	Down     bool
	Injected bool
}

var modifierKeys = map[string][]Key{
	"meta":  {KeyLeftWin, KeyRightWin},
	"ctrl":  {KeyControl, KeyLControl, KeyRControl},
	"alt":   {KeyAlt, KeyLAlt, KeyRAlt},
	"shift": {KeyShift, KeyLShift, KeyRShift},
}

var modifierAliases = map[string]string{
	"meta": "meta", "win": "meta", "super": "meta", "cmd": "meta", "command": "meta",
	"ctrl": "ctrl", "control": "ctrl",
	"alt": "alt", "option": "alt", "menu": "alt",
	"shift": "shift",
}

var namedKeys = map[string]Key{
	"backspace": KeyBackspace,
	"tab":       KeyTab,
	"enter":     KeyEnter,
	"return":    KeyEnter,
	"esc":       KeyEscape,
	"escape":    KeyEscape,
	"space":     KeySpace,
	"delete":    KeyDelete,
	"insert":    0x2D,
	"home":      0x24,
	"end":       0x23,
	"pageup":    0x21,
	"pagedown":  0x22,
	"left":      0x25,
	"up":        0x26,
	"right":     0x27,
	"down":      0x28,
}

// ParseModifier returns every key code that counts as the named modifier.
func ParseModifier(name string) ([]Key, error) {
	canonical, ok := modifierAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported modifier %q", name))
	}
	return modifierKeys[canonical], nil
}

// ParseKey accepts a letter, a digit, f1..f24 or a named key.
func ParseKey(token string) (Key, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return 0, errors.InvalidInput("empty key")
	}
	if len(t) == 1 {
		ch := t[0]
		if ch >= 'a' && ch <= 'z' {
			return Key(ch - 'a' + 'A'), nil
		}
		if ch >= '0' && ch <= '9' {
			return Key(ch), nil
		}
	}
	if strings.HasPrefix(t, "f") {
		if n, err := strconv.Atoi(strings.TrimPrefix(t, "f")); err == nil && n >= 1 && n <= 24 {
			return KeyF1 + Key(n-1), nil
		}
	}
	if k, ok := namedKeys[t]; ok {
		return k, nil
	}
	return 0, errors.InvalidInput(fmt.Sprintf("unsupported key %q", token))
}

// Bindings maps chords to commands. All chords share one modifier.
type Bindings struct {
	Modifier []Key
	Toggle   Key
	Clear    Key
}

func ParseBindings(modifier, toggle, clear string) (Bindings, error) {
	mods, err := ParseModifier(modifier)
	if err != nil {
		return Bindings{}, err
	}
	toggleKey, err := ParseKey(toggle)
	if err != nil {
		return Bindings{}, fmt.Errorf("toggle key: %w", err)
	}
	b := Bindings{Modifier: mods, Toggle: toggleKey}
	if strings.TrimSpace(clear) != "" {
		clearKey, err := ParseKey(clear)
		if err != nil {
			return Bindings{}, fmt.Errorf("clear key: %w", err)
		}
		b.Clear = clearKey
	}
	if isDigit(b.Toggle) || (b.Clear != 0 && isDigit(b.Clear)) {
		return Bindings{}, errors.InvalidInput("digits 1-9 are reserved for paste-stack chords")
	}
	if b.Clear != 0 && b.Clear == b.Toggle {
		return Bindings{}, errors.InvalidInput("toggle and clear keys must differ")
	}
	return b, nil
}

func (b Bindings) isModifier(k Key) bool {
	for _, m := range b.Modifier {
		if m == k {
			return true
		}
	}
	return false
}

func isDigit(k Key) bool {
	return k >= '1' && k <= '9'
}
