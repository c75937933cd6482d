package introspect

import (
	"fmt"
	"strings"
)

// Visibility selects members by accessibility and kind. A member matches a
// filter when any of its modifier bits is set in the filter.
type Visibility uint8

const (
	Static Visibility = 1 << iota
	Public
	Protected
	Private
	Abstract
	Final

	// All selects every member.
	All = Static | Public | Protected | Private | Abstract | Final
)

var visibilityNames = []struct {
	bit  Visibility
	name string
}{
	{Static, "static"},
	{Public, "public"},
	{Protected, "protected"},
	{Private, "private"},
	{Abstract, "abstract"},
	{Final, "final"},
}

// Normalize maps the zero value to Public and rejects unknown bits.
func (v Visibility) Normalize() (Visibility, error) {
	if v == 0 {
		return Public, nil
	}
	if v&^All != 0 {
		return 0, fmt.Errorf("%w: %#x", ErrInvalidVisibility, uint8(v))
	}
	return v, nil
}

// Matches reports whether a member with the given modifiers is selected.
func (v Visibility) Matches(modifiers Visibility) bool {
	return v&modifiers != 0
}

func (v Visibility) String() string {
	if v == 0 {
		return "none"
	}
	var parts []string
	for _, n := range visibilityNames {
		if v&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if rest := v &^ All; rest != 0 {
		parts = append(parts, fmt.Sprintf("%#x", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseVisibility parses a filter such as "public|protected". Names are
// case-insensitive and may be separated by "|" or ",". "all" selects every
// member. An empty string yields Public.
func ParseVisibility(s string) (Visibility, error) {
	if strings.TrimSpace(s) == "" {
		return Public, nil
	}
	var v Visibility
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "all" {
			v |= All
			continue
		}
		bit, ok := visibilityBit(name)
		if !ok {
			return 0, fmt.Errorf("%w: unknown modifier %q", ErrInvalidVisibility, part)
		}
		v |= bit
	}
	if v == 0 {
		return 0, fmt.Errorf("%w: %q selects nothing", ErrInvalidVisibility, s)
	}
	return v, nil
}

func visibilityBit(name string) (Visibility, bool) {
	for _, n := range visibilityNames {
		if n.name == name {
			return n.bit, true
		}
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler.
func (v Visibility) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so Visibility can be
// read from YAML and flags.
func (v *Visibility) UnmarshalText(b []byte) error {
	parsed, err := ParseVisibility(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
