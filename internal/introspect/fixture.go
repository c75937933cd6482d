package introspect

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FixtureType is the static description of one type.
type FixtureType struct {
	ID      string   `yaml:"id"`
	Doc     string   `yaml:"doc,omitempty"`
	Extends string   `yaml:"extends,omitempty"` // base type whose members are inherited
	Members []Member `yaml:"members,omitempty"`

	// Unreflectable makes Members fail with ErrNotReflectable.
	Unreflectable bool `yaml:"unreflectable,omitempty"`
}

// Fixture is a TypeIntrospector over static type descriptions. Members
// without an owner are declared by their type; members without modifiers
// are public. A type reports its own members first, then inherited members
// it does not redeclare, walking the Extends chain.
type Fixture struct {
	types map[string]FixtureType
	order []string
}

type fixtureFile struct {
	Types []FixtureType `yaml:"types"`
}

// NewFixture builds a fixture from type descriptions. Later entries with
// the same ID replace earlier ones.
func NewFixture(types ...FixtureType) *Fixture {
	f := &Fixture{types: make(map[string]FixtureType, len(types))}
	for _, t := range types {
		if _, ok := f.types[t.ID]; !ok {
			f.order = append(f.order, t.ID)
		}
		f.types[t.ID] = t
	}
	return f
}

// RootTypes returns the described type identifiers in declaration order.
func (f *Fixture) RootTypes() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// LoadFixture reads a YAML fixture file with a top-level "types" list.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}
	for i, t := range file.Types {
		if t.ID == "" {
			return nil, fmt.Errorf("parsing fixture %s: type #%d has no id", path, i)
		}
	}
	return NewFixture(file.Types...), nil
}

// LookupType implements TypeIntrospector.
func (f *Fixture) LookupType(id string) (TypeInfo, error) {
	t, ok := f.types[id]
	if !ok {
		return TypeInfo{}, fmt.Errorf("%w: %s", ErrTypeNotFound, id)
	}
	return TypeInfo{ID: t.ID, Doc: t.Doc}, nil
}

// Members implements TypeIntrospector.
func (f *Fixture) Members(id string, vis Visibility) ([]Member, error) {
	vis, err := vis.Normalize()
	if err != nil {
		return nil, err
	}

	var out []Member
	seen := make(map[string]bool)
	visited := make(map[string]bool)

	for cur := id; cur != ""; {
		if visited[cur] {
			return nil, fmt.Errorf("%w: %s: inheritance cycle at %s", ErrNotReflectable, id, cur)
		}
		visited[cur] = true

		t, ok := f.types[cur]
		if !ok {
			if cur == id {
				return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, id)
			}
			return nil, fmt.Errorf("%w: %s: unknown base %s", ErrNotReflectable, id, cur)
		}
		if t.Unreflectable {
			return nil, fmt.Errorf("%w: %s", ErrNotReflectable, cur)
		}

		for _, m := range t.Members {
			if seen[m.Name] {
				continue
			}
			seen[m.Name] = true
			if m.Owner == "" {
				m.Owner = t.ID
			}
			if m.Modifiers == 0 {
				m.Modifiers = Public
			}
			if vis.Matches(m.Modifiers) {
				out = append(out, m)
			}
		}
		cur = t.Extends
	}
	return out, nil
}
