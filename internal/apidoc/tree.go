package apidoc

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/phpwdk/apidoc/internal/comment"
)

// Action is the documentation of one member of a type.
type Action struct {
	Name string
	comment.Comment
}

// TypeDoc is the documentation of one type: its own comment plus the
// documented members, in the order the introspector reported them.
type TypeDoc struct {
	Type string
	comment.Comment
	Actions []Action
}

// Action returns the documented member called name.
func (d TypeDoc) Action(name string) (Action, bool) {
	for _, a := range d.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

// ActionNames returns member names in order.
func (d TypeDoc) ActionNames() []string {
	names := make([]string, len(d.Actions))
	for i, a := range d.Actions {
		names[i] = a.Name
	}
	return names
}

// Tree maps type identifiers to their documentation, keeping the order in
// which types were configured. A Tree is built by Collect and belongs to
// the caller.
type Tree struct {
	entries []TypeDoc
	index   map[string]int
}

func newTree(capacity int) *Tree {
	return &Tree{
		entries: make([]TypeDoc, 0, capacity),
		index:   make(map[string]int, capacity),
	}
}

func (t *Tree) insert(d TypeDoc) {
	if i, ok := t.index[d.Type]; ok {
		t.entries[i] = d
		return
	}
	t.index[d.Type] = len(t.entries)
	t.entries = append(t.entries, d)
}

// Len returns the number of documented types.
func (t *Tree) Len() int {
	return len(t.entries)
}

// Keys returns the documented type identifiers in order.
func (t *Tree) Keys() []string {
	keys := make([]string, len(t.entries))
	for i, d := range t.entries {
		keys[i] = d.Type
	}
	return keys
}

// Get returns the documentation of type id.
func (t *Tree) Get(id string) (TypeDoc, bool) {
	i, ok := t.index[id]
	if !ok {
		return TypeDoc{}, false
	}
	return t.entries[i], true
}

// Entries returns all documented types in order.
func (t *Tree) Entries() []TypeDoc {
	out := make([]TypeDoc, len(t.entries))
	copy(out, t.entries)
	return out
}

// typeDocBody is the serialized shape of a TypeDoc.
type typeDocBody struct {
	Description string       `json:"description" yaml:"description"`
	Tags        comment.Tags `json:"tags" yaml:"tags"`
	Action      actionMap    `json:"action" yaml:"action"`
}

type actionMap []Action

func (d TypeDoc) body() typeDocBody {
	return typeDocBody{Description: d.Description, Tags: d.Tags, Action: d.Actions}
}

// MarshalJSON writes {"description", "tags", "action": {member: comment}}.
func (d TypeDoc) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.body())
}

// MarshalYAML mirrors MarshalJSON.
func (d TypeDoc) MarshalYAML() (any, error) {
	return d.body(), nil
}

func (m actionMap) MarshalJSON() ([]byte, error) {
	return orderedJSON(len(m), func(i int) (string, any) { return m[i].Name, m[i].Comment })
}

func (m actionMap) MarshalYAML() (any, error) {
	return orderedYAML(len(m), func(i int) (string, any) { return m[i].Name, m[i].Comment })
}

// MarshalJSON writes the tree as an object keyed by type identifier.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return orderedJSON(len(t.entries), func(i int) (string, any) { return t.entries[i].Type, t.entries[i] })
}

// MarshalYAML writes the tree as a mapping keyed by type identifier.
func (t *Tree) MarshalYAML() (any, error) {
	return orderedYAML(len(t.entries), func(i int) (string, any) { return t.entries[i].Type, t.entries[i] })
}

func orderedJSON(n int, at func(int) (string, any)) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i < n; i++ {
		k, v := at(i)
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func orderedYAML(n int, at func(int) (string, any)) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i < n; i++ {
		k, v := at(i)
		var val yaml.Node
		if err := val.Encode(v); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&val,
		)
	}
	return node, nil
}
