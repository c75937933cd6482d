// Package comment turns raw doc comment text into a description and an
// ordered list of @tag annotations.
package comment

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Tag is a single "@name value" annotation.
type Tag struct {
	Name  string
	Value string
}

// Tags holds annotations in the order they appear in the comment.
// A name may occur more than once (e.g. several @param lines).
type Tags []Tag

// Comment is the structured form of a doc comment.
type Comment struct {
	Description string `json:"description" yaml:"description"`
	Tags        Tags   `json:"tags" yaml:"tags"`
}

// Empty reports whether the comment carries no documentation at all.
func (c Comment) Empty() bool {
	return c.Description == "" && len(c.Tags) == 0
}

// Clone returns a copy that shares no memory with c.
func (c Comment) Clone() Comment {
	out := Comment{Description: c.Description}
	if c.Tags != nil {
		out.Tags = make(Tags, len(c.Tags))
		copy(out.Tags, c.Tags)
	}
	return out
}

// Names returns the distinct tag names in first-seen order.
func (t Tags) Names() []string {
	var names []string
	seen := make(map[string]bool, len(t))
	for _, tag := range t {
		if seen[tag.Name] {
			continue
		}
		seen[tag.Name] = true
		names = append(names, tag.Name)
	}
	return names
}

// Get returns the first value recorded for name.
func (t Tags) Get(name string) (string, bool) {
	for _, tag := range t {
		if tag.Name == name {
			return tag.Value, true
		}
	}
	return "", false
}

// Values returns every value recorded for name, in order.
func (t Tags) Values(name string) []string {
	var values []string
	for _, tag := range t {
		if tag.Name == name {
			values = append(values, tag.Value)
		}
	}
	return values
}

// grouped returns the value to serialize for name: a string when the tag
// occurs once, a list otherwise.
func (t Tags) grouped(name string) any {
	values := t.Values(name)
	if len(values) == 1 {
		return values[0]
	}
	return values
}

// MarshalJSON writes the tags as an object keyed by tag name, keeping the
// order in which names first appeared.
func (t Tags) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range t.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(t.grouped(name))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML mirrors MarshalJSON with an ordered mapping node.
func (t Tags) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range t.Names() {
		var val yaml.Node
		if err := val.Encode(t.grouped(name)); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			&val,
		)
	}
	return node, nil
}
