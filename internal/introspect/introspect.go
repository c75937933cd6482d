// Package introspect resolves type identifiers to their declaration
// comments and member lists. Two implementations exist: Packages, which
// reads Go source through golang.org/x/tools/go/packages, and Fixture,
// which serves hand-written type descriptions.
package introspect

import (
	"errors"
	"strings"
)

var (
	// ErrTypeNotFound means the identifier does not name a known type.
	ErrTypeNotFound = errors.New("type not found")
	// ErrNotReflectable means the type exists but its members cannot be listed.
	ErrNotReflectable = errors.New("type not reflectable")
	// ErrInvalidVisibility means a filter carries bits outside the known set.
	ErrInvalidVisibility = errors.New("invalid visibility")
)

// TypeIntrospector is the facility the assembler queries for type data.
// Implementations must be safe for concurrent read-only use.
type TypeIntrospector interface {
	// LookupType returns the type's identity and raw declaration comment.
	LookupType(id string) (TypeInfo, error)
	// Members lists the type's members whose modifiers intersect vis.
	Members(id string, vis Visibility) ([]Member, error)
}

// TypeInfo describes a resolved type.
type TypeInfo struct {
	ID  string
	Doc string // raw comment text; empty when the type has none
}

// Member is a method or associated function of a type.
type Member struct {
	Name      string     `yaml:"name"`
	Owner     string     `yaml:"owner,omitempty"` // identifier of the declaring type
	Doc       string     `yaml:"doc,omitempty"`   // raw comment text; empty when the member has none
	Modifiers Visibility `yaml:"modifiers,omitempty"`
}

// TypeID builds the identifier of a type from its package path and name,
// e.g. "example.com/shop/service.Widget".
func TypeID(pkgPath, name string) string {
	if pkgPath == "" {
		return name
	}
	return pkgPath + "." + name
}

// SplitID separates an identifier into package path and type name.
// The name is whatever follows the last dot after the last slash.
func SplitID(id string) (pkgPath, name string, ok bool) {
	slash := strings.LastIndexByte(id, '/')
	dot := strings.LastIndexByte(id, '.')
	if dot <= slash || dot == len(id)-1 || dot == 0 {
		return "", "", false
	}
	return id[:dot], id[dot+1:], true
}
