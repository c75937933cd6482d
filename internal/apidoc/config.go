package apidoc

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidConfig reports a configuration the assembler cannot run with.
	ErrInvalidConfig = errors.New("invalid apidoc configuration")
	// ErrNotConfigured is returned by Collect on an Assembler not built by New.
	ErrNotConfigured = errors.New("apidoc assembler not configured")
)

// DefaultExcludedMembers are never documented: "constructor" names the
// lifecycle member every type has.
var DefaultExcludedMembers = []string{"constructor"}

// Config selects the types to document and the members to leave out.
type Config struct {
	// Types lists type identifiers in output order.
	Types []string `yaml:"types" validate:"dive,required,nospace"`
	// FilterMethod names members to exclude, added to DefaultExcludedMembers.
	FilterMethod []string `yaml:"filter_method" validate:"dive,required,nospace"`
	// FilterClass names declaring types whose members are excluded. Matching
	// is case-insensitive.
	FilterClass []string `yaml:"filter_class" validate:"dive,required,nospace"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("nospace", func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
	})
	return v
}

// Validate reports entries that are empty or contain whitespace.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// exclusions holds the merged member and owner filters. Owner names are
// stored lower-cased.
type exclusions struct {
	members map[string]struct{}
	owners  map[string]struct{}
}

func newExclusions(memberSeed, members, ownerSeed, owners []string) exclusions {
	e := exclusions{
		members: make(map[string]struct{}, len(memberSeed)+len(members)),
		owners:  make(map[string]struct{}, len(ownerSeed)+len(owners)),
	}
	for _, list := range [][]string{memberSeed, members} {
		for _, name := range list {
			e.members[name] = struct{}{}
		}
	}
	for _, list := range [][]string{ownerSeed, owners} {
		for _, name := range list {
			e.owners[strings.ToLower(name)] = struct{}{}
		}
	}
	return e
}

func (e exclusions) member(name string) bool {
	_, ok := e.members[name]
	return ok
}

func (e exclusions) owner(id string) bool {
	if id == "" {
		return false
	}
	_, ok := e.owners[strings.ToLower(id)]
	return ok
}

// uniqueTypes drops repeated identifiers, keeping the first position.
func uniqueTypes(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
