// Package apidoc assembles the documentation tree of a set of types from
// their declaration and member comments.
package apidoc

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phpwdk/apidoc/internal/comment"
	"github.com/phpwdk/apidoc/internal/introspect"
	"github.com/phpwdk/apidoc/internal/metrics"
)

// Assembler builds a Tree from the configured types. Its configuration is
// fixed at construction; Collect may be called repeatedly and concurrently.
type Assembler struct {
	types        []string
	exclude      exclusions
	introspector introspect.TypeIntrospector
	logger       *slog.Logger
	metrics      *metrics.Collector
	cache        *ParseCache
}

type settings struct {
	logger    *slog.Logger
	metrics   *metrics.Collector
	cache     *ParseCache
	ownerSeed []string
}

// Option customizes an Assembler.
type Option func(*settings)

// WithLogger sets the logger used for per-item diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records collect outcomes in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *settings) { s.metrics = m }
}

// WithCache reuses parsed comments across Collect calls.
func WithCache(c *ParseCache) Option {
	return func(s *settings) { s.cache = c }
}

// WithOwnerSeed sets the owner identifiers excluded before
// Config.FilterClass is merged in.
func WithOwnerSeed(owners ...string) Option {
	return func(s *settings) { s.ownerSeed = append(s.ownerSeed, owners...) }
}

// New validates cfg and returns an Assembler reading types from in.
func New(cfg Config, in introspect.TypeIntrospector, opts ...Option) (*Assembler, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: no type introspector", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := settings{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&s)
	}

	return &Assembler{
		types:        uniqueTypes(cfg.Types),
		exclude:      newExclusions(DefaultExcludedMembers, cfg.FilterMethod, s.ownerSeed, cfg.FilterClass),
		introspector: in,
		logger:       s.logger.With("component", "apidoc"),
		metrics:      s.metrics,
		cache:        s.cache,
	}, nil
}

// Collect documents every configured type, in configuration order, using
// the members selected by vis (zero means Public).
//
// A type is present in the result only if at least one of its members has
// a non-empty comment and is not excluded by name or by declaring type.
// Unknown types, unlistable members and malformed comments leave the
// affected item out; they are never returned as errors. Collect fails only
// when called on an Assembler not built by New or with unknown visibility
// bits.
func (a *Assembler) Collect(vis introspect.Visibility) (*Tree, error) {
	if a == nil || a.introspector == nil {
		return nil, ErrNotConfigured
	}
	vis, err := vis.Normalize()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	tree := newTree(len(a.types))
	for _, id := range a.types {
		if doc, ok := a.buildEntry(id, vis); ok {
			tree.insert(doc)
		}
	}
	a.metrics.ObserveCollect(time.Since(start))

	a.logger.Info("collect complete",
		"types", len(a.types),
		"documented", tree.Len(),
		"visibility", vis.String())
	return tree, nil
}

func (a *Assembler) buildEntry(id string, vis introspect.Visibility) (TypeDoc, bool) {
	logger := a.logger.With("type", id)

	info, typeErr := a.introspector.LookupType(id)
	if typeErr != nil {
		logger.Debug("type comment unavailable", "error", typeErr)
	}

	actions := a.actions(id, vis, logger)
	if len(actions) == 0 {
		if errors.Is(typeErr, introspect.ErrTypeNotFound) {
			a.metrics.TypeResult(metrics.TypeUnresolved)
		} else {
			a.metrics.TypeResult(metrics.TypeOmitted)
		}
		logger.Debug("type omitted: no documented members")
		return TypeDoc{}, false
	}

	var doc comment.Comment
	if typeErr == nil {
		parsed, err := a.parse(id, "", info.Doc)
		if err != nil {
			logger.Debug("type comment malformed", "error", err)
		} else {
			doc = parsed
		}
	}

	a.metrics.TypeResult(metrics.TypeEmitted)
	return TypeDoc{Type: id, Comment: doc, Actions: actions}, true
}

func (a *Assembler) actions(id string, vis introspect.Visibility, logger *slog.Logger) []Action {
	members, err := a.introspector.Members(id, vis)
	if err != nil {
		logger.Debug("members unavailable", "error", err)
		return nil
	}

	var out []Action
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if a.exclude.member(m.Name) {
			a.skip(logger, m, metrics.SkipMemberName)
			continue
		}
		if a.exclude.owner(m.Owner) {
			a.skip(logger, m, metrics.SkipOwner)
			continue
		}
		if seen[m.Name] {
			a.skip(logger, m, metrics.SkipDuplicate)
			continue
		}

		owner := m.Owner
		if owner == "" {
			owner = id
		}
		c, err := a.parse(owner, m.Name, m.Doc)
		if err != nil {
			logger.Debug("member comment malformed", "member", m.Name, "error", err)
			a.metrics.MemberSkipped(metrics.SkipMalformed)
			continue
		}
		if c.Empty() {
			a.skip(logger, m, metrics.SkipUndocumented)
			continue
		}

		seen[m.Name] = true
		out = append(out, Action{Name: m.Name, Comment: c})
		a.metrics.MemberDocumented()
	}
	return out
}

func (a *Assembler) skip(logger *slog.Logger, m introspect.Member, reason string) {
	logger.Debug("member skipped", "member", m.Name, "owner", m.Owner, "reason", reason)
	a.metrics.MemberSkipped(reason)
}

func (a *Assembler) parse(owner, member, raw string) (comment.Comment, error) {
	if a.cache != nil {
		return a.cache.Parse(owner, member, raw)
	}
	return comment.Parse(raw)
}
