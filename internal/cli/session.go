package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/phpwdk/apidoc/internal/apidoc"
	"github.com/phpwdk/apidoc/internal/config"
	"github.com/phpwdk/apidoc/internal/introspect"
	"github.com/phpwdk/apidoc/internal/metrics"
	"github.com/phpwdk/apidoc/internal/resolver"
	"github.com/phpwdk/apidoc/internal/watch"
)

// source is an introspector that can list the types it knows.
type source interface {
	introspect.TypeIntrospector
	RootTypes() []string
}

// session runs collect passes for one configuration. Metrics accumulate
// across passes; the parse cache is shared by the types of a pass and is
// dropped by watch mode whenever sources change.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	stdout  io.Writer
	metrics *metrics.Collector
	cache   *apidoc.ParseCache

	// root is the resolved module root; empty in fixture mode.
	root    string
	cleanup func()
}

func newSession(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) (*session, error) {
	s := &session{
		cfg:     cfg,
		logger:  logger,
		stdout:  stdout,
		metrics: metrics.New(),
		cache:   apidoc.NewParseCache(),
		cleanup: func() {},
	}
	if cfg.Fixture != "" {
		return s, nil
	}

	root, cleanup, err := resolver.Resolve(ctx, cfg.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", cfg.Dir, err)
	}
	s.root = root
	s.cleanup = cleanup
	return s, nil
}

func (s *session) close() {
	s.cleanup()
}

// watchRoot is the directory whose changes trigger a new pass.
func (s *session) watchRoot() string {
	if s.root != "" {
		return s.root
	}
	return filepath.Dir(s.cfg.Fixture)
}

// watchPatterns adds the fixture file to the configured patterns.
func (s *session) watchPatterns() []string {
	patterns := append([]string(nil), s.cfg.Watch.Patterns...)
	if s.cfg.Fixture != "" {
		patterns = append(patterns, filepath.ToSlash(filepath.Base(s.cfg.Fixture)))
	}
	return patterns
}

func (s *session) load(ctx context.Context) (source, error) {
	if s.cfg.Fixture != "" {
		return introspect.LoadFixture(s.cfg.Fixture)
	}
	return introspect.LoadPackages(ctx, introspect.LoadOptions{
		Dir:      s.root,
		Patterns: s.cfg.Packages,
		Tests:    s.cfg.Tests,
	}, s.logger)
}

// collect loads the source afresh and assembles the documentation tree.
func (s *session) collect(ctx context.Context) (*apidoc.Tree, error) {
	src, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	cfg := s.cfg.Config
	cfg.Types = append([]string(nil), cfg.Types...)
	if s.cfg.AllTypes {
		cfg.Types = append(cfg.Types, src.RootTypes()...)
	}
	if len(cfg.Types) == 0 {
		s.logger.Warn("no types configured; use --type or --all")
	}

	assembler, err := apidoc.New(cfg, src,
		apidoc.WithLogger(s.logger),
		apidoc.WithMetrics(s.metrics),
		apidoc.WithCache(s.cache),
		apidoc.WithOwnerSeed(config.DefaultFilterClass...),
	)
	if err != nil {
		return nil, err
	}
	return assembler.Collect(s.cfg.Visibility)
}

// run performs one pass and writes its results. Output goes to the
// configured file, else to stdout unless stdout is nil.
func (s *session) run(ctx context.Context) (*apidoc.Tree, error) {
	tree, err := s.collect(ctx)
	if err != nil {
		return nil, err
	}

	if s.cfg.Output != "" || s.stdout != nil {
		data, err := encodeTree(tree, s.cfg.Format)
		if err != nil {
			return nil, err
		}
		if err := writeOutput(s.stdout, s.cfg.Output, data); err != nil {
			return nil, err
		}
	}

	if s.cfg.MetricsFile != "" {
		if err := s.metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
			return nil, err
		}
	}

	s.logger.Info("documentation collected", "types", tree.Len(), "output", outputName(s.cfg.Output))
	return tree, nil
}

// watch re-runs the session whenever watched sources change, passing each
// new tree to onTree. It blocks until ctx is done.
func (s *session) watch(ctx context.Context, onTree func(*apidoc.Tree)) error {
	w, err := watch.New(watch.Config{
		Root:     s.watchRoot(),
		Patterns: s.watchPatterns(),
		Debounce: s.cfg.Watch.Debounce,
		Logger:   s.logger,
	})
	if err != nil {
		return err
	}
	return w.Run(ctx, func(ctx context.Context, paths []string) {
		s.logger.Debug("re-collecting", "changed", paths)
		s.cache.Invalidate()
		tree, err := s.run(ctx)
		if err != nil {
			s.logger.Error("collect failed", "error", err)
			return
		}
		if onTree != nil {
			onTree(tree)
		}
	})
}

func encodeTree(tree *apidoc.Tree, format string) ([]byte, error) {
	switch format {
	case "yaml":
		data, err := yaml.Marshal(tree)
		if err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}
		return data, nil
	case "json", "":
		data, err := json.MarshalIndent(tree, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding json: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		if stdout == nil {
			return nil
		}
		_, err := stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func outputName(path string) string {
	if path == "" || path == "-" {
		return "stdout"
	}
	return path
}
