// Package resolver turns a source argument into a local module root.
package resolver

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Resolve takes an input (local dir, sub-package path, or GitHub URL) and returns
// the module root to load packages from, plus a cleanup function.
func Resolve(ctx context.Context, input string, logger *slog.Logger) (dir string, cleanup func(), err error) {
	cleanup = func() {}

	if isGitHubURL(input) {
		return fetchRepo(ctx, input, logger)
	}

	absPath, err := filepath.Abs(input)
	if err != nil {
		return "", cleanup, fmt.Errorf("resolving path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", cleanup, fmt.Errorf("stat %s: %w", absPath, err)
	}

	if !info.IsDir() {
		return "", cleanup, fmt.Errorf("%s is not a directory", absPath)
	}

	modRoot, err := findModuleRoot(absPath)
	if err != nil {
		return "", cleanup, err
	}

	logger.Info("resolved local directory", "input", input, "module_root", modRoot)
	return modRoot, cleanup, nil
}

func isGitHubURL(input string) bool {
	return strings.Contains(input, "github.com") &&
		(strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://"))
}

// cacheDir returns a stable directory for caching a cloned repo.
// Uses ~/.cache/apidoc/repos/<hash> where hash is derived from the URL.
func cacheDir(url string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home dir: %w", err)
	}
	h := sha256.Sum256([]byte(url))
	name := fmt.Sprintf("%x", h[:8])
	return filepath.Join(home, ".cache", "apidoc", "repos", name), nil
}

// fetchRepo either updates a cached clone or does a fresh clone.
// The cache is persistent, so the returned cleanup is a no-op.
func fetchRepo(ctx context.Context, url string, logger *slog.Logger) (string, func(), error) {
	noop := func() {}

	dir, err := cacheDir(url)
	if err != nil {
		return "", noop, err
	}

	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		return cloneRepo(ctx, url, dir, logger)
	}

	logger.Info("updating cached repository", "url", url, "dir", dir)
	for _, args := range [][]string{
		{"fetch", "--depth=1", "origin"},
		{"reset", "--hard", "origin/HEAD"},
	} {
		if err := git(ctx, dir, args...); err != nil {
			logger.Warn("git update failed, will re-clone", "command", args[0], "error", err)
			_ = os.RemoveAll(dir)
			return cloneRepo(ctx, url, dir, logger)
		}
	}
	logger.Info("repository updated", "dir", dir)

	modRoot, err := findModuleRootInTree(dir)
	if err != nil {
		return "", noop, fmt.Errorf("cached repo: %w", err)
	}
	logger.Info("found module root", "module_root", modRoot)

	if err := goModDownload(ctx, modRoot, logger); err != nil {
		logger.Warn("go mod download failed", "error", err)
	}
	return modRoot, noop, nil
}

func cloneRepo(ctx context.Context, url, dir string, logger *slog.Logger) (string, func(), error) {
	noop := func() {}

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return "", noop, fmt.Errorf("creating cache dir: %w", err)
	}

	logger.Info("cloning repository", "url", url, "dest", dir)
	if err := git(ctx, "", "clone", "--depth=1", url, dir); err != nil {
		_ = os.RemoveAll(dir)
		return "", noop, fmt.Errorf("git clone: %w", err)
	}
	logger.Info("clone complete", "dest", dir)

	// go.mod may not be at the repo root
	modRoot, err := findModuleRootInTree(dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", noop, fmt.Errorf("cloned repo: %w", err)
	}
	logger.Info("found module root", "module_root", modRoot)

	if err := goModDownload(ctx, modRoot, logger); err != nil {
		logger.Warn("go mod download failed", "error", err)
	}
	return modRoot, noop, nil
}

func git(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// findModuleRoot walks up from dir to the nearest directory holding go.mod.
func findModuleRoot(dir string) (string, error) {
	current := dir
	for {
		if _, err := os.Stat(filepath.Join(current, "go.mod")); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no go.mod found in %s or any parent directory", dir)
		}
		current = parent
	}
}

// skippedDirs never hold the module being documented.
var skippedDirs = map[string]bool{"vendor": true, "node_modules": true, "testdata": true}

// findModuleRootInTree returns the directory of the shallowest go.mod under
// root. Ties at the same depth go to the lexically first path. Hidden,
// testdata, vendor and node_modules directories are ignored.
func findModuleRootInTree(root string) (string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), "**/go.mod")
	if err != nil {
		return "", fmt.Errorf("searching %s: %w", root, err)
	}

	var candidates []string
	for _, m := range matches {
		if !skipped(path.Dir(m)) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no go.mod found in %s", root)
	}

	sort.Slice(candidates, func(i, j int) bool {
		di, dj := strings.Count(candidates[i], "/"), strings.Count(candidates[j], "/")
		if di != dj {
			return di < dj
		}
		return candidates[i] < candidates[j]
	})
	return filepath.Join(root, filepath.FromSlash(path.Dir(candidates[0]))), nil
}

func skipped(dir string) bool {
	if dir == "." {
		return false
	}
	for _, seg := range strings.Split(dir, "/") {
		if strings.HasPrefix(seg, ".") || skippedDirs[seg] {
			return true
		}
	}
	return false
}

func goModDownload(ctx context.Context, dir string, logger *slog.Logger) error {
	logger.Debug("running go mod download", "dir", dir)
	cmd := exec.CommandContext(ctx, "go", "mod", "download")
	cmd.Dir = dir
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
