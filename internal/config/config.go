// Package config loads apidoc settings from YAML, the environment and flags.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/phpwdk/apidoc/internal/apidoc"
	"github.com/phpwdk/apidoc/internal/introspect"
)

// DefaultFilterClass lists declaring types whose members are never API
// documentation. Embedded mutexes promote Lock, Unlock and friends onto
// every type that guards its state with one.
var DefaultFilterClass = []string{"sync.Mutex", "sync.RWMutex"}

// Config is the complete apidoc configuration.
type Config struct {
	// Dir is the source root: a local path or a GitHub URL.
	Dir string `yaml:"dir" validate:"required_without=Fixture"`
	// Packages are the package patterns loaded from Dir.
	Packages []string `yaml:"packages" validate:"dive,required"`
	// Tests includes _test.go files when loading packages.
	Tests bool `yaml:"tests"`
	// Fixture is a YAML type description file used instead of Dir.
	Fixture string `yaml:"fixture"`
	// AllTypes documents every type of the loaded packages after Types.
	AllTypes bool `yaml:"all_types"`

	apidoc.Config `yaml:",inline" validate:"-"`

	Visibility introspect.Visibility `yaml:"visibility"`
	// Format is the output encoding: json or yaml.
	Format string `yaml:"format" validate:"oneof=json yaml"`
	// Output is the output file; empty writes to stdout.
	Output string `yaml:"output"`
	// MetricsFile receives collect metrics in Prometheus text format.
	MetricsFile string `yaml:"metrics_file"`

	Watch WatchConfig `yaml:"watch"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	// Debounce is how long to wait for more changes before re-collecting.
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
	// Patterns select the files whose changes trigger a re-collect,
	// relative to Dir.
	Patterns []string `yaml:"patterns" validate:"dive,required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Dir:        ".",
		Packages:   []string{"./..."},
		Visibility: introspect.Public,
		Format:     "json",
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
			Patterns: []string{"**/*.go"},
		},
	}
}

// Load reads .env (when present), the YAML file at path (when non-empty)
// and the APIDOC_* environment overrides, on top of Default.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("APIDOC_DIR"); v != "" {
		c.Dir = v
	}
	if v := getenv("APIDOC_FIXTURE"); v != "" {
		c.Fixture = v
	}
	if v := getenv("APIDOC_VISIBILITY"); v != "" {
		vis, err := introspect.ParseVisibility(v)
		if err != nil {
			return fmt.Errorf("APIDOC_VISIBILITY: %w", err)
		}
		c.Visibility = vis
	}
	if v := getenv("APIDOC_FORMAT"); v != "" {
		c.Format = v
	}
	if v := getenv("APIDOC_OUTPUT"); v != "" {
		c.Output = v
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if c.Fixture == "" {
		// Live loading resolves ids by package path.
		for _, id := range c.Types {
			if _, _, ok := introspect.SplitID(id); !ok {
				return fmt.Errorf("%w: type %q is not importpath.TypeName", apidoc.ErrInvalidConfig, id)
			}
		}
	}
	if _, err := c.Visibility.Normalize(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Merge applies other on top of c. Non-zero scalars in other win; type and
// filter lists are appended so defaults and file values are never lost;
// Packages and watch patterns are replaced when other sets them.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Dir != "" {
		c.Dir = other.Dir
	}
	if len(other.Packages) > 0 {
		c.Packages = other.Packages
	}
	if other.Tests {
		c.Tests = true
	}
	if other.Fixture != "" {
		c.Fixture = other.Fixture
	}
	if other.AllTypes {
		c.AllTypes = true
	}

	c.Types = append(c.Types, other.Types...)
	c.FilterMethod = append(c.FilterMethod, other.FilterMethod...)
	c.FilterClass = append(c.FilterClass, other.FilterClass...)

	if other.Visibility != 0 {
		c.Visibility = other.Visibility
	}
	if other.Format != "" {
		c.Format = other.Format
	}
	if other.Output != "" {
		c.Output = other.Output
	}
	if other.MetricsFile != "" {
		c.MetricsFile = other.MetricsFile
	}

	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if len(other.Watch.Patterns) > 0 {
		c.Watch.Patterns = other.Watch.Patterns
	}
}

// SaveToFile writes the configuration as YAML, e.g. for "apidoc init".
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
