package cli

import (
	"github.com/spf13/cobra"

	"github.com/phpwdk/apidoc/internal/config"
	"github.com/phpwdk/apidoc/internal/introspect"
)

// collectFlags are the flags shared by collect and watch. Only flags the
// user set override the config file.
type collectFlags struct {
	types        []string
	filterMethod []string
	filterClass  []string
	visibility   string
	packages     []string
	tests        bool
	fixture      string
	all          bool
	format       string
	output       string
	metricsFile  string
}

func (f *collectFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringSliceVarP(&f.types, "type", "t", nil, "type identifier to document, e.g. example.com/shop.Widget (repeatable)")
	fs.StringSliceVar(&f.filterMethod, "filter-method", nil, "member name to leave out (repeatable)")
	fs.StringSliceVar(&f.filterClass, "filter-class", nil, "declaring type whose members are left out (repeatable)")
	fs.StringVar(&f.visibility, "visibility", "", "member filter, e.g. public|static (default public)")
	fs.StringSliceVar(&f.packages, "packages", nil, "package patterns to load (default ./...)")
	fs.BoolVar(&f.tests, "tests", false, "include _test.go files")
	fs.StringVar(&f.fixture, "fixture", "", "read types from a YAML fixture instead of Go source")
	fs.BoolVar(&f.all, "all", false, "document every type of the loaded packages")
	fs.StringVarP(&f.format, "format", "f", "", "output format: json or yaml (default json)")
	fs.StringVarP(&f.output, "output", "o", "", "output file (default stdout)")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write collect metrics in Prometheus text format")
}

// load builds the effective configuration: defaults, then the config file
// and environment, then the flags the user set, then the positional dir.
func (f *collectFlags) load(cmd *cobra.Command, configPath string, args []string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	override := &config.Config{
		Packages:    f.packages,
		Tests:       f.tests,
		Fixture:     f.fixture,
		AllTypes:    f.all,
		Format:      f.format,
		Output:      f.output,
		MetricsFile: f.metricsFile,
	}
	override.Types = f.types
	override.FilterMethod = f.filterMethod
	override.FilterClass = f.filterClass

	if cmd.Flags().Changed("visibility") {
		vis, err := introspect.ParseVisibility(f.visibility)
		if err != nil {
			return nil, err
		}
		override.Visibility = vis
	}
	if len(args) > 0 {
		override.Dir = args[0]
	}

	cfg.Merge(override)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
