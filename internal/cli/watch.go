package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/phpwdk/apidoc/internal/config"
)

// watchFlags override the watch section of the config file.
type watchFlags struct {
	debounce time.Duration
	patterns []string
}

func (f *watchFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.debounce, "debounce", 0, "wait this long for more changes before re-collecting (default 300ms)")
	cmd.Flags().StringSliceVar(&f.patterns, "pattern", nil, "glob of files that trigger a re-collect, relative to dir (default **/*.go)")
}

func (f *watchFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("debounce") {
		cfg.Watch.Debounce = f.debounce
	}
	if len(f.patterns) > 0 {
		cfg.Watch.Patterns = f.patterns
	}
	return cfg.Validate()
}

func newWatchCommand(a *app) *cobra.Command {
	var (
		flags  collectFlags
		wflags watchFlags
	)

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Collect, then collect again whenever sources change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd, a.configPath, args)
			if err != nil {
				return err
			}
			if err := wflags.apply(cmd, cfg); err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := newSession(ctx, cfg, a.logger, a.stdout)
			if err != nil {
				return err
			}
			defer s.close()

			if _, err := s.run(ctx); err != nil {
				return err
			}
			return s.watch(ctx, nil)
		},
	}
	flags.register(cmd)
	wflags.register(cmd)
	return cmd
}
