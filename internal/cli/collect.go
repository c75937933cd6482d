package cli

import (
	"github.com/spf13/cobra"
)

func newCollectCommand(a *app) *cobra.Command {
	var flags collectFlags

	cmd := &cobra.Command{
		Use:   "collect [dir]",
		Short: "Write the documentation tree of the configured types",
		Long: `Collect loads the Go packages under dir (a local path or a GitHub URL,
default "."), reads the doc comments of the configured types and their
members, and writes the documentation tree as JSON or YAML.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd, a.configPath, args)
			if err != nil {
				return err
			}

			s, err := newSession(cmd.Context(), cfg, a.logger, a.stdout)
			if err != nil {
				return err
			}
			defer s.close()

			_, err = s.run(cmd.Context())
			return err
		},
	}
	flags.register(cmd)
	return cmd
}
