package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/phpwdk/apidoc/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		flags  collectFlags
		wflags watchFlags
		addr   string
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve the documentation tree and collect metrics over HTTP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd, a.configPath, args)
			if err != nil {
				return err
			}
			if err := wflags.apply(cmd, cfg); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// The tree is served, so stdout stays quiet.
			s, err := newSession(ctx, cfg, a.logger, nil)
			if err != nil {
				return err
			}
			defer s.close()

			tree, err := s.run(ctx)
			if err != nil {
				return err
			}

			srv := server.New(s.metrics.Registry(), a.logger)
			srv.Update(tree)

			var (
				wg       sync.WaitGroup
				watchErr error
			)
			if follow {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := s.watch(ctx, srv.Update); err != nil {
						a.logger.Error("watch stopped", "error", err)
						watchErr = fmt.Errorf("watch: %w", err)
						cancel()
					}
				}()
			}

			err = srv.ListenAndServe(ctx, addr)
			// The watcher uses the session, so it must finish before close.
			cancel()
			wg.Wait()
			if err != nil {
				return err
			}
			return watchErr
		},
	}
	flags.register(cmd)
	wflags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "re-collect when sources change")
	return cmd
}
