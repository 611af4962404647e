package cmds

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStopAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "stop-all",
		Aliases: []string{"down"},
		Short:   "Stop every service in reverse dependency order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, opts, err := loadStack(cmd, nil)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			if err := s.Engine.StopAll(ctx); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "stopped")
			return nil
		},
	}
}
