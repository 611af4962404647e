package cmds

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStopServiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop-service <name>",
		Short: "Stop one service; dependents are left running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, opts, err := loadStack(cmd, nil)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			if err := s.Engine.StopService(ctx, args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s stopped\n", args[0])
			return nil
		},
	}
}
