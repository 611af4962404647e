package cmds

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStartServiceCmd() *cobra.Command {
	var only bool

	cmd := &cobra.Command{
		Use:   "start-service <name>",
		Short: "Start a service after its dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, opts, err := loadStack(cmd, nil)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			if only {
				if err := s.Engine.StartService(ctx, args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is up\n", args[0])
				return nil
			}
			res, err := s.Engine.StartWithDependencies(ctx, args[0])
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&only, "no-deps", false, "Start only this service, leaving dependencies untouched")
	return cmd
}
