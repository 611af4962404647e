package cmds

import (
	"context"
	"fmt"

	"github.com/go-go-golems/stackctl/pkg/graph"
	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "logs <name>",
		Short: "Print a service's most recent log lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, opts, err := loadStack(cmd, nil)
			if err != nil {
				return err
			}
			if !s.Graph.Has(args[0]) {
				return &graph.UnknownServiceError{Name: args[0]}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			out, err := s.Runtime.RecentLogs(ctx, args[0], lines)
			if err != nil {
				return err
			}
			for _, l := range out {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "Number of lines")
	return cmd
}
