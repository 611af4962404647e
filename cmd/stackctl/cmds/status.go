package cmds

import (
	"context"

	"github.com/go-go-golems/stackctl/pkg/diagnostics"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var format string
	var failUnhealthy bool

	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"health"},
		Short:   "Report health, runtime state, log errors and resource use per service",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, opts, err := loadStack(cmd, nil)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			snap, err := s.Reporter.Snapshot(ctx)
			if err != nil {
				return err
			}
			switch format {
			case "json":
				err = diagnostics.WriteJSON(cmd.OutOrStdout(), snap)
			case "table", "":
				err = diagnostics.WriteTable(cmd.OutOrStdout(), snap)
			default:
				return errors.Errorf("unknown format %q (table, json)", format)
			}
			if err != nil {
				return err
			}
			if failUnhealthy && !snap.AllHealthy() {
				return errors.Errorf("%d service(s) unhealthy", snap.Unhealthy)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	cmd.Flags().BoolVar(&failUnhealthy, "fail-unhealthy", false, "Exit non-zero when any service is unhealthy")
	return cmd
}
