package cmds

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-go-golems/stackctl/pkg/engine"
	"github.com/spf13/cobra"
)

func newStartAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "start-all",
		Aliases: []string{"up"},
		Short:   "Start the whole stack in dependency order, rolling back on failure",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, opts, err := loadStack(cmd, nil)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			res, err := s.Engine.StartAll(ctx)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func printResult(w io.Writer, res engine.Result) {
	_, _ = fmt.Fprintf(w, "session %s: %s is up\n", res.Session, res.Target)
	_, _ = fmt.Fprintf(w, "order:   %s\n", strings.Join(res.Order, " -> "))
	if len(res.Started) > 0 {
		_, _ = fmt.Fprintf(w, "started: %s\n", strings.Join(res.Started, ", "))
	}
	if len(res.Skipped) > 0 {
		_, _ = fmt.Fprintf(w, "skipped: %s (already healthy)\n", strings.Join(res.Skipped, ", "))
	}
}
