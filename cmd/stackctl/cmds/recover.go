package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-go-golems/stackctl/pkg/supervise"
	"github.com/go-go-golems/stackctl/pkg/tui/widgets"
	"github.com/spf13/cobra"
)

func newRecoverCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Run one bounded recovery sweep over the watch-list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, opts, err := loadStack(cmd, nil)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			rep, sweepErr := s.Monitor.Sweep(ctx)
			if asJSON {
				b, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			} else {
				writeReport(cmd.OutOrStdout(), rep)
			}
			return sweepErr
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the sweep report as JSON")
	return cmd
}

func outcomeStatus(o supervise.Outcome) string {
	switch o {
	case supervise.OutcomeSuccess:
		return "healthy"
	case supervise.OutcomeFailure:
		return "unhealthy"
	default:
		return "starting"
	}
}

func writeReport(w io.Writer, rep supervise.Report) {
	if len(rep.Attempts) > 0 {
		t := widgets.NewTable([]widgets.Column{
			{Header: "SERVICE", Width: 14},
			{Header: "OUTCOME", Width: 10},
			{Header: "STRATEGY", Width: 22},
			{Header: "ATTEMPT", Width: 8},
			{Header: "DETAIL", Width: 50},
		})
		rows := make([]widgets.Row, 0, len(rep.Attempts))
		for _, a := range rep.Attempts {
			detail := a.Error
			if a.Transient {
				detail = "transient, healthy on re-check"
			}
			for _, f := range a.Findings {
				detail = fmt.Sprintf("%s [%s]", detail, f.Kind)
			}
			rows = append(rows, widgets.Row{
				Status: outcomeStatus(a.Outcome),
				Cells:  []string{a.Service, string(a.Outcome), string(a.Strategy), fmt.Sprint(a.AttemptNumber), detail},
			})
		}
		_, _ = fmt.Fprintln(w, t.WithRows(rows).Render())
		_, _ = fmt.Fprintln(w)
	}
	if rep.Healthy {
		_, _ = fmt.Fprintf(w, "watch-list healthy after %d cycle(s)\n", rep.Cycles)
		return
	}
	_, _ = fmt.Fprintf(w, "still unhealthy after %d cycle(s): %v\n", rep.Cycles, rep.Unhealthy)
}
