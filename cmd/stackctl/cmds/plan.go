package cmds

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plan [target]",
		Short: "Print the start order for a target (or the whole stack) without touching the runtime",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := loadStack(cmd, nil)
			if err != nil {
				return err
			}
			var order []string
			if len(args) == 1 {
				order, err = s.Graph.Resolve(args[0])
			} else {
				order, err = s.Graph.Order()
			}
			if err != nil {
				return err
			}

			if asJSON {
				b, err := json.MarshalIndent(map[string]any{"order": order}, "", "  ")
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}
			for i, name := range order {
				deps := s.Graph.Dependencies(name)
				if len(deps) == 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, name)
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d. %s (after %s)\n", i+1, name, strings.Join(deps, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the order as JSON")
	return cmd
}
