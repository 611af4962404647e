package cmds

import "github.com/spf13/cobra"

func AddCommands(root *cobra.Command) error {
	root.AddCommand(newPlanCmd())

	root.AddCommand(newStartAllCmd())
	root.AddCommand(newStopAllCmd())
	root.AddCommand(newStartServiceCmd())
	root.AddCommand(newStopServiceCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newLogsCmd())
	root.AddCommand(newRecoverCmd())
	root.AddCommand(newSuperviseCmd())
	root.AddCommand(newTuiCmd())
	root.AddCommand(newWrapServiceCmd())
	return nil
}
