package cmds

import (
	"context"
	stderrors "errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/stackctl/pkg/events"
	"github.com/go-go-golems/stackctl/pkg/tui"
	"github.com/go-go-golems/stackctl/pkg/tui/models"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newTuiCmd() *cobra.Command {
	var refresh time.Duration
	var altScreen bool

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive dashboard over the stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			bus, err := events.NewInMemoryBus()
			if err != nil {
				return err
			}
			s, _, err := loadStack(cmd, bus)
			if err != nil {
				return err
			}

			model := models.NewRootModel(ctx, models.RootOptions{
				Snapshotter: s.Reporter,
				Controller:  s.Engine,
				Refresh:     refresh,
			})
			programOptions := []tea.ProgramOption{
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			}
			if altScreen {
				programOptions = append(programOptions, tea.WithAltScreen())
			}
			program := tea.NewProgram(model, programOptions...)
			tui.RegisterUIForwarder(bus, program)

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				err := bus.Run(egCtx)
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			eg.Go(func() error {
				_, err := program.Run()
				cancel()
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})

			if err := eg.Wait(); err != nil {
				return errors.Wrap(err, "tui")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&refresh, "refresh", 2*time.Second, "Refresh interval for the snapshot")
	cmd.Flags().BoolVar(&altScreen, "alt-screen", true, "Use the terminal alternate screen buffer")
	return cmd
}
