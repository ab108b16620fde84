package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pomodoroai/pomod/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show the current timer state",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := timerClient.GetStatus(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(status)
			return nil
		}

		if !status.IsRunning {
			fmt.Println(ui.RenderMuted("No timer running."))
			return nil
		}

		fmt.Printf("%s remaining on %q\n", ui.RenderCountdown(ui.FormatClock(status.RemainingSecs)), status.Session.Label)
		printSession(status.Session)
		return nil
	},
}
