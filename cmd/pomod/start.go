package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pomodoroai/pomod/internal/client"
)

var startCmd = &cobra.Command{
	Use:     "start <minutes> <label>...",
	Short:   "Start a focus session",
	GroupID: "timer",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("minutes must be a number, got %q", args[0])
		}
		label := strings.Join(args[1:], " ")

		session, err := timerClient.StartTimer(cmd.Context(), &client.StartTimerRequest{
			DurationMinutes: minutes,
			Label:           label,
			Origin:          "human",
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(session)
			return nil
		}
		fmt.Printf("Started %s for %d minutes: %s\n", session.ID, minutes, session.Label)
		return nil
	},
}
