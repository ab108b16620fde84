package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:     "stop",
	Short:   "Stop the active focus session",
	GroupID: "timer",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := timerClient.StopTimer(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(session)
			return nil
		}
		fmt.Printf("Stopped %s: %s\n", session.ID, session.Label)
		return nil
	},
}
