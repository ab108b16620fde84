package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pomodoroai/pomod/internal/client"
)

var (
	historyFrom string
	historyTo   string
)

// normalizeDate accepts either a full RFC 3339 timestamp or a bare
// YYYY-MM-DD day and returns the RFC 3339 form.
func normalizeDate(s string, endOfDay bool) (string, error) {
	if s == "" {
		return "", nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(time.RFC3339), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD or RFC 3339)", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t.Format(time.RFC3339), nil
}

var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "List past focus sessions",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := normalizeDate(historyFrom, false)
		if err != nil {
			return err
		}
		to, err := normalizeDate(historyTo, true)
		if err != nil {
			return err
		}

		sessions, err := timerClient.GetHistory(cmd.Context(), &client.GetHistoryRequest{
			StartDate: from,
			EndDate:   to,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(sessions)
			return nil
		}
		printHistoryTable(sessions)
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyFrom, "from", "", "only sessions started on or after this date")
	historyCmd.Flags().StringVar(&historyTo, "to", "", "only sessions started on or before this date")
}
