package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pomodoroai/pomod/internal/model"
	"github.com/pomodoroai/pomod/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printSession(session *model.Session) {
	fmt.Printf("ID:        %s\n", session.ID)
	fmt.Printf("Label:     %s\n", session.Label)
	fmt.Printf("Status:    %s\n", ui.RenderStatus(session.Status))
	fmt.Printf("Origin:    %s\n", session.Origin)
	fmt.Printf("Duration:  %s\n", ui.FormatClock(session.DurationSecs))
	fmt.Printf("Started:   %s\n", session.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if session.EndedAt != nil {
		fmt.Printf("Ended:     %s\n", session.EndedAt.Local().Format("2006-01-02 15:04:05"))
	}
}

func printHistoryTable(sessions []*model.Session) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tORIGIN\tSTARTED\tDURATION\tLABEL")
	for _, s := range sessions {
		label := s.Label
		if len(label) > 40 {
			label = label[:37] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			ui.RenderStatus(s.Status),
			s.Origin,
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			ui.FormatClock(s.DurationSecs),
			label,
		)
	}
	w.Flush()
	fmt.Printf("\n%d sessions\n", len(sessions))
}
