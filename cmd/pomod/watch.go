package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pomodoroai/pomod/internal/events"
	"github.com/pomodoroai/pomod/internal/ui"
)

var watchNATSURL string

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream timer events until interrupted",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if watchNATSURL != "" {
			return watchNATS(ctx, watchNATSURL)
		}

		stream, err := timerClient.WatchEvents(ctx)
		if err != nil {
			return err
		}

		for we := range stream {
			if jsonOutput {
				line, err := json.Marshal(we)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error marshaling event: %v\n", err)
					continue
				}
				fmt.Println(string(line))
				continue
			}
			if we.Missed > 0 {
				fmt.Println(ui.RenderMuted(fmt.Sprintf("(%d events dropped)", we.Missed)))
			}
			printEvent(we.Event)
		}
		return nil
	},
}

// watchNATS follows the external event stream instead of the daemon socket,
// for hosts observing a daemon on another machine.
func watchNATS(ctx context.Context, url string) error {
	sub, err := events.NewNATSSubscriber(url)
	if err != nil {
		return err
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-ch:
			if !ok {
				return nil
			}
			if jsonOutput {
				fmt.Println(string(payload))
				continue
			}
			var event events.Event
			if err := json.Unmarshal(payload, &event); err != nil {
				fmt.Fprintf(os.Stderr, "Error decoding event: %v\n", err)
				continue
			}
			printEvent(event)
		}
	}
}

func init() {
	watchCmd.Flags().StringVar(&watchNATSURL, "nats", "", "follow the NATS event stream at this URL instead of the daemon socket")
}

func printEvent(event events.Event) {
	switch event.Type {
	case events.TypeStarted:
		fmt.Printf("started   %s %q for %s\n", event.Session.ID, event.Session.Label, ui.FormatClock(event.Session.DurationSecs))
	case events.TypeTick:
		fmt.Printf("tick      %s %s remaining\n", event.Session.ID, ui.RenderCountdown(ui.FormatClock(event.RemainingSecs)))
	case events.TypeCompleted:
		fmt.Printf("completed %s %q\n", event.Session.ID, event.Session.Label)
	case events.TypeStopped:
		fmt.Printf("stopped   %s %q\n", event.Session.ID, event.Session.Label)
	}
}
