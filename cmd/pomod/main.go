package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pomodoroai/pomod/internal/client"
	"github.com/pomodoroai/pomod/internal/config"
	"github.com/pomodoroai/pomod/internal/ui"
)

var (
	socketFlag string
	jsonOutput bool
	noColor    bool

	timerClient client.TimerClient
)

// resolveSocketPath prefers the --socket flag, then the config layers.
func resolveSocketPath() (string, error) {
	if socketFlag != "" {
		return socketFlag, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.SocketPath, nil
}

var rootCmd = &cobra.Command{
	Use:   "pomod <command>",
	Short: "Focus timer daemon and CLI",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		// Help and completion never need the daemon.
		switch cmd.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return nil
		}
		// Watching a remote NATS stream doesn't either.
		if cmd.Name() == "watch" && watchNATSURL != "" {
			return nil
		}
		socketPath, err := resolveSocketPath()
		if err != nil {
			return err
		}
		c, err := client.NewSocketClient(socketPath)
		if err != nil {
			return err
		}
		timerClient = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if timerClient != nil {
			timerClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "daemon control socket path (default from config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "timer", Title: "Timer:"},
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	// Timer
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)

	// Views
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(relayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
