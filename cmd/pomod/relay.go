package main

import (
	"fmt"
	"io"
	"net"
	"os"

	"github.com/spf13/cobra"
)

// relayCmd bridges stdin/stdout to the daemon socket, for hosts that spawn a
// subprocess and speak the control protocol over pipes.
var relayCmd = &cobra.Command{
	Use:     "relay",
	Short:   "Bridge stdio to the daemon control socket",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// Override PersistentPreRunE: the relay owns the raw connection itself.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		socketPath, err := resolveSocketPath()
		if err != nil {
			return err
		}

		conn, err := net.Dial("unix", socketPath)
		if err != nil {
			// The host only sees our exit status and stderr; name the
			// socket so the failure is actionable.
			return fmt.Errorf("cannot reach daemon at %s (start it with `pomod serve`): %w", socketPath, err)
		}
		defer conn.Close()

		done := make(chan error, 2)
		go func() {
			_, err := io.Copy(conn, os.Stdin)
			// EOF on stdin means the host is finished with us.
			if uc, ok := conn.(*net.UnixConn); ok {
				uc.CloseWrite()
			}
			done <- err
		}()
		go func() {
			_, err := io.Copy(os.Stdout, conn)
			done <- err
		}()

		// First direction to finish decides the outcome; the deferred close
		// unblocks the other.
		if err := <-done; err != nil {
			return fmt.Errorf("relay: %w", err)
		}
		return nil
	},
}
