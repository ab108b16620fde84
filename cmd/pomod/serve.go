package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pomodoroai/pomod/internal/config"
	"github.com/pomodoroai/pomod/internal/events"
	"github.com/pomodoroai/pomod/internal/server"
	"github.com/pomodoroai/pomod/internal/store"
	"github.com/pomodoroai/pomod/internal/store/postgres"
	"github.com/pomodoroai/pomod/internal/store/sqlite"
	pomosync "github.com/pomodoroai/pomod/internal/sync"
	"github.com/pomodoroai/pomod/internal/timer"
)

// openStore picks a backend from the database URL scheme: postgres:// for
// PostgreSQL, sqlite:// (or a bare path) for the embedded default.
func openStore(databaseURL string) (store.Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgres.New(databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return sqlite.New(strings.TrimPrefix(databaseURL, "sqlite://"))
	default:
		return sqlite.New(databaseURL)
	}
}

// recoverStaleSessions closes out sessions left running by a crashed daemon
// before any new ones start. Recovery is advisory: a failure is logged and
// the daemon starts anyway.
func recoverStaleSessions(ctx context.Context, st store.Store, logger *slog.Logger) {
	recovered, err := st.RecoverStale(ctx)
	if err != nil {
		logger.Warn("failed to recover stale sessions", "err", err)
		return
	}
	if recovered > 0 {
		logger.Info("recovered stale sessions", "count", recovered)
	}
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the focus timer daemon",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// Override PersistentPreRunE so the daemon doesn't dial itself.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if socketFlag != "" {
			cfg.SocketPath = socketFlag
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))

		st, err := openStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		recoverStaleSessions(cmd.Context(), st, logger)

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				st.Close()
				return err
			}
			publisher = pub
			logger.Info("external events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("external events disabled (POMOD_NATS_URL not set)")
		}

		engine := timer.New()
		service := server.NewService(engine, st)

		forwarder := server.NewForwarder(engine, st, publisher, logger)
		forwarder.Start()

		listener := server.NewListener(service, cfg.SocketPath, logger)
		if err := listener.Start(); err != nil {
			forwarder.Stop()
			engine.Close()
			publisher.Close()
			st.Close()
			return err
		}

		// Start sync scheduler if any destinations are configured.
		var scheduler *pomosync.Scheduler
		if cfg.SyncInterval > 0 {
			var dests []pomosync.Destination

			if cfg.SyncFilePath != "" {
				dests = append(dests, pomosync.NewFileDestination(cfg.SyncFilePath))
				logger.Info("sync file destination enabled", "path", cfg.SyncFilePath)
			}

			if cfg.SyncS3Bucket != "" {
				s3Dest, err := pomosync.NewS3Destination(
					context.Background(),
					cfg.SyncS3Bucket,
					cfg.SyncS3Key,
					cfg.SyncS3Region,
					cfg.SyncS3Endpoint,
				)
				if err != nil {
					logger.Error("failed to create S3 sync destination", "err", err)
				} else {
					dests = append(dests, s3Dest)
					logger.Info("sync S3 destination enabled", "bucket", cfg.SyncS3Bucket, "key", cfg.SyncS3Key)
				}
			}

			if cfg.SyncGitRepo != "" {
				dests = append(dests, pomosync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch))
				logger.Info("sync git destination enabled", "repo", cfg.SyncGitRepo, "file", cfg.SyncGitFile)
			}

			if len(dests) > 0 {
				scheduler = pomosync.NewScheduler(st, dests, cfg.SyncInterval, logger)
				scheduler.Start()
				logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
			}
		}

		logger.Info("pomod daemon started", "socket", cfg.SocketPath, "database", cfg.DatabaseURL)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Graceful shutdown: stop accepting, stop the timer, drain the
		// forwarder, then close the externals.
		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		if err := listener.Close(); err != nil {
			logger.Error("error closing listener", "err", err)
		}

		engine.Close()
		forwarder.Stop()

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
