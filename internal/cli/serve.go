package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tansive/specstudio/internal/common/logtrace"
	"github.com/tansive/specstudio/internal/specstudio/compiler"
	"github.com/tansive/specstudio/internal/specstudio/config"
	"github.com/tansive/specstudio/internal/specstudio/pipeline"
	"github.com/tansive/specstudio/internal/specstudio/regions"
	"github.com/tansive/specstudio/internal/specstudio/server"
	"github.com/tansive/specstudio/internal/specstudio/workspace"
)

const shutdownGrace = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the spec editor backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logtrace.InitLoggerWithWriter(os.Stderr, cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
}

// runServer serves until ctx is cancelled or the listener fails.
func runServer(ctx context.Context, cfg *config.ConfigParam) error {
	slog := log.With().Str("state", "init").Logger()

	manager := workspace.NewManager(cfg.Workspace.UploadsDir,
		workspace.WithRetention(cfg.Workspace.GetRetentionOrDefault()))
	reaper := manager.NewReaper(cfg.Workspace.GetSweepIntervalOrDefault())
	reaper.Start()
	defer reaper.Stop()

	proc, perr := compiler.NewProcess(compiler.ConfigFrom(&cfg.Compiler))
	if perr != nil {
		return fmt.Errorf("configuring compiler: %w", perr)
	}
	facade := pipeline.New(manager, regions.NewParser(), proc, cfg.Workspace.AllowedUploads)

	s, err := server.CreateNewServer(cfg, facade)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	s.MountHandlers()

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info().
			Str("addr", srv.Addr).
			Str("uploads_dir", manager.Root()).
			Str("retention", manager.Retention().String()).
			Msg("server started")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info().Msg("shutdown signal received")
	}

	// Give outstanding requests a few seconds to complete. Compilations still running
	// after that are cancelled with their request context.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error().Err(err).Msg("could not stop server gracefully")
		if err := srv.Close(); err != nil {
			slog.Error().Err(err).Msg("could not stop server")
		}
	}
	slog.Info().Msg("server stopped")
	return nil
}
