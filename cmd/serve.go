package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/srt-translator/internal/config"
	"github.com/MimeLyc/srt-translator/internal/httpapi"
	"github.com/MimeLyc/srt-translator/internal/persistence"
	"github.com/MimeLyc/srt-translator/internal/service"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

const shutdownTimeout = 10 * time.Second

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

type serveFlags struct {
	addr     string
	uiDir    string
	watchDir string
	dataDir  string
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, job workers and the optional folder watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			next := *cfg
			if flags.addr != "" {
				next.Server.Addr = flags.addr
			}
			if flags.watchDir != "" {
				next.Watch.Dir = flags.watchDir
			}
			if flags.dataDir != "" {
				next.Store.DataDir = flags.dataDir
			}
			return runServe(cmd.Context(), next, ctx.newClient, flags.uiDir)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.addr, "addr", "", "Listen address (default $HTTP_ADDR or :8080)")
	f.StringVar(&flags.uiDir, "ui-dir", "", "Directory with the web UI build to serve")
	f.StringVar(&flags.watchDir, "watch-dir", "", "Directory scanned for new .srt files")
	f.StringVar(&flags.dataDir, "data-dir", "", "Directory for the database and settings file")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config, newClient service.ClientFactory, uiDir string) error {
	closeLog, err := setupLogging(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	settings, err := config.OpenRuntimeSettingsStore(cfg.SettingsPath(), &cfg)
	if err != nil {
		return err
	}
	log.Info("Runtime settings file: %s", settings.Path())

	store, err := persistence.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close database: %v", err)
		}
	}()

	svc := service.New(cfg,
		service.WithStore(store),
		service.WithClientFactory(newClient),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	var engine cronEngine
	if cfg.Watch.Enabled() {
		c := cron.New()
		if _, err := svc.Watch(ctx, c); err != nil {
			return err
		}
		engine = c
		log.Info("Watching %s (%s)", cfg.Watch.Dir, cfg.Watch.CronExpr)
	}

	srv := httpapi.NewServer(svc,
		httpapi.WithRuntimeSettingsStore(settings),
		httpapi.WithRuntimeSettingsApplier(svc.ApplyRuntimeSettings),
		httpapi.WithUI(uiDir, uiDir != ""),
	)
	return runWithComponents(ctx, cfg.Server.Addr, engine, srv)
}

// runWithComponents starts the scheduler and the HTTP server and blocks
// until ctx is done or the server fails.
func runWithComponents(ctx context.Context, addr string, engine cronEngine, srv httpServer) error {
	if engine != nil {
		engine.Start()
		defer func() { <-engine.Stop().Done() }()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
