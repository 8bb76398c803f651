package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"git.canoozie.net/riddling/graphdir/pkg/config"
	"git.canoozie.net/riddling/graphdir/pkg/directory"
	"git.canoozie.net/riddling/graphdir/pkg/model"
	"git.canoozie.net/riddling/graphdir/pkg/server"
	"git.canoozie.net/riddling/graphdir/pkg/storage"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "graphdir-server",
		Short:         "Serve GraphLang graph directories over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServer,
	}
)

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("GRAPHDIR_CONFIG"), "Path to a YAML configuration file")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "graphdir-server: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := model.NewZapLogger(model.ParseLogLevel(cfg.Log.Level))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	model.SetDefaultLogger(logger)

	store, err := openStore(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	registry := directory.NewRegistry(directory.Options{
		Store:            store,
		JournalDir:       cfg.Storage.JournalDir(),
		SyncWrites:       cfg.Storage.SyncWrites,
		SnapshotInterval: cfg.Storage.SnapshotInterval,
		Logger:           logger,
	})

	opts := server.Options{
		CORSOrigins:  cfg.Server.CORSOrigins,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}
	if cfg.Metrics.Enabled {
		opts.MetricsPath = cfg.Metrics.Path
	}
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.NewGraphServer(registry, logger.Zap(), opts).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server on %s (storage=%s, journal=%t)", cfg.Server.Addr, cfg.Storage.Backend, cfg.Storage.JournalDir() != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := registry.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("closing graphs: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func openStore(cfg config.StorageConfig, logger model.Logger) (storage.SnapshotStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("Using in-memory snapshot store, snapshotted graphs are lost on exit")
		return storage.NewMemoryStore(), nil
	case config.BackendBadger:
		badgerCfg := storage.DefaultBadgerConfig(cfg.SnapshotDir())
		badgerCfg.SyncWrites = cfg.SyncWrites
		badgerCfg.GCInterval = cfg.GCInterval
		badgerCfg.Logger = logger
		store, err := storage.OpenBadgerStore(badgerCfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
