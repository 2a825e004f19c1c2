// Command specfoundry runs the artifact generation and workflow server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/specfoundry/specfoundry/pkg/api"
	"github.com/specfoundry/specfoundry/pkg/catalog"
	"github.com/specfoundry/specfoundry/pkg/config"
	"github.com/specfoundry/specfoundry/pkg/logging"
	"github.com/specfoundry/specfoundry/pkg/model"
	"github.com/specfoundry/specfoundry/pkg/storage"
	"github.com/specfoundry/specfoundry/pkg/workflow"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "specfoundry:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir)
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.SetMinLevel(logging.Level(cfg.Logging.Level))

	store, err := storage.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	cat, err := catalog.Load(store)
	if err != nil {
		return err
	}

	models, err := model.FromConfig(cfg, logger)
	if err != nil {
		return err
	}

	orch := workflow.New(store, cat, models, cfg, logger)
	server := &http.Server{
		Addr:    cfg.Server.Bind,
		Handler: api.NewServer(orch, logger).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(logging.CategoryAPI, "server_start", "", map[string]any{"bind": cfg.Server.Bind})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
