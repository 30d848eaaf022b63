package app

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/vidfriends/vidfeed/internal/config"
	"github.com/vidfriends/vidfeed/internal/db"
	"github.com/vidfriends/vidfeed/internal/handlers"
	"github.com/vidfriends/vidfeed/internal/httpserver"
	"github.com/vidfriends/vidfeed/internal/middleware"
)

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	deps, cleanup, err := buildDependencies(ctx, pool, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("dependency cleanup failed", "error", err)
		}
	}()

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, deps)
	handler := middleware.Chain(mux, middleware.RequestLogger(logger), middleware.Decompress)

	srv := httpserver.New(cfg.AppPort, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server",
			"port", cfg.AppPort,
			"object_store", cfg.ObjectStore.Enabled(),
			"redis", cfg.Redis.Enabled(),
		)
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(gctx)
	})
	return g.Wait()
}
