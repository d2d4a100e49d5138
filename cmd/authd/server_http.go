package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/keygate/keygate/internal/auth"
	config "github.com/keygate/keygate/internal/config/authd"
	"github.com/keygate/keygate/internal/obs"
	pg "github.com/keygate/keygate/internal/repository/postgres"
	transport "github.com/keygate/keygate/internal/transport/http"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, db *pg.DB, engine *auth.Engine) *http.Server {
	router := transport.NewRouter(engine, transport.RouterOpts{
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSOrigins,
		Health: func(ctx context.Context) error {
			hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
			defer cancel()
			return db.Pool.Ping(hctx)
		},
	})

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           obs.HTTPHandler(router, cfg.App.Name),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func serveHTTP(srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
	return srv.ListenAndServe()
}

func serveMetrics(cfg *config.Config, logger *zap.Logger, db *pg.DB) *http.Server {
	return obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		return db.Pool.Ping(ctx)
	}, logger)
}
