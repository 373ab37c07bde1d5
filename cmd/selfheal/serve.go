package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-selfheal/internal/api"
	"github.com/miradorstack/mirador-selfheal/internal/metrics"
	"github.com/miradorstack/mirador-selfheal/internal/services"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC service and metrics endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(cmd.Context(), a)
		},
	}
}

func serve(parent context.Context, a *app) error {
	cfg, logger := a.cfg, a.logger
	logger.Info("starting selfheal", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scorer, err := a.scorer(ctx)
	if err != nil {
		return err
	}
	warmErr := scorer.Warm(ctx)
	if warmErr != nil {
		logger.Error("model unavailable, scoring requests will fail", slog.Any("error", warmErr))
	}

	var analyzer services.LogAnalyzer
	if la, err := a.analyzer(ctx); err != nil {
		logger.Warn("log analysis disabled", slog.Any("error", err))
	} else {
		analyzer = la
	}
	var remediator services.Remediator
	if h, err := a.remediator(ctx); err != nil {
		logger.Warn("remediation disabled", slog.Any("error", err))
	} else {
		remediator = h
	}

	service := services.NewSelfHealService(logger, scorer, analyzer, remediator)
	server, err := api.Listen(cfg.Server, service)
	if err != nil {
		return err
	}
	server.SetModelReady(warmErr == nil)

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Serve(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DrainTimeout())
	defer cancel()
	if server.Drain(shutdownCtx) {
		logger.Warn("gRPC drain timed out, open streams were closed", slog.Duration("timeout", server.DrainTimeout()))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("selfheal stopped", slog.Duration("score_p95", service.LatencyP95()))
	return nil
}
