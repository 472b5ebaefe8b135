package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/joelkehle/cohort-ltv/internal/advisor"
	"github.com/joelkehle/cohort-ltv/internal/config"
	"github.com/joelkehle/cohort-ltv/internal/httpapi"
	"github.com/joelkehle/cohort-ltv/internal/observability"
	"github.com/joelkehle/cohort-ltv/internal/report"
)

const shutdownGrace = 10 * time.Second

func main() {
	portFlag := flag.String("port", "", "Listen port (overrides PORT env var)")
	flag.Parse()

	cfg := config.Load()
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	log, err := observability.NewLogger(observability.LoggerConfig{
		ServiceName: cfg.ServiceName,
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal("tracing setup failed", zap.Error(err))
	}

	adv, err := advisor.NewFromKey(cfg.AnthropicAPIKey, cfg.NoLLM, log)
	if err != nil {
		if !errors.Is(err, advisor.ErrDisabled) {
			log.Fatal("advisor setup failed", zap.Error(err))
		}
		log.Info("commentary disabled", zap.String("reason", err.Error()))
	}

	handler := httpapi.NewServer(httpapi.Options{
		Logger:     log,
		Metrics:    observability.NewMetrics(),
		PDF:        report.NewPDFRenderer(cfg.ChromePath, cfg.HTTPTimeout),
		Advisor:    adv,
		MaxHorizon: cfg.MaxHorizon,
		Timeout:    cfg.HTTPTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	log.Info("ltv-server listening",
		zap.String("addr", srv.Addr),
		zap.Int("max_horizon", cfg.MaxHorizon),
		zap.Bool("commentary", adv.Enabled()),
		zap.Bool("tracing_export", cfg.OTLPEndpoint != ""),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("listen failed", zap.Error(err))
	}
	<-stopped
}
