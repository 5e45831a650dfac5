package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	jwttoken "flightsurety/internal/jwt_token"
	"flightsurety/internal/platform/config"
	"flightsurety/internal/platform/httpserver"
	"flightsurety/internal/platform/logger"
	httpmetrics "flightsurety/internal/platform/metrics"
	"flightsurety/internal/platform/middleware"
	"flightsurety/internal/ratelimit"
	"flightsurety/internal/surety/handler"
	suretymetrics "flightsurety/internal/surety/metrics"
	"flightsurety/internal/surety/service"
	"flightsurety/pkg/domain"
	"flightsurety/pkg/platform/httputil"
)

const (
	tokenIssuer     = "flightsurety"
	tokenAudience   = "flightsurety-api"
	shutdownTimeout = 10 * time.Second
)

// main wires the ledger, its journal and event bus, and the HTTP API.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "flightsurety: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.DevMode {
		log.Warn("dev mode: do not expose this ledger, tokens may be signed with the public dev key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, closeJournal, err := openJournal(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeJournal()

	bus, err := openEventBus(ctx, cfg, reg, log)
	if err != nil {
		return err
	}
	defer bus.close()

	owner, err := domain.ParseAddress(cfg.Ledger.Owner)
	if err != nil {
		return fmt.Errorf("LEDGER_OWNER: %w", err)
	}
	firstAirline, err := domain.ParseAddress(cfg.Ledger.FirstAirline)
	if err != nil {
		return fmt.Errorf("LEDGER_FIRST_AIRLINE: %w", err)
	}

	ledger, err := service.New(owner, firstAirline, cfg.Ledger.FirstAirlineName,
		service.WithLogger(log),
		service.WithMetrics(suretymetrics.New(reg)),
		service.WithJournal(store),
		service.WithPublisher(bus.publisher),
	)
	if err != nil {
		return fmt.Errorf("build ledger: %w", err)
	}
	replayed, err := ledger.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}
	log.InfoContext(ctx, "ledger ready",
		"owner", owner,
		"replayed", replayed,
		"event_bus", cfg.EventBus,
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, tokenIssuer, tokenAudience)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log, httpmetrics.New(reg)))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := ledger.Halted(); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "halted",
				"error":  err.Error(),
			})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"operational": ledger.IsOperational(),
		})
	})
	var handlerOpts []handler.Option
	if !cfg.RateLimit.Disabled {
		limiter := ratelimit.New(bus.limitStore(cfg), cfg.RateLimit.Limit, cfg.RateLimit.Window, log)
		handlerOpts = append(handlerOpts, handler.WithCallerLimit(limiter.PerCaller))
	}
	handler.New(ledger, handler.Deployment{
		LedgerEndpoint:      cfg.Deployment.LedgerEndpoint,
		DataContractAddress: cfg.Deployment.DataContractAddress,
		AppContractAddress:  cfg.Deployment.AppContractAddress,
	}, jwttoken.NewJWTServiceAdapter(jwtService), log, handlerOpts...).Register(r)

	srv := httpserver.New(cfg.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting flightsurety", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func nopClose() {}

