package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"review-thread/internal/api"
	"review-thread/internal/backendtest"
	"review-thread/internal/config"
	"review-thread/internal/utils"
	"review-thread/pkg/logger"
	"review-thread/simulator"
)

func main() {
	log := logger.New()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	metrics := utils.NewMetricsCollector()

	// Metrics endpoint for scraping during a run.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(cfg.Simulator.MetricsAddr, mux); err != nil {
			log.Error().Err(err).Str("addr", cfg.Simulator.MetricsAddr).Msg("metrics server stopped")
		}
	}()

	// The simulator runs self-contained against the embedded stub
	// backend on a loopback listener.
	backend := backendtest.NewServer()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to bind stub backend listener")
	}
	backendServer := &http.Server{Handler: backend.Handler()}
	go func() {
		if err := backendServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("stub backend stopped")
		}
	}()
	baseURL := "http://" + listener.Addr().String()
	log.Info().Str("backend_url", baseURL).Msg("stub backend listening")

	client := api.NewClient(baseURL, cfg.Backend.RequestTimeout, log)
	system := actor.NewActorSystem()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim := simulator.New(cfg.Simulator, system, client, backend, metrics, log)
	if err := sim.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}

	if err := backendServer.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("stub backend shutdown failed")
	}
}
