package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cardportal/internal/platform/config"
	"cardportal/internal/platform/health"
	"cardportal/internal/platform/httpserver"
	"cardportal/internal/platform/logger"
	"cardportal/internal/platform/metrics"
	"cardportal/internal/portal/flash"
	"cardportal/internal/portal/handler"
	"cardportal/internal/portal/view"
	"cardportal/internal/registry/client"
	"cardportal/internal/registry/gateway"
	"cardportal/internal/registry/tracer"
	httptransport "cardportal/internal/transport/http"
	"cardportal/pkg/platform/middleware/clientip"
	"cardportal/pkg/platform/middleware/request"
)

// main wires the portal: registry gateway and client, page handlers, router and the
// server lifecycle. Rendering and registry semantics live in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	log.Info("initializing card portal",
		"addr", cfg.Addr,
		"registry", cfg.RegistryBaseURL,
		"environment", cfg.Environment,
	)

	m := metrics.New(prometheus.DefaultRegisterer)
	banners := flash.NewNotifier(m)
	trc := tracer.NewOTel()

	gw := gateway.New(cfg.RegistryBaseURL, log,
		gateway.WithTimeout(cfg.RegistryTimeout),
		gateway.WithBusyIndicator(m),
		gateway.WithRecorder(m),
		gateway.WithNotifier(banners),
		gateway.WithTracer(trc),
	)
	registry := client.New(gw, client.WithTracer(trc))

	renderer, err := view.NewRenderer()
	if err != nil {
		log.Error("failed to parse templates", "error", err)
		os.Exit(1)
	}
	portal := handler.New(registry, banners, renderer, log, handler.WithViewOptions(view.Options{
		DocumentBaseURL: cfg.DocumentBaseURL,
		Location:        cfg.Location(),
	}))

	healthHandler := health.New(cfg.Environment)
	healthHandler.RegisterCheck("registry", health.ReachabilityCheck(
		&http.Client{Timeout: 3 * time.Second}, cfg.RegistryBaseURL+"/",
	))

	proxies, err := clientip.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Error("invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}

	deps := httptransport.Deps{
		Portal:             portal,
		Health:             healthHandler,
		Logger:             log,
		RequestMetrics:     request.NewMetrics(prometheus.DefaultRegisterer, "cardportal"),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ClientIP:           clientip.New(proxies...),
		MaxUploadBytes:     cfg.MaxUploadBytes,
	}
	var metricsSrv *http.Server
	if cfg.MetricsAddr == "" {
		deps.MetricsHandler = promhttp.Handler()
	} else {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = httpserver.New(cfg.MetricsAddr, mux)
	}

	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(deps))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := httpserver.Run(ctx, log, srv, metricsSrv); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
