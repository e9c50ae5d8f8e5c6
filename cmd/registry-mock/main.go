package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cardportal/internal/platform/config"
	"cardportal/internal/platform/httpserver"
	"cardportal/internal/platform/logger"
	"cardportal/internal/registrymock"
)

// main runs the in-memory registry for local development. Point the portal at it with
// REGISTRY_BASE_URL=http://localhost:8081/api and DOCUMENT_BASE_URL=http://localhost:8081.
func main() {
	cfg := config.MockFromEnv()
	log := logger.New(cfg.LogLevel)

	h := registrymock.NewHandler(registrymock.NewStore(), log)
	srv := httpserver.New(cfg.Addr, registrymock.NewRouter(h, log, "/api", cfg.MaxUploadBytes))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := httpserver.Run(ctx, log, srv); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
