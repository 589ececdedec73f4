// Package main is the entry point for the 学霸联盟 HTTP server.
package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samdwyer/xueba/internal/app"
	"github.com/samdwyer/xueba/internal/config"
	"github.com/samdwyer/xueba/internal/gamedata"
	"github.com/samdwyer/xueba/internal/server"
	"github.com/samdwyer/xueba/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := log.Default()

	stopTelemetry := app.StartTelemetry(context.WithoutCancel(ctx), cfg, "xueba-server", logger)
	defer stopTelemetry()

	repo, closeRepo, err := app.OpenRepository(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer func() {
		if err := closeRepo(); err != nil {
			log.Printf("Error closing storage: %v", err)
		}
	}()

	seed, err := cfg.ResolveSeed()
	if err != nil {
		log.Fatalf("Failed to seed random source: %v", err)
	}
	gen := app.Generator(cfg, rand.New(rand.NewSource(seed+1)))

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(repo, gamedata.MustLoadStarterDeck(),
		server.WithLogger(logger),
		server.WithTracer(telemetry.Tracer("profile")),
		server.WithEngineOptions(app.EngineOptions(cfg, seed, gen, logger)),
		server.WithAllowedOrigins(cfg.AllowedOrigins...),
		server.WithSessionTTL(cfg.SessionTTL),
	)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
	}()

	log.Printf("Listening on %s (seed %d)", cfg.HTTPAddr, seed)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}
}
