// Package main is the entry point for the 学霸联盟 terminal client.
package main

import (
	"context"
	"io"
	"log"
	"math/rand"
	"os"

	"github.com/samdwyer/xueba/internal/app"
	"github.com/samdwyer/xueba/internal/battle"
	"github.com/samdwyer/xueba/internal/config"
	"github.com/samdwyer/xueba/internal/game"
	"github.com/samdwyer/xueba/internal/gamedata"
	"github.com/samdwyer/xueba/internal/profile"
	"github.com/samdwyer/xueba/internal/telemetry"
)

func main() {
	// .env makes HONEYCOMB_XUEBA_API_KEY and XUEBA_* available for local runs.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	logger, closeLog := openGameLog(cfg.LogFile)
	defer closeLog()

	stopTelemetry := app.StartTelemetry(ctx, cfg, "xueba", logger)
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

	rng, seed, err := cfg.NewRand()
	if err != nil {
		log.Fatalf("Failed to seed random source: %v", err)
	}
	log.Printf("Seed: %d", seed)

	palette, err := gamedata.LoadPalette()
	if err != nil {
		log.Fatalf("Failed to load palette: %v", err)
	}

	session := profile.NewService(repo, gamedata.MustLoadStarterDeck(), logger, telemetry.Tracer("profile"))
	engine := battle.New(session,
		battle.WithRand(rng),
		battle.WithTiming(cfg.Timing()),
		battle.WithGenerator(app.Generator(cfg, rand.New(rand.NewSource(seed+1)))),
		battle.WithLogger(logger),
		battle.WithTracer(telemetry.Tracer("battle")),
	)

	g, err := game.New(game.Config{
		Session: session,
		Engine:  engine,
		Palette: palette,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("Failed to initialize game: %v", err)
	}

	if err := g.Run(ctx); err != nil {
		log.Fatalf("Game error: %v", err)
	}
}

// openGameLog returns the logger used while the screen is active. Output to
// stderr would corrupt the terminal, so logs go to a file or nowhere.
func openGameLog(path string) (*log.Logger, func()) {
	if path == "" {
		return log.New(io.Discard, "", 0), func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("Note: log file not opened: %v", err)
		return log.New(io.Discard, "", 0), func() {}
	}
	return log.New(f, "xueba ", log.LstdFlags), func() { f.Close() }
}
