// Package app wires configuration into the components both binaries share:
// account storage, the encounter generator and tracing.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"

	"github.com/samdwyer/xueba/internal/battle"
	"github.com/samdwyer/xueba/internal/config"
	"github.com/samdwyer/xueba/internal/encounter"
	"github.com/samdwyer/xueba/internal/profile"
	"github.com/samdwyer/xueba/internal/storage/sqlite"
	"github.com/samdwyer/xueba/internal/telemetry"
)

// OpenRepository opens the configured account store. The returned func closes it.
func OpenRepository(ctx context.Context, cfg config.Config) (profile.Repository, func() error, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return profile.NewMemoryRepository(), func() error { return nil }, nil
	case config.StorageSQLite:
		store, err := sqlite.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage)
	}
}

// Generator returns the LLM generator when an API key is configured and the
// offline generator otherwise.
func Generator(cfg config.Config, rng *rand.Rand) encounter.Generator {
	if cfg.AIAPIKey != "" {
		return encounter.NewLLMGenerator(cfg.LLM())
	}
	return encounter.NewStaticGenerator(rng)
}

// StartTelemetry sets up span export. The returned func flushes and stops it.
func StartTelemetry(ctx context.Context, cfg config.Config, service string, logger *log.Logger) func() {
	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry(service))
	switch {
	case errors.Is(err, telemetry.ErrDisabled):
		logger.Printf("Note: telemetry disabled, no Honeycomb API key set")
		return func() {}
	case err != nil:
		logger.Printf("Warning: telemetry setup failed: %v", err)
		logger.Printf("Running without observability")
		return func() {}
	}
	return func() {
		if err := shutdown(ctx); err != nil {
			logger.Printf("Error shutting down telemetry: %v", err)
		}
	}
}

// EngineOptions returns a factory of battle options for one engine each.
// Every engine gets its own random source derived from seed.
func EngineOptions(cfg config.Config, seed int64, gen encounter.Generator, logger *log.Logger) func() []battle.Option {
	var (
		mu   sync.Mutex
		next = rand.New(rand.NewSource(seed))
	)
	return func() []battle.Option {
		mu.Lock()
		engineSeed := next.Int63()
		mu.Unlock()
		return []battle.Option{
			battle.WithRand(rand.New(rand.NewSource(engineSeed))),
			battle.WithTiming(cfg.Timing()),
			battle.WithGenerator(gen),
			battle.WithLogger(logger),
			battle.WithTracer(telemetry.Tracer("battle")),
		}
	}
}
