// Package config loads runtime settings from the environment.
package config

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/samdwyer/xueba/internal/battle"
	"github.com/samdwyer/xueba/internal/encounter"
	"github.com/samdwyer/xueba/internal/telemetry"
)

// Storage drivers.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config holds every environment-driven option.
type Config struct {
	Storage string `env:"XUEBA_STORAGE" envDefault:"sqlite"`
	DBPath  string `env:"XUEBA_DB_PATH" envDefault:"xueba.db"`

	// Seed for every random source. 0 means a crypto-random seed.
	Seed int64 `env:"XUEBA_SEED" envDefault:"0"`

	AIAPIKey  string        `env:"XUEBA_AI_API_KEY"`
	AIURL     string        `env:"XUEBA_AI_URL" envDefault:"https://api.openai.com/v1/responses"`
	AIModel   string        `env:"XUEBA_AI_MODEL" envDefault:"gpt-4o-mini"`
	AITimeout time.Duration `env:"XUEBA_AI_TIMEOUT" envDefault:"15s"`

	HTTPAddr string `env:"XUEBA_HTTP_ADDR" envDefault:":8080"`
	// Comma-separated CORS origins for the HTTP server. Empty disables CORS.
	AllowedOrigins []string `env:"XUEBA_ALLOWED_ORIGINS" envSeparator:","`
	// Idle time before an HTTP session is evicted. Zero disables eviction.
	SessionTTL time.Duration `env:"XUEBA_SESSION_TTL" envDefault:"30m"`
	// Log file for the terminal client, which cannot log to stderr while drawing.
	LogFile string `env:"XUEBA_LOG_FILE"`

	CastDelay   time.Duration `env:"XUEBA_CAST_DELAY" envDefault:"800ms"`
	ImpactDelay time.Duration `env:"XUEBA_IMPACT_DELAY" envDefault:"600ms"`
	TurnGap     time.Duration `env:"XUEBA_TURN_GAP" envDefault:"500ms"`

	HoneycombAPIKey  string `env:"HONEYCOMB_XUEBA_API_KEY"`
	HoneycombDataset string `env:"HONEYCOMB_XUEBA_DATASET"`
	OTLPEndpoint     string `env:"XUEBA_OTLP_ENDPOINT" envDefault:"https://api.honeycomb.io"`
}

// Load reads an optional .env file, then parses the environment.
// A missing .env file is not an error.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks option combinations env tags cannot express.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageSQLite:
		if c.DBPath == "" {
			return errors.New("XUEBA_DB_PATH is required for sqlite storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage)
	}
	if c.CastDelay < 0 || c.ImpactDelay < 0 || c.TurnGap < 0 {
		return errors.New("animation delays must not be negative")
	}
	return nil
}

// Timing returns the battle phase delays.
func (c Config) Timing() battle.Timing {
	return battle.Timing{
		Cast:    c.CastDelay,
		Impact:  c.ImpactDelay,
		TurnGap: c.TurnGap,
	}
}

// LLM returns the encounter generator settings.
func (c Config) LLM() encounter.LLMConfig {
	return encounter.LLMConfig{
		APIKey:       c.AIAPIKey,
		Model:        c.AIModel,
		ResponsesURL: c.AIURL,
		Timeout:      c.AITimeout,
	}
}

// Telemetry returns the span exporter settings for a service.
func (c Config) Telemetry(service string) telemetry.Settings {
	return telemetry.Settings{
		ServiceName: service,
		Endpoint:    c.OTLPEndpoint,
		APIKey:      c.HoneycombAPIKey,
		Dataset:     c.HoneycombDataset,
	}
}

// ResolveSeed returns the configured seed, or a fresh crypto-random one.
func (c Config) ResolveSeed() (int64, error) {
	if c.Seed != 0 {
		return c.Seed, nil
	}
	return NewSeed()
}

// NewRand returns a math/rand source seeded per ResolveSeed.
func (c Config) NewRand() (*rand.Rand, int64, error) {
	seed, err := c.ResolveSeed()
	if err != nil {
		return nil, 0, err
	}
	return rand.New(rand.NewSource(seed)), seed, nil
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
