// Package config loads service settings from the environment and the draw catalog.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	ClaimPolicyStrict  = "strict"
	ClaimPolicyLenient = "lenient"
)

// Config holds the process configuration decoded from environment variables.
type Config struct {
	Port             string        `env:"PORT,default=8080"`
	Store            string        `env:"LOTTERY_STORE,default=memory"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	JWTSecret        string        `env:"LOTTERY_JWT_SECRET"`
	RedisAddr        string        `env:"REDIS_ADDR"`
	ReportCacheTTL   time.Duration `env:"LOTTERY_REPORT_CACHE_TTL,default=30s"`
	SweepSchedule    string        `env:"LOTTERY_SWEEP_SCHEDULE,default=@every 10m"`
	ClaimPolicy      string        `env:"LOTTERY_CLAIM_POLICY,default=strict"`
	ReportClaimLimit int           `env:"LOTTERY_REPORT_CLAIM_LIMIT,default=1000"`
	RateLimit        float64       `env:"LOTTERY_RATE_LIMIT,default=5"`
	RateBurst        int           `env:"LOTTERY_RATE_BURST,default=10"`
	MaxAllocation    int64         `env:"LOTTERY_MAX_ALLOCATION,default=1000000"`
	CatalogFile      string        `env:"LOTTERY_CATALOG_FILE"`
	Verbose          bool          `env:"LOTTERY_VERBOSE,default=false"`
}

// Load reads env files, decodes the environment and validates the result.
// Without arguments ./.env is read when present; files named explicitly must exist.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if len(envFiles) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envdecode cannot express.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when LOTTERY_STORE=postgres")
		}
	default:
		return fmt.Errorf("LOTTERY_STORE must be %q or %q, got %q", StoreMemory, StorePostgres, c.Store)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("LOTTERY_JWT_SECRET is required")
	}
	if c.ClaimPolicy != ClaimPolicyStrict && c.ClaimPolicy != ClaimPolicyLenient {
		return fmt.Errorf("LOTTERY_CLAIM_POLICY must be %q or %q, got %q", ClaimPolicyStrict, ClaimPolicyLenient, c.ClaimPolicy)
	}
	if c.ReportClaimLimit <= 0 {
		return fmt.Errorf("LOTTERY_REPORT_CLAIM_LIMIT must be positive")
	}
	if c.MaxAllocation <= 0 {
		return fmt.Errorf("LOTTERY_MAX_ALLOCATION must be positive")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("LOTTERY_RATE_LIMIT and LOTTERY_RATE_BURST must be positive")
	}
	return nil
}
