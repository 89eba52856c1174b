package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv registers cleanup for keys via t.Setenv and then unsets them so
// godotenv is free to populate them.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, "PORT", "LOTTERY_STORE", "DATABASE_URL", "LOTTERY_CLAIM_POLICY", "LOTTERY_MAX_ALLOCATION")
	t.Setenv("LOTTERY_JWT_SECRET", "secret")

	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, ClaimPolicyStrict, cfg.ClaimPolicy)
	assert.Equal(t, 30*time.Second, cfg.ReportCacheTTL)
	assert.Equal(t, "@every 10m", cfg.SweepSchedule)
	assert.Equal(t, 1000, cfg.ReportClaimLimit)
	assert.Equal(t, int64(1_000_000), cfg.MaxAllocation)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("LOTTERY_JWT_SECRET", "secret")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t, "LOTTERY_JWT_SECRET", "LOTTERY_STORE", "DATABASE_URL", "PORT")

	path := filepath.Join(t.TempDir(), ".env")
	content := "LOTTERY_JWT_SECRET=from-file\nLOTTERY_STORE=postgres\nDATABASE_URL=postgres://localhost/lottery\nPORT=9090\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "9090", cfg.Port)
}

func TestValidate(t *testing.T) {
	base := Config{
		Port: "8080", Store: StoreMemory, JWTSecret: "s", ClaimPolicy: ClaimPolicyStrict,
		ReportClaimLimit: 10, RateLimit: 1, RateBurst: 1, MaxAllocation: 100,
	}

	t.Run("valid", func(t *testing.T) {
		c := base
		assert.NoError(t, c.Validate())
	})
	t.Run("postgres without dsn", func(t *testing.T) {
		c := base
		c.Store = StorePostgres
		assert.Error(t, c.Validate())
	})
	t.Run("unknown store", func(t *testing.T) {
		c := base
		c.Store = "mongo"
		assert.Error(t, c.Validate())
	})
	t.Run("non-positive max allocation", func(t *testing.T) {
		c := base
		c.MaxAllocation = 0
		assert.Error(t, c.Validate())
	})
	t.Run("missing secret", func(t *testing.T) {
		c := base
		c.JWTSecret = ""
		assert.Error(t, c.Validate())
	})
	t.Run("unknown claim policy", func(t *testing.T) {
		c := base
		c.ClaimPolicy = "anyone"
		assert.Error(t, c.Validate())
	})
}

func TestCatalog(t *testing.T) {
	c := DefaultCatalog()

	assert.Equal(t, []string{"Daily Draws", "Weekly Draws", "Monthly Draws"}, c.Names())
	assert.True(t, c.Has("Weekly Draws"))
	assert.False(t, c.Has("Hourly Draws"))
	assert.Equal(t, 0.94, c.Bias("Daily Draws"))
	assert.Equal(t, 0.96, c.Bias("Weekly Draws"))
	assert.Equal(t, 0.98, c.Bias("Monthly Draws"))
	assert.Equal(t, 0.94, c.Bias("Hourly Draws"), "unknown names fall back to the default bias")
}

func TestParseCatalogRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":          "defaultBias: 0.9\ndraws: []\n",
		"duplicate":      "defaultBias: 0.9\ndraws:\n  - {name: A, bias: 0.5}\n  - {name: A, bias: 0.6}\n",
		"bias too large": "defaultBias: 0.9\ndraws:\n  - {name: A, bias: 1.5}\n",
		"bad default":    "defaultBias: -1\ndraws:\n  - {name: A, bias: 0.5}\n",
		"not yaml":       "draws: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("defaultBias: 0.5\ndraws:\n  - {name: Hourly Draws, bias: 0.9}\n"), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.True(t, c.Has("Hourly Draws"))
	assert.Equal(t, 0.5, c.Bias("Daily Draws"))

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
