package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port        int           `env:"TEST_CFG_PORT" envDefault:"8080"`
	CookieName  string        `env:"TEST_CFG_COOKIE" envDefault:"roorq_csrf"`
	CookieTTL   time.Duration `env:"TEST_CFG_COOKIE_TTL" envDefault:"1h"`
	SecureOnTLS bool          `env:"TEST_CFG_SECURE" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "roorq_csrf", cfg.CookieName)
	assert.Equal(t, time.Hour, cfg.CookieTTL)
	assert.False(t, cfg.SecureOnTLS)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_COOKIE", "csrf")
	t.Setenv("TEST_CFG_COOKIE_TTL", "30m")
	t.Setenv("TEST_CFG_SECURE", "true")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "csrf", cfg.CookieName)
	assert.Equal(t, 30*time.Minute, cfg.CookieTTL)
	assert.True(t, cfg.SecureOnTLS)
}

func TestLoadWithPrefix(t *testing.T) {
	t.Setenv("ROORQ_TEST_CFG_PORT", "7070")
	t.Setenv("TEST_CFG_PORT", "1111")

	var cfg testConfig
	require.NoError(t, LoadWithPrefix(&cfg, "ROORQ_"))
	assert.Equal(t, 7070, cfg.Port)
}

type requiredConfig struct {
	DatabaseURL string `env:"TEST_CFG_DATABASE_URL,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_RequiredFieldPresent(t *testing.T) {
	t.Setenv("TEST_CFG_DATABASE_URL", "postgres://localhost/roorq")

	var cfg requiredConfig
	require.NoError(t, Load(&cfg))
	assert.Equal(t, "postgres://localhost/roorq", cfg.DatabaseURL)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
