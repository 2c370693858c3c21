package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnvs sets multiple env vars for the duration of the test.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnvs(t, map[string]string{"ENVIRONMENT": "development"})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, AuthModeJWT, cfg.AuthMode)
	assert.Equal(t, StorageMemory, cfg.StorageBackend)
	assert.Equal(t, 60*time.Second, cfg.RoleCacheTTL)
	assert.Equal(t, 10.0, cfg.CommissionPercent)
	assert.Equal(t, "0 2 * * *", cfg.PayoutSchedule)
	assert.Equal(t, "vendor-documents", cfg.DocumentBucket)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Production_RejectsDefaultSecret(t *testing.T) {
	setEnvs(t, map[string]string{"ENVIRONMENT": "production"})

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET must be explicitly set")
}

func TestLoad_Production_RejectsShortSecret(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":     "production",
		"AUTH_JWT_SECRET": "short-but-not-default",
	})

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestLoad_Production_AcceptsStrongSecret(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":     "production",
		"AUTH_JWT_SECRET": strings.Repeat("s", 40),
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_RemoteAuthRequiresURL(t *testing.T) {
	setEnvs(t, map[string]string{"AUTH_MODE": "remote"})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_URL")

	t.Setenv("AUTH_URL", "https://auth.roorq.test")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, AuthModeRemote, cfg.AuthMode)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		envs map[string]string
		want string
	}{
		{"port", map[string]string{"HTTP_PORT": "70000"}, "invalid HTTP port"},
		{"auth mode", map[string]string{"AUTH_MODE": "basic"}, "invalid AUTH_MODE"},
		{"storage", map[string]string{"STORAGE_BACKEND": "s3"}, "invalid STORAGE_BACKEND"},
		{"minio creds", map[string]string{"STORAGE_BACKEND": "minio"}, "MINIO_ACCESS_KEY"},
		{"commission", map[string]string{"COMMISSION_PERCENT": "120"}, "COMMISSION_PERCENT"},
		{"schedule", map[string]string{"PAYOUT_SCHEDULE": "every night"}, "invalid PAYOUT_SCHEDULE"},
		{"payout min", map[string]string{"PAYOUT_MIN_AMOUNT": "-1"}, "PAYOUT_MIN_AMOUNT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvs(t, tt.envs)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_Postgres_PrefersURL(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://u:p@db:5432/roorq", PostgresHost: "ignored"}
	assert.Equal(t, "postgres://u:p@db:5432/roorq", cfg.Postgres().DSN())

	cfg = &Config{PostgresUser: "u", PostgresPass: "p", PostgresHost: "db", PostgresPort: 5432, PostgresDB: "roorq", PostgresSSL: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/roorq?sslmode=disable", cfg.Postgres().DSN())
}

func TestConfig_Tracing(t *testing.T) {
	cfg := &Config{ServiceName: "roorq-storefront", Environment: "staging", OTELEnabled: true, OTELSampleRate: 0.5}
	tc := cfg.Tracing()
	assert.Equal(t, "roorq-storefront", tc.ServiceName)
	assert.True(t, tc.Enabled)
	assert.Equal(t, 0.5, tc.SampleRate)
}
