package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.True(t, cfg.Store.Journal)
	assert.Equal(t, 10*time.Minute, cfg.Store.ReclaimGrace)
	assert.Equal(t, 5*time.Second, cfg.Saga.StepTimeout)
	assert.Equal(t, 15*time.Second, cfg.Saga.CompensationTimeout)
	assert.Equal(t, 3, cfg.Saga.CompensationRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.Saga.RetryInterval)
	assert.Equal(t, uint8(2), cfg.Argon2.Parallelism)
	assert.Equal(t, int64(900), cfg.JWT.AccessExpiry)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.UsesPostgres())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("SAGA_STEP_TIMEOUT", "750ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("VERIFICATION_BASE_URL", "https://mc.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.UsesPostgres())
	assert.Equal(t, 750*time.Millisecond, cfg.Saga.StepTimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "https://mc.example.com", cfg.Verification.BaseURL)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minecollab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("PORT: \"9090\"\nLOCKOUT_MAX_ATTEMPTS: 7\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOCKOUT_MAX_ATTEMPTS", "9")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 9, cfg.Lockout.MaxAttempts, "environment wins over the file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORE_BACKEND": "mongo"}},
		{"redis without url", map[string]string{"STORE_BACKEND": "redis", "REDIS_URL": ""}},
		{"zero expiry", map[string]string{"JWT_ACCESS_EXPIRY": "0"}},
		{"negative retries", map[string]string{"SAGA_COMPENSATION_RETRIES": "-1"}},
		{"missing file", map[string]string{"CONFIG_FILE": "/nonexistent/minecollab.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
