package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvFallback(t *testing.T) {
	assert.Equal(t, "8080", getEnv("RELAYCHAT_TEST_UNSET_KEY", "8080"))
	assert.Equal(t, int64(42), getEnvInt64("RELAYCHAT_TEST_UNSET_KEY", 42))

	t.Setenv("RELAYCHAT_TEST_EMPTY", "")
	assert.Equal(t, "", getEnv("RELAYCHAT_TEST_EMPTY", "fallback"), "an explicitly empty var wins over the fallback")

	t.Setenv("RELAYCHAT_TEST_BAD_INT", "lots")
	assert.Equal(t, int64(-1), getEnvInt64("RELAYCHAT_TEST_BAD_INT", 42))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE", StoreMemory)
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{
		ServerPort:     "http",
		RelayPort:      "4001",
		Store:          "mongo",
		JWTSecret:      " ",
		LogFormat:      "xml",
		MaxUploadBytes: -1,
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"STORE", "JWT_SECRET", "SERVER_PORT", "MAX_UPLOAD_BYTES", "LOG_FORMAT"} {
		assert.Contains(t, err.Error(), want)
	}
	assert.NotContains(t, err.Error(), "RELAY_PORT")
}

func TestMemoryStoreNeedsNoDatabaseURL(t *testing.T) {
	cfg := &Config{
		ServerPort:     "8080",
		RelayPort:      "4001",
		Store:          StoreMemory,
		JWTSecret:      "x",
		LogFormat:      "console",
		MaxUploadBytes: 1,
	}
	assert.NoError(t, cfg.Validate())
}
