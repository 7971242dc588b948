package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringEnvWins(t *testing.T) {
	t.Setenv("BILLOW_TEST_STRING", "from-env")
	assert.Equal(t, "from-env", ParseString("BILLOW_TEST_STRING", "default"))
}

func TestParseStringEmptyEnvFallsBack(t *testing.T) {
	t.Setenv("BILLOW_TEST_STRING", "")
	assert.Equal(t, "default", ParseString("BILLOW_TEST_STRING", "default"))
}

func TestParseIntInvalidFallsBack(t *testing.T) {
	t.Setenv("BILLOW_TEST_INT", "not-a-number")
	assert.Equal(t, 42, ParseInt("BILLOW_TEST_INT", 42))

	t.Setenv("BILLOW_TEST_INT", "7")
	assert.Equal(t, 7, ParseInt("BILLOW_TEST_INT", 42))
}

func TestParseBool(t *testing.T) {
	t.Setenv("BILLOW_TEST_BOOL", "true")
	assert.True(t, ParseBool("BILLOW_TEST_BOOL", false))

	t.Setenv("BILLOW_TEST_BOOL", "nope")
	assert.False(t, ParseBool("BILLOW_TEST_BOOL", false))
}

func TestParseDuration(t *testing.T) {
	t.Setenv("BILLOW_TEST_DUR", "250ms")
	assert.Equal(t, 250*time.Millisecond, ParseDuration("BILLOW_TEST_DUR", time.Second))

	t.Setenv("BILLOW_TEST_DUR", "eternity")
	assert.Equal(t, time.Second, ParseDuration("BILLOW_TEST_DUR", time.Second))
}

func setRequiredSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("BILLOW_JWT_SECRET", "test-secret")
	t.Setenv("BILLOW_JWT_REFRESH_SECRET", "test-refresh-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredSecrets(t)

	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, time.Second, cfg.FocusTickInterval)
	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, 10, cfg.AuthRateLimit)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("BILLOW_LISTEN", ":9999")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":7777\"\nlog_level: debug\n"), 0o600))

	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr, "environment beats the file")
	assert.Equal(t, "debug", cfg.LogLevel, "file beats defaults")
}

func TestLoadRejectsUnknownYAMLFields(t *testing.T) {
	setRequiredSecrets(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("no_such_option: 1\n"), 0o600))

	_, err := NewLoader(path, "dev").Load()
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	setRequiredSecrets(t)

	_, err := NewLoader(filepath.Join(t.TempDir(), "absent.yaml"), "dev").Load()
	assert.Error(t, err)
}

func TestValidateRequiresSecrets(t *testing.T) {
	cfg := defaults("dev")
	assert.Error(t, cfg.Validate(), "missing JWT secrets must fail validation")

	cfg.JWTSecret = "a"
	cfg.JWTRefreshSecret = "b"
	assert.NoError(t, cfg.Validate())

	cfg.FocusTickInterval = 0
	assert.Error(t, cfg.Validate())
}
