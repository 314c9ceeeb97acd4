package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"ENV", "HOST", "PORT", "GENERATE_ENDPOINT", "GENERATE_LONG_WAIT", "COMPILE_LONG_WAIT", "MODEL_CHECK_CMD", "JOB_TTL"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Listen())
	assert.Equal(t, 30*time.Second, cfg.GenerateLongWait)
	assert.Equal(t, 60*time.Second, cfg.CompileLongWait)
	assert.Empty(t, cfg.ModelCheckCmd)
	assert.Equal(t, time.Hour, cfg.JobTTL)
	assert.False(t, cfg.Production())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("GENERATE_ENDPOINT", "https://rtl.example.com/generate")
	t.Setenv("WAITLIST_ENDPOINT", "https://sheets.example.com/abc")
	t.Setenv("GENERATE_LONG_WAIT", "45")
	t.Setenv("COMPILE_LONG_WAIT", "2m")
	t.Setenv("MODEL_CHECK_CMD", "python3 -m py_compile")
	t.Setenv("JOB_TTL", "15m")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Listen())
	assert.Equal(t, "https://rtl.example.com/generate", cfg.GenerateEndpoint)
	assert.Equal(t, "https://sheets.example.com/abc", cfg.WaitlistEndpoint)
	assert.Equal(t, 45*time.Second, cfg.GenerateLongWait)
	assert.Equal(t, 2*time.Minute, cfg.CompileLongWait)
	assert.Equal(t, []string{"python3", "-m", "py_compile"}, cfg.ModelCheckCmd)
	assert.Equal(t, 15*time.Minute, cfg.JobTTL)
}

func TestFromEnvInvalid(t *testing.T) {
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("HTTP_TIMEOUT", "soon")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "HTTP_TIMEOUT")
	})

	t.Run("bad port", func(t *testing.T) {
		t.Setenv("PORT", "http")
		_, err := FromEnv()
		assert.Error(t, err)
	})

	t.Run("threshold below a second", func(t *testing.T) {
		t.Setenv("GENERATE_LONG_WAIT", "500ms")
		_, err := FromEnv()
		assert.Error(t, err)
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("ENV", "")
	// godotenv never overrides variables that are already set
	t.Setenv("COMPILE_ENDPOINT", "")
	require.NoError(t, os.Unsetenv("COMPILE_ENDPOINT"))
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("COMPILE_ENDPOINT=http://compiler.local/compile\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://compiler.local/compile", cfg.CompileEndpoint)
}

func TestLoadMissingEnvFileIsFine(t *testing.T) {
	t.Setenv("ENV", "")
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}
