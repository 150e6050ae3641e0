package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, DefaultUserAgent, cfg.Headers["user-agent"])
	assert.Equal(t, 16, cfg.CoroutineLimit)
	assert.Equal(t, int64(50), cfg.SliceThreshold)
	assert.Equal(t, int64(1024*1024), cfg.ChunkSize)
}

func TestSetHeadersLowercasesKeys(t *testing.T) {
	cfg := Default()
	cfg.SetHeaders(map[string]string{
		"Authorization": "Bearer x",
		"X-Custom":      "1",
		"User-Agent":    "curl/8",
		"  ":            "dropped",
	})

	assert.Equal(t, "Bearer x", cfg.Headers["authorization"])
	assert.Equal(t, "1", cfg.Headers["x-custom"])
	assert.Equal(t, "curl/8", cfg.Headers["user-agent"])
	assert.Equal(t, "curl/8", cfg.UserAgent)
	assert.NotContains(t, cfg.Headers, "Authorization")
	assert.Len(t, cfg.Headers, 3)
}

func TestSetUserAgent(t *testing.T) {
	var cfg Config
	cfg.SetUserAgent("agent/1")
	assert.Equal(t, "agent/1", cfg.UserAgent)
	assert.Equal(t, "agent/1", cfg.Headers["user-agent"])
}

func TestCloneDoesNotShareHeaders(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.SetHeaders(map[string]string{"x-only-clone": "1"})
	assert.NotContains(t, cfg.Headers, "x-only-clone")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero coroutine limit", func(c *Config) { c.CoroutineLimit = 0 }},
		{"negative threshold", func(c *Config) { c.SliceThreshold = -1 }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"zero retries", func(c *Config) { c.RetryTimes = 0 }},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"negative backoff", func(c *Config) { c.RetryBackoff = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rangedl.yaml")
	content := `
user_agent: "test-agent/2"
headers:
  Authorization: "Basic abc"
coroutine_limit: 4
slice_threshold: 10
timeout: 5s
retry_times: 3
chunk_size: 64KB
retry_backoff: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-agent/2", cfg.UserAgent)
	assert.Equal(t, "test-agent/2", cfg.Headers["user-agent"])
	assert.Equal(t, "Basic abc", cfg.Headers["authorization"])
	assert.Equal(t, 4, cfg.CoroutineLimit)
	assert.Equal(t, int64(10), cfg.SliceThreshold)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.RetryTimes)
	assert.Equal(t, int64(64*1024), cfg.ChunkSize)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBackoff)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rangedl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("coroutine_limit: 4\n"), 0o644))
	t.Setenv("RANGEDL_COROUTINE_LIMIT", "12")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.CoroutineLimit)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().CoroutineLimit, cfg.CoroutineLimit)
	assert.Equal(t, Default().ChunkSize, cfg.ChunkSize)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rangedl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry_times: 0\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1048576", 1048576},
		{"512KB", 512 * 1024},
		{"4MB", 4 * 1024 * 1024},
		{"1GB", 1024 * 1024 * 1024},
		{"100B", 100},
		{" 2mb ", 2 * 1024 * 1024},
	}
	for _, tt := range tests {
		got, err := ParseBytes(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseBytes("lots")
	assert.Error(t, err)
}
