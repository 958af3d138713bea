package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCLI_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: http://example.test\nlanguage: it\nseen_file: /tmp/seen.json\n"), 0o600))

	cfg, err := LoadCLI(path)
	require.NoError(t, err)
	assert.Equal(t, "http://example.test", cfg.APIURL)
	assert.Equal(t, "it", cfg.Language)
	assert.Equal(t, "/tmp/seen.json", cfg.SeenFile)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadCLI_EnvFallback(t *testing.T) {
	t.Setenv("MTM_API_URL", "http://env.test")
	cfg, err := LoadCLI(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, "http://env.test", cfg.APIURL)
	assert.Equal(t, "en", cfg.Language)
	assert.NotEmpty(t, cfg.SeenFile)
}
