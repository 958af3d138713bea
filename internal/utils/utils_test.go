package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSecretOrEnv(t *testing.T) {
	dir := t.TempDir()
	old := SecretsDir
	SecretsDir = dir
	t.Cleanup(func() { SecretsDir = old })

	t.Setenv("MTM_TEST_KEY", "from-env")

	v, err := ReadSecretOrEnv("api_key", "MTM_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "api_key"), []byte(" from-file \n"), 0o600))
	v, err = ReadSecretOrEnv("api_key", "MTM_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "from-file", v)

	_, err = ReadSecretOrEnv("missing", "MTM_TEST_MISSING")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestCachedSecret(t *testing.T) {
	old := SecretsDir
	SecretsDir = t.TempDir()
	t.Cleanup(func() { SecretsDir = old })

	t.Setenv("MTM_CACHED", "first")
	s := &CachedSecret{SecretName: "nope", EnvName: "MTM_CACHED"}
	v, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	t.Setenv("MTM_CACHED", "second")
	v, _ = s.Get()
	assert.Equal(t, "first", v)
}

func TestHashIP(t *testing.T) {
	h := HashIP("127.0.0.1")
	assert.Len(t, h, 16)
	assert.Equal(t, h, HashIP("127.0.0.1"))
	assert.NotEqual(t, h, HashIP("10.0.0.1"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "èé", Truncate("èéà", 2))
}
