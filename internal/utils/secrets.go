package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// SecretsDir is where Docker secrets are mounted.
var SecretsDir = "/run/secrets"

// ErrSecretNotFound is returned when neither the secret file nor the env variable is set.
var ErrSecretNotFound = errors.New("secret not found")

// ReadSecret reads a secret from the Docker secrets directory.
func ReadSecret(secretName string) (string, error) {
	filePath := fmt.Sprintf("%s/%s", SecretsDir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// ReadSecretOrEnv reads the secret file first and falls back to envName.
// Local development runs without mounted secrets.
func ReadSecretOrEnv(secretName, envName string) (string, error) {
	if s, err := ReadSecret(secretName); err == nil {
		return s, nil
	}
	if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s (env %s)", ErrSecretNotFound, secretName, envName)
}

// CachedSecret resolves a secret once and returns the same value afterwards.
type CachedSecret struct {
	SecretName string
	EnvName    string

	once  sync.Once
	value string
	err   error
}

// Get returns the cached secret, resolving it on first use.
func (c *CachedSecret) Get() (string, error) {
	c.once.Do(func() {
		c.value, c.err = ReadSecretOrEnv(c.SecretName, c.EnvName)
	})
	return c.value, c.err
}
