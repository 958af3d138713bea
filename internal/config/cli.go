package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
)

// CLIConfig holds settings of the mtm command line tool.
type CLIConfig struct {
	APIURL   string `yaml:"api_url" env:"MTM_API_URL" env-default:"http://localhost:8000"`
	Language string `yaml:"language" env:"MTM_LANGUAGE" env-default:"en"`
	DSN      string `yaml:"dsn" env:"MTM_DATABASE_URL"`
	SeenFile string `yaml:"seen_file" env:"MTM_SEEN_FILE"`
	LogLevel string `yaml:"log_level" env:"MTM_LOG_LEVEL" env-default:"warn"`
	// AdminSecret signs tokens issued by `mtm token`. It must match the server's ADMIN_JWT_SECRET.
	AdminSecret string `yaml:"admin_jwt_secret" env:"MTM_ADMIN_JWT_SECRET"`
}

// DefaultCLIConfigPath is ~/.config/mtm/config.yml.
func DefaultCLIConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yml"
	}
	return filepath.Join(dir, "mtm", "config.yml")
}

// LoadCLI reads the YAML file at path and falls back to env only when the file is unreadable.
func LoadCLI(path string) (*CLIConfig, error) {
	var cfg CLIConfig
	if path == "" {
		path = DefaultCLIConfigPath()
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to load cli configuration: %w", err)
		}
	}
	if cfg.SeenFile == "" {
		cfg.SeenFile = filepath.Join(filepath.Dir(DefaultCLIConfigPath()), "seen.json")
	}
	return &cfg, nil
}
