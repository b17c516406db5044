package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the service endpoint and credential.
type Server struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

// Poll contains timing for the job-list refresh loop.
type Poll struct {
	IntervalSeconds int `toml:"interval_seconds"`
}

// Upload contains timeouts for media transfers.
type Upload struct {
	RequestTimeoutSeconds  int `toml:"request_timeout_seconds"`
	TransferTimeoutSeconds int `toml:"transfer_timeout_seconds"`
}

// Log contains logger settings.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the full vertdctl configuration.
type Config struct {
	Server Server `toml:"server"`
	Poll   Poll   `toml:"poll"`
	Upload Upload `toml:"upload"`
	Log    Log    `toml:"log"`
}

// Default returns the built-in configuration values.
func Default() Config {
	return Config{
		Poll:   Poll{IntervalSeconds: 5},
		Upload: Upload{RequestTimeoutSeconds: 120, TransferTimeoutSeconds: 3600},
		Log:    Log{Level: "info", Format: "console"},
	}
}

// DefaultConfigPath returns ~/.config/vertdctl/config.toml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "vertdctl", "config.toml"), nil
}

// ExpandPath resolves a leading ~ against the current user's home directory.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(trimmed, "~")), nil
	}
	return trimmed, nil
}

// Load reads the configuration from path, or the default location when path
// is empty. A missing file yields defaults plus environment overrides; exists
// reports whether a file was actually read.
func Load(path string) (Config, string, bool, error) {
	cfg := Default()

	resolved := strings.TrimSpace(path)
	var err error
	if resolved == "" {
		resolved, err = DefaultConfigPath()
		if err != nil {
			return cfg, "", false, err
		}
	} else if resolved, err = ExpandPath(resolved); err != nil {
		return cfg, "", false, err
	}

	exists := true
	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		exists = false
	case err != nil:
		return cfg, resolved, false, fmt.Errorf("read config %s: %w", resolved, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, resolved, true, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, resolved, exists, nil
}

func applyEnvOverrides(cfg *Config) {
	if value := strings.TrimSpace(os.Getenv("VERTD_URL")); value != "" {
		cfg.Server.URL = value
	}
	if value := strings.TrimSpace(os.Getenv("VERTD_API_KEY")); value != "" {
		cfg.Server.APIKey = value
	}
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
