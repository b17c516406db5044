package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validatePoll(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	return c.validateLog()
}

func (c *Config) validateServer() error {
	endpoint := strings.TrimSpace(c.Server.URL)
	if endpoint == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/vertdctl/config.toml"
		}
		return fmt.Errorf("server.url is required. Set VERTD_URL or edit %s (create with 'vertdctl config init')", defaultPath)
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("server.url %q is not a valid URL", endpoint)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("server.url must use http or https, got %q", parsed.Scheme)
	}
	if strings.TrimSpace(c.Server.APIKey) == "" {
		return errors.New("server.api_key is required. Set VERTD_API_KEY or add it to the config file")
	}
	return nil
}

func (c *Config) validatePoll() error {
	if c.Poll.IntervalSeconds < 1 {
		return errors.New("poll.interval_seconds must be at least 1")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.RequestTimeoutSeconds < 1 {
		return errors.New("upload.request_timeout_seconds must be at least 1")
	}
	if c.Upload.TransferTimeoutSeconds < c.Upload.RequestTimeoutSeconds {
		return errors.New("upload.transfer_timeout_seconds must not be below upload.request_timeout_seconds")
	}
	return nil
}

func (c *Config) validateLog() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unsupported value %q", c.Log.Level)
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format: unsupported value %q", c.Log.Format)
	}
	return nil
}
