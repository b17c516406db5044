// Package config loads and validates the vertdctl TOML configuration.
//
// Configuration lives at ~/.config/vertdctl/config.toml by default; the
// server endpoint and API key may also arrive via the VERTD_URL and
// VERTD_API_KEY environment variables, which take precedence over the file.
package config
