package stream

import (
	"net/url"
	"strings"
)

const streamPath = "/api/ws"

// StreamURL derives the websocket URL from a REST endpoint: the scheme maps
// secure-to-secure (https to wss) and plain-to-plain, the stream sub-path is
// appended to any existing base path, and the credential rides as the api_key
// query parameter.
func StreamURL(endpoint, apiKey string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || parsed.Host == "" {
		return "", ErrInvalidURL
	}

	switch strings.ToLower(parsed.Scheme) {
	case "https", "wss":
		parsed.Scheme = "wss"
	case "http", "ws":
		parsed.Scheme = "ws"
	default:
		return "", ErrInvalidURL
	}

	parsed.Path = strings.TrimRight(parsed.Path, "/") + streamPath
	parsed.RawQuery = url.Values{"api_key": []string{apiKey}}.Encode()
	return parsed.String(), nil
}
