package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"vertdctl/internal/jobs"
)

const defaultHTTPTimeout = 15 * time.Second

// binaryBodyPlaceholder stands in for response bodies that are not valid UTF-8.
const binaryBodyPlaceholder = "Unknown error"

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues authenticated requests against a vertd endpoint. Each call is
// stateless; the client holds only the base URL, the credential, and the HTTP
// backend.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    HTTPDoer
	logger  *slog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP backend.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a client for the given endpoint and credential.
func New(endpoint, apiKey string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, invalidEndpointError(nil)
	}
	base, err := url.Parse(trimmed)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, invalidEndpointError(err)
	}

	client := &Client{
		baseURL: base,
		apiKey:  strings.TrimSpace(apiKey),
		http:    &http.Client{Timeout: defaultHTTPTimeout},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type uploadURLRequest struct {
	Filename string `json:"filename"`
}

type urlResponse struct {
	URL string `json:"url"`
}

type jobsResponse struct {
	Jobs []jobs.Job `json:"jobs"`
}

type jobActionResponse struct {
	Status string   `json:"status"`
	Job    jobs.Job `json:"job"`
}

// UploadURL requests a pre-signed destination for uploading filename.
func (c *Client) UploadURL(ctx context.Context, filename string) (string, error) {
	var resp urlResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/upload-url", uploadURLRequest{Filename: filename}, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// ListJobs fetches the full job list.
func (c *Client) ListJobs(ctx context.Context) ([]jobs.Job, error) {
	var resp jobsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/jobs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Job fetches one job by identifier.
func (c *Client) Job(ctx context.Context, id string) (jobs.Job, error) {
	var job jobs.Job
	if err := c.doJSON(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &job); err != nil {
		return jobs.Job{}, err
	}
	return job, nil
}

// Convert approves a pending job for transcoding and returns the updated
// record.
func (c *Client) Convert(ctx context.Context, id string) (jobs.Job, error) {
	var resp jobActionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/convert", nil, &resp); err != nil {
		return jobs.Job{}, err
	}
	return resp.Job, nil
}

// Skip marks a job as skipped and returns the updated record.
func (c *Client) Skip(ctx context.Context, id string) (jobs.Job, error) {
	var resp jobActionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/skip", nil, &resp); err != nil {
		return jobs.Job{}, err
	}
	return resp.Job, nil
}

// DownloadURL requests a pre-signed URL for fetching a job's output.
func (c *Client) DownloadURL(ctx context.Context, id string) (string, error) {
	var resp urlResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id)+"/download-url", nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// Health probes the service. A reachable server yields (healthy, nil) where
// healthy reflects the 2xx-ness of the response; transport failures return an
// error instead of a false health verdict.
func (c *Client) Health(ctx context.Context) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, transportError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return decodingError(err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusUnauthorized:
		return &Error{Kind: KindUnauthorized}
	default:
		message := strings.TrimSpace(string(data))
		if message == "" || !utf8.ValidString(message) {
			message = binaryBodyPlaceholder
		}
		c.logger.Debug("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode))
		return httpError(resp.StatusCode, message)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return decodingError(err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	endpoint := c.resolve(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, invalidEndpointError(err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// resolve joins the base endpoint with path, tolerating absolute or relative
// sub-paths and a base that carries its own path prefix.
func (c *Client) resolve(path string) string {
	joined := *c.baseURL
	joined.Path = strings.TrimRight(joined.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return joined.String()
}
