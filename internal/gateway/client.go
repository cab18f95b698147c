// Package gateway is the client for the remote plant-health backend. Every
// call is a single attempt; callers decide what to do with failures.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrEmptyDiagnosis = errors.New("analysis service returned no diagnosis")

// StatusError is returned for non-2xx responses
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Endpoints are the backend paths relative to the base URL. "{id}" is
// replaced with the resource identifier.
type Endpoints struct {
	PlantTypes    string `yaml:"plant_types"`
	Questionnaire string `yaml:"questionnaire"`
	Diagnosis     string `yaml:"diagnosis"`
	Reports       string `yaml:"reports"`
	DeleteReport  string `yaml:"delete_report"`
}

// DefaultEndpoints returns the paths served by the plant-health backend
func DefaultEndpoints() Endpoints {
	return Endpoints{
		PlantTypes:    "user/plant-types/all",
		Questionnaire: "user/questionnaire/plant-type/{id}",
		Diagnosis:     "user/openai/generate-response",
		Reports:       "user/user-reports/all",
		DeleteReport:  "user/user-reports/delete/{id}",
	}
}

// Client wraps the backend REST API
type Client struct {
	baseURL    string
	endpoints  Endpoints
	header     http.Header
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

func WithEndpoints(e Endpoints) Option     { return func(c *Client) { c.endpoints = e } }
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }
func WithLogger(l *zap.Logger) Option      { return func(c *Client) { c.logger = l } }
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

// NewClient creates a backend client for baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/") + "/",
		endpoints: DefaultEndpoints(),
		header:    http.Header{},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHeader returns a copy of the client that sends h on every request.
// The header set is built by the auth collaborator and forwarded as is.
func (c *Client) WithHeader(h http.Header) *Client {
	cp := *c
	cp.header = h.Clone()
	return &cp
}

func expand(path string, id int64) string {
	return strings.ReplaceAll(path, "{id}", strconv.FormatInt(id, 10))
}

// doRequest performs a single HTTP request and returns the body of a 2xx response
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+strings.TrimLeft(path, "/"), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("gateway request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("gateway %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("gateway response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(respBody)),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(respBody), 256),
		}
	}
	return respBody, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
