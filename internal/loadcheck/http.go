package loadcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// apiResponse is the envelope shared by the intake endpoints.
type apiResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Providers []json.RawMessage `json:"providers"`
}

type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (c *httpClient) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, data, nil
}

// healthy reports whether GET /healthz answers 200.
func (c *httpClient) healthy(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, status)
	}
	return nil
}

// storedInputs reads the storedInputs counter from GET /stats.
func (c *httpClient) storedInputs(ctx context.Context) (int, error) {
	status, data, err := c.do(ctx, http.MethodGet, "/stats", nil)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("stats returned status %d", status)
	}
	var stats struct {
		StoredInputs *int `json:"storedInputs"`
	}
	if err := json.Unmarshal(data, &stats); err != nil {
		return 0, fmt.Errorf("failed to decode stats: %w", err)
	}
	if stats.StoredInputs == nil {
		return 0, fmt.Errorf("stats carry no storedInputs")
	}
	return *stats.StoredInputs, nil
}

// submit posts one input and reports the HTTP status.
func (c *httpClient) submit(ctx context.Context, payload []byte) (int, error) {
	status, data, err := c.do(ctx, http.MethodPost, "/store_input", payload)
	if err != nil {
		return status, err
	}
	var resp apiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return status, fmt.Errorf("failed to decode response: %w", err)
	}
	if status == http.StatusOK && !resp.Success {
		return status, fmt.Errorf("unexpected failure body: %s", resp.Message)
	}
	return status, nil
}

// providers queries GET /providers for category.
func (c *httpClient) providers(ctx context.Context, category string) ([]json.RawMessage, error) {
	status, data, err := c.do(ctx, http.MethodGet, "/providers?category="+url.QueryEscape(category), nil)
	if err != nil {
		return nil, err
	}
	var resp apiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if status != http.StatusOK || !resp.Success {
		return nil, fmt.Errorf("providers returned status %d: %s", status, resp.Message)
	}
	return resp.Providers, nil
}
