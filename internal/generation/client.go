package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIError is a non-2xx response from a backend.
type APIError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Backend, e.StatusCode, e.Body)
}

type restClient struct {
	backend string
	baseURL string
	apiKey  string
	http    *http.Client
}

func newRESTClient(backend, baseURL, apiKey string, timeout time.Duration) restClient {
	return restClient{
		backend: backend,
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// doRequest sends data as JSON and returns the raw response body. Extra
// headers are applied after the defaults.
func (c restClient) doRequest(ctx context.Context, method, url string, data any, headers map[string]string) ([]byte, error) {
	var body io.Reader
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("error marshaling request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{Backend: c.backend, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}
