package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 15 * time.Second

var ErrNotConfigured = errors.New("integration not configured")

// APIError is a non-2xx answer from an upstream API.
type APIError struct {
	Service string
	Status  int
	Body    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s request failed: status %d, body: %s", e.Service, e.Status, e.Body)
}

// apiRequestOpts captures inputs for an outbound JSON call.
type apiRequestOpts struct {
	Service string
	Method  string
	URL     string
	Body    any
	Token   string
	Headers map[string]string
}

type apiResponse struct {
	Status int
	Body   []byte
}

// doJSON sends opts and returns the body of a 2xx response; any other status is an *APIError.
func doJSON(ctx context.Context, client *http.Client, opts apiRequestOpts) (*apiResponse, error) {
	if opts.Method == "" {
		return nil, errors.New("request method is required")
	}

	var bodyReader io.Reader
	if opts.Body != nil {
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request body: %w", opts.Service, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", opts.Service, err)
	}
	req.Header.Set("Accept", "application/json")
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute %s request: %w", opts.Service, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", opts.Service, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := strings.TrimSpace(string(respBody))
		if len(body) > 1024 {
			body = body[:1024]
		}
		return nil, &APIError{Service: opts.Service, Status: resp.StatusCode, Body: body}
	}
	return &apiResponse{Status: resp.StatusCode, Body: respBody}, nil
}

func newHTTPClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}
