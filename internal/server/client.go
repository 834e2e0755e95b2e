package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harmonyui/harmonycn/internal/errors"
)

// HTTPClient interface for HTTP operations (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client submits updates to a running Server.
type Client struct {
	baseURL    string
	httpClient HTTPClient
}

// NewClient creates a client for the server at baseURL. A nil httpClient
// gets a two minute timeout, enough for a full publish run.
func NewClient(baseURL string, httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Update posts req and returns the opened pull request. Server-side coded
// errors are returned with their original code.
func (c *Client) Update(ctx context.Context, req UpdateRequest) (*UpdateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal update: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/registry/update", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.New(errors.CodePublish).
			WithDetail("could not reach the update server at " + c.baseURL).
			Wrap(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if err := json.Unmarshal(data, &e); err != nil || e.Message == "" {
			e.Message = strings.TrimSpace(string(data))
		}
		code := e.Code
		if code == "" {
			code = errors.CodePublish
		}
		return nil, errors.New(code).
			WithDetailf("update server returned %d: %s", resp.StatusCode, e.Message)
	}

	var out UpdateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
