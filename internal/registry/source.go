package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Source loads raw registry documents by their registry-relative path.
type Source interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// HTTPClient is the subset of *http.Client used by HTTPSource.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned when the content host answers with a non-200
// status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.StatusCode)
}

// HTTPSource fetches documents over HTTP(S).
type HTTPSource struct {
	baseURL string
	client  HTTPClient
}

// NewHTTPSource creates a source rooted at baseURL. A nil client gets a
// 30 second timeout.
func NewHTTPSource(baseURL string, client HTTPClient) *HTTPSource {
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Fetch GETs baseURL/path.
func (s *HTTPSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	url := s.baseURL + "/" + strings.TrimPrefix(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	return io.ReadAll(resp.Body)
}

// String returns the base URL.
func (s *HTTPSource) String() string {
	return s.baseURL
}

// NewSource picks a source for a registry setting: s3://bucket/prefix reads
// from object storage, anything else is normalized and fetched over HTTP.
// branch selects the branch of a GitHub-hosted registry.
func NewSource(registryURL, branch string) (Source, error) {
	registryURL, err := NormalizeURL(registryURL, branch)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(registryURL, "s3://") {
		bucket, prefix, err := ParseS3URL(registryURL)
		if err != nil {
			return nil, err
		}
		return NewS3Source(NewS3Client(S3ConfigFromEnv()), bucket, prefix), nil
	}
	return NewHTTPSource(registryURL, nil), nil
}
