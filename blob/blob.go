// Package blob talks to the external blob store: bytes in, public URL out.
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Uploader stores a binary blob and returns a publicly reachable URL for it.
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// HTTPStore posts blobs to a storage endpoint that answers {"url": "..."}.
type HTTPStore struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewHTTPStore(endpoint, token string) *HTTPStore {
	return &HTTPStore{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if s.endpoint == "" {
		return "", fmt.Errorf("blob store endpoint not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("blob store responded %s", resp.Status)
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("blob store returned no url")
	}
	return out.URL, nil
}
