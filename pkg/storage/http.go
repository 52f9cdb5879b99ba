package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// userAgent identifies media downloads to origin servers.
const userAgent = "ffgraph"

// HTTPStorage implements read-only Storage over HTTP/HTTPS. Job documents
// may name http(s) sources but never destinations.
type HTTPStorage struct {
	client *http.Client
}

// NewHTTPStorage creates a backend whose requests time out after 30 minutes,
// long enough for large source media.
func NewHTTPStorage() *HTTPStorage {
	return &HTTPStorage{
		client: &http.Client{Timeout: 30 * time.Minute},
	}
}

// NewHTTPStorageWithClient uses client for all requests.
func NewHTTPStorageWithClient(client *http.Client) *HTTPStorage {
	return &HTTPStorage{client: client}
}

func checkHTTPScheme(uri string) error {
	scheme, _, err := ParseURI(uri)
	if err != nil {
		return err
	}
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("HTTP storage only supports http:// and https:// URIs, got %s://", scheme)
	}
	return nil
}

// do sends a request for uri and returns the response when its status is
// 200. 404 and 410 map to ErrNotFound.
func (hs *HTTPStorage) do(ctx context.Context, method, uri string) (*http.Response, error) {
	if err := checkHTTPScheme(uri); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := hs.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, uri, err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp, nil
	case http.StatusNotFound, http.StatusGone:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: status %d: %w", uri, resp.StatusCode, ErrNotFound)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: unexpected status %d", uri, resp.StatusCode)
	}
}

// Get downloads a file over HTTP/HTTPS.
func (hs *HTTPStorage) Get(ctx context.Context, uri string) (io.ReadCloser, error) {
	resp, err := hs.do(ctx, http.MethodGet, uri)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Put is not supported
func (hs *HTTPStorage) Put(ctx context.Context, uri string, data io.Reader) error {
	return fmt.Errorf("put %s: %w", uri, ErrReadOnly)
}

// Delete is not supported
func (hs *HTTPStorage) Delete(ctx context.Context, uri string) error {
	return fmt.Errorf("delete %s: %w", uri, ErrReadOnly)
}

// Exists sends a HEAD request.
func (hs *HTTPStorage) Exists(ctx context.Context, uri string) (bool, error) {
	resp, err := hs.do(ctx, http.MethodHead, uri)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return true, nil
}
