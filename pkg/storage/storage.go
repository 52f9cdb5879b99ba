// Package storage moves job media between ffmpeg's local working directory
// and the places job documents point at: local paths, HTTP(S) and S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
)

// AllowedSchemes is the whitelist of allowed URI schemes
var AllowedSchemes = []string{"https", "http", "s3", "file"}

var (
	// ErrReadOnly is returned by backends that cannot write.
	ErrReadOnly = errors.New("storage backend is read-only")
	// ErrNotFound is wrapped by Get when the object does not exist.
	ErrNotFound = errors.New("object not found")
)

// Storage is the interface for all storage backends
type Storage interface {
	// Get opens the object at uri for reading
	Get(ctx context.Context, uri string) (io.ReadCloser, error)

	// Put writes data to uri
	Put(ctx context.Context, uri string, data io.Reader) error

	// Delete removes the object at uri
	Delete(ctx context.Context, uri string) error

	// Exists reports whether an object exists at uri
	Exists(ctx context.Context, uri string) (bool, error)
}

// ParseURI splits uri into scheme and path. A bare path ("in.mp4",
// "/data/in.mp4") is a local file, as on the ffmpeg command line.
func ParseURI(uri string) (scheme string, path string, err error) {
	if uri == "" {
		return "", "", fmt.Errorf("URI cannot be empty")
	}

	if !strings.Contains(uri, "://") {
		return "file", uri, nil
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid URI: %w", err)
	}
	if parsed.Scheme == "" {
		return "", "", fmt.Errorf("URI must have a scheme (e.g., https://, s3://)")
	}

	if parsed.Scheme == "file" {
		return parsed.Scheme, parsed.Path, nil
	}

	path = parsed.Host
	if parsed.Path != "" {
		path = path + parsed.Path
	}
	return parsed.Scheme, path, nil
}

// IsAllowedScheme checks if a URI scheme is in the whitelist
func IsAllowedScheme(scheme string) bool {
	return slices.Contains(AllowedSchemes, scheme)
}

// IsRemote reports whether uri must be transferred before ffmpeg can use it.
func IsRemote(uri string) bool {
	scheme, _, err := ParseURI(uri)
	return err == nil && scheme != "file"
}

// Router picks the backend for a URI by scheme.
type Router struct {
	Local *LocalStorage
	HTTP  *HTTPStorage
	// S3 is nil when no AWS configuration is available.
	S3 *S3Storage
}

// NewRouter returns a router with local and HTTP backends and the given S3
// backend, which may be nil.
func NewRouter(s3 *S3Storage) *Router {
	return &Router{Local: NewLocalStorage(), HTTP: NewHTTPStorage(), S3: s3}
}

// For returns the backend serving uri.
func (r *Router) For(uri string) (Storage, error) {
	scheme, _, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "file":
		return r.Local, nil
	case "http", "https":
		return r.HTTP, nil
	case "s3":
		if r.S3 == nil {
			return nil, fmt.Errorf("S3 storage not initialized (enable it in the storage config)")
		}
		return r.S3, nil
	default:
		return nil, fmt.Errorf("unsupported URI scheme: %s", scheme)
	}
}
