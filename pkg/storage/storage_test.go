package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		scheme  string
		path    string
		wantErr bool
	}{
		{"https://example.com/video.mp4", "https", "example.com/video.mp4", false},
		{"s3://bucket/key/video.mp4", "s3", "bucket/key/video.mp4", false},
		{"file:///tmp/video.mp4", "file", "/tmp/video.mp4", false},
		{"in.mp4", "file", "in.mp4", false},
		{"/data/in.mp4", "file", "/data/in.mp4", false},
		{"://missing", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			scheme, path, err := ParseURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.scheme, scheme)
				assert.Equal(t, tt.path, path)
			}
		})
	}
}

func TestIsAllowedScheme(t *testing.T) {
	tests := []struct {
		scheme  string
		allowed bool
	}{
		{"https", true},
		{"http", true},
		{"s3", true},
		{"file", true},
		{"gs", false},
		{"ftp", false},
		{"gopher", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.scheme, func(t *testing.T) {
			assert.Equal(t, tt.allowed, IsAllowedScheme(tt.scheme))
		})
	}
}

func TestIsRemote(t *testing.T) {
	assert.False(t, IsRemote("in.mp4"))
	assert.False(t, IsRemote("file:///tmp/in.mp4"))
	assert.True(t, IsRemote("https://cdn.example.com/in.mp4"))
	assert.True(t, IsRemote("s3://bucket/in.mp4"))
	assert.False(t, IsRemote(""))
}

func TestRouter_For(t *testing.T) {
	r := NewRouter(nil)

	s, err := r.For("/tmp/in.mp4")
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	s, err = r.For("https://example.com/in.mp4")
	require.NoError(t, err)
	assert.IsType(t, &HTTPStorage{}, s)

	_, err = r.For("s3://bucket/in.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3 storage not initialized")

	_, err = r.For("ftp://example.com/in.mp4")
	assert.ErrorContains(t, err, "unsupported URI scheme")

	r.S3 = NewS3StorageWithClient(&fakeS3{})
	s, err = r.For("s3://bucket/in.mp4")
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, s)
}
