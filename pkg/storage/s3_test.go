package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		wantBucket  string
		wantKey     string
		wantErr     bool
		errContains string
	}{
		{
			name:       "valid S3 URI",
			uri:        "s3://my-bucket/path/to/file.mp4",
			wantBucket: "my-bucket",
			wantKey:    "path/to/file.mp4",
			wantErr:    false,
		},
		{
			name:       "S3 URI with single key",
			uri:        "s3://bucket/file.txt",
			wantBucket: "bucket",
			wantKey:    "file.txt",
			wantErr:    false,
		},
		{
			name:       "S3 URI with nested path",
			uri:        "s3://my-bucket/videos/2024/01/sample.mp4",
			wantBucket: "my-bucket",
			wantKey:    "videos/2024/01/sample.mp4",
			wantErr:    false,
		},
		{
			name:        "missing bucket",
			uri:         "s3:///path/to/file.mp4",
			wantErr:     true,
			errContains: "missing bucket name",
		},
		{
			name:        "missing key",
			uri:         "s3://my-bucket/",
			wantErr:     true,
			errContains: "missing object key",
		},
		{
			name:        "bucket only",
			uri:         "s3://my-bucket",
			wantErr:     true,
			errContains: "missing object key",
		},
		{
			name:        "wrong scheme",
			uri:         "https://bucket/file.txt",
			wantErr:     true,
			errContains: "S3 storage only supports s3://",
		},
		{
			name:        "empty URI",
			uri:         "",
			wantErr:     true,
			errContains: "cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := parseS3URI(tt.uri)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantBucket, bucket)
				assert.Equal(t, tt.wantKey, key)
			}
		})
	}
}

// fakeS3 is an in-memory S3API keyed by "bucket/key".
type fakeS3 struct {
	objects map[string][]byte
	headErr error
}

func (f *fakeS3) key(bucket, key *string) string {
	return aws.ToString(bucket) + "/" + aws.ToString(key)
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[f.key(in.Bucket, in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[f.key(in.Bucket, in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, f.key(in.Bucket, in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[f.key(in.Bucket, in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3Storage_RoundTrip(t *testing.T) {
	fake := &fakeS3{}
	storage := NewS3StorageWithClient(fake)
	ctx := context.Background()
	uri := "s3://media/out/final.mp4"

	require.NoError(t, storage.Put(ctx, uri, strings.NewReader("encoded")))
	assert.Contains(t, fake.objects, "media/out/final.mp4")

	exists, err := storage.Exists(ctx, uri)
	require.NoError(t, err)
	assert.True(t, exists)

	body, err := storage.Get(ctx, uri)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	body.Close()
	assert.Equal(t, "encoded", string(data))

	require.NoError(t, storage.Delete(ctx, uri))
	exists, err = storage.Exists(ctx, uri)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestS3Storage_GetMissing(t *testing.T) {
	storage := NewS3StorageWithClient(&fakeS3{})

	_, err := storage.Get(context.Background(), "s3://media/missing.mp4")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	var noSuchKey *types.NoSuchKey
	assert.ErrorAs(t, err, &noSuchKey)
}

func TestS3Storage_ExistsErrorShapes(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    bool
		wantErr bool
	}{
		{"api not found code", &smithy.GenericAPIError{Code: "NotFound"}, false, false},
		{"api no such key code", &smithy.GenericAPIError{Code: "NoSuchKey"}, false, false},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false, true},
		{"transport failure", errors.New("connection reset"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := NewS3StorageWithClient(&fakeS3{headErr: tt.err})
			exists, err := storage.Exists(context.Background(), "s3://media/a.mp4")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, exists)
		})
	}
}

func TestNewS3Storage_StaticCredentials(t *testing.T) {
	storage, err := NewS3Storage(context.Background(), S3Options{
		Region:          "us-east-1",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	assert.NotNil(t, storage.client)

	var _ Storage = storage
}
