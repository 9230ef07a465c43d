package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/haulops/internal/config"
)

func TestCleanKey(t *testing.T) {
	for _, bad := range []string{"", "/etc/passwd", "../x", "a/../../x", "..", "a\\b"} {
		_, err := cleanKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
	key, err := cleanKey("avatars/./u1/a.png")
	require.NoError(t, err)
	assert.Equal(t, "avatars/u1/a.png", key)
}

func TestLocal_Put(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, "/files/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "operations/op1/doc.pdf", "application/pdf", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "/files/operations/op1/doc.pdf", url)

	data, err := os.ReadFile(filepath.Join(dir, "operations", "op1", "doc.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = store.Put(context.Background(), "../escape", "", nil)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestLocal_PutCancelled(t *testing.T) {
	store, err := NewLocal(t.TempDir(), "/files")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Put(ctx, "a.txt", "", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3_Put(t *testing.T) {
	client := &fakePutter{}
	cfg := config.S3Config{Bucket: "docs", Region: "eu-west-1", UsePathStyle: true}
	store := newS3WithClient(client, cfg, "http://minio:9000", "")

	url, err := store.Put(context.Background(), "avatars/u1.png", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/docs/avatars/u1.png", url)
	assert.Equal(t, "docs", aws.ToString(client.input.Bucket))
	assert.Equal(t, "image/png", aws.ToString(client.input.ContentType))
	assert.Equal(t, "png", string(client.body))

	client.err = errors.New("boom")
	_, err = store.Put(context.Background(), "avatars/u1.png", "", nil)
	assert.Error(t, err)
	assert.Equal(t, "application/octet-stream", aws.ToString(client.input.ContentType))
}

func TestObjectBaseURL(t *testing.T) {
	cfg := config.S3Config{Bucket: "b", Region: "us-east-1"}
	assert.Equal(t, "https://b.s3.us-east-1.amazonaws.com", objectBaseURL(cfg, "", "/files"))
	assert.Equal(t, "https://cdn.example", objectBaseURL(cfg, "", "https://cdn.example"))
	assert.Equal(t, "http://host", objectBaseURL(cfg, "http://host", ""))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}
