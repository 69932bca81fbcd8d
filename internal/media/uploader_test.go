package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"account-service/internal/config"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutObject struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutObject) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

// 1x1 transparent PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestS3Uploader_Upload(t *testing.T) {
	fake := &fakePutObject{}
	u := newS3Uploader(fake, "avatars", "http://minio:9000/avatars/")
	u.now = func() time.Time { return time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC) }

	path := writeTemp(t, "avatar", pngBytes)

	res, err := u.Upload(context.Background(), path)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Key, "users/2026/03/07/"))
	assert.True(t, strings.HasSuffix(res.Key, ".png"))
	assert.Equal(t, "http://minio:9000/avatars/"+res.Key, res.URL)
	assert.Equal(t, "avatars", *fake.input.Bucket)
	assert.Equal(t, "image/png", *fake.input.ContentType)
	assert.Equal(t, pngBytes, fake.body)

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "local file should be removed after upload")
}

func TestS3Uploader_Upload_KeepsOriginalExtension(t *testing.T) {
	u := newS3Uploader(&fakePutObject{}, "avatars", "https://cdn.example.com")

	res, err := u.Upload(context.Background(), writeTemp(t, "cover.JPG", []byte("not really a jpeg")))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Key, ".jpg"))
}

func TestS3Uploader_Upload_PutFailureRemovesLocalFile(t *testing.T) {
	fake := &fakePutObject{err: errors.New("access denied")}
	u := newS3Uploader(fake, "avatars", "https://cdn.example.com")
	path := writeTemp(t, "avatar.png", pngBytes)

	res, err := u.Upload(context.Background(), path)
	require.Error(t, err)
	assert.Nil(t, res)

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestS3Uploader_Upload_MissingFile(t *testing.T) {
	u := newS3Uploader(&fakePutObject{}, "avatars", "https://cdn.example.com")

	_, err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)

	_, err = u.Upload(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyPath)
}

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://img.example.com", publicBaseURL(&config.Config{S3PublicURL: "https://img.example.com", S3Bucket: "b"}))
	assert.Equal(t, "http://minio:9000/b", publicBaseURL(&config.Config{S3Endpoint: "http://minio:9000/", S3Bucket: "b"}))
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com", publicBaseURL(&config.Config{S3Bucket: "b", AWSRegion: "eu-west-1"}))
}
