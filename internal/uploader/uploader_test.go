package uploader_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tomasbasham/chartup/internal/storage"
	"github.com/tomasbasham/chartup/internal/uploader"
)

// mockProvider is a mock implementation of storage.Provider.
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) IssueToken(ctx context.Context, bucket, key string, ttl time.Duration) (*storage.Token, error) {
	args := m.Called(ctx, bucket, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Token), args.Error(1)
}

func (m *mockProvider) Upload(ctx context.Context, token *storage.Token, key, localFile string) (*storage.UploadResult, error) {
	args := m.Called(ctx, token, key, localFile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadResult), args.Error(1)
}

func (m *mockProvider) HashFile(path string) (string, error) {
	args := m.Called(path)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) Stat(ctx context.Context, bucket, key string) (*storage.ObjectInfo, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.ObjectInfo), args.Error(1)
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestUploader_Upload(t *testing.T) {
	local := writeTemp(t, "video.mp4", "movie bytes")
	token := &storage.Token{
		ID:        "tok-1",
		Value:     "https://charts.example/videos/demo.mp4?X-Amz-Signature=TOPSECRET",
		Bucket:    "charts",
		Key:       "videos/demo.mp4",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	result := &storage.UploadResult{
		Key:      "videos/demo.mp4",
		Hash:     "abc123",
		Metadata: map[string]string{"status": "200 OK", "size": "11"},
	}

	provider := &mockProvider{}
	provider.On("IssueToken", mock.Anything, "charts", "videos/demo.mp4", time.Hour).Return(token, nil)
	provider.On("Upload", mock.Anything, token, "videos/demo.mp4", local).Return(result, nil)
	provider.On("HashFile", local).Return("abc123", nil)

	var diag bytes.Buffer
	u := uploader.New(provider, "charts", "charts.pingcap.org", &diag)

	got, err := u.Upload(context.Background(), local, "videos/demo.mp4", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, result, got)
	provider.AssertExpectations(t)

	out := diag.String()
	assert.Contains(t, out, local)
	assert.Contains(t, out, "videos/demo.mp4")
	assert.Contains(t, out, "token tok-1")
	assert.Contains(t, out, "status=200 OK")
	// The token credential itself must never appear in diagnostics.
	assert.NotContains(t, out, "TOPSECRET")
}

func TestUploader_Upload_KeyMismatch(t *testing.T) {
	local := writeTemp(t, "video.mp4", "movie bytes")
	token := &storage.Token{ID: "tok-1", Bucket: "charts", Key: "videos/demo.mp4"}
	result := &storage.UploadResult{Key: "videos/other.mp4", Hash: "abc123"}

	provider := &mockProvider{}
	provider.On("IssueToken", mock.Anything, "charts", "videos/demo.mp4", time.Hour).Return(token, nil)
	provider.On("Upload", mock.Anything, token, "videos/demo.mp4", local).Return(result, nil)

	u := uploader.New(provider, "charts", "charts.pingcap.org", nil)

	_, err := u.Upload(context.Background(), local, "videos/demo.mp4", time.Hour)
	require.Error(t, err)
	assert.ErrorIs(t, err, uploader.ErrKeyMismatch)
	assert.ErrorContains(t, err, `got "videos/other.mp4", want "videos/demo.mp4"`)
	// The local hash is only worth computing once the key has matched.
	provider.AssertNumberOfCalls(t, "HashFile", 0)
}

func TestUploader_Upload_HashMismatch(t *testing.T) {
	local := writeTemp(t, "video.mp4", "movie bytes")
	token := &storage.Token{ID: "tok-1", Bucket: "charts", Key: "videos/demo.mp4"}
	result := &storage.UploadResult{Key: "videos/demo.mp4", Hash: "remote"}

	provider := &mockProvider{}
	provider.On("IssueToken", mock.Anything, "charts", "videos/demo.mp4", time.Hour).Return(token, nil)
	provider.On("Upload", mock.Anything, token, "videos/demo.mp4", local).Return(result, nil)
	provider.On("HashFile", local).Return("local", nil)

	u := uploader.New(provider, "charts", "charts.pingcap.org", nil)

	_, err := u.Upload(context.Background(), local, "videos/demo.mp4", time.Hour)
	require.Error(t, err)
	assert.ErrorIs(t, err, uploader.ErrHashMismatch)
}

func TestUploader_Upload_MissingLocalFile(t *testing.T) {
	provider := &mockProvider{}
	u := uploader.New(provider, "charts", "charts.pingcap.org", nil)

	_, err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "absent.mp4"), "videos/demo.mp4", time.Hour)
	require.Error(t, err)
	assert.ErrorContains(t, err, "cannot read")
	// The file check happens before any token is requested.
	provider.AssertNumberOfCalls(t, "IssueToken", 0)
}

func TestUploader_Upload_TokenError(t *testing.T) {
	local := writeTemp(t, "video.mp4", "movie bytes")

	provider := &mockProvider{}
	provider.On("IssueToken", mock.Anything, "charts", "videos/demo.mp4", time.Hour).
		Return(nil, errors.New("storage: permission denied"))

	u := uploader.New(provider, "charts", "charts.pingcap.org", nil)

	_, err := u.Upload(context.Background(), local, "videos/demo.mp4", time.Hour)
	require.Error(t, err)
	assert.ErrorContains(t, err, "permission denied")
	provider.AssertNumberOfCalls(t, "Upload", 0)
}

func TestUploader_PublicURL(t *testing.T) {
	u := uploader.New(nil, "charts", "charts.pingcap.org", nil)

	// The remote name is a path, not a single segment; it joins verbatim.
	assert.Equal(t, "https://charts.pingcap.org/videos/demo.mp4", u.PublicURL("videos/demo.mp4"))
	assert.Equal(t, "https://charts.pingcap.org/tidb-v1.0.0.tgz", u.PublicURL("tidb-v1.0.0.tgz"))
}

func TestUploader_Verify(t *testing.T) {
	local := writeTemp(t, "chart.tgz", "chart bytes")

	provider := &mockProvider{}
	provider.On("HashFile", local).Return("aaa", nil)
	provider.On("Stat", mock.Anything, "charts", "stable/chart.tgz").
		Return(&storage.ObjectInfo{Key: "stable/chart.tgz", Hash: "aaa", Size: 11, LastModified: time.Now()}, nil)

	u := uploader.New(provider, "charts", "charts.pingcap.org", nil)
	require.NoError(t, u.Verify(context.Background(), local, "stable/chart.tgz"))
	provider.AssertExpectations(t)
}

func TestUploader_Verify_Mismatch(t *testing.T) {
	local := writeTemp(t, "chart.tgz", "chart bytes")

	provider := &mockProvider{}
	provider.On("HashFile", local).Return("aaa", nil)
	provider.On("Stat", mock.Anything, "charts", "stable/chart.tgz").
		Return(&storage.ObjectInfo{Key: "stable/chart.tgz", Hash: "bbb"}, nil)

	u := uploader.New(provider, "charts", "charts.pingcap.org", nil)
	err := u.Verify(context.Background(), local, "stable/chart.tgz")
	require.Error(t, err)
	assert.ErrorIs(t, err, uploader.ErrHashMismatch)
}
