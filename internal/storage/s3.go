package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tomasbasham/chartup/internal/config"
)

// S3Provider targets any S3-compatible service. Tokens are presigned PUT
// URLs, and the content hash is the single-part ETag: the hex MD5 of the
// object bytes.
type S3Provider struct {
	client   *minio.Client
	endpoint string
	httpc    *http.Client
	progress ProgressFunc
}

// NewS3Provider initialises a provider for the endpoint and credentials in
// cfg. Construction performs no network activity.
func NewS3Provider(cfg *config.Config, progress ProgressFunc) (*S3Provider, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Credentials.AccessKey, cfg.Credentials.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to initialise S3 client for %q: %w", cfg.Endpoint, err)
	}
	return &S3Provider{
		client:   client,
		endpoint: cfg.Endpoint,
		httpc:    &http.Client{},
		progress: progress,
	}, nil
}

// IssueToken derives a presigned PUT URL for bucket/key with lifetime ttl.
// Signing is local; the service never sees the request.
func (p *S3Provider) IssueToken(ctx context.Context, bucket, key string, ttl time.Duration) (*Token, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrTokenTTL, ttl)
	}

	u, err := p.client.PresignedPutObject(ctx, bucket, key, ttl)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to presign upload of %q: %w", key, err)
	}

	canonical, err := keyFromSignedURL(u, bucket, p.endpoint)
	if err != nil {
		return nil, err
	}

	return &Token{
		ID:        uuid.NewString(),
		Value:     u.String(),
		Bucket:    bucket,
		Key:       canonical,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// Upload PUTs the file at localFile to the object the token is scoped to.
func (p *S3Provider) Upload(ctx context.Context, token *Token, key, localFile string) (*UploadResult, error) {
	if token.Key != key {
		return nil, fmt.Errorf("%w: token is scoped to %q, not %q", ErrTokenScope, token.Key, key)
	}

	resp, err := tokenPut(ctx, p.httpc, token, localFile, p.progress)
	if err != nil {
		return nil, err
	}

	return &UploadResult{
		Key:      token.Key,
		Hash:     resp.etag,
		Metadata: uploadMetadata(token, resp),
	}, nil
}

// HashFile computes the single-part ETag of a local file.
func (p *S3Provider) HashFile(path string) (string, error) {
	return FileETag(path)
}

// Stat reports the stored object's key, ETag, size and modification time.
func (p *S3Provider) Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	info, err := p.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to stat %q: %w", key, err)
	}
	return &ObjectInfo{
		Key:          info.Key,
		Hash:         normalizeETag(info.ETag),
		Size:         info.Size,
		LastModified: info.LastModified,
	}, nil
}
