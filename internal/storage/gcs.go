package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"

	"github.com/tomasbasham/chartup/internal/config"
)

// gcsHost is the host the signer targets for path-style signed URLs.
const gcsHost = "storage.googleapis.com"

// GCSProvider targets Google Cloud Storage. The credential pair maps onto a
// service account: the access key is the signer's Google access ID and the
// secret key its PEM-encoded private key. Tokens are V4 signed PUT URLs, and
// the content hash is the object's MD5 attribute in hex.
type GCSProvider struct {
	client     *storage.Client
	accessID   string
	privateKey []byte
	httpc      *http.Client
	progress   ProgressFunc
}

// NewGCSProvider initialises a provider authenticating as the service
// account in cfg. Construction performs no network activity; the first
// authenticated call fetches a token.
func NewGCSProvider(ctx context.Context, cfg *config.Config, progress ProgressFunc) (*GCSProvider, error) {
	account := &jwt.Config{
		Email:      cfg.Credentials.AccessKey,
		PrivateKey: []byte(cfg.Credentials.SecretKey),
		Scopes:     []string{storage.ScopeReadWrite},
		TokenURL:   google.JWTTokenURL,
	}

	client, err := storage.NewClient(ctx, option.WithTokenSource(account.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create GCS client: %w", err)
	}

	return &GCSProvider{
		client:     client,
		accessID:   cfg.Credentials.AccessKey,
		privateKey: []byte(cfg.Credentials.SecretKey),
		httpc:      &http.Client{},
		progress:   progress,
	}, nil
}

// IssueToken derives a V4 signed PUT URL for bucket/key with lifetime ttl.
// Signing is local to the process.
func (p *GCSProvider) IssueToken(_ context.Context, bucket, key string, ttl time.Duration) (*Token, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrTokenTTL, ttl)
	}

	expiresAt := time.Now().Add(ttl)
	signed, err := p.client.Bucket(bucket).SignedURL(key, &storage.SignedURLOptions{
		GoogleAccessID: p.accessID,
		PrivateKey:     p.privateKey,
		Method:         http.MethodPut,
		Expires:        expiresAt,
		ContentType:    contentTypeFor(key),
		Scheme:         storage.SigningSchemeV4,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to sign URL for %q: %w", key, err)
	}

	u, err := url.Parse(signed)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to parse signed URL for %q: %w", key, err)
	}
	canonical, err := keyFromSignedURL(u, bucket, gcsHost)
	if err != nil {
		return nil, err
	}

	return &Token{
		ID:        uuid.NewString(),
		Value:     signed,
		Bucket:    bucket,
		Key:       canonical,
		ExpiresAt: expiresAt,
	}, nil
}

// Upload PUTs the file at localFile to the object the token is scoped to.
func (p *GCSProvider) Upload(ctx context.Context, token *Token, key, localFile string) (*UploadResult, error) {
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

// HashFile computes the hex MD5 of a local file, matching the MD5 attribute
// GCS records for stored objects.
func (p *GCSProvider) HashFile(path string) (string, error) {
	return FileETag(path)
}

// Stat reports the stored object's metadata.
func (p *GCSProvider) Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	attrs, err := p.client.Bucket(bucket).Object(key).Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to stat %q: %w", key, err)
	}
	return &ObjectInfo{
		Key:          attrs.Name,
		Hash:         hex.EncodeToString(attrs.MD5),
		Size:         attrs.Size,
		LastModified: attrs.Updated,
	}, nil
}
