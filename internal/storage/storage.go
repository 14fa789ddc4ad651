// Package storage abstracts the object-storage services chartup publishes
// artefacts to. A backend issues short-lived upload tokens scoped to a single
// object, performs the upload those tokens authorize, and reports the key and
// content hash the service recorded so callers can verify integrity. The S3
// implementation is the production backend; gcs and disk honour the same
// contract for Google Cloud Storage and the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomasbasham/chartup/internal/config"
)

var (
	// ErrTokenScope reports an upload attempted with a token issued for a
	// different object.
	ErrTokenScope = errors.New("storage: token not scoped to requested object")

	// ErrTokenTTL reports a token requested with a non-positive lifetime.
	ErrTokenTTL = errors.New("storage: token ttl must be positive")

	// ErrNoHash reports a service response that carried no content hash, so
	// the integrity of the stored object cannot be established.
	ErrNoHash = errors.New("storage: response carried no content hash")
)

// Token is a short-lived credential authorizing a single object write. Value
// is the opaque credential itself - a presigned PUT URL for the cloud
// backends - and is never printed; diagnostics identify a token by its ID and
// scope only.
type Token struct {
	ID     string
	Value  string
	Bucket string

	// Key is the canonical text form of the object key the token is scoped
	// to, as parsed back out of the credential at issuance. Every later
	// comparison against it is a plain string equality.
	Key string

	ExpiresAt time.Time
}

// UploadResult is the service's record of a completed upload.
type UploadResult struct {
	// Key is the object key the service stored.
	Key string

	// Hash is the content hash the service computed over the stored bytes.
	Hash string

	// Metadata carries implementation-defined details of the exchange, such
	// as the status line, object size, duration and a request identifier.
	Metadata map[string]string
}

// ObjectInfo describes an object already present in a bucket.
type ObjectInfo struct {
	Key          string
	Hash         string
	Size         int64
	LastModified time.Time
}

// Provider is a storage backend capable of issuing scoped upload tokens,
// uploading with them, and reporting object metadata.
type Provider interface {
	// IssueToken derives a token authorizing a single write of bucket/key,
	// valid for ttl.
	IssueToken(ctx context.Context, bucket, key string, ttl time.Duration) (*Token, error)

	// Upload sends the file at localFile to the object named key, presenting
	// a previously issued token. The token must be scoped to key.
	Upload(ctx context.Context, token *Token, key, localFile string) (*UploadResult, error)

	// HashFile computes the content hash of a local file with the same
	// algorithm the service applies to stored objects.
	HashFile(path string) (string, error)

	// Stat reports metadata for an object already in the bucket.
	Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error)
}

// NewProvider constructs the backend selected by cfg.Provider. progress, when
// non-nil, receives transfer progress from the backend's transport. No
// network activity happens here; backends dial lazily on first use.
func NewProvider(ctx context.Context, cfg *config.Config, progress ProgressFunc) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderS3:
		return NewS3Provider(cfg, progress)
	case config.ProviderGCS:
		return NewGCSProvider(ctx, cfg, progress)
	case config.ProviderDisk:
		return NewDiskProvider(cfg.DiskRoot, progress)
	default:
		return nil, fmt.Errorf("storage: unknown provider %q", cfg.Provider)
	}
}
