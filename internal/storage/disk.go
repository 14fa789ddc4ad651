package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DiskProvider writes objects beneath a root directory on the local
// filesystem, standing in for a bucket. It honours the same token contract
// as the cloud backends with a synthetic token, which makes it useful for
// tests and dry runs. The bucket argument is accepted and ignored; the root
// directory plays its part.
type DiskProvider struct {
	root     string
	progress ProgressFunc
}

// NewDiskProvider creates a provider rooted at root. The directory is
// created if it does not already exist.
func NewDiskProvider(root string, progress ProgressFunc) (*DiskProvider, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create root directory %q: %w", root, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to resolve absolute path for %q: %w", root, err)
	}
	return &DiskProvider{root: abs, progress: progress}, nil
}

// IssueToken mints a synthetic token scoped to bucket/key. The key is
// cleaned to its canonical slash-separated form; keys escaping the root are
// rejected.
func (p *DiskProvider) IssueToken(_ context.Context, bucket, key string, ttl time.Duration) (*Token, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrTokenTTL, ttl)
	}

	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return nil, fmt.Errorf("storage: invalid object key %q", key)
	}

	id := uuid.NewString()
	return &Token{
		ID:        id,
		Value:     "disk://" + path.Join(bucket, clean) + "?token=" + id,
		Bucket:    bucket,
		Key:       clean,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// Upload copies the file at localFile to root/key, creating any intermediate
// directories as needed. The content hash is computed as the bytes are
// written, so the result reports what actually landed on disk.
func (p *DiskProvider) Upload(_ context.Context, token *Token, key, localFile string) (*UploadResult, error) {
	if token.Key != key {
		return nil, fmt.Errorf("%w: token is scoped to %q, not %q", ErrTokenScope, token.Key, key)
	}
	if time.Now().After(token.ExpiresAt) {
		return nil, fmt.Errorf("storage: token %s expired at %s", token.ID, token.ExpiresAt.Format(time.RFC3339))
	}

	src, err := os.Open(localFile)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open %q: %w", localFile, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, fmt.Errorf("storage: failed to stat %q: %w", localFile, err)
	}
	size := info.Size()

	dest := filepath.Join(p.root, filepath.FromSlash(token.Key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create directory for %q: %w", token.Key, err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create file %q: %w", dest, err)
	}
	defer f.Close()

	h := md5.New()
	var body io.Reader = src
	if p.progress != nil {
		body = &progressReader{r: src, total: size, fn: p.progress}
	}

	start := time.Now()
	if _, err := io.Copy(io.MultiWriter(f, h), body); err != nil {
		return nil, fmt.Errorf("storage: failed to write file %q: %w", dest, err)
	}

	fileURL := &url.URL{Scheme: "file", Path: filepath.ToSlash(dest)}

	return &UploadResult{
		Key:  token.Key,
		Hash: hex.EncodeToString(h.Sum(nil)),
		Metadata: map[string]string{
			"upload_id": token.ID,
			"status":    "stored",
			"size":      strconv.FormatInt(size, 10),
			"duration":  time.Since(start).Round(time.Millisecond).String(),
			"location":  fileURL.String(),
		},
	}, nil
}

// HashFile computes the hex MD5 of a local file.
func (p *DiskProvider) HashFile(path string) (string, error) {
	return FileETag(path)
}

// Stat reports metadata for a previously stored object by reading it back
// from disk.
func (p *DiskProvider) Stat(_ context.Context, _, key string) (*ObjectInfo, error) {
	dest := filepath.Join(p.root, filepath.FromSlash(key))
	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to stat %q: %w", key, err)
	}
	hash, err := FileETag(dest)
	if err != nil {
		return nil, err
	}
	return &ObjectInfo{
		Key:          key,
		Hash:         hash,
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}, nil
}
