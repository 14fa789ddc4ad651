// Package uploader orchestrates single-file publication: issue a token
// scoped to the destination object, perform the upload, verify the stored
// key and content hash against expectations, and derive the public URL. The
// whole flow is synchronous and nothing is retried; the first failure
// propagates to the caller.
package uploader

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/tomasbasham/chartup/internal/storage"
)

// Uploader publishes local files to a bucket through a storage provider.
type Uploader struct {
	provider storage.Provider
	bucket   string
	host     string
	diag     io.Writer
}

// New constructs an Uploader for bucket, fronted publicly by host. diag
// receives human-readable diagnostics; nil silences them.
func New(provider storage.Provider, bucket, host string, diag io.Writer) *Uploader {
	if diag == nil {
		diag = io.Discard
	}
	return &Uploader{
		provider: provider,
		bucket:   bucket,
		host:     host,
		diag:     diag,
	}
}

// Upload publishes the file at localFile as remoteName, authorized by a
// token valid for ttl. The returned result has been verified: its key equals
// remoteName byte for byte, and its hash equals the hash of the local file's
// exact bytes.
func (u *Uploader) Upload(ctx context.Context, localFile, remoteName string, ttl time.Duration) (*storage.UploadResult, error) {
	fmt.Fprintf(u.diag, "uploading %s to %s/%s (token ttl %s)\n", localFile, u.bucket, remoteName, ttl)

	if _, err := os.Stat(localFile); err != nil {
		return nil, fmt.Errorf("uploader: cannot read %q: %w", localFile, err)
	}

	token, err := u.provider.IssueToken(ctx, u.bucket, remoteName, ttl)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(u.diag, "token %s scoped to %s/%s, expires %s\n",
		token.ID, token.Bucket, token.Key, token.ExpiresAt.Format(time.RFC3339))

	result, err := u.provider.Upload(ctx, token, remoteName, localFile)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(u.diag, "stored key=%s hash=%s\n", result.Key, result.Hash)
	for _, k := range sortedKeys(result.Metadata) {
		fmt.Fprintf(u.diag, "  %s=%s\n", k, result.Metadata[k])
	}

	if result.Key != remoteName {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrKeyMismatch, result.Key, remoteName)
	}

	localHash, err := u.provider.HashFile(localFile)
	if err != nil {
		return nil, err
	}
	if result.Hash != localHash {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrHashMismatch, result.Hash, localHash)
	}

	return result, nil
}

// PublicURL returns the address remoteName is served from once published.
// The remote name is already a URL path, so it is joined verbatim.
func (u *Uploader) PublicURL(remoteName string) string {
	return fmt.Sprintf("https://%s/%s", u.host, remoteName)
}

// Verify compares a published object's content hash against a local file's.
func (u *Uploader) Verify(ctx context.Context, localFile, remoteName string) error {
	localHash, err := u.provider.HashFile(localFile)
	if err != nil {
		return err
	}

	info, err := u.provider.Stat(ctx, u.bucket, remoteName)
	if err != nil {
		return err
	}
	fmt.Fprintf(u.diag, "local %s remote %s (%d bytes, modified %s)\n",
		localHash, info.Hash, info.Size, info.LastModified.Format(time.RFC3339))

	if info.Hash != localHash {
		return fmt.Errorf("%w: got %q, want %q", ErrHashMismatch, info.Hash, localHash)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
