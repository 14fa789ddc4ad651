package storage

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// FileETag computes the content hash of the file at path: the hex MD5 of its
// bytes. This is the ETag an S3-compatible service assigns to a single-part
// upload and the MD5 attribute GCS records, so a local file and its stored
// copy hash identically.
func FileETag(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("storage: failed to open %q: %w", path, err)
	}
	defer f.Close()
	return ReaderETag(f)
}

// ReaderETag computes the hex MD5 of everything remaining in r.
func ReaderETag(r io.Reader) (string, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("storage: failed to hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// normalizeETag strips the quoting and weak-validator prefix HTTP permits on
// wire ETags, leaving the bare lowercase hash.
func normalizeETag(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "W/")
	s = strings.Trim(s, `"`)
	return strings.ToLower(s)
}
