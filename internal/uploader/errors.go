package uploader

import "errors"

var (
	// ErrKeyMismatch reports that the service stored the object under a key
	// other than the requested remote name.
	ErrKeyMismatch = errors.New("uploader: stored key does not match remote name")

	// ErrHashMismatch reports that the service's content hash differs from
	// the local file's, so the stored bytes cannot be trusted.
	ErrHashMismatch = errors.New("uploader: stored content hash does not match local file")
)
