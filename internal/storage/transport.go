package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"
)

// putResponse captures what the service reported for a token PUT.
type putResponse struct {
	etag     string
	size     int64
	status   string
	duration time.Duration
	header   http.Header
}

// tokenPut performs the single HTTP PUT a token authorizes, streaming the
// local file to the token's URL. The upload is one request for the whole
// file; nothing is chunked and nothing is retried. Any transport failure or
// non-2xx status is returned as-is, wrapped for context only.
func tokenPut(ctx context.Context, client *http.Client, token *Token, localFile string, progress ProgressFunc) (*putResponse, error) {
	f, err := os.Open(localFile)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open %q: %w", localFile, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("storage: failed to stat %q: %w", localFile, err)
	}
	size := info.Size()

	var body io.Reader = f
	if progress != nil {
		body = &progressReader{r: f, total: size, fn: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, token.Value, body)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to build upload request for %q: %w", token.Key, err)
	}
	// The wrapped reader is not a type net/http sizes automatically, so the
	// content length must be set explicitly for the request to carry one.
	req.ContentLength = size
	req.Header.Set("Content-Type", contentTypeFor(token.Key))

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: upload request failed for %q: %w", token.Key, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return nil, fmt.Errorf("storage: service rejected upload of %q: %s: %s",
			token.Key, resp.Status, strings.TrimSpace(string(detail)))
	}

	etag := normalizeETag(resp.Header.Get("ETag"))
	if etag == "" {
		return nil, fmt.Errorf("%w: %s response for %q", ErrNoHash, resp.Status, token.Key)
	}

	return &putResponse{
		etag:     etag,
		size:     size,
		status:   resp.Status,
		duration: time.Since(start),
		header:   resp.Header,
	}, nil
}

// uploadMetadata flattens the interesting parts of a put response into a
// result metadata record.
func uploadMetadata(token *Token, r *putResponse) map[string]string {
	md := map[string]string{
		"upload_id": token.ID,
		"status":    r.status,
		"size":      strconv.FormatInt(r.size, 10),
		"duration":  r.duration.Round(time.Millisecond).String(),
	}
	for _, h := range []string{"x-amz-request-id", "x-guploader-uploadid"} {
		if id := r.header.Get(h); id != "" {
			md["request_id"] = id
			break
		}
	}
	return md
}

// contentTypeFor infers a content type from the object key's extension. Both
// token issuance and the transport derive it from the same key, so the signed
// and sent values always agree.
func contentTypeFor(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// keyFromSignedURL recovers the canonical object key bound into a signed
// URL. Path-style URLs carry the bucket as the first path segment;
// virtual-host style carries it as a host label. A host equal to the signing
// endpoint is always path style, as an endpoint may itself be named after
// the bucket.
func keyFromSignedURL(u *url.URL, bucket, endpointHost string) (string, error) {
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == endpointHost || !strings.HasPrefix(u.Host, bucket+".") {
		rest, ok := strings.CutPrefix(key, bucket+"/")
		if !ok {
			return "", fmt.Errorf("storage: signed URL path does not match bucket %q", bucket)
		}
		key = rest
	}
	if key == "" {
		return "", fmt.Errorf("storage: signed URL for bucket %q carries no object key", bucket)
	}
	return key, nil
}
