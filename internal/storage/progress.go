package storage

import (
	"fmt"
	"io"
)

// ProgressFunc receives transfer progress as bytes move. transferred is
// cumulative; total is the full content length. Reporting is cosmetic and
// never affects the outcome of an upload.
type ProgressFunc func(transferred, total int64)

// FormatProgress renders a "<transferred>/<total> <percent>" progress line
// with the percentage to two decimal places.
func FormatProgress(transferred, total int64) string {
	percent := 100.0
	if total > 0 {
		percent = float64(transferred) / float64(total) * 100
	}
	return fmt.Sprintf("%d/%d %.2f", transferred, total, percent)
}

// progressReader wraps a reader and reports cumulative progress after every
// read.
type progressReader struct {
	r           io.Reader
	total       int64
	transferred int64
	fn          ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.transferred += int64(n)
		p.fn(p.transferred, p.total)
	}
	return n, err
}
