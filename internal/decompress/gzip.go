// Package decompress normalizes compressed request bodies before parsing.
package decompress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/klauspost/compress/gzip"

	"github.com/telhawk-systems/hecrelay/common/httputil"
	"github.com/telhawk-systems/hecrelay/internal/metrics"
	"github.com/telhawk-systems/hecrelay/internal/pipeline"
)

// Gate decodes gzip bodies in full so that a corrupt stream is rejected
// before any event is looked at.
type Gate struct {
	maxDecompressed int64
}

// NewGate returns a Gate that refuses to inflate more than maxDecompressed bytes.
func NewGate(maxDecompressed int64) *Gate {
	return &Gate{maxDecompressed: maxDecompressed}
}

// IsGzip reports whether a Content-Encoding token list declares gzip framing.
func IsGzip(codings []string) bool {
	return slices.Contains(codings, "gzip") || slices.Contains(codings, "x-gzip")
}

// Stage passes non-gzip requests through unchanged. For gzip requests it
// returns a new request whose body is the inflated payload and whose header
// no longer declares an encoding.
func (g *Gate) Stage(_ context.Context, req pipeline.Request) (pipeline.Request, error) {
	if !IsGzip(httputil.HeaderTokens(req.Header, "Content-Encoding")) {
		return req, nil
	}

	data, err := g.Decompress(req.Body)
	if err != nil {
		return req, err
	}
	return req.WithoutHeader("Content-Encoding").WithBody(bytes.NewReader(data)), nil
}

// Decompress inflates a complete gzip stream, including multi-member streams.
func (g *Gate) Decompress(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, fmt.Errorf("%w: empty gzip body", pipeline.ErrBadEncoding)
	}

	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, wrapReadError(err)
	}
	defer zr.Close()

	data, err := io.ReadAll(io.LimitReader(zr, g.maxDecompressed+1))
	if err != nil {
		return nil, wrapReadError(err)
	}
	if int64(len(data)) > g.maxDecompressed {
		return nil, fmt.Errorf("%w: decompressed body exceeds %d bytes", pipeline.ErrBodyTooLarge, g.maxDecompressed)
	}

	metrics.DecompressedBytes.Add(float64(len(data)))
	return data, nil
}

// wrapReadError keeps body limit failures distinct from corrupt streams.
func wrapReadError(err error) error {
	if errors.Is(err, pipeline.ErrBodyTooLarge) {
		return err
	}
	return fmt.Errorf("%w: %v", pipeline.ErrBadEncoding, err)
}
