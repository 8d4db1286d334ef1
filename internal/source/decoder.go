package source

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies how a table file is encoded on disk.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// DetectCompression infers the compression from a file name.
func DetectCompression(name string) Compression {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(lower, ".zst"):
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// Decoder wraps raw table streams with the matching decompressor.
type Decoder struct{}

// NewDecoder creates a new table decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Wrap returns a reader over the decompressed contents of r. Closing the returned
// reader closes r as well.
func (d *Decoder) Wrap(name string, r io.ReadCloser) (io.ReadCloser, error) {
	switch DetectCompression(name) {
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("gzip reader for %s: %w", name, err)
		}
		return &stackedReader{Reader: zr, closers: []io.Closer{zr, r}}, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("zstd reader for %s: %w", name, err)
		}
		rc := zr.IOReadCloser()
		return &stackedReader{Reader: rc, closers: []io.Closer{rc, r}}, nil
	default:
		return r, nil
	}
}

// stackedReader closes a decompressor and the stream underneath it.
type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReader) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
