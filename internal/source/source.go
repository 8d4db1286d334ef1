package source

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrTableNotFound is returned when an input table does not exist.
	ErrTableNotFound = errors.New("table not found")

	// ErrInvalidSourceMode is returned for an unknown source backend.
	ErrInvalidSourceMode = errors.New("invalid source mode")
)

// TableSource opens raw input tables by name. Names are relative to the source root.
type TableSource interface {
	// Open returns the decompressed contents of the named table.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// URI returns a human readable location for the named table.
	URI(name string) string

	// Close releases any resources.
	Close() error
}

// SourceConfig selects and configures a table source backend.
type SourceConfig struct {
	Mode string // "local" | "gcs" | "s3"

	// Local filesystem
	LocalPath string

	// GCS
	GCSBucket string
	GCSPrefix string

	// S3 (also works for B2, R2, MinIO)
	S3Bucket   string
	S3Prefix   string
	S3Endpoint string
	S3Region   string
}

// NewTableSource constructs a table source based on the configured mode.
func NewTableSource(cfg SourceConfig) (TableSource, error) {
	switch cfg.Mode {
	case "local", "":
		if cfg.LocalPath == "" {
			return nil, fmt.Errorf("LocalPath required for local source")
		}
		return NewLocalSource(cfg.LocalPath)
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCSBucket required for gcs source")
		}
		return NewGCSSource(cfg.GCSBucket, cfg.GCSPrefix)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3Bucket required for s3 source")
		}
		return NewS3Source(cfg.S3Bucket, cfg.S3Prefix, cfg.S3Endpoint, cfg.S3Region)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidSourceMode, cfg.Mode)
	}
}
