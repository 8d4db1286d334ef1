package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// OutputRef describes one output table of an analysis run.
type OutputRef struct {
	RunID  string
	Table  string // "movie_features" | "subgenre_counts"
	Format string // "parquet" | "csv"
}

// Path returns the storage key for this output file.
func (r OutputRef) Path(prefix string) string {
	return fmt.Sprintf("%sruns/%s/%s.%s", prefix, r.RunID, r.Table, r.Format)
}

// FileName returns the file name relative to the run directory.
func (r OutputRef) FileName() string {
	return r.Table + "." + r.Format
}

// ManifestPath returns the storage key for a run's manifest.
func ManifestPath(prefix, runID string) string {
	return fmt.Sprintf("%sruns/%s/_manifest.json", prefix, runID)
}

// RunDir returns the directory key holding every output of a run.
func RunDir(prefix, runID string) string {
	return fmt.Sprintf("%sruns/%s", prefix, runID)
}

// Manifest describes the contents of a run directory.
type Manifest struct {
	Run       RunInfo              `json:"run"`
	Tables    map[string]TableInfo `json:"tables"`
	Producer  ProducerInfo         `json:"producer"`
	CreatedAt time.Time            `json:"created_at"`
}

// RunInfo describes the inputs and join diagnostics of a run.
type RunInfo struct {
	ID              string            `json:"id"`
	Source          string            `json:"source"`
	Inputs          map[string]string `json:"inputs"`
	RatingRetention float64           `json:"rating_retention"`
	BudgetRetention float64           `json:"budget_retention"`
	Vocabulary      []string          `json:"vocabulary,omitempty"`
}

// TableInfo describes a single output file of the run.
type TableInfo struct {
	File     string `json:"file"`
	Format   string `json:"format"`
	Checksum string `json:"checksum"`
	RowCount int64  `json:"row_count"`
	ByteSize int64  `json:"byte_size"`
}

// ProducerInfo describes the software that produced the run.
type ProducerInfo struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	GitSHA        string `json:"git_sha,omitempty"`
	SchemaVersion string `json:"schema_version"`
}

// MarshalJSON returns the manifest as JSON bytes.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	type Alias Manifest
	return json.MarshalIndent((*Alias)(m), "", "  ")
}

// ResultStore abstracts writing output tables to storage.
type ResultStore interface {
	// WriteTable writes an encoded table to storage.
	WriteTable(ctx context.Context, ref OutputRef, data []byte) error

	// WriteManifest writes the run manifest to storage.
	WriteManifest(ctx context.Context, runID string, manifest *Manifest) error

	// Exists checks if an output file already exists.
	Exists(ctx context.Context, ref OutputRef) (bool, error)

	// URI returns the canonical URI for the given key.
	// For local: file:///path, GCS: gs://bucket/path, S3: s3://bucket/path
	URI(key string) string

	// Prefix returns the key prefix outputs are written under.
	Prefix() string

	// Close releases any resources.
	Close() error
}

// Staged pairs a temporary key with the key it is published to.
type Staged struct {
	TempKey  string
	FinalKey string
}

// AtomicStore extends ResultStore with atomic publish capabilities.
type AtomicStore interface {
	ResultStore

	// WriteTableTemp writes table bytes to a temporary location.
	WriteTableTemp(ctx context.Context, ref OutputRef, data []byte) (Staged, error)

	// WriteManifestTemp writes a manifest to a temporary location.
	WriteManifestTemp(ctx context.Context, runID string, manifest *Manifest) (Staged, error)

	// Finalize moves temp files to their canonical location.
	// For object stores this is copy+delete; for local filesystem it's rename.
	// If any file fails to finalize, the ones already published are rolled back.
	Finalize(ctx context.Context, staged []Staged) error

	// Abort removes temporary files without publishing.
	Abort(ctx context.Context, staged []Staged) error

	// Head returns metadata about a stored object.
	Head(ctx context.Context, key string) (*ObjectInfo, error)

	// List returns all keys with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key     string
	Size    int64
	ETag    string // MD5 for S3/GCS, empty for local
	ModTime time.Time
}

// StorageConfig configures the storage backend.
type StorageConfig struct {
	Backend string // "local" | "gcs" | "s3"

	// Local filesystem
	LocalDir string // /path/to/output/

	// GCS
	GCSBucket string

	// S3 (also works for B2, R2, MinIO)
	S3Bucket   string
	S3Endpoint string // custom endpoint for B2/MinIO/R2
	S3Region   string

	// Common
	Prefix string // "movie-roi/" (path prefix within bucket or local dir)
}

// NewAtomicStore creates a storage backend based on configuration.
// All supported backends (local, gcs, s3) implement AtomicStore.
func NewAtomicStore(cfg StorageConfig) (AtomicStore, error) {
	switch cfg.Backend {
	case "local", "":
		if cfg.LocalDir == "" {
			return nil, fmt.Errorf("LocalDir required for local backend")
		}
		return NewLocalStore(cfg.LocalDir, cfg.Prefix)
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCSBucket required for gcs backend")
		}
		return NewGCSStore(cfg.GCSBucket, cfg.Prefix)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3Bucket required for s3 backend")
		}
		return NewS3Store(cfg.S3Bucket, cfg.Prefix, cfg.S3Endpoint, cfg.S3Region)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// NewResultStore creates a storage backend based on configuration.
func NewResultStore(cfg StorageConfig) (ResultStore, error) {
	return NewAtomicStore(cfg)
}

// AsAtomic attempts to cast a ResultStore to AtomicStore.
// Returns nil if the store doesn't support atomic operations.
func AsAtomic(store ResultStore) AtomicStore {
	if atomic, ok := store.(AtomicStore); ok {
		return atomic
	}
	return nil
}
