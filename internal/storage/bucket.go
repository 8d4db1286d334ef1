package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/gcsblob" // GCS driver
	_ "gocloud.dev/blob/s3blob"  // S3 driver
)

// BucketStore writes output files to an object store bucket.
type BucketStore struct {
	bucket *blob.Bucket
	base   string // "gs://bucket" | "s3://bucket"
	prefix string
}

// NewBucketStore wraps an already opened bucket.
func NewBucketStore(bucket *blob.Bucket, base, prefix string) *BucketStore {
	return &BucketStore{
		bucket: bucket,
		base:   base,
		prefix: prefix,
	}
}

// NewGCSStore creates a new GCS store.
func NewGCSStore(bucketName, prefix string) (*BucketStore, error) {
	base := fmt.Sprintf("gs://%s", bucketName)
	bucket, err := blob.OpenBucket(context.Background(), base)
	if err != nil {
		return nil, fmt.Errorf("open GCS bucket %s: %w", bucketName, err)
	}
	return NewBucketStore(bucket, base, prefix), nil
}

// NewS3Store creates a new S3-compatible store.
// Works with AWS S3, Backblaze B2, Cloudflare R2, and MinIO.
func NewS3Store(bucketName, prefix, endpoint, region string) (*BucketStore, error) {
	base := fmt.Sprintf("s3://%s", bucketName)
	bucketURL := base

	params := url.Values{}
	if region != "" {
		params.Set("region", region)
	}
	if endpoint != "" {
		params.Set("endpoint", endpoint)
		params.Set("s3ForcePathStyle", "true")
	}
	if len(params) > 0 {
		bucketURL = bucketURL + "?" + params.Encode()
	}

	bucket, err := blob.OpenBucket(context.Background(), bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open S3 bucket %s: %w", bucketName, err)
	}
	return NewBucketStore(bucket, base, prefix), nil
}

// WriteTable writes table bytes to the bucket.
func (s *BucketStore) WriteTable(ctx context.Context, ref OutputRef, data []byte) error {
	return s.put(ctx, ref.Path(s.prefix), data)
}

// WriteManifest writes the run manifest to the bucket.
func (s *BucketStore) WriteManifest(ctx context.Context, runID string, manifest *Manifest) error {
	data, err := manifest.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return s.put(ctx, ManifestPath(s.prefix, runID), data)
}

func (s *BucketStore) put(ctx context.Context, key string, data []byte) error {
	w, err := s.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", key, err)
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write data to %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}
	return nil
}

// Exists checks if an output file already exists in the bucket.
func (s *BucketStore) Exists(ctx context.Context, ref OutputRef) (bool, error) {
	return s.bucket.Exists(ctx, ref.Path(s.prefix))
}

// URI returns the canonical URI for the given key.
func (s *BucketStore) URI(key string) string {
	return s.base + "/" + key
}

// Prefix returns the configured key prefix.
func (s *BucketStore) Prefix() string {
	return s.prefix
}

// Close releases the bucket connection.
func (s *BucketStore) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}

// --- AtomicStore implementation ---

// WriteTableTemp writes table bytes to a temporary key.
func (s *BucketStore) WriteTableTemp(ctx context.Context, ref OutputRef, data []byte) (Staged, error) {
	key := ref.Path(s.prefix)
	tempKey := key + ".tmp." + uuid.New().String()
	if err := s.put(ctx, tempKey, data); err != nil {
		return Staged{}, err
	}
	return Staged{TempKey: tempKey, FinalKey: key}, nil
}

// WriteManifestTemp writes a manifest to a temporary key.
func (s *BucketStore) WriteManifestTemp(ctx context.Context, runID string, manifest *Manifest) (Staged, error) {
	data, err := manifest.MarshalJSON()
	if err != nil {
		return Staged{}, fmt.Errorf("marshal manifest: %w", err)
	}

	key := ManifestPath(s.prefix, runID)
	tempKey := key + ".tmp." + uuid.New().String()
	if err := s.put(ctx, tempKey, data); err != nil {
		return Staged{}, err
	}
	return Staged{TempKey: tempKey, FinalKey: key}, nil
}

// Finalize moves temp objects to their canonical keys.
// Uses copy + delete pattern.
func (s *BucketStore) Finalize(ctx context.Context, staged []Staged) error {
	for i, st := range staged {
		if err := s.copyObject(ctx, st.TempKey, st.FinalKey); err != nil {
			for j := 0; j < i; j++ {
				s.bucket.Delete(ctx, staged[j].FinalKey)
			}
			s.Abort(ctx, staged)
			return fmt.Errorf("finalize %s -> %s: %w", st.TempKey, st.FinalKey, err)
		}
	}

	for _, st := range staged {
		s.bucket.Delete(ctx, st.TempKey) // ignore errors
	}
	return nil
}

func (s *BucketStore) copyObject(ctx context.Context, srcKey, dstKey string) error {
	r, err := s.bucket.NewReader(ctx, srcKey, nil)
	if err != nil {
		return fmt.Errorf("open source %s: %w", srcKey, err)
	}
	defer r.Close()

	w, err := s.bucket.NewWriter(ctx, dstKey, nil)
	if err != nil {
		return fmt.Errorf("create destination %s: %w", dstKey, err)
	}

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("copy to %s: %w", dstKey, err)
	}
	return w.Close()
}

// Abort removes temporary objects without publishing.
func (s *BucketStore) Abort(ctx context.Context, staged []Staged) error {
	var lastErr error
	for _, st := range staged {
		if err := s.bucket.Delete(ctx, st.TempKey); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Head returns metadata about a stored object.
func (s *BucketStore) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	attrs, err := s.bucket.Attributes(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get attributes for %s: %w", key, err)
	}

	return &ObjectInfo{
		Key:     key,
		Size:    attrs.Size,
		ETag:    attrs.ETag,
		ModTime: attrs.ModTime,
	}, nil
}

// List returns all keys with the given prefix, skipping temp objects.
func (s *BucketStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	iter := s.bucket.List(&blob.ListOptions{
		Prefix: prefix,
	})

	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		if obj.IsDir || strings.Contains(obj.Key, ".tmp.") {
			continue
		}
		keys = append(keys, obj.Key)
	}

	return keys, nil
}

// Verify BucketStore implements AtomicStore.
var _ AtomicStore = (*BucketStore)(nil)
