package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/gcsblob" // GCS driver
	_ "gocloud.dev/blob/s3blob"  // S3 driver
	"gocloud.dev/gcerrors"

	"github.com/withObsrvr/obsrvr-movie-roi/internal/logging"
)

// BucketSource reads table files from an object store bucket.
type BucketSource struct {
	bucket  *blob.Bucket
	base    string // e.g. "gs://bucket" or "s3://bucket"
	prefix  string
	decoder *Decoder
	log     *slog.Logger
}

// NewBucketSource wraps an already opened bucket.
func NewBucketSource(bucket *blob.Bucket, base, prefix string) *BucketSource {
	return &BucketSource{
		bucket:  bucket,
		base:    base,
		prefix:  prefix,
		decoder: NewDecoder(),
		log:     logging.Component("source").With("bucket", base),
	}
}

// NewGCSSource creates a new GCS source.
// Uses Application Default Credentials (ADC) for authentication.
func NewGCSSource(bucketName, prefix string) (*BucketSource, error) {
	ctx := context.Background()

	base := fmt.Sprintf("gs://%s", bucketName)
	bucket, err := blob.OpenBucket(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("open GCS bucket %s: %w", bucketName, err)
	}

	return NewBucketSource(bucket, base, prefix), nil
}

// NewS3Source creates a new S3-compatible source.
// Works with AWS S3, Backblaze B2, Cloudflare R2, and MinIO.
func NewS3Source(bucketName, prefix, endpoint, region string) (*BucketSource, error) {
	ctx := context.Background()

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

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open S3 bucket %s: %w", bucketName, err)
	}

	return NewBucketSource(bucket, base, prefix), nil
}

// Open implements TableSource.Open for object stores.
func (s *BucketSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := s.prefix + name

	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, s.URI(name))
		}
		return nil, fmt.Errorf("open %s: %w", s.URI(name), err)
	}

	s.log.Debug("opened table", "run_id", logging.RunID(ctx), "key", key, "size", r.Size())
	return s.decoder.Wrap(name, r)
}

// URI returns the canonical object URI of the named table.
func (s *BucketSource) URI(name string) string {
	return fmt.Sprintf("%s/%s%s", s.base, s.prefix, name)
}

// Close releases the bucket connection.
func (s *BucketSource) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}
