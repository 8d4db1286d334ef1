package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/withObsrvr/obsrvr-movie-roi/internal/logging"
)

// LocalSource reads table files from the local filesystem.
type LocalSource struct {
	basePath string
	decoder  *Decoder
	log      *slog.Logger
}

// NewLocalSource creates a new local filesystem source.
func NewLocalSource(basePath string) (*LocalSource, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid local path %s: %w", basePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local path %s is not a directory", basePath)
	}

	return &LocalSource{
		basePath: basePath,
		decoder:  NewDecoder(),
		log:      logging.Component("source").With("mode", "local"),
	}, nil
}

// Open implements TableSource.Open for local files.
func (s *LocalSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.basePath, name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	s.log.Debug("opened table", "run_id", logging.RunID(ctx), "path", path, "compression", DetectCompression(name))
	return s.decoder.Wrap(name, f)
}

// URI returns the file URI of the named table.
func (s *LocalSource) URI(name string) string {
	return "file://" + filepath.Join(s.basePath, name)
}

// Close is a no-op for local sources.
func (s *LocalSource) Close() error {
	return nil
}
