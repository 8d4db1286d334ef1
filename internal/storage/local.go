package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore writes output files to the local filesystem.
type LocalStore struct {
	baseDir string
	prefix  string
}

// NewLocalStore creates a new local filesystem store.
func NewLocalStore(baseDir, prefix string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create base directory %s: %w", baseDir, err)
	}

	return &LocalStore{
		baseDir: baseDir,
		prefix:  prefix,
	}, nil
}

// WriteTable writes table bytes to the local filesystem.
func (s *LocalStore) WriteTable(ctx context.Context, ref OutputRef, data []byte) error {
	return s.writeAtomic(ref.Path(s.prefix), data)
}

// WriteManifest writes a manifest file to the local filesystem.
func (s *LocalStore) WriteManifest(ctx context.Context, runID string, manifest *Manifest) error {
	data, err := manifest.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return s.writeAtomic(ManifestPath(s.prefix, runID), data)
}

// writeAtomic writes via temp file + rename.
func (s *LocalStore) writeAtomic(key string, data []byte) error {
	path := s.abs(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", filepath.Dir(path), err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file %s: %w", tempPath, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename %s to %s: %w", tempPath, path, err)
	}
	return nil
}

// Exists checks if an output file already exists.
func (s *LocalStore) Exists(ctx context.Context, ref OutputRef) (bool, error) {
	_, err := os.Stat(s.abs(ref.Path(s.prefix)))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// URI returns the canonical URI for the given key.
func (s *LocalStore) URI(key string) string {
	absPath, err := filepath.Abs(s.abs(key))
	if err != nil {
		absPath = s.abs(key)
	}
	return "file://" + absPath
}

// Prefix returns the configured key prefix.
func (s *LocalStore) Prefix() string {
	return s.prefix
}

// Close is a no-op for local storage.
func (s *LocalStore) Close() error {
	return nil
}

func (s *LocalStore) abs(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

// --- AtomicStore implementation ---

// WriteTableTemp writes table bytes next to their final path.
func (s *LocalStore) WriteTableTemp(ctx context.Context, ref OutputRef, data []byte) (Staged, error) {
	return s.writeTemp(ref.Path(s.prefix), data)
}

// WriteManifestTemp writes a manifest next to its final path.
func (s *LocalStore) WriteManifestTemp(ctx context.Context, runID string, manifest *Manifest) (Staged, error) {
	data, err := manifest.MarshalJSON()
	if err != nil {
		return Staged{}, fmt.Errorf("marshal manifest: %w", err)
	}
	return s.writeTemp(ManifestPath(s.prefix, runID), data)
}

func (s *LocalStore) writeTemp(key string, data []byte) (Staged, error) {
	tempKey := key + ".tmp." + uuid.New().String()
	path := s.abs(tempKey)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Staged{}, fmt.Errorf("create directory %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return Staged{}, fmt.Errorf("write temp file %s: %w", path, err)
	}
	return Staged{TempKey: tempKey, FinalKey: key}, nil
}

// Finalize renames temp files into place.
func (s *LocalStore) Finalize(ctx context.Context, staged []Staged) error {
	for i, st := range staged {
		if err := os.Rename(s.abs(st.TempKey), s.abs(st.FinalKey)); err != nil {
			for j := 0; j < i; j++ {
				os.Remove(s.abs(staged[j].FinalKey))
			}
			s.Abort(ctx, staged[i:])
			return fmt.Errorf("finalize %s -> %s: %w", st.TempKey, st.FinalKey, err)
		}
	}
	return nil
}

// Abort removes temporary files without publishing.
func (s *LocalStore) Abort(ctx context.Context, staged []Staged) error {
	var lastErr error
	for _, st := range staged {
		if err := os.Remove(s.abs(st.TempKey)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			lastErr = err
		}
	}
	return lastErr
}

// Head returns metadata about a stored object.
func (s *LocalStore) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	info, err := os.Stat(s.abs(key))
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	return &ObjectInfo{
		Key:     key,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// List returns all keys with the given prefix, skipping temp files.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) && !strings.Contains(key, ".tmp") {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return keys, nil
}

// Verify LocalStore implements AtomicStore.
var _ AtomicStore = (*LocalStore)(nil)
