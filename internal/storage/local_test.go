package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testManifest(runID string, data []byte) *Manifest {
	return &Manifest{
		Run: RunInfo{
			ID:              runID,
			Source:          "file:///data",
			Inputs:          map[string]string{"basics": "imdb.title.basics.csv.gz"},
			RatingRetention: 0.75,
			BudgetRetention: 0.5,
		},
		Tables: map[string]TableInfo{
			"movie_features": {
				File:     "movie_features.parquet",
				Format:   "parquet",
				Checksum: "sha256:abc123",
				RowCount: 10,
				ByteSize: int64(len(data)),
			},
		},
		Producer: ProducerInfo{
			Name:    "movie-roi",
			Version: "test",
		},
		CreatedAt: time.Now(),
	}
}

func TestOutputRefPaths(t *testing.T) {
	ref := OutputRef{RunID: "r1", Table: "movie_features", Format: "parquet"}

	if got := ref.Path("out/"); got != "out/runs/r1/movie_features.parquet" {
		t.Errorf("Path = %s", got)
	}
	if got := ref.FileName(); got != "movie_features.parquet" {
		t.Errorf("FileName = %s", got)
	}
	if got := ManifestPath("out/", "r1"); got != "out/runs/r1/_manifest.json" {
		t.Errorf("ManifestPath = %s", got)
	}
	if got := RunDir("", "r1"); got != "runs/r1" {
		t.Errorf("RunDir = %s", got)
	}
}

func TestLocalStoreAtomicOperations(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewLocalStore(tmpDir, "results/")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	ctx := context.Background()
	ref := OutputRef{RunID: "run-1", Table: "movie_features", Format: "parquet"}

	tableData := []byte("fake parquet data for testing")
	manifest := testManifest(ref.RunID, tableData)

	stagedTable, err := store.WriteTableTemp(ctx, ref, tableData)
	if err != nil {
		t.Fatalf("WriteTableTemp failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, stagedTable.TempKey)); os.IsNotExist(err) {
		t.Error("temp table file should exist")
	}

	stagedManifest, err := store.WriteManifestTemp(ctx, ref.RunID, manifest)
	if err != nil {
		t.Fatalf("WriteManifestTemp failed: %v", err)
	}

	finalTable := filepath.Join(tmpDir, ref.Path("results/"))
	finalManifest := filepath.Join(tmpDir, ManifestPath("results/", ref.RunID))

	if _, err := os.Stat(finalTable); !os.IsNotExist(err) {
		t.Error("final table should not exist before Finalize")
	}

	staged := []Staged{stagedTable, stagedManifest}
	if err := store.Finalize(ctx, staged); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if _, err := os.Stat(finalTable); os.IsNotExist(err) {
		t.Error("final table should exist after Finalize")
	}
	if _, err := os.Stat(finalManifest); os.IsNotExist(err) {
		t.Error("final manifest should exist after Finalize")
	}
	for _, st := range staged {
		if _, err := os.Stat(filepath.Join(tmpDir, st.TempKey)); !os.IsNotExist(err) {
			t.Errorf("temp file %s should be removed after Finalize", st.TempKey)
		}
	}

	data, err := os.ReadFile(finalTable)
	if err != nil {
		t.Fatalf("failed to read final table: %v", err)
	}
	if string(data) != string(tableData) {
		t.Error("table data mismatch")
	}

	raw, err := os.ReadFile(finalManifest)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	var back Manifest
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if back.Run.ID != "run-1" || back.Run.RatingRetention != 0.75 {
		t.Errorf("unexpected manifest run info: %+v", back.Run)
	}
	if back.Tables["movie_features"].RowCount != 10 {
		t.Errorf("unexpected manifest tables: %+v", back.Tables)
	}
}

func TestLocalStoreAbort(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewLocalStore(tmpDir, "")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	ctx := context.Background()
	ref := OutputRef{RunID: "run-2", Table: "subgenre_counts", Format: "csv"}

	stagedTable, _ := store.WriteTableTemp(ctx, ref, []byte("Genre,Count\n"))
	stagedManifest, _ := store.WriteManifestTemp(ctx, ref.RunID, testManifest(ref.RunID, nil))

	staged := []Staged{stagedTable, stagedManifest}
	if err := store.Abort(ctx, staged); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}

	for _, st := range staged {
		if _, err := os.Stat(filepath.Join(tmpDir, st.TempKey)); !os.IsNotExist(err) {
			t.Errorf("temp file %s should be removed after Abort", st.TempKey)
		}
	}
	if exists, _ := store.Exists(ctx, ref); exists {
		t.Error("aborted table should not exist")
	}
}

func TestLocalStoreHeadAndList(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewLocalStore(tmpDir, "results/")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	ctx := context.Background()
	ref := OutputRef{RunID: "run-3", Table: "movie_features", Format: "csv"}

	testData := []byte("primary_title,net_revenue\nAlpha,4\n")
	if err := store.WriteTable(ctx, ref, testData); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}
	if exists, err := store.Exists(ctx, ref); err != nil || !exists {
		t.Errorf("Exists = %v, %v", exists, err)
	}

	key := ref.Path("results/")
	info, err := store.Head(ctx, key)
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if info.Size != int64(len(testData)) {
		t.Errorf("Head size = %d, want %d", info.Size, len(testData))
	}

	keys, err := store.List(ctx, RunDir("results/", "run-3"))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != key {
		t.Errorf("List = %v, want [%s]", keys, key)
	}

	if uri := store.URI(key); uri != "file://"+filepath.Join(tmpDir, key) {
		t.Errorf("URI = %s", uri)
	}
}

func TestNewAtomicStore(t *testing.T) {
	store, err := NewAtomicStore(StorageConfig{Backend: "local", LocalDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewAtomicStore failed: %v", err)
	}
	if AsAtomic(store) == nil {
		t.Error("AsAtomic should return non-nil for LocalStore")
	}

	if _, err := NewAtomicStore(StorageConfig{Backend: "local"}); err == nil {
		t.Error("expected error without LocalDir")
	}
	if _, err := NewAtomicStore(StorageConfig{Backend: "gcs"}); err == nil {
		t.Error("expected error without GCSBucket")
	}
	if _, err := NewAtomicStore(StorageConfig{Backend: "ftp"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
