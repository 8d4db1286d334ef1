package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/withObsrvr/obsrvr-movie-roi/internal/storage"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/tables"
)

var (
	// ErrOutputExists is returned when a run directory already holds an output.
	ErrOutputExists = errors.New("output already exists")

	// ErrPublishMismatch is returned when the published run directory does not
	// match what was written.
	ErrPublishMismatch = errors.New("published objects do not match outputs")
)

// publish writes every output and then the manifest.
//
// The order of operations is:
//  1. Check that no output of this run exists yet
//  2. Write tables (temp when the store supports it)
//  3. Write manifest (temp when the store supports it)
//  4. Finalize everything together
//  5. Read back the run directory and compare object sizes
func (r *Runner) publish(ctx context.Context, report *Report, outputs []*tables.Encoded) error {
	prefix := r.store.Prefix()

	refs := make([]storage.OutputRef, len(outputs))
	for i, out := range outputs {
		refs[i] = storage.OutputRef{RunID: report.RunID, Table: out.Name, Format: out.Format}
		exists, err := r.store.Exists(ctx, refs[i])
		if err != nil {
			return fmt.Errorf("check %s: %w", refs[i].Path(prefix), err)
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrOutputExists, refs[i].Path(prefix))
		}
	}

	manifest := r.buildManifest(report, refs, outputs)

	if atomic := storage.AsAtomic(r.store); atomic != nil {
		if err := r.publishAtomic(ctx, atomic, report.RunID, refs, outputs, manifest); err != nil {
			return err
		}
		if err := verifyPublished(ctx, atomic, report.RunID, refs, outputs); err != nil {
			return err
		}
	} else {
		for i, out := range outputs {
			if err := r.store.WriteTable(ctx, refs[i], out.Data); err != nil {
				return fmt.Errorf("write %s: %w", refs[i].FileName(), err)
			}
		}
		if err := r.store.WriteManifest(ctx, report.RunID, manifest); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	}

	for i, out := range outputs {
		report.Outputs = append(report.Outputs, OutputInfo{
			Table:    out.Name,
			Format:   out.Format,
			URI:      r.store.URI(refs[i].Path(prefix)),
			Checksum: out.Checksum,
			RowCount: out.RowCount,
			ByteSize: int64(len(out.Data)),
		})
		r.metrics.SetOutput(out.Name, out.Format, int64(len(out.Data)), out.RowCount)
		r.log.Debug("wrote table",
			"table", out.Name,
			"format", out.Format,
			"rows", out.RowCount,
			"bytes", len(out.Data),
			"checksum", out.Checksum,
		)
	}
	report.ManifestURI = r.store.URI(storage.ManifestPath(prefix, report.RunID))
	return nil
}

func (r *Runner) publishAtomic(ctx context.Context, store storage.AtomicStore, runID string,
	refs []storage.OutputRef, outputs []*tables.Encoded, manifest *storage.Manifest) error {
	var staged []storage.Staged

	for i, out := range outputs {
		st, err := store.WriteTableTemp(ctx, refs[i], out.Data)
		if err != nil {
			store.Abort(ctx, staged)
			return fmt.Errorf("write temp %s: %w", refs[i].FileName(), err)
		}
		staged = append(staged, st)
	}

	st, err := store.WriteManifestTemp(ctx, runID, manifest)
	if err != nil {
		store.Abort(ctx, staged)
		return fmt.Errorf("write temp manifest: %w", err)
	}
	staged = append(staged, st)

	// Finalize handles its own cleanup on failure
	if err := store.Finalize(ctx, staged); err != nil {
		return fmt.Errorf("finalize run %s: %w", runID, err)
	}
	return nil
}

func verifyPublished(ctx context.Context, store storage.AtomicStore, runID string,
	refs []storage.OutputRef, outputs []*tables.Encoded) error {
	prefix := store.Prefix()

	keys, err := store.List(ctx, storage.RunDir(prefix, runID)+"/")
	if err != nil {
		return fmt.Errorf("list run %s: %w", runID, err)
	}
	// outputs plus the manifest
	if len(keys) != len(outputs)+1 {
		return fmt.Errorf("%w: run %s holds %d objects, want %d",
			ErrPublishMismatch, runID, len(keys), len(outputs)+1)
	}

	for i, out := range outputs {
		key := refs[i].Path(prefix)
		info, err := store.Head(ctx, key)
		if err != nil {
			return fmt.Errorf("head %s: %w", key, err)
		}
		if info.Size != int64(len(out.Data)) {
			return fmt.Errorf("%w: %s is %d bytes, want %d",
				ErrPublishMismatch, key, info.Size, len(out.Data))
		}
	}
	return nil
}

func (r *Runner) buildManifest(report *Report, refs []storage.OutputRef, outputs []*tables.Encoded) *storage.Manifest {
	tableInfo := make(map[string]storage.TableInfo, len(outputs))
	for i, out := range outputs {
		tableInfo[refs[i].FileName()] = storage.TableInfo{
			File:     refs[i].FileName(),
			Format:   out.Format,
			Checksum: out.Checksum,
			RowCount: out.RowCount,
			ByteSize: int64(len(out.Data)),
		}
	}

	paths := r.paths()
	return &storage.Manifest{
		Run: storage.RunInfo{
			ID:     report.RunID,
			Source: report.Source,
			Inputs: map[string]string{
				"basics":  r.src.URI(paths.Basics),
				"ratings": r.src.URI(paths.Ratings),
				"budgets": r.src.URI(paths.Budgets),
			},
			RatingRetention: report.RatingRetention,
			BudgetRetention: report.BudgetRetention,
			Vocabulary:      report.Vocabulary,
		},
		Tables: tableInfo,
		Producer: storage.ProducerInfo{
			Name:          "movie-roi",
			Version:       Version,
			GitSHA:        GitSHA,
			SchemaVersion: tables.SchemaVersion,
		},
		CreatedAt: time.Now().UTC(),
	}
}
