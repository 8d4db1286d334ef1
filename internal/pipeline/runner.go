// Package pipeline runs the movie ROI analysis end to end.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/withObsrvr/obsrvr-movie-roi/internal/config"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/dataset"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/features"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/genres"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/logging"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/metrics"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/source"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/storage"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/tables"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

// Runner orchestrates one analysis run.
type Runner struct {
	cfg     config.Config
	src     source.TableSource
	store   storage.ResultStore
	match   genres.Matcher
	metrics *metrics.Metrics
	log     *slog.Logger
}

// New creates a Runner. A nil m gets a fresh metrics registry.
func New(cfg config.Config, src source.TableSource, store storage.ResultStore, m *metrics.Metrics) (*Runner, error) {
	match, err := genres.MatcherFor(cfg.Genres.Match)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	return &Runner{
		cfg:     cfg,
		src:     src,
		store:   store,
		match:   match,
		metrics: m,
		log:     logging.Component("pipeline"),
	}, nil
}

// Metrics returns the metrics the runner records into.
func (r *Runner) Metrics() *metrics.Metrics {
	return r.metrics
}

func (r *Runner) paths() dataset.Paths {
	return dataset.Paths{
		Basics:  r.cfg.Inputs.Basics,
		Ratings: r.cfg.Inputs.Ratings,
		Budgets: r.cfg.Inputs.Budgets,
	}
}

// Run loads the three tables, joins them, derives features, counts subgenres
// and publishes the outputs. Nothing is published unless every stage succeeds.
// Once the join has succeeded a failing run still returns the partial report
// carrying the retention diagnostics alongside the error.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     logging.NewRunID(),
		Source:    r.src.URI(""),
		StartedAt: time.Now().UTC(),
	}
	ctx = logging.WithRunID(ctx, report.RunID)

	parent := r.log
	r.log = logging.RunLogger(report.RunID, report.Source).With("component", "pipeline")
	defer func() { r.log = parent }()
	defer r.writeMetrics()

	r.log.Info("starting run", "version", Version)

	var srcs dataset.Sources
	if err := r.stage(ctx, "load", func() error {
		var err error
		srcs, err = dataset.Load(ctx, r.src, r.paths())
		return err
	}); err != nil {
		return nil, err
	}
	r.metrics.SetRowsLoaded("basics", srcs.Basics.Nrow())
	r.metrics.SetRowsLoaded("ratings", srcs.Ratings.Nrow())
	r.metrics.SetRowsLoaded("budgets", srcs.Budgets.Nrow())

	var joined *dataset.JoinResult
	if err := r.stage(ctx, "join", func() error {
		var err error
		joined, err = dataset.Join(srcs)
		return err
	}); err != nil {
		return nil, err
	}
	report.RatingRetention = joined.RatingRetention
	report.BudgetRetention = joined.BudgetRetention
	report.BasicsRows = joined.BasicsRows
	report.RatingJoinRows = joined.RatingJoinRows
	report.RatedRows = joined.RatedRows
	report.BudgetJoinRows = joined.BudgetJoinRows
	report.BudgetedRows = joined.BudgetedRows
	r.metrics.SetStageRetention("ratings", joined.RatedRows, joined.RatingRetention)
	r.metrics.SetStageRetention("budgets", joined.BudgetedRows, joined.BudgetRetention)

	r.log.Info("joined tables",
		"rating_retention", dataset.FormatRetention(joined.RatingRetention),
		"budget_retention", dataset.FormatRetention(joined.BudgetRetention),
		"rows", joined.BudgetedRows,
	)

	if err := r.stage(ctx, "derive", func() error {
		var err error
		report.Features, err = features.Derive(joined.Table)
		return err
	}); err != nil {
		return report, err
	}

	if err := r.stage(ctx, "genres", func() error {
		return r.countGenres(report)
	}); err != nil {
		return report, err
	}

	var outputs []*tables.Encoded
	if err := r.stage(ctx, "encode", func() error {
		var err error
		outputs, err = r.encode(report)
		return err
	}); err != nil {
		return report, err
	}

	report.Validation = ValidateFeatures(report.Features, outputs)
	for _, w := range report.Validation.Warnings {
		r.log.Warn("validation warning", "warning", w)
	}
	if !report.Validation.Passed {
		r.metrics.IncErrors("validate")
		return report, fmt.Errorf("validate outputs: %s", report.Validation.Error())
	}

	if err := r.stage(ctx, "publish", func() error {
		return r.publish(ctx, report, outputs)
	}); err != nil {
		return report, err
	}

	report.Duration = time.Since(report.StartedAt)
	r.metrics.MarkRunComplete()
	r.log.Info("completed run",
		"duration", report.Duration.String(),
		"features", report.Features.Nrow(),
		"run_dir", r.store.URI(storage.RunDir(r.store.Prefix(), report.RunID)),
		"manifest", report.ManifestURI,
	)
	return report, nil
}

// stage runs fn, timing it and counting failures under name.
func (r *Runner) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	err := fn()
	r.metrics.ObserveStageDuration(name, time.Since(start).Seconds())
	if err != nil {
		r.metrics.IncErrors(name)
		r.log.Error("stage failed", "stage", name, "error", err)
		return err
	}
	r.log.Debug("stage complete", "stage", name, "duration", time.Since(start).String())
	return nil
}

func (r *Runner) countGenres(report *Report) error {
	report.Vocabulary = genres.FromColumn(report.Features.Col(genres.Column))

	withGenres, err := genres.DropMissing(report.Features)
	if err != nil {
		return fmt.Errorf("drop rows without genres: %w", err)
	}

	report.Counts, err = genres.CountWith(r.match, report.Vocabulary, withGenres)
	if err != nil {
		return fmt.Errorf("count subgenres: %w", err)
	}
	report.TopGenres = genres.TopN(report.Counts, r.cfg.Genres.Top)
	r.metrics.SetGenreCounts(len(report.Vocabulary), report.Counts)

	r.log.Info("counted subgenres",
		"vocabulary", len(report.Vocabulary),
		"rows_with_genres", withGenres.Nrow(),
	)
	return nil
}

func (r *Runner) encode(report *Report) ([]*tables.Encoded, error) {
	rows, err := tables.RowsFromFrame(report.Features)
	if err != nil {
		return nil, fmt.Errorf("convert features: %w", err)
	}

	parquetOut, err := tables.EncodeParquet(rows, tables.ParquetConfig{
		Compression: r.cfg.Output.ParquetCompression,
	})
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}
	outputs := []*tables.Encoded{parquetOut}

	if r.cfg.Output.WriteCSV {
		csvOut, err := tables.EncodeCSV(tables.MovieFeatureRow{}.TableName(), report.Features)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, csvOut)
	}

	countsOut, err := tables.EncodeCSV(tables.SubgenreCountTable, genres.Frame(report.TopGenres))
	if err != nil {
		return nil, err
	}
	return append(outputs, countsOut), nil
}

func (r *Runner) writeMetrics() {
	path := r.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := r.metrics.WriteTextfile(path); err != nil {
		r.log.Warn("failed to write metrics", "error", err)
	}
}
