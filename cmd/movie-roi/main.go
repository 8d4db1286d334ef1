package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/withObsrvr/obsrvr-movie-roi/internal/config"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/dataset"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/logging"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/metrics"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/pipeline"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/source"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("[main] movie-roi %s (%s)", pipeline.Version, pipeline.GitSHA)

	cfg := config.MustLoad()
	logging.Setup(logging.Config{
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown handler
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		log.Printf("[shutdown] received signal: %v", sig)
		cancel()
	}()

	// Create table source
	srcCfg := source.SourceConfig{
		Mode:       cfg.Source.Mode,
		LocalPath:  cfg.Source.LocalPath,
		GCSBucket:  cfg.Source.Bucket,
		GCSPrefix:  cfg.Source.Prefix,
		S3Bucket:   cfg.Source.Bucket,
		S3Prefix:   cfg.Source.Prefix,
		S3Endpoint: cfg.Source.S3Endpoint,
		S3Region:   cfg.Source.S3Region,
	}

	src, err := source.NewTableSource(srcCfg)
	if err != nil {
		log.Fatalf("[main] failed to create source: %v", err)
	}
	defer src.Close()

	// Create storage backend
	storeCfg := storage.StorageConfig{
		Backend:    cfg.Storage.Backend,
		LocalDir:   cfg.Storage.LocalDir,
		GCSBucket:  cfg.Storage.Bucket,
		S3Bucket:   cfg.Storage.Bucket,
		S3Endpoint: cfg.Storage.S3Endpoint,
		S3Region:   cfg.Storage.S3Region,
		Prefix:     cfg.Storage.Prefix,
	}

	store, err := storage.NewResultStore(storeCfg)
	if err != nil {
		log.Fatalf("[main] failed to create storage: %v", err)
	}
	defer store.Close()

	// Create and run the analysis
	r, err := pipeline.New(cfg, src, store, metrics.New(cfg.Metrics.Namespace))
	if err != nil {
		log.Fatalf("[main] failed to create pipeline: %v", err)
	}

	report, err := r.Run(ctx)
	if report != nil {
		fmt.Printf("Percent of rows left after first merge: %s\n", dataset.FormatRetention(report.RatingRetention))
		fmt.Printf("Percent of rows left after second merge: %s\n", dataset.FormatRetention(report.BudgetRetention))
	}
	if err != nil {
		if ctx.Err() != nil {
			log.Printf("[main] shutdown complete")
			return
		}
		log.Fatalf("[main] run failed: %v", err)
	}

	fmt.Println()
	fmt.Println("Top subgenres:")
	for _, tc := range report.TopGenres {
		fmt.Printf("  %-20s %d\n", tc.Tag, tc.Count)
	}
	fmt.Println()
	fmt.Printf("Manifest: %s\n", report.ManifestURI)

	log.Printf("[main] run %s finished in %s", report.RunID, report.Duration)
}
