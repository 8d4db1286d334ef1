package dataset

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/series"
	"github.com/klauspost/compress/gzip"

	"github.com/withObsrvr/obsrvr-movie-roi/internal/source"
)

const (
	basicsCSV = "tconst,primary_title,original_title,start_year,runtime_minutes,genres\n" +
		"tt0063540,Sunghursh,Sunghursh,2013,175.0,\"Action,Crime,Drama\"\n" +
		"tt0066787,One Day Before the Rainy Season,Ashad Ka Ek Din,2019,114.0,\"Biography,Drama\"\n" +
		"tt0069049,The Other Side of the Wind,The Other Side of the Wind,2018,122.0,Drama\n" +
		"tt0100275,The Wandering Soap Opera,La Telenovela Errante,2017,80.0,\n"
	ratingsCSV = "tconst,averagerating,numvotes\n" +
		"tt0063540,7.0,77\n" +
		"tt0069049,6.9,4517\n" +
		"tt0100275,6.5,119\n"
	budgetsCSV = "id,release_date,movie,production_budget,domestic_gross,worldwide_gross\n" +
		"1,\"Dec 18, 2009\",The Other Side of the Wind,\"$425,000,000\",\"$760,507,625\",\"$2,776,345,279\"\n" +
		"2,\"May 20, 2011\",Sunghursh,\"$410,600,000\",\"$241,063,875\",\"$1,045,663,875\"\n"
)

func writeGzip(t *testing.T, dir, name, content string) {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadAndJoin(t *testing.T) {
	dir := t.TempDir()
	paths := DefaultPaths()
	writeGzip(t, dir, paths.Basics, basicsCSV)
	writeGzip(t, dir, paths.Ratings, ratingsCSV)
	writeGzip(t, dir, paths.Budgets, budgetsCSV)

	src, err := source.NewLocalSource(dir)
	if err != nil {
		t.Fatalf("NewLocalSource failed: %v", err)
	}

	srcs, err := Load(context.Background(), src, paths)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if srcs.Basics.Nrow() != 4 || srcs.Ratings.Nrow() != 3 || srcs.Budgets.Nrow() != 2 {
		t.Fatalf("unexpected row counts: %d/%d/%d", srcs.Basics.Nrow(), srcs.Ratings.Nrow(), srcs.Budgets.Nrow())
	}
	if got := srcs.Basics.Col(ColRuntimeMinutes).Type(); got != series.Float {
		t.Errorf("runtime_minutes should load as float, got %s", got)
	}
	if got := srcs.Budgets.Col(ColProductionBudget).Type(); got != series.String {
		t.Errorf("production_budget should stay a string, got %s", got)
	}

	res, err := Join(srcs)
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if res.RatingRetention != 0.75 {
		t.Errorf("RatingRetention = %v, want 0.75", res.RatingRetention)
	}
	if res.BudgetedRows != 2 {
		t.Errorf("expected 2 budgeted rows, got %d", res.BudgetedRows)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	dir := t.TempDir()
	paths := DefaultPaths()
	writeGzip(t, dir, paths.Basics, basicsCSV)
	writeGzip(t, dir, paths.Ratings, ratingsCSV)

	src, err := source.NewLocalSource(dir)
	if err != nil {
		t.Fatalf("NewLocalSource failed: %v", err)
	}

	_, err = Load(context.Background(), src, paths)
	if !errors.Is(err, source.ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}
