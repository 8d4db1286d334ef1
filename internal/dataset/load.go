// Package dataset loads the title, rating and budget tables and merges them into
// one movie table.
package dataset

import (
	"context"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/withObsrvr/obsrvr-movie-roi/internal/logging"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/source"
)

// Column names shared across the three inputs.
const (
	ColTitleID          = "tconst"
	ColPrimaryTitle     = "primary_title"
	ColOriginalTitle    = "original_title"
	ColStartYear        = "start_year"
	ColRuntimeMinutes   = "runtime_minutes"
	ColGenres           = "genres"
	ColAverageRating    = "averagerating"
	ColNumVotes         = "numvotes"
	ColBudgetID         = "id"
	ColReleaseDate      = "release_date"
	ColMovie            = "movie"
	ColProductionBudget = "production_budget"
	ColDomesticGross    = "domestic_gross"
	ColWorldwideGross   = "worldwide_gross"
)

// Paths names the three input tables within a source.
type Paths struct {
	Basics  string
	Ratings string
	Budgets string
}

// DefaultPaths are the file names of the published exports.
func DefaultPaths() Paths {
	return Paths{
		Basics:  "imdb.title.basics.csv.gz",
		Ratings: "imdb.title.ratings.csv.gz",
		Budgets: "tn.movie_budgets.csv.gz",
	}
}

// Sources holds the three raw tables.
type Sources struct {
	Basics  dataframe.DataFrame
	Ratings dataframe.DataFrame
	Budgets dataframe.DataFrame
}

// Column types are pinned so that currency strings stay strings and runtimes with
// decimal exports ("117.0") do not silently turn into missing ints.
var (
	basicsTypes = map[string]series.Type{
		ColTitleID:        series.String,
		ColPrimaryTitle:   series.String,
		ColOriginalTitle:  series.String,
		ColStartYear:      series.Int,
		ColRuntimeMinutes: series.Float,
		ColGenres:         series.String,
	}
	ratingsTypes = map[string]series.Type{
		ColTitleID:       series.String,
		ColAverageRating: series.Float,
		ColNumVotes:      series.Int,
	}
	budgetsTypes = map[string]series.Type{
		ColBudgetID:         series.Int,
		ColReleaseDate:      series.String,
		ColMovie:            series.String,
		ColProductionBudget: series.String,
		ColDomesticGross:    series.String,
		ColWorldwideGross:   series.String,
	}
)

// Load reads the three input tables. Any missing or unreadable table fails the
// whole load.
func Load(ctx context.Context, src source.TableSource, paths Paths) (Sources, error) {
	log := logging.Component("dataset").With("run_id", logging.RunID(ctx))

	basics, err := source.ReadTable(ctx, src, paths.Basics, basicsTypes)
	if err != nil {
		return Sources{}, fmt.Errorf("load basics: %w", err)
	}
	ratings, err := source.ReadTable(ctx, src, paths.Ratings, ratingsTypes)
	if err != nil {
		return Sources{}, fmt.Errorf("load ratings: %w", err)
	}
	budgets, err := source.ReadTable(ctx, src, paths.Budgets, budgetsTypes)
	if err != nil {
		return Sources{}, fmt.Errorf("load budgets: %w", err)
	}

	log.Info("loaded tables",
		"basics_rows", basics.Nrow(),
		"ratings_rows", ratings.Nrow(),
		"budgets_rows", budgets.Nrow(),
	)

	return Sources{Basics: basics, Ratings: ratings, Budgets: budgets}, nil
}
