// Package features cleans the merged movie table and derives the revenue and
// popularity columns used by the analysis.
package features

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/withObsrvr/obsrvr-movie-roi/internal/dataset"
)

// Derived column names.
const (
	ColNetRevenue   = "net_revenue"
	ColLogNumVotes  = "log_numvotes"
	ColScaledRating = "scaled_rating"
)

// ScaleDivisor normalizes log_numvotes * averagerating. Empirical.
const ScaleDivisor = 127

// Columns are the source columns kept by Derive, in output order.
var Columns = []string{
	dataset.ColPrimaryTitle,
	dataset.ColStartYear,
	dataset.ColRuntimeMinutes,
	dataset.ColGenres,
	dataset.ColAverageRating,
	dataset.ColNumVotes,
	dataset.ColProductionBudget,
	dataset.ColDomesticGross,
	dataset.ColWorldwideGross,
}

// CurrencyColumns hold formatted amounts that Derive converts to integers.
var CurrencyColumns = []string{
	dataset.ColProductionBudget,
	dataset.ColDomesticGross,
	dataset.ColWorldwideGross,
}

// Derive returns a new table with Columns, currency columns parsed to integers, and
// net_revenue (millions), log_numvotes and scaled_rating appended. The input must
// already be filtered to rows with a rating and a budget; it is left untouched.
func Derive(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}

	out := df.Select(Columns)
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("select columns: %w", out.Err)
	}

	if err := checkFiltered(out); err != nil {
		return dataframe.DataFrame{}, err
	}

	for _, name := range CurrencyColumns {
		parsed, err := parseCurrencyColumn(out.Col(name))
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		out = out.Mutate(parsed)
		if out.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("replace %s: %w", name, out.Err)
		}
	}

	budget, err := out.Col(dataset.ColProductionBudget).Int()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read %s: %w", dataset.ColProductionBudget, err)
	}
	worldwide, err := out.Col(dataset.ColWorldwideGross).Int()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read %s: %w", dataset.ColWorldwideGross, err)
	}
	votes := out.Col(dataset.ColNumVotes).Float()
	ratings := out.Col(dataset.ColAverageRating).Float()

	n := out.Nrow()
	netRevenue := make([]float64, n)
	logVotes := make([]float64, n)
	scaled := make([]float64, n)
	for i := 0; i < n; i++ {
		netRevenue[i] = NetRevenue(worldwide[i], budget[i])

		lv, err := LogVotes(votes[i])
		if err != nil {
			return dataframe.DataFrame{}, &DomainError{Row: i, NumVotes: votes[i]}
		}
		logVotes[i] = lv
		scaled[i] = ScaledRating(lv, ratings[i])
	}

	for _, s := range []series.Series{
		series.New(netRevenue, series.Float, ColNetRevenue),
		series.New(logVotes, series.Float, ColLogNumVotes),
		series.New(scaled, series.Float, ColScaledRating),
	} {
		out = out.Mutate(s)
		if out.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("add %s: %w", s.Name, out.Err)
		}
	}

	return out, nil
}

// NetRevenue is worldwide gross minus production budget, in millions.
func NetRevenue(worldwideGross, productionBudget int) float64 {
	return float64(worldwideGross-productionBudget) / 1_000_000
}

// LogVotes is the natural log of a vote count. Non-positive or missing counts fail.
func LogVotes(numVotes float64) (float64, error) {
	if math.IsNaN(numVotes) || numVotes <= 0 {
		return 0, &DomainError{Row: -1, NumVotes: numVotes}
	}
	return math.Log(numVotes), nil
}

// ScaledRating combines vote magnitude and average rating.
func ScaledRating(logNumVotes, averageRating float64) float64 {
	return logNumVotes * averageRating / ScaleDivisor
}

// checkFiltered enforces the join's output contract.
func checkFiltered(df dataframe.DataFrame) error {
	for _, name := range []string{dataset.ColAverageRating, dataset.ColProductionBudget} {
		for i, na := range df.Col(name).IsNaN() {
			if na {
				return fmt.Errorf("%w: %s missing at row %d", ErrUnfilteredInput, name, i)
			}
		}
	}
	return nil
}
