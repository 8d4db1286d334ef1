package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"github.com/withObsrvr/obsrvr-movie-roi/internal/features"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/genres"
	"github.com/withObsrvr/obsrvr-movie-roi/internal/tables"
)

// ValidationResult contains the outcome of output validation.
type ValidationResult struct {
	Passed   bool
	Errors   []string
	Warnings []string
	RowCount int64
	ByteSize int64
}

// Error joins the validation errors into one message.
func (r ValidationResult) Error() string {
	return strings.Join(r.Errors, "; ")
}

// ValidateFeatures performs quality checks on a run's outputs before publish.
// This validates:
// - Non-empty feature table
// - Derived columns present with finite values
// - Every encoded output non-empty with a matching sha256 checksum
func ValidateFeatures(df dataframe.DataFrame, outputs []*tables.Encoded) ValidationResult {
	result := ValidationResult{
		Passed: true,
	}

	// Check 1: Non-empty table
	if df.Nrow() == 0 {
		result.Errors = append(result.Errors, "feature table has no rows")
		result.Passed = false
	}
	result.RowCount = int64(df.Nrow())

	// Check 2: Derived columns present and finite
	names := make(map[string]bool)
	for _, name := range df.Names() {
		names[name] = true
	}
	for _, col := range []string{features.ColNetRevenue, features.ColLogNumVotes, features.ColScaledRating} {
		if !names[col] {
			result.Errors = append(result.Errors, fmt.Sprintf("missing derived column %s", col))
			result.Passed = false
			continue
		}
		for i, v := range df.Col(col).Float() {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				result.Errors = append(result.Errors,
					fmt.Sprintf("non-finite %s at row %d", col, i))
				result.Passed = false
				break
			}
		}
	}

	// Check 3: Genres present somewhere
	if names[genres.Column] {
		missing := 0
		for _, na := range df.Col(genres.Column).IsNaN() {
			if na {
				missing++
			}
		}
		if df.Nrow() > 0 && missing == df.Nrow() {
			result.Warnings = append(result.Warnings, "no row has a genres value")
		}
	}

	// Output validation
	if len(outputs) == 0 {
		result.Errors = append(result.Errors, "no output tables encoded")
		result.Passed = false
	}
	for _, out := range outputs {
		key := out.Name + "." + out.Format
		if len(out.Data) == 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("empty data for %s", key))
			result.Passed = false
		}
		if out.Checksum == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("missing checksum for %s", key))
			result.Passed = false
		} else if !strings.HasPrefix(out.Checksum, "sha256:") {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("checksum for %s may be in non-standard format: %s",
					key, out.Checksum[:min(20, len(out.Checksum))]))
		} else if !out.Verify() {
			result.Errors = append(result.Errors, fmt.Sprintf("checksum mismatch for %s", key))
			result.Passed = false
		}
		result.ByteSize += int64(len(out.Data))
	}

	return result
}
