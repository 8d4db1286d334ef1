package pipeline

import (
	"time"

	"github.com/go-gota/gota/dataframe"

	"github.com/withObsrvr/obsrvr-movie-roi/internal/genres"
)

// Report is the outcome of one analysis run.
type Report struct {
	RunID  string
	Source string

	// Join diagnostics
	RatingRetention float64
	BudgetRetention float64
	BasicsRows      int
	RatingJoinRows  int
	RatedRows       int
	BudgetJoinRows  int
	BudgetedRows    int

	// Features is the derived per-title table.
	Features dataframe.DataFrame

	Vocabulary []string
	Counts     map[string]int
	TopGenres  []genres.TagCount

	Validation  ValidationResult
	Outputs     []OutputInfo
	ManifestURI string

	StartedAt time.Time
	Duration  time.Duration
}

// OutputInfo describes one published output file.
type OutputInfo struct {
	Table    string
	Format   string
	URI      string
	Checksum string
	RowCount int64
	ByteSize int64
}
