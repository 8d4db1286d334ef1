package tables

// MovieFeatureRow represents a single row in the movie_features table.
type MovieFeatureRow struct {
	// Title metadata
	PrimaryTitle   string  `parquet:"primary_title"`
	StartYear      *int64  `parquet:"start_year,optional"`
	RuntimeMinutes *int64  `parquet:"runtime_minutes,optional"`
	Genres         *string `parquet:"genres,optional"` // comma-joined tags

	// Ratings
	AverageRating float64 `parquet:"averagerating"`
	NumVotes      int64   `parquet:"numvotes"`

	// Money, in whole currency units
	ProductionBudget int64 `parquet:"production_budget"`
	DomesticGross    int64 `parquet:"domestic_gross"`
	WorldwideGross   int64 `parquet:"worldwide_gross"`

	// Derived
	NetRevenue   float64 `parquet:"net_revenue"` // millions
	LogNumVotes  float64 `parquet:"log_numvotes"`
	ScaledRating float64 `parquet:"scaled_rating"`
}

// TableName returns the canonical table name.
func (MovieFeatureRow) TableName() string {
	return "movie_features"
}

// SubgenreCountTable is the name of the ranked subgenre counts table.
const SubgenreCountTable = "subgenre_counts"

// ParquetConfig configures parquet output generation.
type ParquetConfig struct {
	Compression string // "snappy" | "zstd" | "gzip" | "none"
}

// DefaultParquetConfig returns sensible defaults.
func DefaultParquetConfig() ParquetConfig {
	return ParquetConfig{
		Compression: "snappy",
	}
}

// SchemaVersion is the feature table schema version recorded in each manifest.
// Increment this when making breaking changes.
const SchemaVersion = "1.0.0"
