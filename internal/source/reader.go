package source

import (
	"context"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// MissingValues are the cell spellings loaded as NA. Empty cells count as missing.
var MissingValues = []string{"", "NA", "NaN", "<nil>", `\N`}

// ReadTable loads a comma-delimited table with a header row. Columns listed in types
// get that type; the rest are detected from their contents.
func ReadTable(ctx context.Context, src TableSource, name string, types map[string]series.Type) (dataframe.DataFrame, error) {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer rc.Close()

	opts := []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.NaNValues(MissingValues),
	}
	if len(types) > 0 {
		opts = append(opts, dataframe.WithTypes(types))
	}

	df := dataframe.ReadCSV(rc, opts...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read table %s: %w", src.URI(name), df.Err)
	}
	return df, nil
}
