package tables

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/parquet-go/parquet-go"
)

// Encoded is one serialized output table.
type Encoded struct {
	Name     string
	Format   string // "parquet" | "csv"
	Data     []byte
	Checksum string
	RowCount int64
}

// Verify reports whether Data still matches Checksum.
func (e *Encoded) Verify() bool {
	return VerifyChecksum(e.Data, e.Checksum)
}

// ComputeChecksum returns the sha256 digest of data as "sha256:<hex>".
func ComputeChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// VerifyChecksum checks data against a digest from ComputeChecksum.
func VerifyChecksum(data []byte, expected string) bool {
	return ComputeChecksum(data) == expected
}

// RowsFromFrame converts a derived feature table into typed rows.
func RowsFromFrame(df dataframe.DataFrame) ([]MovieFeatureRow, error) {
	if df.Err != nil {
		return nil, df.Err
	}

	cols := make(map[string]series.Series)
	for _, name := range df.Names() {
		cols[name] = df.Col(name)
	}
	required := []string{
		"primary_title", "start_year", "runtime_minutes", "genres",
		"averagerating", "numvotes", "production_budget", "domestic_gross", "worldwide_gross",
		"net_revenue", "log_numvotes", "scaled_rating",
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("feature table has no column %q", name)
		}
	}

	rows := make([]MovieFeatureRow, df.Nrow())
	for i := range rows {
		r := &rows[i]
		r.PrimaryTitle = cols["primary_title"].Elem(i).String()
		r.StartYear = optionalInt(cols["start_year"].Elem(i))
		r.RuntimeMinutes = optionalInt(cols["runtime_minutes"].Elem(i))
		if el := cols["genres"].Elem(i); !el.IsNA() {
			g := el.String()
			r.Genres = &g
		}
		r.AverageRating = cols["averagerating"].Elem(i).Float()

		var err error
		if r.NumVotes, err = requiredInt(cols["numvotes"].Elem(i), "numvotes", i); err != nil {
			return nil, err
		}
		if r.ProductionBudget, err = requiredInt(cols["production_budget"].Elem(i), "production_budget", i); err != nil {
			return nil, err
		}
		if r.DomesticGross, err = requiredInt(cols["domestic_gross"].Elem(i), "domestic_gross", i); err != nil {
			return nil, err
		}
		if r.WorldwideGross, err = requiredInt(cols["worldwide_gross"].Elem(i), "worldwide_gross", i); err != nil {
			return nil, err
		}

		r.NetRevenue = cols["net_revenue"].Elem(i).Float()
		r.LogNumVotes = cols["log_numvotes"].Elem(i).Float()
		r.ScaledRating = cols["scaled_rating"].Elem(i).Float()
	}
	return rows, nil
}

// EncodeParquet serializes rows to a parquet file.
func EncodeParquet(rows []MovieFeatureRow, cfg ParquetConfig) (*Encoded, error) {
	var buf bytes.Buffer

	var opts []parquet.WriterOption
	switch cfg.Compression {
	case "snappy", "":
		opts = append(opts, parquet.Compression(&parquet.Snappy))
	case "zstd":
		opts = append(opts, parquet.Compression(&parquet.Zstd))
	case "gzip":
		opts = append(opts, parquet.Compression(&parquet.Gzip))
	case "none":
		opts = append(opts, parquet.Compression(&parquet.Uncompressed))
	default:
		return nil, fmt.Errorf("unknown parquet compression: %s", cfg.Compression)
	}

	if err := parquet.Write(&buf, rows, opts...); err != nil {
		return nil, fmt.Errorf("write parquet: %w", err)
	}

	data := buf.Bytes()
	return &Encoded{
		Name:     MovieFeatureRow{}.TableName(),
		Format:   "parquet",
		Data:     data,
		Checksum: ComputeChecksum(data),
		RowCount: int64(len(rows)),
	}, nil
}

// EncodeCSV serializes any table as CSV with a header row.
func EncodeCSV(name string, df dataframe.DataFrame) (*Encoded, error) {
	if df.Err != nil {
		return nil, df.Err
	}

	var buf bytes.Buffer
	if err := df.WriteCSV(&buf); err != nil {
		return nil, fmt.Errorf("write csv %s: %w", name, err)
	}

	data := buf.Bytes()
	return &Encoded{
		Name:     name,
		Format:   "csv",
		Data:     data,
		Checksum: ComputeChecksum(data),
		RowCount: int64(df.Nrow()),
	}, nil
}

// DecodeParquet reads rows written by EncodeParquet.
func DecodeParquet(data []byte) ([]MovieFeatureRow, error) {
	rows, err := parquet.Read[MovieFeatureRow](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rows, nil
}

func optionalInt(el series.Element) *int64 {
	if el.IsNA() {
		return nil
	}
	f := el.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	v := int64(f)
	return &v
}

func requiredInt(el series.Element, col string, row int) (int64, error) {
	if el.IsNA() {
		return 0, fmt.Errorf("%s missing at row %d", col, row)
	}
	v, err := el.Int()
	if err != nil {
		return 0, fmt.Errorf("%s at row %d: %w", col, row, err)
	}
	return int64(v), nil
}
