package features

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-gota/gota/series"
)

var errMissingAmount = errors.New("missing amount")

// ParseCurrency converts a formatted amount such as "$425,000,000" into whole
// currency units. Thousands separators are removed and dollar signs trimmed from
// both ends; anything else left over is an error.
func ParseCurrency(s string) (int, error) {
	cleaned := strings.Trim(strings.ReplaceAll(s, ",", ""), "$")
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// parseCurrencyColumn converts a string column of formatted amounts to an int column
// with the same name.
func parseCurrencyColumn(col series.Series) (series.Series, error) {
	if col.Type() != series.String {
		return series.Series{}, &ColumnTypeError{Column: col.Name, Got: col.Type(), Want: series.String}
	}

	values := make([]int, col.Len())
	for i := 0; i < col.Len(); i++ {
		el := col.Elem(i)
		if el.IsNA() {
			return series.Series{}, &ParseError{Column: col.Name, Row: i, Value: "NaN", Err: errMissingAmount}
		}
		n, err := ParseCurrency(el.String())
		if err != nil {
			return series.Series{}, &ParseError{Column: col.Name, Row: i, Value: el.String(), Err: err}
		}
		values[i] = n
	}
	return series.New(values, series.Int, col.Name), nil
}
