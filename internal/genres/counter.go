package genres

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Column is the table column holding comma-joined genres.
const Column = "genres"

// ErrGenresColumn is returned when a table has no usable genres column.
var ErrGenresColumn = errors.New("genres column missing or not string-typed")

// GenresCellError reports a row whose genres cell is missing. Callers are expected
// to drop such rows (see DropMissing) before counting.
type GenresCellError struct {
	Row int
}

func (e *GenresCellError) Error() string {
	return fmt.Sprintf("genres cell at row %d is missing", e.Row)
}

// Matcher reports whether tag occurs in a genres field.
type Matcher func(field, tag string) bool

// MatchSubstring matches a tag anywhere in the field. A tag contained in a longer tag
// ("Sci" in "Sci-Fi") matches too.
func MatchSubstring(field, tag string) bool {
	return strings.Contains(field, tag)
}

// MatchToken matches a tag only when it equals one of the field's comma-separated tokens.
func MatchToken(field, tag string) bool {
	for _, tok := range strings.Split(field, Separator) {
		if tok == tag {
			return true
		}
	}
	return false
}

// MatcherFor resolves a matcher name from configuration.
func MatcherFor(name string) (Matcher, error) {
	switch strings.ToLower(name) {
	case "", "substring":
		return MatchSubstring, nil
	case "token":
		return MatchToken, nil
	default:
		return nil, fmt.Errorf("unknown genre match mode: %s", name)
	}
}

// Count counts, for each tag in vocab, the rows whose genres field contains it as a
// substring. Tags that never match are absent from the result.
func Count(vocab []string, df dataframe.DataFrame) (map[string]int, error) {
	return CountWith(MatchSubstring, vocab, df)
}

// CountWith is Count with an explicit matcher.
func CountWith(match Matcher, vocab []string, df dataframe.DataFrame) (map[string]int, error) {
	col, err := genresColumn(df)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for i := 0; i < col.Len(); i++ {
		el := col.Elem(i)
		if el.IsNA() {
			return nil, &GenresCellError{Row: i}
		}
		field := el.String()
		for _, tag := range vocab {
			if match(field, tag) {
				counts[tag]++
			}
		}
	}
	return counts, nil
}

// DropMissing returns the rows of df whose genres cell is present.
func DropMissing(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	col, err := genresColumn(df)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	var keep []int
	for i, na := range col.IsNaN() {
		if !na {
			keep = append(keep, i)
		}
	}
	if len(keep) == df.Nrow() {
		return df.Copy(), nil
	}

	// Subset needs at least one index; build an empty frame from the column
	// prototypes when nothing survives.
	if len(keep) == 0 {
		cols := make([]series.Series, 0, df.Ncol())
		for _, name := range df.Names() {
			cols = append(cols, df.Col(name).Empty())
		}
		return dataframe.New(cols...), nil
	}

	out := df.Subset(keep)
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("subset rows with genres: %w", out.Err)
	}
	return out, nil
}

func genresColumn(df dataframe.DataFrame) (series.Series, error) {
	if df.Err != nil {
		return series.Series{}, df.Err
	}
	found := false
	for _, name := range df.Names() {
		if name == Column {
			found = true
			break
		}
	}
	if !found {
		return series.Series{}, ErrGenresColumn
	}
	col := df.Col(Column)
	if col.Type() != series.String {
		return series.Series{}, fmt.Errorf("%w: got %s", ErrGenresColumn, col.Type())
	}
	return col, nil
}

// TagCount is one row of a ranked subgenre table.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Rank orders counts by descending count, breaking ties by tag.
func Rank(counts map[string]int) []TagCount {
	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// TopN returns at most n entries of Rank(counts). n <= 0 returns all of them.
func TopN(counts map[string]int, n int) []TagCount {
	ranked := Rank(counts)
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Frame renders ranked counts as a two-column table (Genre, Count).
func Frame(ranked []TagCount) dataframe.DataFrame {
	tags := make([]string, len(ranked))
	counts := make([]int, len(ranked))
	for i, tc := range ranked {
		tags[i] = tc.Tag
		counts[i] = tc.Count
	}
	return dataframe.New(
		series.New(tags, series.String, "Genre"),
		series.New(counts, series.Int, "Count"),
	)
}
