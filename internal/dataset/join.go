package dataset

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrEmptyTable is returned when a merge step leaves no rows to measure retention on.
var ErrEmptyTable = errors.New("merged table has no rows")

// Suffixes applied to non-key columns present on both sides of a join.
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// JoinResult carries the merged table together with the retention diagnostics of
// each merge step.
type JoinResult struct {
	// Table has both an average rating and a production budget on every row.
	Table dataframe.DataFrame

	// RatingRetention is the fraction of basics-ratings join rows that had a rating.
	RatingRetention float64
	// BudgetRetention is the fraction of the second merge's rows that had a budget.
	BudgetRetention float64

	BasicsRows     int
	RatingJoinRows int
	RatedRows      int
	BudgetJoinRows int
	BudgetedRows   int
}

// FormatRetention renders a retention ratio as a plain decimal string.
func FormatRetention(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// Join merges basics with ratings on the title identifier, keeps rated rows, then
// merges with budgets on primary_title == movie and keeps rows with a budget.
//
// The title-name merge admits mismatches and repeats a row once per budget entry
// sharing its title, so the second step can yield more rows than it received.
func Join(src Sources) (*JoinResult, error) {
	res := &JoinResult{BasicsRows: src.Basics.Nrow()}

	rated, err := LeftJoin(src.Basics, src.Ratings, ColTitleID, ColTitleID)
	if err != nil {
		return nil, fmt.Errorf("merge ratings: %w", err)
	}
	res.RatingJoinRows = rated.Nrow()

	rated, res.RatingRetention, err = keepPresent(rated, ColAverageRating)
	if err != nil {
		return nil, fmt.Errorf("filter ratings: %w", err)
	}
	res.RatedRows = rated.Nrow()

	budgeted, err := LeftJoin(rated, src.Budgets, ColPrimaryTitle, ColMovie)
	if err != nil {
		return nil, fmt.Errorf("merge budgets: %w", err)
	}
	res.BudgetJoinRows = budgeted.Nrow()

	budgeted, res.BudgetRetention, err = keepPresent(budgeted, ColProductionBudget)
	if err != nil {
		return nil, fmt.Errorf("filter budgets: %w", err)
	}
	res.BudgetedRows = budgeted.Nrow()

	res.Table = budgeted
	return res, nil
}

// LeftJoin keeps every row of left, paired with each right row whose rightKey equals
// its leftKey. Unmatched rows get missing values on the right side. Missing keys never
// match. When both keys share a name only one key column is kept.
func LeftJoin(left, right dataframe.DataFrame, leftKey, rightKey string) (dataframe.DataFrame, error) {
	if left.Err != nil {
		return dataframe.DataFrame{}, left.Err
	}
	if right.Err != nil {
		return dataframe.DataFrame{}, right.Err
	}
	if !hasColumn(left, leftKey) {
		return dataframe.DataFrame{}, fmt.Errorf("left table has no column %q", leftKey)
	}
	if !hasColumn(right, rightKey) {
		return dataframe.DataFrame{}, fmt.Errorf("right table has no column %q", rightKey)
	}

	// Index right rows by key, preserving their order.
	index := make(map[string][]int)
	rkeys := right.Col(rightKey)
	for j := 0; j < rkeys.Len(); j++ {
		el := rkeys.Elem(j)
		if el.IsNA() {
			continue
		}
		k := el.String()
		index[k] = append(index[k], j)
	}

	var lrows, rrows []int
	lkeys := left.Col(leftKey)
	for i := 0; i < lkeys.Len(); i++ {
		var matches []int
		if el := lkeys.Elem(i); !el.IsNA() {
			matches = index[el.String()]
		}
		if len(matches) == 0 {
			lrows = append(lrows, i)
			rrows = append(rrows, -1)
			continue
		}
		for _, j := range matches {
			lrows = append(lrows, i)
			rrows = append(rrows, j)
		}
	}

	sameKey := leftKey == rightKey
	rightNames := make(map[string]bool)
	for _, name := range right.Names() {
		if sameKey && name == rightKey {
			continue
		}
		rightNames[name] = true
	}
	leftNames := make(map[string]bool)
	for _, name := range left.Names() {
		leftNames[name] = true
	}

	var cols []series.Series
	for _, name := range left.Names() {
		out := name
		if rightNames[name] && !(sameKey && name == leftKey) {
			out = name + LeftSuffix
		}
		cols = append(cols, take(left.Col(name), lrows, out))
	}
	for _, name := range right.Names() {
		if sameKey && name == rightKey {
			continue
		}
		out := name
		if leftNames[name] {
			out = name + RightSuffix
		}
		cols = append(cols, take(right.Col(name), rrows, out))
	}

	df := dataframe.New(cols...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("assemble joined table: %w", df.Err)
	}
	return df, nil
}

// keepPresent drops rows where col is missing and returns the fraction kept.
func keepPresent(df dataframe.DataFrame, col string) (dataframe.DataFrame, float64, error) {
	if !hasColumn(df, col) {
		return dataframe.DataFrame{}, 0, fmt.Errorf("table has no column %q", col)
	}
	if df.Nrow() == 0 {
		return dataframe.DataFrame{}, 0, ErrEmptyTable
	}

	var rows []int
	for i, na := range df.Col(col).IsNaN() {
		if !na {
			rows = append(rows, i)
		}
	}

	cols := make([]series.Series, 0, df.Ncol())
	for _, name := range df.Names() {
		cols = append(cols, take(df.Col(name), rows, name))
	}
	out := dataframe.New(cols...)
	if out.Err != nil {
		return dataframe.DataFrame{}, 0, out.Err
	}

	// One minus the missing share.
	missing := df.Nrow() - len(rows)
	return out, 1 - float64(missing)/float64(df.Nrow()), nil
}

// take builds a column from the given row positions of col. A position of -1
// produces a missing value.
func take(col series.Series, rows []int, name string) series.Series {
	values := make([]interface{}, len(rows))
	for k, i := range rows {
		if i < 0 {
			continue
		}
		values[k] = col.Elem(i)
	}
	return series.New(values, col.Type(), name)
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}
