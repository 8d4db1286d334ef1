package genres

import (
	"errors"
	"reflect"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func genresFrame(values ...string) dataframe.DataFrame {
	return dataframe.New(series.New(values, series.String, Column))
}

func TestCount_SubstringMatches(t *testing.T) {
	df := genresFrame("Action,Drama", "Comedy,Action", "Drama")

	got, err := Count([]string{"Action", "Comedy"}, df)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}

	want := map[string]int{"Action": 2, "Comedy": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Count() = %v, want %v", got, want)
	}
}

func TestCount_OverlappingTagsBothCounted(t *testing.T) {
	df := genresFrame("Sci-Fi")

	got, err := Count([]string{"Sci", "Sci-Fi"}, df)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if got["Sci"] != 1 || got["Sci-Fi"] != 1 {
		t.Errorf("substring matching should count both tags, got %v", got)
	}
}

func TestCountWith_TokenMatcher(t *testing.T) {
	df := genresFrame("Sci-Fi", "Sci,Drama")

	got, err := CountWith(MatchToken, []string{"Sci", "Sci-Fi"}, df)
	if err != nil {
		t.Fatalf("CountWith failed: %v", err)
	}
	want := map[string]int{"Sci": 1, "Sci-Fi": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CountWith(MatchToken) = %v, want %v", got, want)
	}
}

func TestCount_UnmatchedTagsAbsent(t *testing.T) {
	df := genresFrame("Drama")

	got, err := Count([]string{"Drama", "Western"}, df)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if _, ok := got["Western"]; ok {
		t.Errorf("tag with no matches should be absent, got %v", got)
	}
}

func TestCount_MissingCellFails(t *testing.T) {
	df := genresFrame("Drama", "NaN")

	_, err := Count([]string{"Drama"}, df)
	var cellErr *GenresCellError
	if !errors.As(err, &cellErr) {
		t.Fatalf("expected GenresCellError, got %v", err)
	}
	if cellErr.Row != 1 {
		t.Errorf("expected row 1, got %d", cellErr.Row)
	}
}

func TestCount_BadColumn(t *testing.T) {
	noGenres := dataframe.New(series.New([]string{"x"}, series.String, "title"))
	if _, err := Count([]string{"x"}, noGenres); !errors.Is(err, ErrGenresColumn) {
		t.Errorf("expected ErrGenresColumn for missing column, got %v", err)
	}

	numeric := dataframe.New(series.New([]int{1}, series.Int, Column))
	if _, err := Count([]string{"1"}, numeric); !errors.Is(err, ErrGenresColumn) {
		t.Errorf("expected ErrGenresColumn for int column, got %v", err)
	}
}

func TestDropMissing(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"A", "B", "C"}, series.String, "primary_title"),
		series.New([]string{"Drama", "NaN", "Comedy"}, series.String, Column),
	)

	out, err := DropMissing(df)
	if err != nil {
		t.Fatalf("DropMissing failed: %v", err)
	}
	if out.Nrow() != 2 {
		t.Fatalf("expected 2 rows, got %d", out.Nrow())
	}
	if got := out.Col("primary_title").Records(); !reflect.DeepEqual(got, []string{"A", "C"}) {
		t.Errorf("unexpected titles %v", got)
	}
	if df.Nrow() != 3 {
		t.Errorf("input frame should be untouched")
	}

	counts, err := Count(FromColumn(out.Col(Column)), out)
	if err != nil {
		t.Fatalf("Count after DropMissing failed: %v", err)
	}
	if counts["Drama"] != 1 || counts["Comedy"] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
}

func TestDropMissing_AllMissing(t *testing.T) {
	out, err := DropMissing(genresFrame("NaN", "NaN"))
	if err != nil {
		t.Fatalf("DropMissing failed: %v", err)
	}
	if out.Nrow() != 0 {
		t.Errorf("expected empty frame, got %d rows", out.Nrow())
	}
}

func TestRankAndTopN(t *testing.T) {
	counts := map[string]int{"Drama": 5, "Action": 3, "Comedy": 5, "Horror": 1}

	got := Rank(counts)
	want := []TagCount{{"Comedy", 5}, {"Drama", 5}, {"Action", 3}, {"Horror", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank() = %v, want %v", got, want)
	}

	top := TopN(counts, 2)
	if len(top) != 2 || top[0].Tag != "Comedy" || top[1].Tag != "Drama" {
		t.Errorf("TopN(2) = %v", top)
	}
	if len(TopN(counts, 0)) != 4 {
		t.Errorf("TopN(0) should return everything")
	}

	frame := Frame(top)
	if frame.Nrow() != 2 || !reflect.DeepEqual(frame.Names(), []string{"Genre", "Count"}) {
		t.Errorf("unexpected frame shape %v x %v", frame.Nrow(), frame.Names())
	}
}

func TestMatcherFor(t *testing.T) {
	if _, err := MatcherFor("substring"); err != nil {
		t.Errorf("substring should resolve: %v", err)
	}
	if m, err := MatcherFor("token"); err != nil || m("A,B", "A,") {
		t.Errorf("token matcher misbehaves: %v", err)
	}
	if _, err := MatcherFor("fuzzy"); err == nil {
		t.Error("unknown mode should fail")
	}
}
