package genres

import (
	"reflect"
	"testing"

	"github.com/go-gota/gota/series"
)

func strp(s string) *string { return &s }

func TestVocabulary_FirstSeenOrder(t *testing.T) {
	cells := []*string{
		strp("Action,Adventure,Comedy"),
		strp("Comedy,Drama"),
		strp("Adventure"),
		strp("Drama,Action,Horror"),
	}

	got := Vocabulary(cells)
	want := []string{"Action", "Adventure", "Comedy", "Drama", "Horror"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Vocabulary() = %v, want %v", got, want)
	}
}

func TestVocabulary_NoDuplicates(t *testing.T) {
	cells := []*string{strp("A,B,A"), strp("B,C"), strp("C,A,B")}

	got := Vocabulary(cells)
	seen := make(map[string]bool)
	for _, tag := range got {
		if seen[tag] {
			t.Fatalf("duplicate tag %q in %v", tag, got)
		}
		seen[tag] = true
	}
	if len(got) != 3 {
		t.Errorf("expected 3 tags, got %v", got)
	}
}

func TestVocabulary_MissingCellsContributeNothing(t *testing.T) {
	cells := []*string{nil, strp("Drama"), nil}

	got := Vocabulary(cells)
	if !reflect.DeepEqual(got, []string{"Drama"}) {
		t.Errorf("Vocabulary() = %v, want [Drama]", got)
	}

	if got := Vocabulary([]*string{nil, nil}); len(got) != 0 {
		t.Errorf("all-missing input should yield no tags, got %v", got)
	}
}

func TestVocabulary_Empty(t *testing.T) {
	if got := Vocabulary(nil); len(got) != 0 {
		t.Errorf("Vocabulary(nil) = %v, want empty", got)
	}
}

func TestVocabulary_CaseAndWhitespacePreserved(t *testing.T) {
	cells := []*string{strp("action,Action"), strp(" Action")}

	got := Vocabulary(cells)
	want := []string{"action", "Action", " Action"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Vocabulary() = %q, want %q", got, want)
	}
}

func TestVocabulary_SingleTagWithoutComma(t *testing.T) {
	got := Vocabulary([]*string{strp("Documentary")})
	if !reflect.DeepEqual(got, []string{"Documentary"}) {
		t.Errorf("Vocabulary() = %v", got)
	}
}

func TestCells_StringColumnWithMissing(t *testing.T) {
	col := series.New([]string{"Action,Drama", "NaN", "Comedy"}, series.String, "genres")

	cells := Cells(col)
	if len(cells) != 3 {
		t.Fatalf("expected 3 cells, got %d", len(cells))
	}
	if cells[1] != nil {
		t.Errorf("missing element should map to nil cell, got %q", *cells[1])
	}
	if cells[0] == nil || *cells[0] != "Action,Drama" {
		t.Errorf("unexpected first cell: %v", cells[0])
	}

	got := FromColumn(col)
	want := []string{"Action", "Drama", "Comedy"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FromColumn() = %v, want %v", got, want)
	}
}

func TestCells_NonStringColumn(t *testing.T) {
	col := series.New([]float64{1.5, 2.5}, series.Float, "genres")

	for i, c := range Cells(col) {
		if c != nil {
			t.Errorf("cell %d of a float column should be nil", i)
		}
	}
	if got := FromColumn(col); len(got) != 0 {
		t.Errorf("non-string column should contribute no tags, got %v", got)
	}
}
