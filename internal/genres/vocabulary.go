// Package genres parses comma-joined genre fields into subgenre tags and counts them.
package genres

import (
	"strings"

	"github.com/go-gota/gota/series"
)

// Separator splits a genres field into tags.
const Separator = ","

// Vocabulary returns the distinct tags found in cells, in order of first appearance.
// Nil cells are missing values and contribute no tags. Tags are case-sensitive and
// are not trimmed.
func Vocabulary(cells []*string) []string {
	tags := []string{}
	seen := make(map[string]struct{})

	for _, cell := range cells {
		if cell == nil {
			continue
		}
		for _, tag := range strings.Split(*cell, Separator) {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}

	return tags
}

// Cells adapts a table column to the cell form Vocabulary expects. Missing elements
// become nil; a column that is not string-typed yields only nil cells.
func Cells(col series.Series) []*string {
	cells := make([]*string, col.Len())
	if col.Type() != series.String {
		return cells
	}

	for i := 0; i < col.Len(); i++ {
		el := col.Elem(i)
		if el.IsNA() {
			continue
		}
		v := el.String()
		cells[i] = &v
	}
	return cells
}

// FromColumn extracts the vocabulary of a genres column.
func FromColumn(col series.Series) []string {
	return Vocabulary(Cells(col))
}
