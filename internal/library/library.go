// Package library provides the minimal book catalog backing the
// find_books routing path: structured filtering by genre/author/title/year
// plus the genre and author vocabularies fed to the field-extraction prompt.
package library

import "errors"

// ErrNotFound indicates no book exists for the given ISBN.
var ErrNotFound = errors.New("book not found")

// Book is a catalog entry.
type Book struct {
	ISBN          string
	Title         string
	Author        string
	Genre         string
	Summary       string
	PublishedYear int
}

// Filter selects books by exact-ish criteria. Zero values mean "any".
// YearFrom/YearTo form an inclusive range; a single-year query sets both.
type Filter struct {
	Genres   []string
	Authors  []string
	Title    string
	YearFrom int
	YearTo   int
}

// Empty reports whether the filter constrains nothing.
func (f Filter) Empty() bool {
	return len(f.Genres) == 0 && len(f.Authors) == 0 && f.Title == "" &&
		f.YearFrom == 0 && f.YearTo == 0
}
