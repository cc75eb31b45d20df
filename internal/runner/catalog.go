package runner

import (
	"github.com/agnivade/levenshtein"
)

// Kind groups runners in listings.
type Kind string

const (
	KindInterpreter Kind = "interpreter"
	KindTypeChecker Kind = "type-checker"
	KindLinter      Kind = "linter"
	KindFormatter   Kind = "formatter"
)

// Entry describes a known runner.
type Entry struct {
	ID    ID     `json:"id"`
	Label Label  `json:"label"`
	Title string `json:"title"`
	Kind  Kind   `json:"kind"`
}

var catalog = []Entry{
	{ID: "python3-14", Label: "python3.14", Title: "Python 3.14", Kind: KindInterpreter},
	{ID: "python3-13", Label: "python3.13", Title: "Python 3.13", Kind: KindInterpreter},
	{ID: "python3-12", Label: "python3.12", Title: "Python 3.12", Kind: KindInterpreter},
	{ID: "python3-11", Label: "python3.11", Title: "Python 3.11", Kind: KindInterpreter},
	{ID: "python3-10", Label: "python3.10", Title: "Python 3.10", Kind: KindInterpreter},
	{ID: "python3-9", Label: "python3.9", Title: "Python 3.9", Kind: KindInterpreter},
	{ID: "python3-8", Label: "python3.8", Title: "Python 3.8", Kind: KindInterpreter},
	{ID: "mypy", Label: "mypy", Title: "mypy", Kind: KindTypeChecker},
	{ID: "pyright", Label: "pyright", Title: "Pyright", Kind: KindTypeChecker},
	{ID: "pytype", Label: "pytype", Title: "pytype", Kind: KindTypeChecker},
	{ID: "pyre", Label: "pyre", Title: "Pyre", Kind: KindTypeChecker},
	{ID: "ruff-check", Label: "ruff-check", Title: "Ruff (check)", Kind: KindLinter},
	{ID: "ruff-format", Label: "ruff-format", Title: "Ruff (format)", Kind: KindFormatter},
}

var byID = func() map[ID]Entry {
	m := make(map[ID]Entry, len(catalog))
	for _, e := range catalog {
		m[e.ID] = e
	}
	return m
}()

// Catalog returns the known runners in display order.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for id.
func Lookup(id ID) (Entry, bool) {
	e, ok := byID[id]
	return e, ok
}

// Known reports whether id is in the catalog.
func Known(id ID) bool {
	_, ok := byID[id]
	return ok
}

// maxSuggestDistance bounds how far a typo may be from a known ID and still
// produce a suggestion.
const maxSuggestDistance = 3

// Suggest returns the known runner closest to raw by edit distance after
// normalization, or false if nothing is close enough or raw is already known.
func Suggest(raw string) (ID, bool) {
	id := Normalize(raw)
	if id == "" || Known(id) {
		return "", false
	}

	best := ID("")
	bestDist := maxSuggestDistance + 1
	for _, e := range catalog {
		d := levenshtein.ComputeDistance(string(id), string(e.ID))
		if d < bestDist {
			best, bestDist = e.ID, d
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}
