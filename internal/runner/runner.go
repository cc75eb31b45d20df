// Package runner maps between the identities a runner has on the client side
// (a layout-safe ID used for pane handles and persistence) and on the wire
// (the label the execution backend understands).
package runner

import (
	"strings"
)

// ID is a layout-safe runner identity. It never contains '.' or any other
// character outside [A-Za-z0-9_-].
type ID string

// Label is the name the execution backend knows a runner by, e.g. "python3.13".
type Label string

// Set is an ordered, duplicate-free list of runner IDs.
type Set []ID

// Default is the runner selected when nothing usable is persisted.
const Default ID = "python3-14"

// Normalize converts a raw runner name into an ID. Leading and trailing
// whitespace is dropped and every remaining character outside
// [A-Za-z0-9_-] becomes '-'. Normalize is total and idempotent.
func Normalize(raw string) ID {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if isSafe(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return ID(b.String())
}

func isSafe(r rune) bool {
	return r == '-' || r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// WireLabel returns the backend label for id. IDs missing from the versioned
// table are sent unchanged.
func WireLabel(id ID) Label {
	if e, ok := Lookup(id); ok {
		return e.Label
	}
	return Label(id)
}

// Strings returns the set as plain strings, in order.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, id := range s {
		out[i] = string(id)
	}
	return out
}

// Contains reports whether id is in the set.
func (s Set) Contains(id ID) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Clone returns a copy that does not alias s.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	copy(out, s)
	return out
}

// NormalizeAll normalizes raw names and drops duplicates and empty IDs,
// keeping first occurrence order.
func NormalizeAll(raw []string) Set {
	out := make(Set, 0, len(raw))
	seen := make(map[ID]bool, len(raw))
	for _, r := range raw {
		id := Normalize(r)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
