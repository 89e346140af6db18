// Package pathutil implements PLEB's path syntax: slash-delimited
// segments where leading, trailing, and consecutive delimiters are
// ignored for comparison and lookup purposes (spec.md §3, §6).
package pathutil

import "strings"

// Split breaks a path into its non-empty segments, in order.
func Split(path string) []string {
	raw := strings.Split(path, "/")
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Join reassembles segments into a canonical path: no leading,
// trailing, or consecutive slashes.
func Join(segs []string) string {
	return strings.Join(segs, "/")
}

// Canonical normalizes an arbitrary path string into its canonical
// form (the empty path denotes the root).
func Canonical(path string) string {
	return Join(Split(path))
}

// IsAncestorSegs reports whether ancestor's segments are a prefix of
// descendant's segments (a path is considered its own ancestor).
func IsAncestorSegs(ancestor, descendant []string) bool {
	if len(ancestor) > len(descendant) {
		return false
	}
	for i, s := range ancestor {
		if descendant[i] != s {
			return false
		}
	}
	return true
}
