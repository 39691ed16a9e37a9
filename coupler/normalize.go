package coupler

import "strings"

// Resolution reports how Normalize arrived at its result.
type Resolution int

const (
	// ResolvedExact means the label (after separator cleanup) is in the catalog as given.
	ResolvedExact Resolution = iota
	// ResolvedReversed means only the swapped pair ("70/30" -> "30/70") is in the catalog.
	ResolvedReversed
	// ResolvedDefault means nothing matched and DefaultRatio was substituted.
	ResolvedDefault
)

func (r Resolution) String() string {
	switch r {
	case ResolvedExact:
		return "exact"
	case ResolvedReversed:
		return "reversed"
	case ResolvedDefault:
		return "default"
	default:
		return "unknown"
	}
}

// Normalize maps a ratio label as found in storage onto a catalog label.
//
// Any ':' separator becomes '/'. If the result is not in the catalog the two halves are
// swapped and tried again; if that fails too, DefaultRatio is returned.
// Normalizing a catalog label returns it unchanged with ResolvedExact.
func Normalize(raw string) (string, Resolution) {
	label := strings.ReplaceAll(strings.TrimSpace(raw), ":", "/")
	if _, ok := Lookup(label); ok {
		return label, ResolvedExact
	}

	if reversed, ok := reverse(label); ok {
		if _, ok := Lookup(reversed); ok {
			return reversed, ResolvedReversed
		}
	}

	return DefaultRatio, ResolvedDefault
}

// reverse swaps the halves of an "a/b" label. Labels without exactly one separator
// have no reversed form.
func reverse(label string) (string, bool) {
	parts := strings.Split(label, "/")
	if len(parts) != 2 {
		return "", false
	}
	return parts[1] + "/" + parts[0], true
}
