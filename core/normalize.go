package core

import "strings"

const (
	// MaxPrefixLen bounds the length of indexed prefixes. Queries longer
	// than this are truncated to form the index key and re-checked with a
	// substring filter at query time.
	MaxPrefixLen = 12

	// CountryPrefixLen bounds the length of country-scoped prefix entries.
	// Short prefixes collide heavily, so only they get the narrower
	// per-country keys.
	CountryPrefixLen = 3

	// minTokenLen is the shortest word of a name that gets its own
	// prefix entries in addition to the full-name prefixes.
	minTokenLen = 2
)

// Normalize canonicalizes a query string or entity name. The same function
// runs at index-write time and at query time; prefix membership depends on
// both sides agreeing. Folding is plain ASCII lowercasing.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Tokens returns the whitespace-delimited words of the normalized form of s.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// Prefixes enumerates every indexable prefix of a name: each leading
// substring, up to MaxPrefixLen bytes, of the full normalized name and of
// each word of length >= 2 within it. The result is deduplicated and order
// is deterministic (full name first, then tokens left to right).
func Prefixes(name string) []string {
	normalized := Normalize(name)
	if normalized == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []string

	add := func(s string) {
		limit := len(s)
		if limit > MaxPrefixLen {
			limit = MaxPrefixLen
		}
		for i := 1; i <= limit; i++ {
			p := s[:i]
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}

	add(normalized)
	for _, token := range strings.Fields(normalized) {
		if len(token) >= minTokenLen {
			add(token)
		}
	}

	return out
}

// PrefixKey truncates a normalized query to the longest indexable prefix.
func PrefixKey(normalizedQuery string) string {
	if len(normalizedQuery) > MaxPrefixLen {
		return normalizedQuery[:MaxPrefixLen]
	}
	return normalizedQuery
}
