package normalize

import (
	"sort"
	"strings"

	"golang.org/x/text/width"
)

// Fold maps full-width ASCII (digits, letters, ：／，) to its narrow form and
// half-width katakana to full width, then trims surrounding whitespace.
func Fold(s string) string {
	return strings.TrimSpace(width.Fold.String(s))
}

var quotePairs = [][2]string{
	{"「", "」"},
	{"『", "』"},
	{`"`, `"`},
	{"'", "'"},
	{"“", "”"},
}

// ParseText trims whitespace and one pair of enclosing quotes.
func ParseText(raw string) (Text, error) {
	s := Fold(raw)
	for _, q := range quotePairs {
		if len(s) >= len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			s = strings.TrimSpace(s[len(q[0]) : len(s)-len(q[1])])
			break
		}
	}
	if s == "" {
		return "", parseErr(KindText, raw, ErrEmpty)
	}
	return Text(s), nil
}

// EnumTable builds a lookup table from canonical values and a synonym map
// (synonym -> canonical). Keys are lower-cased; every canonical value maps to
// itself.
func EnumTable(values []string, synonyms map[string]string) map[string]string {
	table := make(map[string]string, len(values)+len(synonyms))
	for _, v := range values {
		table[strings.ToLower(Fold(v))] = v
	}
	for syn, canonical := range synonyms {
		table[strings.ToLower(Fold(syn))] = canonical
		table[strings.ToLower(Fold(canonical))] = canonical
	}
	return table
}

// ParseEnum looks raw up in table, case-insensitively. The table is usually
// built by EnumTable; a hand-written table gets its targets added implicitly.
func ParseEnum(raw string, table map[string]string) (Enum, error) {
	key := strings.ToLower(Fold(raw))
	if key == "" {
		return "", parseErr(KindEnum, raw, ErrEmpty)
	}
	if canonical, ok := table[key]; ok {
		return Enum(canonical), nil
	}
	for _, canonical := range sortedTargets(table) {
		if strings.ToLower(canonical) == key {
			return Enum(canonical), nil
		}
	}
	return "", parseErr(KindEnum, raw, ErrUnrecognized)
}

func sortedTargets(table map[string]string) []string {
	seen := make(map[string]bool, len(table))
	out := make([]string, 0, len(table))
	for _, v := range table {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
