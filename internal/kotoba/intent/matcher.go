// Package intent recognizes which command a chat message is, using ordered
// trigger rules anchored at the start of the text.
package intent

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Rule binds an intent to its trigger patterns. Patterns are regular
// expressions matched case-insensitively at the start of the input. Named
// groups contribute field values.
type Rule struct {
	Intent   string
	Patterns []string
	// Priority reorders rules before matching: higher first, ties keep
	// registration order.
	Priority int
}

// Match is a successful recognition.
type Match struct {
	Intent  string
	Trigger string
	// Remainder is the text after the trigger, untrimmed.
	Remainder string
	Captures  map[string]string
}

type compiled struct {
	intent  string
	source  string
	re      *regexp.Regexp
	longest *regexp.Regexp
	literal string // lower-cased literal prefix
	whole   bool   // the pattern is nothing but its literal prefix
}

// Matcher holds compiled rules. It is immutable and safe for concurrent use.
type Matcher struct {
	patterns []compiled
}

// ErrShadowed is wrapped by NewMatcher when a pattern can never match
// because an earlier one always wins.
var ErrShadowed = errors.New("pattern shadowed by an earlier rule")

// NewMatcher compiles rules and checks that every pattern can win for some
// input: no pattern is registered for two intents, and no pattern starts with
// the literal text of an earlier literal-only pattern of another intent.
func NewMatcher(rules []Rule) (*Matcher, error) {
	ordered := append([]Rule(nil), rules...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	m := &Matcher{}
	owner := make(map[string]string)
	for _, r := range ordered {
		if r.Intent == "" {
			return nil, errors.New("rule has no intent")
		}
		if len(r.Patterns) == 0 {
			return nil, fmt.Errorf("intent %q: no patterns", r.Intent)
		}
		for _, p := range r.Patterns {
			key := strings.ToLower(p)
			if prev, dup := owner[key]; dup && prev != r.Intent {
				return nil, fmt.Errorf("pattern %q registered for both %q and %q", p, prev, r.Intent)
			}
			owner[key] = r.Intent

			c, err := compile(r.Intent, p)
			if err != nil {
				return nil, err
			}
			for _, earlier := range m.patterns {
				if earlier.intent != c.intent && shadows(earlier, c) {
					return nil, fmt.Errorf("intent %q pattern %q after intent %q pattern %q: %w",
						c.intent, p, earlier.intent, earlier.source, ErrShadowed)
				}
			}
			m.patterns = append(m.patterns, c)
		}
	}
	return m, nil
}

func compile(intentID, pattern string) (compiled, error) {
	re, err := regexp.Compile(`(?i)^(?:` + pattern + `)`)
	if err != nil {
		return compiled{}, fmt.Errorf("intent %q: bad pattern %q: %w", intentID, pattern, err)
	}
	longest := regexp.MustCompile(re.String())
	longest.Longest()
	plain, err := regexp.Compile(`(?:` + pattern + `)`)
	if err != nil {
		return compiled{}, fmt.Errorf("intent %q: bad pattern %q: %w", intentID, pattern, err)
	}
	prefix, whole := plain.LiteralPrefix()
	return compiled{
		intent:  intentID,
		source:  pattern,
		re:      re,
		longest: longest,
		literal: strings.ToLower(prefix),
		whole:   whole && prefix != "",
	}, nil
}

// shadows reports whether a literal-only pattern always wins over a later
// pattern that starts with the same text. "birthday" does not shadow
// "birthdays" because an ASCII trigger must end at a word boundary.
func shadows(earlier, later compiled) bool {
	if !earlier.whole || !strings.HasPrefix(later.literal, earlier.literal) {
		return false
	}
	rest := later.literal[len(earlier.literal):]
	if rest == "" {
		return true
	}
	last, _ := utf8.DecodeLastRuneInString(earlier.literal)
	next, _ := utf8.DecodeRuneInString(rest)
	return !(isASCIIWord(last) && isASCIIWord(next))
}

// Match returns the first rule that recognizes text. The boolean is false
// when no rule matches, which just means the text is not a command here.
func (m *Matcher) Match(text string) (Match, bool) {
	for _, c := range m.patterns {
		loc := c.find(text)
		if loc == nil {
			continue
		}
		end := loc[1]
		captures := make(map[string]string)
		for i, name := range c.re.SubexpNames() {
			if name == "" || loc[2*i] < 0 {
				continue
			}
			captures[name] = text[loc[2*i]:loc[2*i+1]]
		}
		return Match{
			Intent:    c.intent,
			Trigger:   text[:end],
			Remainder: text[end:],
			Captures:  captures,
		}, true
	}
	return Match{}, false
}

// find locates the trigger at the start of text. When the preferred match
// stops inside an ASCII word, an alternation such as "birthday|birthdays"
// gets a second chance with its longest match.
func (c compiled) find(text string) []int {
	loc := c.re.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil
	}
	if wordEnd(text, loc[1]) {
		return loc
	}
	loc = c.longest.FindStringSubmatchIndex(text)
	if loc == nil || !wordEnd(text, loc[1]) {
		return nil
	}
	return loc
}

// Intents lists the intents in match order, without repeats.
func (m *Matcher) Intents() []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range m.patterns {
		if !seen[c.intent] {
			seen[c.intent] = true
			out = append(out, c.intent)
		}
	}
	return out
}

// wordEnd reports whether a trigger ending at end stops at a word boundary.
// Only ASCII words need one: "add" must not match "address", but Japanese
// triggers are followed directly by their argument.
func wordEnd(text string, end int) bool {
	if end == 0 || end >= len(text) {
		return true
	}
	before, _ := utf8.DecodeLastRuneInString(text[:end])
	after, _ := utf8.DecodeRuneInString(text[end:])
	return !(isASCIIWord(before) && isASCIIWord(after))
}

func isASCIIWord(r rune) bool {
	return r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
