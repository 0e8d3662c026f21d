package extract

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
)

// Extractor captures and normalizes the fields of one intent. It holds only
// compiled, immutable data and is safe for concurrent use.
type Extractor struct {
	fields []Field
	// labels[i] matches a label of fields[i] followed by ':' or '：'.
	labels []*regexp.Regexp
	// anyLabel matches a label of any field.
	anyLabel *regexp.Regexp
	enums    []map[string]string
}

// New compiles the label patterns for fields. Field names must be unique and
// only the first field may be positional.
func New(fields []Field) (*Extractor, error) {
	e := &Extractor{
		fields: append([]Field(nil), fields...),
		labels: make([]*regexp.Regexp, len(fields)),
		enums:  make([]map[string]string, len(fields)),
	}
	seen := make(map[string]bool, len(fields))
	var all []string
	for i, f := range fields {
		if err := f.validate(); err != nil {
			return nil, err
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		if f.Positional && i != 0 {
			return nil, fmt.Errorf("field %q: only the first field may be positional", f.Name)
		}
		if len(f.Labels) > 0 {
			e.labels[i] = labelPattern(f.Labels)
			all = append(all, f.Labels...)
		}
		if f.Kind == normalize.KindEnum {
			e.enums[i] = normalize.EnumTable(f.EnumValues, f.Synonyms)
		}
	}
	if len(all) > 0 {
		e.anyLabel = labelPattern(all)
	}
	return e, nil
}

// labelPattern matches any of labels at a label boundary (start of text,
// whitespace or a delimiter) followed by a colon. Longer labels are tried
// first so "誕生日一覧" is not read as "誕生日".
func labelPattern(labels []string) *regexp.Regexp {
	sorted := append([]string(nil), labels...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i]) > utf8.RuneCountInString(sorted[j])
	})
	quoted := make([]string, len(sorted))
	for i, l := range sorted {
		quoted[i] = regexp.QuoteMeta(l)
	}
	return regexp.MustCompile(`(?i)(?:^|[\s,、;；])(?:` + strings.Join(quoted, "|") + `)\s*[:：]`)
}

// Fields returns the schema in declaration order.
func (e *Extractor) Fields() []Field {
	return append([]Field(nil), e.fields...)
}

// Field returns the named field.
func (e *Extractor) Field(name string) (Field, bool) {
	for _, f := range e.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Raw returns the unnormalized value of every field found in text. Fields
// with a label but nothing after it map to "".
func (e *Extractor) Raw(text string) map[string]string {
	out := make(map[string]string, len(e.fields))
	var labelStarts []int
	if e.anyLabel != nil {
		for _, loc := range e.anyLabel.FindAllStringIndex(text, -1) {
			labelStarts = append(labelStarts, loc[0])
		}
	}

	for i, f := range e.fields {
		re := e.labels[i]
		if re == nil {
			continue
		}
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		start := loc[1]
		end := len(text)
		for _, ls := range labelStarts {
			if ls >= start {
				end = ls
				break
			}
		}
		if d := nextDelimiter(text, start); d >= 0 && d < end {
			end = d
		}
		out[f.Name] = strings.TrimSpace(text[start:end])
	}

	if len(e.fields) > 0 && e.fields[0].Positional {
		first := e.fields[0]
		if _, labelled := out[first.Name]; !labelled {
			end := -1
			if len(labelStarts) > 0 {
				end = labelStarts[0]
			} else {
				end = nextDelimiter(text, 0)
			}
			if end < 0 {
				end = len(text)
			}
			if v := trimPositional(text[:end]); v != "" {
				out[first.Name] = v
			}
		}
	}
	return out
}

// Extract normalizes the raw values of text. captures are values taken from
// named groups of the trigger pattern and win over values found in text.
//
// A missing or malformed required field returns a *normalize.ParseError
// naming the field. A malformed optional field is left out.
func (e *Extractor) Extract(text string, captures map[string]string, env Env) (map[string]normalize.Value, error) {
	raw := e.Raw(text)
	for name, v := range captures {
		if _, ok := e.Field(name); ok && strings.TrimSpace(v) != "" {
			raw[name] = strings.TrimSpace(v)
		}
	}

	out := make(map[string]normalize.Value, len(raw))
	for i, f := range e.fields {
		r, present := raw[f.Name]
		if !present {
			if f.Required {
				return nil, &normalize.ParseError{Field: f.Name, Kind: f.Kind, Err: normalize.ErrMissing}
			}
			continue
		}
		v, err := kindParsers[f.Kind](f, e.enums[i], r, env)
		if err != nil {
			if !f.Required {
				continue
			}
			var pe *normalize.ParseError
			if errors.As(err, &pe) {
				pe.Field = f.Name
				return nil, pe
			}
			return nil, &normalize.ParseError{Field: f.Name, Kind: f.Kind, Raw: r, Err: err}
		}
		out[f.Name] = v
	}
	return out, nil
}

// nextDelimiter returns the byte offset of the first delimiter at or after
// from, or -1. A comma between two digits is a thousands separator.
func nextDelimiter(text string, from int) int {
	prev := rune(-1)
	if from > 0 {
		prev, _ = utf8.DecodeLastRuneInString(text[:from])
	}
	for i, r := range text[from:] {
		pos := from + i
		switch r {
		case '、', ';', '；', '\n':
			return pos
		case ',', '，':
			next, _ := utf8.DecodeRuneInString(text[pos+utf8.RuneLen(r):])
			if !(unicode.IsDigit(prev) && unicode.IsDigit(next)) {
				return pos
			}
		}
		prev = r
	}
	return -1
}

func trimPositional(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(",，、;；", r)
	})
}
