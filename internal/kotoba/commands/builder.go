package commands

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/bdobrica/Kotoba/internal/kotoba/extract"
	"github.com/bdobrica/Kotoba/internal/kotoba/intent"
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
)

// Builder turns a recognized intent and the text after its trigger into a
// Command.
type Builder struct {
	schemas map[string]*extract.Extractor
	locale  normalize.Locale
	now     func() time.Time
}

// NewBuilder returns a Builder over the given per-intent extractors. A nil
// clock means time.Now.
func NewBuilder(schemas map[string]*extract.Extractor, locale normalize.Locale, clock func() time.Time) *Builder {
	if clock == nil {
		clock = time.Now
	}
	return &Builder{schemas: schemas, locale: locale, now: clock}
}

// Build extracts the fields of intentID from remainder, folding full-width
// input first. A required field that is missing or malformed returns the
// *normalize.ParseError unchanged.
func (b *Builder) Build(intentID, remainder string) (*Command, error) {
	return b.build(intentID, remainder, nil, remainder)
}

// BuildMatch builds the Command for a Match, using its named captures. raw is
// the whole original message.
func (b *Builder) BuildMatch(m intent.Match, raw string) (*Command, error) {
	return b.build(m.Intent, m.Remainder, m.Captures, raw)
}

func (b *Builder) build(intentID, remainder string, captures map[string]string, raw string) (*Command, error) {
	ex, ok := b.schemas[intentID]
	if !ok {
		return nil, fmt.Errorf("intent %q: %w", intentID, ErrNotFound)
	}
	env := extract.Env{Now: b.now(), Locale: b.locale}
	fields, err := ex.Extract(stripSeparator(normalize.Fold(remainder)), captures, env)
	if err != nil {
		return nil, err
	}
	return &Command{Intent: intentID, Fields: fields, Raw: raw}, nil
}

// stripSeparator drops the colon or spacing left between a trigger and its
// arguments ("誕生日: 山田" leaves ": 山田").
func stripSeparator(s string) string {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	s = strings.TrimPrefix(s, ":")
	s = strings.TrimPrefix(s, "：")
	return strings.TrimSpace(s)
}
