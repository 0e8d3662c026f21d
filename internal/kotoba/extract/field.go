// Package extract pulls labelled and positional field values out of the text
// that follows an intent trigger, and normalizes them by declared kind.
package extract

import (
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
)

// Field declares one value an intent accepts.
type Field struct {
	Name   string
	Labels []string
	Kind   normalize.Kind

	Required bool
	// Positional lets the field take the leading unlabelled text. Only the
	// first field of a schema may set it.
	Positional bool

	// EnumValues and Synonyms build the lookup table for KindEnum.
	EnumValues []string
	Synonyms   map[string]string

	// AllowNegative applies to KindMoney.
	AllowNegative bool

	// Min and Max are inclusive bounds for Integer, Money and Duration
	// fields. They are checked by handlers, not during extraction.
	Min *int64
	Max *int64

	// Locale overrides the extraction environment's locale for dates.
	Locale normalize.Locale
}

// Env carries the request-scoped inputs to normalization.
type Env struct {
	Now    time.Time
	Locale normalize.Locale
}

// Int64 returns a pointer to n, for Field.Min and Field.Max literals.
func Int64(n int64) *int64 { return &n }

// InBounds reports whether v satisfies the field's Min and Max.
func (f Field) InBounds(v normalize.Value) bool {
	if f.Min == nil && f.Max == nil {
		return true
	}
	var cmp func(bound int64) int
	switch val := v.(type) {
	case normalize.Integer:
		cmp = func(b int64) int { return compareInt(int64(val), b) }
	case normalize.Duration:
		cmp = func(b int64) int { return compareInt(int64(val), b) }
	case normalize.Money:
		cmp = func(b int64) int { return val.Decimal().Cmp(apd.New(b, 0)) }
	default:
		return true
	}
	if f.Min != nil && cmp(*f.Min) < 0 {
		return false
	}
	if f.Max != nil && cmp(*f.Max) > 0 {
		return false
	}
	return true
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (f Field) validate() error {
	if f.Name == "" {
		return errors.New("field has no name")
	}
	if _, ok := kindParsers[f.Kind]; !ok {
		return fmt.Errorf("field %q: unsupported kind %s", f.Name, f.Kind)
	}
	if f.Kind == normalize.KindEnum && len(f.EnumValues) == 0 && len(f.Synonyms) == 0 {
		return fmt.Errorf("field %q: enum field needs values or synonyms", f.Name)
	}
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return fmt.Errorf("field %q: min %d > max %d", f.Name, *f.Min, *f.Max)
	}
	for _, l := range f.Labels {
		if l == "" {
			return fmt.Errorf("field %q: empty label", f.Name)
		}
	}
	return nil
}

type kindParser func(f Field, enum map[string]string, raw string, env Env) (normalize.Value, error)

var kindParsers = map[normalize.Kind]kindParser{
	normalize.KindText: func(_ Field, _ map[string]string, raw string, _ Env) (normalize.Value, error) {
		return normalize.ParseText(raw)
	},
	normalize.KindDate: func(f Field, _ map[string]string, raw string, env Env) (normalize.Value, error) {
		loc := env.Locale
		if f.Locale != "" {
			loc = f.Locale
		}
		return normalize.ParseDate(raw, loc, env.Now)
	},
	normalize.KindMonthDay: func(_ Field, _ map[string]string, raw string, _ Env) (normalize.Value, error) {
		return normalize.ParseMonthDay(raw)
	},
	normalize.KindInteger: func(_ Field, _ map[string]string, raw string, _ Env) (normalize.Value, error) {
		return normalize.ParseInteger(raw)
	},
	normalize.KindMoney: func(f Field, _ map[string]string, raw string, _ Env) (normalize.Value, error) {
		return normalize.ParseMoney(raw, f.AllowNegative)
	},
	normalize.KindDuration: func(_ Field, _ map[string]string, raw string, _ Env) (normalize.Value, error) {
		return normalize.ParseDuration(raw)
	},
	normalize.KindEnum: func(_ Field, enum map[string]string, raw string, _ Env) (normalize.Value, error) {
		return normalize.ParseEnum(raw, enum)
	},
}
