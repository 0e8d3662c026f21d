// Package normalize provides the locale-aware primitive parsers used by the
// field extractor: dates and relative day terms, money amounts, integers,
// durations and enumerated synonyms.
//
// Every parser is a pure function. Anything that depends on the current time
// takes it as an argument, so results are reproducible in tests.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Kind identifies the declared shape of a field value.
type Kind int

const (
	KindText Kind = iota
	KindDate
	KindInteger
	KindMoney
	KindEnum
	KindMonthDay
	KindDuration
)

var kindNames = map[Kind]string{
	KindText:     "text",
	KindDate:     "date",
	KindInteger:  "integer",
	KindMoney:    "money",
	KindEnum:     "enum",
	KindMonthDay: "monthday",
	KindDuration: "duration",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind resolves a kind name as written in rules files ("text", "date", ...).
func ParseKind(name string) (Kind, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == lower {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown value kind %q", name)
}

// Value is a sealed interface over the normalized field values. Only the
// types in this package implement it.
//
// Canonical returns a raw form that parses back to an identical Value with
// the parser for the same Kind.
type Value interface {
	Kind() Kind
	Canonical() string
	value()
}

// Text is free text with surrounding whitespace and quotes removed.
type Text string

func (Text) value()              {}
func (Text) Kind() Kind          { return KindText }
func (t Text) Canonical() string { return string(t) }

// Enum is the canonical target of a synonym table lookup.
type Enum string

func (Enum) value()              {}
func (Enum) Kind() Kind          { return KindEnum }
func (e Enum) Canonical() string { return string(e) }

// Integer is a whole number.
type Integer int64

func (Integer) value()              {}
func (Integer) Kind() Kind          { return KindInteger }
func (i Integer) Canonical() string { return fmt.Sprintf("%d", int64(i)) }

// Duration is a length of time in minutes.
type Duration int64

func (Duration) value()     {}
func (Duration) Kind() Kind { return KindDuration }

func (d Duration) Canonical() string { return fmt.Sprintf("%dm", int64(d)) }

// Minutes returns the duration as a plain minute count.
func (d Duration) Minutes() int64 { return int64(d) }

// Date is a calendar date without a time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (Date) value()     {}
func (Date) Kind() Kind { return KindDate }

func (d Date) Canonical() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// MonthDay is a recurring day of the year, used for birthdays and
// anniversaries where the year is recorded separately.
type MonthDay struct {
	Month time.Month
	Day   int
}

func (MonthDay) value()     {}
func (MonthDay) Kind() Kind { return KindMonthDay }

func (md MonthDay) Canonical() string {
	return fmt.Sprintf("%02d-%02d", int(md.Month), md.Day)
}

// Next returns the first date on or after from that falls on md. February 29
// falls back to March 1 in non-leap years.
func (md MonthDay) Next(from Date) Date {
	for year := from.Year; ; year++ {
		candidate := DateOf(time.Date(year, md.Month, md.Day, 0, 0, 0, 0, time.UTC))
		if candidate.Time(nil).Before(from.Time(nil)) {
			continue
		}
		return candidate
	}
}

// Money is a decimal amount with the currency symbol stripped.
type Money struct {
	amount *apd.Decimal
}

func (Money) value()     {}
func (Money) Kind() Kind { return KindMoney }

// decimalContext is used for arithmetic on amounts. Add and Sub are exact at
// this precision for any realistic household amount.
var decimalContext = apd.BaseContext.WithPrecision(34)

// NewMoney wraps d. The decimal is copied so later mutations of d do not
// leak into the value.
func NewMoney(d *apd.Decimal) Money {
	if d == nil {
		return Money{}
	}
	return Money{amount: new(apd.Decimal).Set(d)}
}

// Decimal returns a copy of the amount.
func (m Money) Decimal() *apd.Decimal {
	if m.amount == nil {
		return apd.New(0, 0)
	}
	return new(apd.Decimal).Set(m.amount)
}

// Canonical returns the plain decimal string, e.g. "1500" or "12.50".
func (m Money) Canonical() string {
	return m.Decimal().Text('f')
}

// Sign returns -1, 0 or 1.
func (m Money) Sign() int { return m.Decimal().Sign() }

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	sum := new(apd.Decimal)
	if _, err := decimalContext.Add(sum, m.Decimal(), other.Decimal()); err != nil {
		return Money{}, fmt.Errorf("add amounts: %w", err)
	}
	return Money{amount: sum}, nil
}

// Format renders the amount with a currency symbol and thousands separators,
// e.g. Format("¥") of 1500 is "¥1,500". The result parses back with ParseMoney.
func (m Money) Format(symbol string) string {
	plain := m.Canonical()
	sign := ""
	if strings.HasPrefix(plain, "-") {
		sign = "-"
		plain = plain[1:]
	}
	intPart, frac, hasFrac := strings.Cut(plain, ".")

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString(symbol)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
