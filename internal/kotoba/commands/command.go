// Package commands turns recognized chat messages into structured commands
// and runs them against per-agent handlers.
package commands

import (
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
)

// Fields holds the normalized values of a command, keyed by field name.
// Optional fields that were absent or malformed have no key.
type Fields map[string]normalize.Value

// Command is a recognized intent plus its extracted fields.
type Command struct {
	Intent string
	Fields Fields
	Raw    string
}

// Canonical returns the fields as canonical strings, the form records are
// stored in.
func (f Fields) Canonical() map[string]string {
	out := make(map[string]string, len(f))
	for k, v := range f {
		out[k] = v.Canonical()
	}
	return out
}

// Has reports whether name is present.
func (f Fields) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Text returns a text or enum field as a string.
func (f Fields) Text(name string) (string, bool) {
	switch v := f[name].(type) {
	case normalize.Text:
		return string(v), true
	case normalize.Enum:
		return string(v), true
	}
	return "", false
}

// Int returns an integer field.
func (f Fields) Int(name string) (int64, bool) {
	v, ok := f[name].(normalize.Integer)
	return int64(v), ok
}

// Date returns a date field.
func (f Fields) Date(name string) (normalize.Date, bool) {
	v, ok := f[name].(normalize.Date)
	return v, ok
}

// MonthDay returns a month-day field.
func (f Fields) MonthDay(name string) (normalize.MonthDay, bool) {
	v, ok := f[name].(normalize.MonthDay)
	return v, ok
}

// Money returns a money field.
func (f Fields) Money(name string) (normalize.Money, bool) {
	v, ok := f[name].(normalize.Money)
	return v, ok
}

// Duration returns a duration field.
func (f Fields) Duration(name string) (normalize.Duration, bool) {
	v, ok := f[name].(normalize.Duration)
	return v, ok
}

// Canonical returns the fields as canonical strings.
func (c *Command) Canonical() map[string]string {
	return c.Fields.Canonical()
}
