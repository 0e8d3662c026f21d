// Package environment reads typed settings from environment variables.
//
// A Reader records every malformed value instead of falling back to the
// default, so a typo in KOTOBA_RATE_LIMIT is reported at startup rather than
// silently ignored. Unset or empty variables always yield the default.
package environment

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Reader looks variables up and collects parse errors.
type Reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

// New returns a Reader over the process environment.
func New() *Reader {
	return &Reader{lookup: os.LookupEnv}
}

// FromMap returns a Reader over a fixed set of variables.
func FromMap(vars map[string]string) *Reader {
	return &Reader{lookup: func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}}
}

func (r *Reader) get(name string) string {
	v, _ := r.lookup(name)
	return strings.TrimSpace(v)
}

func (r *Reader) fail(name, value string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s=%q: %w", name, value, err))
}

// StringOr returns the variable, or defaultValue when it is unset or empty.
func (r *Reader) StringOr(name, defaultValue string) string {
	if v := r.get(name); v != "" {
		return v
	}
	return defaultValue
}

// IntOr parses the variable as a decimal integer.
func (r *Reader) IntOr(name string, defaultValue int) int {
	v := r.get(name)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(name, v, errors.New("not an integer"))
		return defaultValue
	}
	return n
}

// BoolOr parses the variable with strconv.ParseBool.
func (r *Reader) BoolOr(name string, defaultValue bool) bool {
	v := r.get(name)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(name, v, errors.New("not a boolean"))
		return defaultValue
	}
	return b
}

// DurationOr parses the variable as a time.Duration ("30s", "5m").
func (r *Reader) DurationOr(name string, defaultValue time.Duration) time.Duration {
	v := r.get(name)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(name, v, errors.New("not a duration"))
		return defaultValue
	}
	return d
}

// StringSliceOr splits the variable on commas, dropping blank elements.
func (r *Reader) StringSliceOr(name string, defaultValue []string) []string {
	v := r.get(name)
	if v == "" {
		return defaultValue
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Err joins every parse failure seen so far, or returns nil.
func (r *Reader) Err() error {
	return errors.Join(r.errs...)
}
