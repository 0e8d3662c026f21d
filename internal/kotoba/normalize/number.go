package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

var currencyMarks = []string{"jpy", "usd", "¥", "￥", "$", "円", "ドル"}

// digits is a whole number, with commas only between groups of three.
const digits = `(?:\d{1,3}(?:,\d{3})+|\d+)`

var (
	moneyRe   = regexp.MustCompile(`^([-+]?)(` + digits + `)(\.\d+)?(万)?$`)
	integerRe = regexp.MustCompile(`^([-+]?` + digits + `)(?:年|回|点|個|件|歳|人|日|本|冊)?$`)
)

var durationRe = regexp.MustCompile(
	`^(?:(\d+(?:\.\d+)?)\s*(hours?|hrs?|h|時間)(半)?)?\s*(?:(\d+)\s*(minutes?|mins?|m|分))?$`)

// ParseMoney parses an amount such as "¥1,500", "1500円", "$12.50" or "3万".
// Currency marks and whitespace are removed; commas must separate groups of
// three digits. Negative
// amounts are rejected with ErrNegative unless allowNegative is set.
func ParseMoney(raw string, allowNegative bool) (Money, error) {
	s := strings.ToLower(Fold(raw))
	if s == "" {
		return Money{}, parseErr(KindMoney, raw, ErrEmpty)
	}
	s = strings.ReplaceAll(s, "−", "-")
	for _, mark := range currencyMarks {
		s = strings.ReplaceAll(s, mark, "")
	}
	s = stripSpace(s)

	m := moneyRe.FindStringSubmatch(s)
	if m == nil {
		return Money{}, parseErr(KindMoney, raw, ErrUnrecognized)
	}
	d, _, err := apd.NewFromString(m[1] + dropCommas(m[2]) + m[3])
	if err != nil {
		return Money{}, parseErr(KindMoney, raw, ErrUnrecognized)
	}
	if m[4] != "" {
		if _, err := decimalContext.Mul(d, d, apd.New(10000, 0)); err != nil {
			return Money{}, parseErr(KindMoney, raw, err)
		}
		// 1.5万 is 15000, not 15000.0.
		d.Reduce(d)
	}
	if d.IsZero() {
		d.Negative = false
	}
	if d.Sign() < 0 && !allowNegative {
		return Money{}, parseErr(KindMoney, raw, ErrNegative)
	}
	return Money{amount: d}, nil
}

// ParseInteger parses a whole number, accepting thousands separators and a
// trailing Japanese counter (3回, 1985年, 12歳).
func ParseInteger(raw string) (Integer, error) {
	s := stripSpace(Fold(raw))
	if s == "" {
		return 0, parseErr(KindInteger, raw, ErrEmpty)
	}
	m := integerRe.FindStringSubmatch(s)
	if m == nil {
		return 0, parseErr(KindInteger, raw, ErrUnrecognized)
	}
	n, err := strconv.ParseInt(dropCommas(m[1]), 10, 64)
	if err != nil {
		return 0, parseErr(KindInteger, raw, ErrUnrecognized)
	}
	return Integer(n), nil
}

// ParseDuration parses a length of time into minutes: "30分", "2時間",
// "1時間半", "1時間30分", "90m", "1h30m", "1.5h", "2 hours". A bare number is
// taken as minutes.
func ParseDuration(raw string) (Duration, error) {
	s := strings.ToLower(Fold(raw))
	if s == "" {
		return 0, parseErr(KindDuration, raw, ErrEmpty)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, parseErr(KindDuration, raw, ErrNegative)
		}
		return Duration(n), nil
	}

	m := durationRe.FindStringSubmatch(s)
	if m == nil || (m[1] == "" && m[4] == "") {
		return 0, parseErr(KindDuration, raw, ErrUnrecognized)
	}
	var minutes float64
	if m[1] != "" {
		h, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, parseErr(KindDuration, raw, ErrUnrecognized)
		}
		minutes += h * 60
		if m[3] != "" {
			minutes += 30
		}
	}
	if m[4] != "" {
		minutes += float64(atoi(m[4]))
	}
	return Duration(math.Round(minutes)), nil
}

func dropCommas(s string) string { return strings.ReplaceAll(s, ",", "") }

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '　':
			return -1
		}
		return r
	}, s)
}
