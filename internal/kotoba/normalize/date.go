package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Locale selects the relative-date vocabulary a parser accepts.
type Locale string

const (
	LocaleAny Locale = "any"
	LocaleJA  Locale = "ja"
	LocaleEN  Locale = "en"
)

// ParseLocale maps "ja", "en", "any" (or empty) to a Locale.
func ParseLocale(s string) (Locale, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "both":
		return LocaleAny, nil
	case "ja", "jp", "japanese":
		return LocaleJA, nil
	case "en", "english":
		return LocaleEN, nil
	}
	return "", fmt.Errorf("unknown locale %q", s)
}

func (l Locale) accepts(other Locale) bool {
	return l == LocaleAny || l == "" || l == other
}

// relativeDays maps relative day words to their offset from today.
var relativeDays = map[Locale]map[string]int{
	LocaleJA: {
		"今日": 0, "本日": 0, "きょう": 0,
		"明日": 1, "あした": 1, "あす": 1,
		"昨日": -1, "きのう": -1,
		"明後日": 2, "あさって": 2,
		"一昨日": -2, "おととい": -2,
	},
	LocaleEN: {
		"today":                0,
		"tomorrow":             1,
		"yesterday":            -1,
		"day after tomorrow":   2,
		"day before yesterday": -2,
	},
}

var (
	fullDateRe  = regexp.MustCompile(`^(\d{4})\s*[-/.年]\s*(\d{1,2})\s*[-/.月]\s*(\d{1,2})\s*日?$`)
	shortDateRe = regexp.MustCompile(`^(\d{1,2})\s*[-/月]\s*(\d{1,2})\s*日?$`)

	jaAgoRe   = regexp.MustCompile(`^(\d+)\s*日前$`)
	jaLaterRe = regexp.MustCompile(`^(\d+)\s*日後$`)
	enAgoRe   = regexp.MustCompile(`^(\d+)\s*days?\s+ago$`)
	enLaterRe = regexp.MustCompile(`^in\s+(\d+)\s*days?$`)
)

// ParseDate recognizes absolute dates (2026-02-05, 2026/2/5, 2026年2月5日),
// short dates in the current year (2/5, 2月5日), relative words (today, 明日,
// 昨日, ...) and day offsets (3日前, 3 days ago, 2日後, in 2 days). now fixes
// "today"; its location decides the calendar day.
func ParseDate(raw string, locale Locale, now time.Time) (Date, error) {
	s := strings.ToLower(Fold(raw))
	if s == "" {
		return Date{}, parseErr(KindDate, raw, ErrEmpty)
	}
	today := DateOf(now)

	if m := fullDateRe.FindStringSubmatch(s); m != nil {
		return civilDate(raw, atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := shortDateRe.FindStringSubmatch(s); m != nil {
		return civilDate(raw, today.Year, atoi(m[1]), atoi(m[2]))
	}

	for loc, words := range relativeDays {
		if !locale.accepts(loc) {
			continue
		}
		if off, ok := words[s]; ok {
			return today.AddDays(off), nil
		}
	}

	if locale.accepts(LocaleJA) {
		if m := jaAgoRe.FindStringSubmatch(s); m != nil {
			return today.AddDays(-atoi(m[1])), nil
		}
		if m := jaLaterRe.FindStringSubmatch(s); m != nil {
			return today.AddDays(atoi(m[1])), nil
		}
	}
	if locale.accepts(LocaleEN) {
		if m := enAgoRe.FindStringSubmatch(s); m != nil {
			return today.AddDays(-atoi(m[1])), nil
		}
		if m := enLaterRe.FindStringSubmatch(s); m != nil {
			return today.AddDays(atoi(m[1])), nil
		}
	}

	return Date{}, parseErr(KindDate, raw, ErrUnrecognized)
}

// ParseMonthDay recognizes a day of the year: 5/20, 05-20, 5月20日, or a full
// date whose year is discarded.
func ParseMonthDay(raw string) (MonthDay, error) {
	s := Fold(raw)
	if s == "" {
		return MonthDay{}, parseErr(KindMonthDay, raw, ErrEmpty)
	}
	var month, day int
	if m := fullDateRe.FindStringSubmatch(s); m != nil {
		month, day = atoi(m[2]), atoi(m[3])
	} else if m := shortDateRe.FindStringSubmatch(s); m != nil {
		month, day = atoi(m[1]), atoi(m[2])
	} else {
		return MonthDay{}, parseErr(KindMonthDay, raw, ErrUnrecognized)
	}
	// 2000 is a leap year, so 02-29 is accepted.
	if _, err := civilDate(raw, 2000, month, day); err != nil {
		return MonthDay{}, parseErr(KindMonthDay, raw, ErrInvalidDate)
	}
	return MonthDay{Month: time.Month(month), Day: day}, nil
}

func civilDate(raw string, year, month, day int) (Date, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Date{}, parseErr(KindDate, raw, ErrInvalidDate)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return Date{}, parseErr(KindDate, raw, ErrInvalidDate)
	}
	return Date{Year: year, Month: time.Month(month), Day: day}, nil
}

// atoi is only called on regexp groups that matched \d+.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
