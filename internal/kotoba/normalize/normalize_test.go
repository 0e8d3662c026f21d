package normalize_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
)

var fixedNow = time.Date(2026, time.February, 10, 9, 30, 0, 0, time.UTC)

func date(y int, m time.Month, d int) normalize.Date {
	return normalize.Date{Year: y, Month: m, Day: d}
}

func TestParseDate_Absolute(t *testing.T) {
	tests := []struct {
		raw  string
		want normalize.Date
	}{
		{"2026-02-05", date(2026, 2, 5)},
		{"2026-2-5", date(2026, 2, 5)},
		{"2026/02/05", date(2026, 2, 5)},
		{"2026.2.5", date(2026, 2, 5)},
		{"2026年2月5日", date(2026, 2, 5)},
		{"2/5", date(2026, 2, 5)},
		{"2月5日", date(2026, 2, 5)},
		{"２０２６／２／５", date(2026, 2, 5)},
		{" 2024-02-29 ", date(2024, 2, 29)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := normalize.ParseDate(tt.raw, normalize.LocaleAny, fixedNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_EquivalentForms(t *testing.T) {
	forms := []string{"2026-02-05", "2026-2-5", "2/5"}
	var first normalize.Date
	for i, raw := range forms {
		got, err := normalize.ParseDate(raw, normalize.LocaleAny, fixedNow)
		require.NoError(t, err, raw)
		if i == 0 {
			first = got
			continue
		}
		assert.Equal(t, first, got, raw)
	}
}

func TestParseDate_Relative(t *testing.T) {
	tests := []struct {
		raw    string
		locale normalize.Locale
		want   normalize.Date
	}{
		{"today", normalize.LocaleEN, date(2026, 2, 10)},
		{"Tomorrow", normalize.LocaleEN, date(2026, 2, 11)},
		{"yesterday", normalize.LocaleAny, date(2026, 2, 9)},
		{"day after tomorrow", normalize.LocaleEN, date(2026, 2, 12)},
		{"day before yesterday", normalize.LocaleEN, date(2026, 2, 8)},
		{"今日", normalize.LocaleJA, date(2026, 2, 10)},
		{"本日", normalize.LocaleJA, date(2026, 2, 10)},
		{"明日", normalize.LocaleJA, date(2026, 2, 11)},
		{"昨日", normalize.LocaleAny, date(2026, 2, 9)},
		{"きのう", normalize.LocaleJA, date(2026, 2, 9)},
		{"明後日", normalize.LocaleJA, date(2026, 2, 12)},
		{"一昨日", normalize.LocaleJA, date(2026, 2, 8)},
		{"3日前", normalize.LocaleJA, date(2026, 2, 7)},
		{"10 days ago", normalize.LocaleEN, date(2026, 1, 31)},
		{"2日後", normalize.LocaleAny, date(2026, 2, 12)},
		{"in 20 days", normalize.LocaleEN, date(2026, 3, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := normalize.ParseDate(tt.raw, tt.locale, fixedNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_RespectsClockLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 2026-02-10 20:00 UTC is already the 11th in Tokyo.
	now := time.Date(2026, 2, 10, 20, 0, 0, 0, time.UTC).In(tokyo)
	got, err := normalize.ParseDate("今日", normalize.LocaleJA, now)
	require.NoError(t, err)
	assert.Equal(t, date(2026, 2, 11), got)
}

func TestParseDate_Errors(t *testing.T) {
	tests := []struct {
		raw    string
		locale normalize.Locale
		want   error
	}{
		{"", normalize.LocaleAny, normalize.ErrEmpty},
		{"someday", normalize.LocaleAny, normalize.ErrUnrecognized},
		{"2026-02-30", normalize.LocaleAny, normalize.ErrInvalidDate},
		{"2025-02-29", normalize.LocaleAny, normalize.ErrInvalidDate},
		{"13/1", normalize.LocaleAny, normalize.ErrInvalidDate},
		{"tomorrow", normalize.LocaleJA, normalize.ErrUnrecognized},
		{"明日", normalize.LocaleEN, normalize.ErrUnrecognized},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, err := normalize.ParseDate(tt.raw, tt.locale, fixedNow)
			require.Error(t, err)
			var pe *normalize.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, normalize.KindDate, pe.Kind)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseMonthDay(t *testing.T) {
	for _, raw := range []string{"5/20", "05-20", "5月20日", "1985-05-20", "1985年5月20日"} {
		got, err := normalize.ParseMonthDay(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, "05-20", got.Canonical(), raw)
	}

	leap, err := normalize.ParseMonthDay("2/29")
	require.NoError(t, err)
	assert.Equal(t, "02-29", leap.Canonical())

	_, err = normalize.ParseMonthDay("2/30")
	assert.ErrorIs(t, err, normalize.ErrInvalidDate)
	_, err = normalize.ParseMonthDay("someday")
	assert.ErrorIs(t, err, normalize.ErrUnrecognized)
}

func TestMonthDay_Next(t *testing.T) {
	from := date(2026, 6, 1)
	assert.Equal(t, date(2026, 6, 1), normalize.MonthDay{Month: 6, Day: 1}.Next(from))
	assert.Equal(t, date(2027, 5, 20), normalize.MonthDay{Month: 5, Day: 20}.Next(from))
	assert.Equal(t, date(2026, 12, 24), normalize.MonthDay{Month: 12, Day: 24}.Next(from))
	// Feb 29 rolls to Mar 1 in a common year.
	assert.Equal(t, date(2027, 3, 1), normalize.MonthDay{Month: 2, Day: 29}.Next(from))
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"¥1,500", "1500"},
		{"1500円", "1500"},
		{"￥１，５００", "1500"},
		{"1,500 JPY", "1500"},
		{"$12.50", "12.50"},
		{"3万", "30000"},
		{"1.5万円", "15000"},
		{"0", "0"},
		{"1,234,567", "1234567"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := normalize.ParseMoney(tt.raw, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Canonical())
		})
	}
}

func TestParseMoney_Negative(t *testing.T) {
	_, err := normalize.ParseMoney("-500", false)
	assert.ErrorIs(t, err, normalize.ErrNegative)

	got, err := normalize.ParseMoney("-500円", true)
	require.NoError(t, err)
	assert.Equal(t, -1, got.Sign())
	assert.Equal(t, "-500", got.Canonical())
}

func TestParseMoney_Errors(t *testing.T) {
	for _, raw := range []string{"", "free", "12.5.0", "¥"} {
		_, err := normalize.ParseMoney(raw, false)
		var pe *normalize.ParseError
		assert.True(t, errors.As(err, &pe), raw)
	}
}

func TestParseMoney_MisplacedCommas(t *testing.T) {
	for _, raw := range []string{"1,5", "1,50,0", "15,00", ",500", "1500,"} {
		_, err := normalize.ParseMoney(raw, false)
		assert.ErrorIs(t, err, normalize.ErrUnrecognized, raw)
	}
}

func TestMoney_FormatAndAdd(t *testing.T) {
	a, err := normalize.ParseMoney("¥1,500", false)
	require.NoError(t, err)
	assert.Equal(t, "¥1,500", a.Format("¥"))

	b, err := normalize.ParseMoney("1234567.5", false)
	require.NoError(t, err)
	assert.Equal(t, "$1,234,567.5", b.Format("$"))

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "1236067.5", sum.Canonical())

	assert.Equal(t, "0", normalize.Money{}.Canonical())
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		raw  string
		want normalize.Integer
	}{
		{"42", 42},
		{"1,985", 1985},
		{"1985年", 1985},
		{"3回", 3},
		{"５点", 5},
		{"12歳", 12},
		{"-7", -7},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := normalize.ParseInteger(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, raw := range []string{"many", "1,5", "19,85"} {
		_, err := normalize.ParseInteger(raw)
		assert.ErrorIs(t, err, normalize.ErrUnrecognized, raw)
	}
	_, err := normalize.ParseInteger(" ")
	assert.ErrorIs(t, err, normalize.ErrEmpty)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		raw  string
		want normalize.Duration
	}{
		{"30分", 30},
		{"2時間", 120},
		{"1時間半", 90},
		{"1時間30分", 90},
		{"90m", 90},
		{"1h30m", 90},
		{"1.5h", 90},
		{"2 hours", 120},
		{"45 min", 45},
		{"25", 25},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := normalize.ParseDuration(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, raw := range []string{"a while", "h", "-5"} {
		_, err := normalize.ParseDuration(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseText(t *testing.T) {
	tests := []struct {
		raw  string
		want normalize.Text
	}{
		{"  ネクタイ  ", "ネクタイ"},
		{"「山田」", "山田"},
		{`"Go in Action"`, "Go in Action"},
		{"『本』", "本"},
	}
	for _, tt := range tests {
		got, err := normalize.ParseText(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}

	_, err := normalize.ParseText("「 」")
	assert.ErrorIs(t, err, normalize.ErrEmpty)
}

func TestParseEnum(t *testing.T) {
	table := normalize.EnumTable([]string{"food", "transport"}, map[string]string{
		"食費":  "food",
		"ごはん": "food",
		"交通費": "transport",
	})
	tests := []struct {
		raw  string
		want normalize.Enum
	}{
		{"食費", "food"},
		{"FOOD", "food"},
		{"Transport", "transport"},
		{"交通費", "transport"},
	}
	for _, tt := range tests {
		got, err := normalize.ParseEnum(tt.raw, table)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}

	// Targets of a hand-written table are their own synonyms.
	got, err := normalize.ParseEnum("TRUE", map[string]string{"on": "true"})
	require.NoError(t, err)
	assert.Equal(t, normalize.Enum("true"), got)

	_, err = normalize.ParseEnum("travel", table)
	assert.ErrorIs(t, err, normalize.ErrUnrecognized)
}

func TestCanonicalRoundTrip(t *testing.T) {
	enumTable := normalize.EnumTable([]string{"food"}, nil)
	reparse := func(v normalize.Value) (normalize.Value, error) {
		switch v.Kind() {
		case normalize.KindDate:
			return normalize.ParseDate(v.Canonical(), normalize.LocaleAny, fixedNow)
		case normalize.KindMonthDay:
			return normalize.ParseMonthDay(v.Canonical())
		case normalize.KindMoney:
			return normalize.ParseMoney(v.Canonical(), true)
		case normalize.KindInteger:
			return normalize.ParseInteger(v.Canonical())
		case normalize.KindDuration:
			return normalize.ParseDuration(v.Canonical())
		case normalize.KindEnum:
			return normalize.ParseEnum(v.Canonical(), enumTable)
		default:
			return normalize.ParseText(v.Canonical())
		}
	}

	money, err := normalize.ParseMoney("¥1,500", false)
	require.NoError(t, err)
	values := []normalize.Value{
		date(2026, 2, 5),
		normalize.MonthDay{Month: 5, Day: 20},
		money,
		normalize.Integer(1985),
		normalize.Duration(90),
		normalize.Enum("food"),
		normalize.Text("ネクタイ"),
	}
	for _, v := range values {
		t.Run(v.Kind().String(), func(t *testing.T) {
			back, err := reparse(v)
			require.NoError(t, err)
			assert.Equal(t, v.Kind(), back.Kind())
			assert.Equal(t, v.Canonical(), back.Canonical())
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"text", "date", "integer", "money", "enum", "monthday", "duration"} {
		k, err := normalize.ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, name, k.String())
	}
	_, err := normalize.ParseKind("blob")
	assert.Error(t, err)
}

func TestParseLocale(t *testing.T) {
	l, err := normalize.ParseLocale("")
	require.NoError(t, err)
	assert.Equal(t, normalize.LocaleAny, l)
	l, err = normalize.ParseLocale("JA")
	require.NoError(t, err)
	assert.Equal(t, normalize.LocaleJA, l)
	_, err = normalize.ParseLocale("fr")
	assert.Error(t, err)
}
