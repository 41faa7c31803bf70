package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		raw   string
		year  int
		month int
		known bool
	}{
		{"2024-01-05T10:20:30", 2024, 1, true},
		{"2023-12-31T23:59:59-06:00", 2023, 12, true},
		{"2024-02-10T08:00:00.123", 2024, 2, true},
		{"2024-03-01", 2024, 3, true},
		{" 2024-04-02 09:10:11 ", 2024, 4, true},
		{"", 0, 0, false},
		{"not-a-date", 0, 0, false},
		{"2024-13-01", 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			p := ParsePeriod(tc.raw)
			assert.Equal(t, tc.known, p.Known())
			if tc.known {
				assert.Equal(t, IntOf(tc.year), p.Year)
				assert.Equal(t, IntOf(tc.month), p.Month)
			} else {
				assert.False(t, p.Year.Valid)
				assert.False(t, p.Month.Valid)
			}
		})
	}
}

func TestPeriodLabel(t *testing.T) {
	assert.Equal(t, "2024-01", Period{Year: IntOf(2024), Month: IntOf(1)}.Label())
	assert.Equal(t, UnknownPeriodLabel, Period{}.Label())
}

func TestPeriodCompareUnknownLast(t *testing.T) {
	jan := Period{Year: IntOf(2024), Month: IntOf(1)}
	feb := Period{Year: IntOf(2024), Month: IntOf(2)}
	prev := Period{Year: IntOf(2023), Month: IntOf(12)}
	unknown := Period{}

	assert.Equal(t, -1, jan.Compare(feb))
	assert.Equal(t, 1, jan.Compare(prev))
	assert.Equal(t, -1, feb.Compare(unknown))
	assert.Equal(t, 1, unknown.Compare(prev))
	assert.Equal(t, 0, unknown.Compare(Period{}))
}

func TestNullIntJSON(t *testing.T) {
	b, err := json.Marshal([]NullInt{IntOf(7), {}})
	assert.NoError(t, err)
	assert.JSONEq(t, `[7,null]`, string(b))
}
