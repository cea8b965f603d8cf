package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCalendar_LastBusinessDayOfMonth(t *testing.T) {
	c := NewCalendar()
	assert.Equal(t, d("2024-03-29"), c.LastBusinessDayOfMonth(d("2024-03-05")))
	assert.Equal(t, d("2019-07-31"), c.LastBusinessDayOfMonth(d("2019-07-01")))
	assert.Equal(t, d("2020-02-28"), c.LastBusinessDayOfMonth(d("2020-02-10")))
}

func TestCalendar_Holidays(t *testing.T) {
	c := NewCalendar(d("2024-03-29"))
	assert.False(t, c.IsBusinessDay(d("2024-03-29")))
	assert.False(t, c.IsBusinessDay(d("2024-03-30")))
	assert.True(t, c.IsBusinessDay(d("2024-03-28")))
	assert.Equal(t, d("2024-03-28"), c.LastBusinessDayOfMonth(d("2024-03-01")))
}

func TestCalendar_BusinessMonthEnds(t *testing.T) {
	c := NewCalendar()
	got := c.BusinessMonthEnds(d("2019-05-31"), d("2019-08-31"))
	require.Len(t, got, 4)
	assert.Equal(t, []time.Time{d("2019-05-31"), d("2019-06-28"), d("2019-07-31"), d("2019-08-30")}, got)

	// El month-end de mayo cae antes de from.
	got = c.BusinessMonthEnds(d("2019-06-01"), d("2019-07-15"))
	assert.Equal(t, []time.Time{d("2019-06-28")}, got)

	assert.Empty(t, c.BusinessMonthEnds(d("2020-01-01"), d("2019-01-01")))
}

func TestDayCount_YearFraction(t *testing.T) {
	start, end := d("2019-05-31"), d("2020-05-31")
	assert.InDelta(t, 366/365.25, ACT36525.YearFraction(start, end), 1e-12)
	assert.InDelta(t, 366/365.0, ACT365F.YearFraction(start, end), 1e-12)
	assert.InDelta(t, 366/360.0, ACT360.YearFraction(start, end), 1e-12)
	assert.InDelta(t, 0.25, Thirty360.YearFraction(d("2019-01-31"), d("2019-04-30")), 1e-12)

	// Negativa si end < start
	assert.Less(t, ACT36525.YearFraction(end, start), 0.0)

	// La hora del día no cuenta
	intraday := start.Add(16 * time.Hour)
	assert.InDelta(t, 366/365.25, ACT36525.YearFraction(intraday, end), 1e-12)
}

func TestParseDayCount(t *testing.T) {
	for in, want := range map[string]DayCount{
		"":           ACT36525,
		"act/365.25": ACT36525,
		"ACT/365":    ACT365F,
		"ACT/360":    ACT360,
		"30/360":     Thirty360,
	} {
		got, err := ParseDayCount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDayCount("BUS/252")
	assert.Error(t, err)
}
