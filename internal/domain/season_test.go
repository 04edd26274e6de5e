package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveSeason(t *testing.T) {
	patna := District{ID: "patna", Name: "Patna"}

	cases := []struct {
		month time.Month
		want  Season
	}{
		{time.January, SeasonRabi},
		{time.February, SeasonRabi},
		{time.March, SeasonRabi},
		{time.April, SeasonZaid},
		{time.May, SeasonZaid},
		{time.June, SeasonKharif},
		{time.July, SeasonKharif},
		{time.August, SeasonKharif},
		{time.September, SeasonKharif},
		{time.October, SeasonKharif},
		{time.November, SeasonRabi},
		{time.December, SeasonRabi},
	}
	for _, tc := range cases {
		t.Run(tc.month.String(), func(t *testing.T) {
			date := time.Date(2024, tc.month, 15, 0, 0, 0, 0, time.UTC)
			assert.Equal(t, tc.want, ActiveSeason(date, patna))
		})
	}
}

func TestActiveSeason_IsPureFunctionOfMonth(t *testing.T) {
	d := District{Name: "Gaya"}
	for day := 1; day <= 28; day++ {
		a := ActiveSeason(time.Date(2023, time.July, day, 0, 0, 0, 0, time.UTC), d)
		b := ActiveSeason(time.Date(2031, time.July, day, 23, 59, 0, 0, time.UTC), d)
		assert.Equal(t, a, b)
	}
}

func TestActiveSeason_OverlapResolvedByOrder(t *testing.T) {
	d := District{
		Name: "Custom",
		Seasons: []SeasonWindow{
			{Season: SeasonKharif, StartMonth: time.June, EndMonth: time.November},
			{Season: SeasonRabi, StartMonth: time.October, EndMonth: time.March},
			{Season: SeasonZaid, StartMonth: time.April, EndMonth: time.May},
		},
	}
	assert.Equal(t, SeasonKharif, ActiveSeason(time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC), d))
	assert.Equal(t, SeasonRabi, ActiveSeason(time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), d))
}

func TestValidateSeasonWindows(t *testing.T) {
	require.NoError(t, ValidateSeasonWindows(DefaultSeasonWindows()))

	err := ValidateSeasonWindows([]SeasonWindow{
		{Season: SeasonKharif, StartMonth: time.June, EndMonth: time.October},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "January")
}

func TestParseSeason(t *testing.T) {
	s, err := ParseSeason(" Rabi ")
	require.NoError(t, err)
	assert.Equal(t, SeasonRabi, s)
	assert.Equal(t, "Rabi", s.Title())

	_, err = ParseSeason("monsoon")
	assert.Error(t, err)
}
