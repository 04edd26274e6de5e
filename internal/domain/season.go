package domain

import (
	"fmt"
	"strings"
	"time"
)

// Season is an Indian agricultural cropping season.
type Season string

const (
	SeasonKharif Season = "kharif"
	SeasonRabi   Season = "rabi"
	SeasonZaid   Season = "zaid"
)

// Seasons lists every season in classification priority order.
var Seasons = []Season{SeasonKharif, SeasonRabi, SeasonZaid}

// Title returns the display name, e.g. "Kharif".
func (s Season) Title() string {
	if s == "" {
		return ""
	}
	return upperFirst(string(s))
}

// ParseSeason maps a case-insensitive season name to a Season.
func ParseSeason(s string) (Season, error) {
	v := Season(strings.ToLower(strings.TrimSpace(s)))
	for _, season := range Seasons {
		if v == season {
			return season, nil
		}
	}
	return "", fmt.Errorf("unknown season %q", s)
}

// SeasonWindow is an inclusive month range belonging to one season. Ranges
// may wrap the year boundary (Rabi runs November through March).
type SeasonWindow struct {
	Season     Season
	StartMonth time.Month
	EndMonth   time.Month
}

// Contains reports whether month m falls inside the window.
func (w SeasonWindow) Contains(m time.Month) bool {
	if w.StartMonth <= w.EndMonth {
		return m >= w.StartMonth && m <= w.EndMonth
	}
	return m >= w.StartMonth || m <= w.EndMonth
}

// biharSeasons is the state-wide calendar. Order is the tie-break priority when
// windows overlap.
var biharSeasons = []SeasonWindow{
	{Season: SeasonKharif, StartMonth: time.June, EndMonth: time.October},
	{Season: SeasonRabi, StartMonth: time.November, EndMonth: time.March},
	{Season: SeasonZaid, StartMonth: time.April, EndMonth: time.May},
}

// DefaultSeasonWindows returns a copy of the Bihar season calendar.
func DefaultSeasonWindows() []SeasonWindow {
	return append([]SeasonWindow(nil), biharSeasons...)
}

// SeasonFor classifies date against windows, first match wins. Dates outside
// every window fall back to Kharif.
func SeasonFor(date time.Time, windows []SeasonWindow) Season {
	m := date.Month()
	for _, w := range windows {
		if w.Contains(m) {
			return w.Season
		}
	}
	return SeasonKharif
}

// ActiveSeason returns the season in effect on date for the district, using
// the district's own windows when it has any.
func ActiveSeason(date time.Time, d District) Season {
	windows := d.Seasons
	if len(windows) == 0 {
		windows = biharSeasons
	}
	return SeasonFor(date, windows)
}

// ValidateSeasonWindows checks that every month of the year is covered.
func ValidateSeasonWindows(windows []SeasonWindow) error {
	for m := time.January; m <= time.December; m++ {
		covered := false
		for _, w := range windows {
			if w.StartMonth < time.January || w.StartMonth > time.December ||
				w.EndMonth < time.January || w.EndMonth > time.December {
				return fmt.Errorf("season %s: month out of range", w.Season)
			}
			if w.Contains(m) {
				covered = true
				break
			}
		}
		if !covered {
			return fmt.Errorf("no season covers %s", m)
		}
	}
	return nil
}
