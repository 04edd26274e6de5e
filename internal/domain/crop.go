package domain

import (
	"fmt"
	"strings"
	"time"
)

// GrowthStage is a phenological stage covering days [StartDay, EndDay) after planting.
type GrowthStage struct {
	Name     string `json:"name"`
	StartDay int    `json:"start_day"`
	EndDay   int    `json:"end_day"`
}

// SowingDate is the nominal sowing day of a crop in one season.
type SowingDate struct {
	Season Season     `json:"season"`
	Month  time.Month `json:"month"`
	Day    int        `json:"day"`
}

// Crop is the calendar template for a supported crop.
type Crop struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Seasons      []Season      `json:"seasons"`
	Planting     string        `json:"planting"`
	Harvesting   string        `json:"harvesting"`
	DurationDays int           `json:"duration_days"`
	Sowing       []SowingDate  `json:"sowing"`
	Stages       []GrowthStage `json:"stages"`
}

// DatedStage is a growth stage pinned to calendar dates. End is exclusive.
type DatedStage struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CropCalendar is a crop template anchored to a planting date.
type CropCalendar struct {
	Crop         string       `json:"crop"`
	PlantingDate time.Time    `json:"planting_date"`
	HarvestDate  time.Time    `json:"harvest_date"`
	Stages       []DatedStage `json:"stages"`
}

// Validate checks that the stage table starts at day 0, has no gaps or
// overlaps, and ends exactly at DurationDays.
func (c Crop) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("crop id is required")
	}
	if c.DurationDays <= 0 {
		return fmt.Errorf("crop %s: duration must be positive", c.ID)
	}
	if len(c.Stages) == 0 {
		return fmt.Errorf("crop %s: no growth stages", c.ID)
	}
	next := 0
	for _, s := range c.Stages {
		if s.StartDay != next {
			return fmt.Errorf("crop %s: stage %q starts at day %d, want %d", c.ID, s.Name, s.StartDay, next)
		}
		if s.EndDay <= s.StartDay {
			return fmt.Errorf("crop %s: stage %q is empty", c.ID, s.Name)
		}
		next = s.EndDay
	}
	if next != c.DurationDays {
		return fmt.Errorf("crop %s: stages end at day %d, duration is %d", c.ID, next, c.DurationDays)
	}
	for _, sd := range c.Sowing {
		if sd.Month < time.January || sd.Month > time.December || sd.Day < 1 || sd.Day > 31 {
			return fmt.Errorf("crop %s: invalid sowing date %d/%d", c.ID, sd.Day, sd.Month)
		}
	}
	return nil
}

// StageAt returns the stage covering the given day after planting.
func (c Crop) StageAt(day int) (GrowthStage, bool) {
	if day < 0 {
		return GrowthStage{}, false
	}
	for _, s := range c.Stages {
		if day >= s.StartDay && day < s.EndDay {
			return s, true
		}
	}
	return GrowthStage{}, false
}

// StageOn returns the stage on date for a crop planted on planting.
func (c Crop) StageOn(planting, date time.Time) (GrowthStage, bool) {
	return c.StageAt(DaysBetween(planting, date))
}

// NominalPlanting returns the most recent nominal sowing date whose crop
// cycle still contains date. It reports false when date is outside every cycle.
func (c Crop) NominalPlanting(date time.Time) (time.Time, bool) {
	date = DateOnly(date)
	var best time.Time
	for _, sd := range c.Sowing {
		for _, year := range []int{date.Year(), date.Year() - 1} {
			p := time.Date(year, sd.Month, sd.Day, 0, 0, 0, 0, time.UTC)
			days := DaysBetween(p, date)
			if days < 0 || days >= c.DurationDays {
				continue
			}
			if p.After(best) {
				best = p
			}
		}
	}
	return best, !best.IsZero()
}

// Calendar anchors the crop's stages to planting.
func (c Crop) Calendar(planting time.Time) CropCalendar {
	planting = DateOnly(planting)
	stages := make([]DatedStage, len(c.Stages))
	for i, s := range c.Stages {
		stages[i] = DatedStage{
			Name:  s.Name,
			Start: planting.AddDate(0, 0, s.StartDay),
			End:   planting.AddDate(0, 0, s.EndDay),
		}
	}
	return CropCalendar{
		Crop:         c.ID,
		PlantingDate: planting,
		HarvestDate:  planting.AddDate(0, 0, c.DurationDays),
		Stages:       stages,
	}
}

// GrownIn reports whether the crop has a calendar for season.
func (c Crop) GrownIn(season Season) bool {
	for _, s := range c.Seasons {
		if s == season {
			return true
		}
	}
	return false
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, NewValidationError(ErrInvalidDate, s, []string{"YYYY-MM-DD"})
	}
	return t, nil
}
