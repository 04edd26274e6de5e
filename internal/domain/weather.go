package domain

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Forecast horizon bounds, in days.
const (
	MinForecastDays = 1
	MaxForecastDays = 7
)

// ConditionCode is a provider-agnostic summary of the day's weather.
type ConditionCode string

const (
	ConditionClear        ConditionCode = "clear"
	ConditionCloudy       ConditionCode = "cloudy"
	ConditionFog          ConditionCode = "fog"
	ConditionDrizzle      ConditionCode = "drizzle"
	ConditionRain         ConditionCode = "rain"
	ConditionHeavyRain    ConditionCode = "heavy_rain"
	ConditionThunderstorm ConditionCode = "thunderstorm"
	ConditionSnow         ConditionCode = "snow"
	ConditionUnknown      ConditionCode = "unknown"
)

// WeatherObservation is one forecast day in canonical units.
type WeatherObservation struct {
	Date              time.Time     `json:"date"`
	TempMinC          float64       `json:"temp_min_c"`
	TempMaxC          float64       `json:"temp_max_c"`
	PrecipProbability float64       `json:"precip_probability"`
	PrecipMM          float64       `json:"precip_mm"`
	HumidityPct       float64       `json:"humidity_pct"`
	WindKmh           float64       `json:"wind_kmh"`
	Condition         ConditionCode `json:"condition"`
}

// RawUnits names the units a provider reported its values in.
type RawUnits struct {
	Temperature   string
	Precipitation string
	WindSpeed     string
}

// RawDailyRecord is one provider forecast day. Missing numeric values are NaN
// and a missing WeatherCode is negative.
type RawDailyRecord struct {
	Date              string
	TempMax           float64
	TempMin           float64
	PrecipSum         float64
	PrecipProbability float64
	Humidity          float64
	WindSpeedMax      float64
	WeatherCode       int
	ConditionText     string
}

// RawForecast is a provider forecast before normalization.
type RawForecast struct {
	Source  string
	Units   RawUnits
	Records []RawDailyRecord
}

// ForecastFetcher retrieves a daily forecast for a location.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, lat, lon float64, days int) (RawForecast, error)
}

// ValidateForecastHorizon rejects horizons outside [MinForecastDays, MaxForecastDays].
func ValidateForecastHorizon(days int) error {
	if days < MinForecastDays || days > MaxForecastDays {
		valid := make([]string, 0, MaxForecastDays)
		for d := MinForecastDays; d <= MaxForecastDays; d++ {
			valid = append(valid, strconv.Itoa(d))
		}
		return NewValidationError(ErrInvalidForecastHorizon, strconv.Itoa(days), valid)
	}
	return nil
}

// NormalizeForecast converts the first days records of raw into canonical
// observations ordered by date. Records are sorted first; the requested window
// must then be complete and consecutive.
func NormalizeForecast(raw RawForecast, days int) ([]WeatherObservation, error) {
	if err := ValidateForecastHorizon(days); err != nil {
		return nil, err
	}

	type dated struct {
		date time.Time
		rec  RawDailyRecord
	}
	records := make([]dated, 0, len(raw.Records))
	for _, rec := range raw.Records {
		d, err := time.Parse(time.DateOnly, strings.TrimSpace(rec.Date))
		if err != nil {
			return nil, incompleteForecast("unparseable date %q", rec.Date)
		}
		records = append(records, dated{date: d, rec: rec})
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].date.Before(records[j].date) })

	if len(records) < days {
		return nil, incompleteForecast("need %d days, provider returned %d", days, len(records))
	}

	out := make([]WeatherObservation, 0, days)
	for i, r := range records[:days] {
		if i > 0 {
			gap := DaysBetween(records[i-1].date, r.date)
			switch {
			case gap == 0:
				return nil, incompleteForecast("duplicate day %s", r.rec.Date)
			case gap > 1:
				return nil, incompleteForecast("missing day after %s", records[i-1].rec.Date)
			}
		}
		obs, err := normalizeRecord(r.date, r.rec, raw.Units)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, nil
}

func normalizeRecord(date time.Time, rec RawDailyRecord, units RawUnits) (WeatherObservation, error) {
	if math.IsNaN(rec.TempMax) || math.IsNaN(rec.TempMin) {
		return WeatherObservation{}, incompleteForecast("missing temperature on %s", rec.Date)
	}
	if math.IsNaN(rec.PrecipSum) {
		return WeatherObservation{}, incompleteForecast("missing precipitation on %s", rec.Date)
	}

	toC, ok := temperatureConverters[strings.ToLower(units.Temperature)]
	if !ok {
		return WeatherObservation{}, incompleteForecast("unsupported temperature unit %q", units.Temperature)
	}
	toMM, ok := precipitationFactors[strings.ToLower(units.Precipitation)]
	if !ok {
		return WeatherObservation{}, incompleteForecast("unsupported precipitation unit %q", units.Precipitation)
	}
	toKmh, ok := windFactors[strings.ToLower(units.WindSpeed)]
	if !ok {
		return WeatherObservation{}, incompleteForecast("unsupported wind speed unit %q", units.WindSpeed)
	}

	tmin, tmax := toC(rec.TempMin), toC(rec.TempMax)
	if tmin > tmax {
		tmin, tmax = tmax, tmin
	}

	return WeatherObservation{
		Date:              DateOnly(date),
		TempMinC:          tmin,
		TempMaxC:          tmax,
		PrecipProbability: clamp(orZero(rec.PrecipProbability), 0, 100),
		PrecipMM:          math.Max(0, rec.PrecipSum*toMM),
		HumidityPct:       clamp(orZero(rec.Humidity), 0, 100),
		WindKmh:           math.Max(0, orZero(rec.WindSpeedMax)*toKmh),
		Condition:         conditionFor(rec),
	}, nil
}

var temperatureConverters = map[string]func(float64) float64{
	"":           func(v float64) float64 { return v },
	"°c":         func(v float64) float64 { return v },
	"c":          func(v float64) float64 { return v },
	"celsius":    func(v float64) float64 { return v },
	"°f":         func(v float64) float64 { return (v - 32) * 5 / 9 },
	"f":          func(v float64) float64 { return (v - 32) * 5 / 9 },
	"fahrenheit": func(v float64) float64 { return (v - 32) * 5 / 9 },
}

var precipitationFactors = map[string]float64{
	"":     1,
	"mm":   1,
	"cm":   10,
	"inch": 25.4,
	"in":   25.4,
}

var windFactors = map[string]float64{
	"":      1,
	"km/h":  1,
	"kmh":   1,
	"kph":   1,
	"m/s":   3.6,
	"mph":   1.609344,
	"kn":    1.852,
	"knots": 1.852,
}

// conditionFor prefers the WMO weather code and falls back to provider text.
func conditionFor(rec RawDailyRecord) ConditionCode {
	if rec.WeatherCode >= 0 {
		if c, ok := wmoConditions[rec.WeatherCode]; ok {
			return c
		}
	}
	text := strings.ToLower(rec.ConditionText)
	switch {
	case text == "":
		return ConditionUnknown
	case strings.Contains(text, "thunder"):
		return ConditionThunderstorm
	case strings.Contains(text, "heavy"):
		return ConditionHeavyRain
	case strings.Contains(text, "drizzle"):
		return ConditionDrizzle
	case strings.Contains(text, "rain"), strings.Contains(text, "shower"):
		return ConditionRain
	case strings.Contains(text, "snow"):
		return ConditionSnow
	case strings.Contains(text, "fog"), strings.Contains(text, "mist"), strings.Contains(text, "haze"):
		return ConditionFog
	case strings.Contains(text, "cloud"), strings.Contains(text, "overcast"):
		return ConditionCloudy
	case strings.Contains(text, "clear"), strings.Contains(text, "sun"):
		return ConditionClear
	}
	return ConditionUnknown
}

// wmoConditions maps WMO 4677 weather interpretation codes as used by Open-Meteo.
var wmoConditions = map[int]ConditionCode{
	0: ConditionClear, 1: ConditionClear,
	2: ConditionCloudy, 3: ConditionCloudy,
	45: ConditionFog, 48: ConditionFog,
	51: ConditionDrizzle, 53: ConditionDrizzle, 55: ConditionDrizzle, 56: ConditionDrizzle, 57: ConditionDrizzle,
	61: ConditionRain, 63: ConditionRain, 66: ConditionRain, 80: ConditionRain, 81: ConditionRain,
	65: ConditionHeavyRain, 67: ConditionHeavyRain, 82: ConditionHeavyRain,
	71: ConditionSnow, 73: ConditionSnow, 75: ConditionSnow, 77: ConditionSnow, 85: ConditionSnow, 86: ConditionSnow,
	95: ConditionThunderstorm, 96: ConditionThunderstorm, 99: ConditionThunderstorm,
}

func orZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
