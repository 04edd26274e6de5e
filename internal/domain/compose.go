package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NormalConditionsMessage is the single recommendation of an Info alert.
const NormalConditionsMessage = "Weather looks normal for the forecast period. Continue routine field operations."

// alertNamespace scopes name-based alert IDs.
var alertNamespace = uuid.MustParse("b8a3c2f4-5d61-4e0a-9c7e-2f14d6a8e301")

// ComposeRequest carries the inputs of a single alert composition. Crop,
// PlantingDate and Season are optional; an empty Season is classified from the
// first observation date and a zero PlantingDate uses the crop's nominal sowing date.
type ComposeRequest struct {
	District     string
	Crop         string
	PlantingDate time.Time
	Season       Season
	Observations []WeatherObservation
}

// Engine evaluates the rule table against forecasts.
type Engine struct {
	catalog Catalog
	rules   []AlertRule
}

// NewEngine creates an Engine. A nil rules slice selects DefaultRules.
func NewEngine(catalog Catalog, rules []AlertRule) (*Engine, error) {
	if rules == nil {
		rules = DefaultRules()
	}
	if err := ValidateRules(rules); err != nil {
		return nil, fmt.Errorf("invalid rule table: %w", err)
	}
	return &Engine{
		catalog: catalog,
		rules:   append([]AlertRule(nil), rules...),
	}, nil
}

// Resolve validates a district and an optional crop. The returned crop is nil
// for district-level requests.
func (e *Engine) Resolve(districtName, cropName string) (District, *Crop, error) {
	district, err := e.catalog.District(districtName)
	if err != nil {
		return District{}, nil, err
	}
	if strings.TrimSpace(cropName) == "" {
		return district, nil, nil
	}
	crop, err := e.catalog.Crop(cropName)
	if err != nil {
		return district, nil, err
	}
	if !district.Grows(crop.ID) {
		valid := supportedCrops(district, e.catalog.CropIDs())
		return district, nil, fmt.Errorf("%s: %w", district.Name,
			NewValidationError(ErrInvalidCropForDistrict, cropName, valid))
	}
	return district, &crop, nil
}

// Compose builds an Alert from a forecast window. It never fails once the
// district, crop and observations are valid.
func (e *Engine) Compose(req ComposeRequest) (Alert, error) {
	district, crop, err := e.Resolve(req.District, req.Crop)
	if err != nil {
		return Alert{}, err
	}
	if len(req.Observations) == 0 {
		return Alert{}, incompleteForecast("no observations")
	}
	if err := ValidateForecastHorizon(len(req.Observations)); err != nil {
		return Alert{}, err
	}

	obs := append([]WeatherObservation(nil), req.Observations...)
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
	first, last := obs[0].Date, obs[len(obs)-1].Date

	season := req.Season
	if season == "" {
		season = ActiveSeason(first, district)
	}

	var cropID, stage string
	if crop != nil {
		cropID = crop.ID
		stage = stageOn(*crop, req.PlantingDate, first)
	}

	recs, severity := e.evaluate(cropID, season, stage, obs)
	if len(recs) == 0 {
		recs = []Recommendation{{Text: NormalConditionsMessage, Severity: SeverityInfo}}
	}

	now := clock.Now().UTC()
	return Alert{
		ID:              alertID(district.ID, cropID, first, now),
		District:        district.Name,
		Crop:            cropID,
		Stage:           stage,
		Season:          season,
		Severity:        severity,
		Recommendations: recs,
		ActionItems:     ActionItemsFor(severity),
		Observations:    obs,
		GeneratedAt:     now,
		ValidUntil:      DateOnly(last).AddDate(0, 0, 1),
	}, nil
}

// evaluate runs every rule on every day. Matches contribute to the maximum
// severity even when their text was already recommended on an earlier day.
func (e *Engine) evaluate(crop string, season Season, stage string, obs []WeatherObservation) ([]Recommendation, Severity) {
	severity := SeverityInfo
	seen := make(map[string]bool)
	var recs []Recommendation
	for i, o := range obs {
		for _, r := range e.rules {
			if !r.Matches(crop, season, stage, o) {
				continue
			}
			severity = max(severity, r.Severity)
			if seen[r.Recommendation] {
				continue
			}
			seen[r.Recommendation] = true
			recs = append(recs, Recommendation{
				Text:     r.Recommendation,
				Day:      i + 1,
				Date:     o.Date,
				RuleID:   r.ID,
				Severity: r.Severity,
			})
		}
	}
	return recs, severity
}

// stageOn resolves the growth stage on date, or "" when the crop is not in the field.
func stageOn(crop Crop, planting, date time.Time) string {
	if planting.IsZero() {
		p, ok := crop.NominalPlanting(date)
		if !ok {
			return ""
		}
		planting = p
	}
	s, ok := crop.StageOn(planting, date)
	if !ok {
		return ""
	}
	return s.Name
}

func supportedCrops(d District, supported []string) []string {
	known := make(map[string]bool, len(supported))
	for _, c := range supported {
		known[c] = true
	}
	var out []string
	for _, c := range d.Crops() {
		if known[strings.ToLower(c)] {
			out = append(out, c)
		}
	}
	return out
}

// alertID derives a stable UUIDv5 from the alert's subject and generation time.
func alertID(district, crop string, first, generatedAt time.Time) string {
	key := strings.Join([]string{
		district,
		crop,
		first.Format(time.DateOnly),
		generatedAt.Format(time.RFC3339Nano),
	}, "|")
	return uuid.NewSHA1(alertNamespace, []byte(key)).String()
}
