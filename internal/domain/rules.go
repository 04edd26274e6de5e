package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Metric selects a numeric field of a WeatherObservation.
type Metric string

const (
	MetricPrecipMM          Metric = "precip_mm"
	MetricPrecipProbability Metric = "precip_probability"
	MetricTempMax           Metric = "temp_max_c"
	MetricTempMin           Metric = "temp_min_c"
	MetricHumidity          Metric = "humidity_pct"
	MetricWind              Metric = "wind_kmh"
)

// Operator compares a metric against a threshold.
type Operator string

const (
	OpGT  Operator = "gt"
	OpGTE Operator = "gte"
	OpLT  Operator = "lt"
	OpLTE Operator = "lte"
)

// Condition is a single threshold test on one observation.
type Condition struct {
	Metric Metric
	Op     Operator
	Value  float64
}

func (c Condition) value(obs WeatherObservation) (float64, bool) {
	switch c.Metric {
	case MetricPrecipMM:
		return obs.PrecipMM, true
	case MetricPrecipProbability:
		return obs.PrecipProbability, true
	case MetricTempMax:
		return obs.TempMaxC, true
	case MetricTempMin:
		return obs.TempMinC, true
	case MetricHumidity:
		return obs.HumidityPct, true
	case MetricWind:
		return obs.WindKmh, true
	}
	return 0, false
}

// Holds reports whether obs satisfies the condition.
func (c Condition) Holds(obs WeatherObservation) bool {
	v, ok := c.value(obs)
	if !ok {
		return false
	}
	switch c.Op {
	case OpGT:
		return v > c.Value
	case OpGTE:
		return v >= c.Value
	case OpLT:
		return v < c.Value
	case OpLTE:
		return v <= c.Value
	}
	return false
}

// AlertRule is one row of the declarative rule table. Empty Crop, Season and
// Stage match anything. All When conditions must hold; when Conditions is set
// the day's condition code must also be one of them.
type AlertRule struct {
	ID             string
	Crop           string
	Season         Season
	Stage          string
	When           []Condition
	Conditions     []ConditionCode
	Severity       Severity
	Recommendation string
}

// Matches evaluates the rule for one forecast day.
func (r AlertRule) Matches(crop string, season Season, stage string, obs WeatherObservation) bool {
	if r.Crop != "" && !strings.EqualFold(r.Crop, crop) {
		return false
	}
	if r.Season != "" && r.Season != season {
		return false
	}
	if r.Stage != "" && !strings.EqualFold(r.Stage, stage) {
		return false
	}
	for _, c := range r.When {
		if !c.Holds(obs) {
			return false
		}
	}
	if len(r.Conditions) > 0 {
		found := false
		for _, code := range r.Conditions {
			if obs.Condition == code {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ValidateRules checks a rule table for duplicate ids, missing predicates and
// Info severities. Info is reserved for "nothing matched".
func ValidateRules(rules []AlertRule) error {
	var errs []error
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		switch {
		case r.ID == "":
			errs = append(errs, errors.New("rule with empty id"))
			continue
		case seen[r.ID]:
			errs = append(errs, fmt.Errorf("rule %s: duplicate id", r.ID))
		}
		seen[r.ID] = true
		if len(r.When) == 0 && len(r.Conditions) == 0 {
			errs = append(errs, fmt.Errorf("rule %s: no weather predicate", r.ID))
		}
		if r.Severity <= SeverityInfo || r.Severity > SeveritySevere {
			errs = append(errs, fmt.Errorf("rule %s: severity must be advisory, warning or severe", r.ID))
		}
		if strings.TrimSpace(r.Recommendation) == "" {
			errs = append(errs, fmt.Errorf("rule %s: empty recommendation", r.ID))
		}
		for _, c := range r.When {
			if _, ok := c.value(WeatherObservation{}); !ok {
				errs = append(errs, fmt.Errorf("rule %s: unknown metric %q", r.ID, c.Metric))
			}
			switch c.Op {
			case OpGT, OpGTE, OpLT, OpLTE:
			default:
				errs = append(errs, fmt.Errorf("rule %s: unknown operator %q", r.ID, c.Op))
			}
		}
	}
	return errors.Join(errs...)
}

// DefaultRules returns a copy of the built-in rule table.
func DefaultRules() []AlertRule {
	out := make([]AlertRule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

func above(m Metric, v float64) Condition   { return Condition{Metric: m, Op: OpGTE, Value: v} }
func below(m Metric, v float64) Condition   { return Condition{Metric: m, Op: OpLT, Value: v} }
func atMost(m Metric, v float64) Condition  { return Condition{Metric: m, Op: OpLTE, Value: v} }
func greater(m Metric, v float64) Condition { return Condition{Metric: m, Op: OpGT, Value: v} }

// Rain thresholds are daily totals. Banded rules use half-open ranges so a
// single day only ever hits one band.
var defaultRules = []AlertRule{
	// Rain.
	{
		ID:             "extreme-rain",
		When:           []Condition{above(MetricPrecipMM, 100)},
		Severity:       SeveritySevere,
		Recommendation: "Very heavy rain expected: open all field drains and move harvested produce to raised, covered storage.",
	},
	{
		ID:             "heavy-rain",
		When:           []Condition{above(MetricPrecipMM, 25), below(MetricPrecipMM, 100)},
		Severity:       SeverityWarning,
		Recommendation: "Heavy rain may cause waterlogging: clear field drainage channels and postpone fertilizer application.",
	},
	{
		ID:             "moderate-rain",
		When:           []Condition{above(MetricPrecipMM, 10), below(MetricPrecipMM, 25)},
		Severity:       SeverityAdvisory,
		Recommendation: "Moderate rain expected: skip the next irrigation and keep drainage outlets open.",
	},
	{
		ID:             "rain-before-harvest",
		Stage:          "Harvesting",
		When:           []Condition{above(MetricPrecipProbability, 60)},
		Severity:       SeverityWarning,
		Recommendation: "Rain likely at harvest time: harvest mature crop early and keep produce covered.",
	},
	{
		ID:             "rice-nursery-submergence",
		Crop:           "rice",
		Season:         SeasonKharif,
		Stage:          "Nursery/Seedling",
		When:           []Condition{above(MetricPrecipMM, 50)},
		Severity:       SeveritySevere,
		Recommendation: "Rice nursery at risk of submergence: drain excess water from seed beds immediately.",
	},
	{
		ID:             "rice-flowering-rain",
		Crop:           "rice",
		Stage:          "Flowering",
		When:           []Condition{above(MetricPrecipMM, 10)},
		Severity:       SeverityWarning,
		Recommendation: "Rain during rice flowering can reduce grain set: avoid spraying and watch for blast and false smut.",
	},
	{
		ID:             "maize-waterlogging",
		Crop:           "maize",
		When:           []Condition{above(MetricPrecipMM, 40)},
		Severity:       SeverityWarning,
		Recommendation: "Maize is sensitive to waterlogging: drain standing water within 24 hours.",
	},
	{
		ID:             "thunderstorm",
		Conditions:     []ConditionCode{ConditionThunderstorm},
		Severity:       SeverityWarning,
		Recommendation: "Thunderstorm and lightning risk: stay out of open fields and postpone spraying.",
	},

	// Heat and dryness.
	{
		ID:             "extreme-heat",
		When:           []Condition{above(MetricTempMax, 40)},
		Severity:       SeverityWarning,
		Recommendation: "Extreme heat: irrigate in the evening and mulch to conserve soil moisture.",
	},
	{
		ID:             "hot-dry",
		When:           []Condition{greater(MetricTempMax, 35), below(MetricTempMax, 40), below(MetricPrecipMM, 2)},
		Severity:       SeverityAdvisory,
		Recommendation: "Hot and dry conditions: increase irrigation frequency and watch for wilting.",
	},
	{
		ID:             "wheat-terminal-heat",
		Crop:           "wheat",
		Stage:          "Grain Filling",
		When:           []Condition{above(MetricTempMax, 32)},
		Severity:       SeverityWarning,
		Recommendation: "Terminal heat stress risk for wheat: give a light irrigation to protect grain filling.",
	},

	// Cold.
	{
		ID:             "frost",
		When:           []Condition{atMost(MetricTempMin, 4)},
		Severity:       SeverityWarning,
		Recommendation: "Frost risk: apply light irrigation in the evening and cover nurseries at night.",
	},
	{
		ID:             "cold",
		When:           []Condition{greater(MetricTempMin, 4), below(MetricTempMin, 10)},
		Severity:       SeverityAdvisory,
		Recommendation: "Cold nights: protect young plants from cold injury and avoid late evening irrigation.",
	},
	{
		ID:             "mustard-aphid",
		Crop:           "mustard",
		Season:         SeasonRabi,
		When:           []Condition{above(MetricHumidity, 80), atMost(MetricTempMin, 15)},
		Severity:       SeverityAdvisory,
		Recommendation: "Cool humid weather favours aphids on mustard: inspect plants and spray only above the threshold.",
	},

	// Wind and humidity.
	{
		ID:             "storm-wind",
		When:           []Condition{above(MetricWind, 60)},
		Severity:       SeveritySevere,
		Recommendation: "Storm-force winds: secure sheds and harvested produce and avoid field work.",
	},
	{
		ID:             "high-wind",
		When:           []Condition{greater(MetricWind, 30), below(MetricWind, 60)},
		Severity:       SeverityAdvisory,
		Recommendation: "Strong winds: stake tall crops and secure crop supports.",
	},
	{
		ID:             "sugarcane-lodging",
		Crop:           "sugarcane",
		Stage:          "Grand Growth",
		When:           []Condition{above(MetricWind, 40)},
		Severity:       SeverityWarning,
		Recommendation: "Tie and prop sugarcane clumps to prevent lodging.",
	},
	{
		ID:             "fungal-humidity",
		When:           []Condition{above(MetricHumidity, 90), above(MetricTempMax, 20), atMost(MetricTempMax, 32)},
		Severity:       SeverityAdvisory,
		Recommendation: "High humidity favours fungal disease: scout fields for leaf spots and blight.",
	},
}
