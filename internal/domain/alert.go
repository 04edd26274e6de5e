package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Severity orders alerts from routine to dangerous.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityAdvisory
	SeverityWarning
	SeveritySevere
)

var severityNames = [...]string{"info", "advisory", "warning", "severe"}

func (s Severity) String() string {
	if s < SeverityInfo || s > SeveritySevere {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity maps a case-insensitive severity name to a Severity.
func ParseSeverity(s string) (Severity, error) {
	for i, name := range severityNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Severity(i), nil
		}
	}
	return SeverityInfo, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Recommendation is one piece of advice and the forecast day that triggered it.
// Day is 1-based; 0 means the advice covers the whole window.
type Recommendation struct {
	Text     string    `json:"text"`
	Day      int       `json:"day"`
	Date     time.Time `json:"date,omitzero"`
	RuleID   string    `json:"rule_id,omitempty"`
	Severity Severity  `json:"severity"`
}

// ActionItem is a machine-actionable follow-up derived from severity.
type ActionItem struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// Action item codes.
const (
	ActionNotifyExtensionOfficer = "notify_extension_officer"
	ActionInspectFields          = "inspect_fields_24h"
	ActionMonitorConditions      = "monitor_conditions"
)

// ActionItemsFor returns the follow-ups for severity. Higher severities include
// every lower severity's items, most urgent first.
func ActionItemsFor(s Severity) []ActionItem {
	items := []ActionItem{}
	if s >= SeveritySevere {
		items = append(items, ActionItem{Code: ActionNotifyExtensionOfficer, Text: "Notify the block agriculture extension officer"})
	}
	if s >= SeverityWarning {
		items = append(items, ActionItem{Code: ActionInspectFields, Text: "Inspect fields within 24 hours"})
	}
	if s >= SeverityAdvisory {
		items = append(items, ActionItem{Code: ActionMonitorConditions, Text: "Monitor crop and weather conditions daily"})
	}
	return items
}

// Narrative is optional natural-language text produced by an Enhancer.
type Narrative struct {
	Summary string `json:"summary"`
	Impact  string `json:"impact,omitempty"`
	Advice  string `json:"advice,omitempty"`
}

// IsZero reports whether the narrative carries no text.
func (n Narrative) IsZero() bool {
	return strings.TrimSpace(n.Summary+n.Impact+n.Advice) == ""
}

// Alert is the composed advisory for a district, optionally for one crop.
type Alert struct {
	ID              string               `json:"id"`
	District        string               `json:"district"`
	Crop            string               `json:"crop,omitempty"`
	Stage           string               `json:"stage,omitempty"`
	Season          Season               `json:"season"`
	Severity        Severity             `json:"severity"`
	Recommendations []Recommendation     `json:"recommendations"`
	ActionItems     []ActionItem         `json:"action_items"`
	Observations    []WeatherObservation `json:"observations"`
	GeneratedAt     time.Time            `json:"generated_at"`
	ValidUntil      time.Time            `json:"valid_until"`
	Narrative       *Narrative           `json:"narrative,omitempty"`
}

// Clone returns a deep copy so callers can hand the alert to code they do not trust.
func (a Alert) Clone() Alert {
	out := a
	out.Recommendations = slices.Clone(a.Recommendations)
	out.ActionItems = slices.Clone(a.ActionItems)
	out.Observations = slices.Clone(a.Observations)
	if a.Narrative != nil {
		n := *a.Narrative
		out.Narrative = &n
	}
	return out
}

// Subject names what the alert is about, e.g. "Patna / Rice" or "Patna".
func (a Alert) Subject() string {
	if a.Crop == "" {
		return a.District
	}
	return a.District + " / " + upperFirst(a.Crop)
}

// upperFirst upper-cases the first rune of s.
func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
