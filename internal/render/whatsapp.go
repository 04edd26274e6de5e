package render

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/agalert-service/internal/domain"
)

// whatsApp renders a rich text message with bold headings, the daily
// forecast and quick-reply buttons.
func (r *Renderer) whatsApp(a domain.Alert) ChannelMessage {
	lines := []string{
		fmt.Sprintf("%s *%s: Weather alert for %s*", severityEmoji[a.Severity], severityLabel(a.Severity), a.Subject()),
		contextLine(a),
	}

	if len(a.Observations) > 0 {
		lines = append(lines, "", "*Forecast*")
		for _, o := range a.Observations {
			lines = append(lines, "• "+forecastLine(o))
		}
	}

	lines = append(lines, "", "*Recommendations*")
	for i, rec := range a.Recommendations {
		if label := dayLabel(rec); label != "" {
			lines = append(lines, fmt.Sprintf("%d. _%s_: %s", i+1, label, rec.Text))
			continue
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, rec.Text))
	}

	if len(a.ActionItems) > 0 {
		lines = append(lines, "", "*Action items*")
		for _, item := range a.ActionItems {
			lines = append(lines, "• "+item.Text)
		}
	}

	body, truncated := fitLines(lines, r.limits.WhatsApp, "_Message shortened. Tap More Info for details._")
	return ChannelMessage{
		Channel:   WhatsApp,
		Body:      body,
		Truncated: truncated,
		Buttons: []Button{
			{ID: "ack_" + buttonRef(a.ID), Title: "Acknowledge"},
			{ID: "info_" + buttonRef(a.ID), Title: "More Info"},
		},
	}
}

func contextLine(a domain.Alert) string {
	parts := []string{"Season: " + a.Season.Title()}
	if a.Stage != "" {
		parts = append(parts, "Stage: "+a.Stage)
	}
	if !a.ValidUntil.IsZero() {
		parts = append(parts, "Valid until: "+a.ValidUntil.Format("2 Jan 2006"))
	}
	return strings.Join(parts, " | ")
}

func forecastLine(o domain.WeatherObservation) string {
	return fmt.Sprintf("%s: %.0f/%.0f°C, rain %.0f mm (%.0f%%), wind %.0f km/h",
		o.Date.Format("Mon 2 Jan"), o.TempMaxC, o.TempMinC, o.PrecipMM, o.PrecipProbability, o.WindKmh)
}
