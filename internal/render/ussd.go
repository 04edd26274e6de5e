package render

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/agalert-service/internal/domain"
)

// USSD session prefixes: CON keeps the session open for input, END closes it.
const (
	ussdContinue = "CON "
	ussdEnd      = "END "
)

// ussd renders a root menu page plus one closing page per option. Every page
// is fitted to a single USSD screen.
func (r *Renderer) ussd(a domain.Alert) ChannelMessage {
	limit := r.limits.USSDPage
	truncated := false

	advice, cutAdvice := fitRecommendations(ussdEnd+"Advice:", a.Recommendations, "\n", smsLine, limit)
	truncated = truncated || cutAdvice

	actionLines := []string{ussdEnd + "Actions:"}
	if len(a.ActionItems) == 0 {
		actionLines = append(actionLines, "No action needed. Continue routine care.")
	}
	for _, item := range a.ActionItems {
		actionLines = append(actionLines, "- "+item.Text)
	}
	actions, cutActions := fitLines(actionLines, limit, "...")
	truncated = truncated || cutActions

	weatherLines := []string{ussdEnd + "Forecast:"}
	for _, o := range a.Observations {
		weatherLines = append(weatherLines, fmt.Sprintf("%s %.0f/%.0fC %.0fmm", o.Date.Format("02/01"), o.TempMaxC, o.TempMinC, o.PrecipMM))
	}
	weather, cutWeather := fitLines(weatherLines, limit, "...")
	truncated = truncated || cutWeather

	options := []MenuOption{
		{Key: "1", Label: "Advice", Response: advice},
		{Key: "2", Label: "Actions", Response: actions},
		{Key: "3", Label: "Forecast", Response: weather},
		{Key: "0", Label: "Exit", Response: ussdEnd + "Thank you."},
	}

	menu := make([]string, 0, len(options)+2)
	menu = append(menu, fmt.Sprintf("%sAgri Alert: %s", ussdContinue, severityLabel(a.Severity)), compactSubject(a))
	for _, o := range options {
		menu = append(menu, o.Key+". "+o.Label)
	}
	body := strings.Join(menu, "\n")
	if runeLen(body) > limit {
		body = cut(body, limit)
		truncated = true
	}

	return ChannelMessage{
		Channel:   USSD,
		Body:      body,
		Truncated: truncated,
		Options:   options,
	}
}
