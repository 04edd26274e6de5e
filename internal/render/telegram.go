package render

import (
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/couchcryptid/agalert-service/internal/domain"
)

// telegram renders a MarkdownV2 message. The AI narrative leads when present;
// otherwise the rule-based recommendations are told as a short story.
func (r *Renderer) telegram(a domain.Alert) ChannelMessage {
	esc := bot.EscapeMarkdown
	lines := []string{
		fmt.Sprintf("%s *%s*", severityEmoji[a.Severity], esc(severityLabel(a.Severity)+": "+a.Subject())),
		"_" + esc(contextLine(a)) + "_",
		"",
	}

	if n := a.Narrative; n != nil && !n.IsZero() {
		for _, part := range []string{n.Summary, n.Impact, n.Advice} {
			if strings.TrimSpace(part) != "" {
				lines = append(lines, esc(part))
			}
		}
	} else {
		lines = append(lines, esc(storyOf(a)))
	}

	if len(a.Recommendations) > 0 && a.Severity > domain.SeverityInfo {
		lines = append(lines, "", "*What to do*")
		for _, rec := range a.Recommendations {
			if label := dayLabel(rec); label != "" {
				lines = append(lines, esc("• "+label+": "+imperative(rec.Text)))
				continue
			}
			lines = append(lines, esc("• "+imperative(rec.Text)))
		}
	}

	if len(a.ActionItems) > 0 {
		lines = append(lines, "", "*Next steps*")
		for _, item := range a.ActionItems {
			lines = append(lines, esc("• "+item.Text))
		}
	}

	body, truncated := fitLines(lines, r.limits.Telegram, esc("(shortened, tap More info)"))
	ref := buttonRef(a.ID)
	return ChannelMessage{
		Channel:   Telegram,
		Body:      body,
		Truncated: truncated,
		ParseMode: models.ParseModeMarkdown,
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: "Acknowledge", CallbackData: "ack:" + ref},
				{Text: "More info", CallbackData: "info:" + ref},
			}},
		},
	}
}

// storyOf summarizes the forecast window in plain sentences.
func storyOf(a domain.Alert) string {
	var b strings.Builder
	if len(a.Observations) > 0 {
		first, last := a.Observations[0], a.Observations[len(a.Observations)-1]
		maxRain, maxTemp := 0.0, first.TempMaxC
		for _, o := range a.Observations {
			maxRain = max(maxRain, o.PrecipMM)
			maxTemp = max(maxTemp, o.TempMaxC)
		}
		fmt.Fprintf(&b, "From %s to %s, %s can expect up to %.0f mm of rain in a day and highs near %.0f°C.",
			first.Date.Format("2 Jan"), last.Date.Format("2 Jan"), a.District, maxRain, maxTemp)
	}
	if a.Severity == domain.SeverityInfo {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(domain.NormalConditionsMessage)
		return b.String()
	}
	if a.Stage != "" && a.Crop != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "The %s crop is at the %s stage, so the following needs attention.", a.Crop, strings.ToLower(a.Stage))
	}
	return b.String()
}
