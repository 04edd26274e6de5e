package render

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/agalert-service/internal/domain"
)

// sms renders a single plain-text SMS:
//
//	[WARNING] Patna/Rice: D2 Heavy rain may cause waterlogging: clear ...
func (r *Renderer) sms(a domain.Alert) ChannelMessage {
	header := fmt.Sprintf("[%s] %s:", severityLabel(a.Severity), compactSubject(a))
	body, truncated := fitRecommendations(header, a.Recommendations, " ", smsLine, r.limits.SMS)
	return ChannelMessage{
		Channel:   SMS,
		Body:      body,
		Truncated: truncated,
	}
}

func smsLine(rec domain.Recommendation) string {
	text := strings.TrimSuffix(rec.Text, ".") + "."
	if tag := dayTag(rec); tag != "" {
		return tag + " " + text
	}
	return text
}
