package render

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/couchcryptid/agalert-service/internal/domain"
)

const ellipsis = "..."

// maxButtonRef bounds the alert reference carried in button payloads.
// Telegram callback data is limited to 64 bytes.
const maxButtonRef = 36

var severityEmoji = map[domain.Severity]string{
	domain.SeverityInfo:     "✅",
	domain.SeverityAdvisory: "ℹ️",
	domain.SeverityWarning:  "⚠️",
	domain.SeveritySevere:   "🚨",
}

func severityLabel(s domain.Severity) string {
	return strings.ToUpper(s.String())
}

func cropTitle(crop string) string {
	return upperFirst(crop)
}

// upperFirst upper-cases the first rune of s.
func upperFirst(s string) string {
	return mapFirst(s, unicode.ToUpper)
}

func lowerFirst(s string) string {
	return mapFirst(s, unicode.ToLower)
}

func mapFirst(s string, f func(rune) rune) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(f(r)) + s[n:]
}

// compactSubject is Subject without spaces, for size-constrained channels.
func compactSubject(a domain.Alert) string {
	if a.Crop == "" {
		return a.District
	}
	return a.District + "/" + cropTitle(a.Crop)
}

// buttonRef returns the alert ID for button payloads. IDs longer than a UUID
// are replaced by a UUID derived from them.
func buttonRef(id string) string {
	if len(id) <= maxButtonRef {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func dayTag(rec domain.Recommendation) string {
	if rec.Day <= 0 {
		return ""
	}
	return fmt.Sprintf("D%d", rec.Day)
}

func dayLabel(rec domain.Recommendation) string {
	if rec.Day <= 0 {
		return ""
	}
	if rec.Date.IsZero() {
		return fmt.Sprintf("Day %d", rec.Day)
	}
	return fmt.Sprintf("Day %d (%s)", rec.Day, rec.Date.Format("Mon 2 Jan"))
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// cut shortens s to at most limit runes, ending in an ellipsis.
func cut(s string, limit int) string {
	if runeLen(s) <= limit {
		return s
	}
	if limit <= len(ellipsis) {
		return string([]rune(s)[:limit])
	}
	r := []rune(s)[:limit-len(ellipsis)]
	return strings.TrimRightFunc(string(r), unicode.IsSpace) + ellipsis
}

// fitRecommendations joins recommendation texts under header, dropping the
// least severe entry (the latest one on ties) until the result fits limit.
// The last survivor is cut if it still does not fit.
func fitRecommendations(header string, recs []domain.Recommendation, sep string, format func(domain.Recommendation) string, limit int) (string, bool) {
	keep := make([]domain.Recommendation, len(recs))
	copy(keep, recs)

	build := func() string {
		parts := make([]string, len(keep))
		for i, r := range keep {
			parts[i] = format(r)
		}
		if len(parts) == 0 {
			return header
		}
		return header + sep + strings.Join(parts, sep)
	}

	truncated := false
	body := build()
	for len(keep) > 1 && runeLen(body) > limit {
		drop := 0
		for i, r := range keep {
			if r.Severity <= keep[drop].Severity {
				drop = i
			}
		}
		keep = append(keep[:drop], keep[drop+1:]...)
		truncated = true
		body = build()
	}
	if runeLen(body) > limit {
		body = cut(body, limit)
		truncated = true
	}
	return body, truncated
}

// fitLines joins lines with newlines. When the result exceeds limit it keeps
// the leading lines that fit and closes with tail, reporting the truncation.
func fitLines(lines []string, limit int, tail string) (string, bool) {
	full := strings.Join(lines, "\n")
	if runeLen(full) <= limit {
		return full, false
	}
	budget := limit - runeLen(tail) - 1
	var kept []string
	used := 0
	for _, l := range lines {
		n := runeLen(l)
		if len(kept) > 0 {
			n++
		}
		if used+n > budget {
			break
		}
		kept = append(kept, l)
		used += n
	}
	return strings.Join(append(kept, tail), "\n"), true
}

// imperative returns the advice part of a recommendation, the text after
// the first colon.
func imperative(text string) string {
	if _, after, ok := strings.Cut(text, ": "); ok && after != "" {
		return upperFirst(after)
	}
	return text
}
