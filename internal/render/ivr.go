package render

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/couchcryptid/agalert-service/internal/domain"
)

// PauseMarker separates spoken segments in an IVR body. Voice platforms map
// it to a silence of the line's PauseSeconds.
const PauseMarker = "<pause>"

const (
	shortPause = 0.5
	longPause  = 1.5
)

var speechReplacements = strings.NewReplacer(
	"°C", " degrees",
	"%", " percent",
	"km/h", "kilometres per hour",
	"/", " or ",
	"&", " and ",
	"*", "",
	"_", "",
	"#", "",
)

// speakable rewrites text for text-to-speech: symbols are spelled out and
// anything that is not a letter, digit, space or plain punctuation is dropped.
func speakable(s string) string {
	s = speechReplacements.Replace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r > unicode.MaxASCII:
			if unicode.IsLetter(r) {
				b.WriteRune(r)
			}
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			b.WriteRune(r)
		case strings.ContainsRune(".,:;?!'-()", r):
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ivr renders a voice script: greeting, severity, a long pause, the advice
// read day by day, another long pause, the action items and a key menu.
func (r *Renderer) ivr(a domain.Alert) ChannelMessage {
	var script []ScriptLine
	say := func(pause float64, format string, args ...any) {
		script = append(script, ScriptLine{Text: speakable(fmt.Sprintf(format, args...)), PauseSeconds: pause})
	}

	say(shortPause, "Namaskar. This is the Bihar agriculture weather service.")
	level := cropTitle(a.Severity.String())
	if a.Crop != "" {
		say(longPause, "%s alert for %s farmers in %s district.", level, a.Crop, a.District)
	} else {
		say(longPause, "%s alert for farmers in %s district.", level, a.District)
	}

	for _, rec := range a.Recommendations {
		if rec.Day > 0 {
			say(shortPause, "Day %d. %s", rec.Day, strings.TrimSuffix(imperative(rec.Text), ".")+".")
			continue
		}
		say(shortPause, "%s", rec.Text)
	}
	if n := len(script); n > 0 {
		script[n-1].PauseSeconds = longPause
	}

	if len(a.ActionItems) > 0 {
		say(shortPause, "Please take these actions.")
		for _, item := range a.ActionItems {
			say(shortPause, "%s.", item.Text)
		}
	}

	options := []MenuOption{
		{Key: "1", Label: "Repeat this message"},
		{Key: "2", Label: "Hear detailed advice"},
		{Key: "0", Label: "End the call"},
	}
	for _, o := range options {
		say(shortPause, "Press %s to %s.", o.Key, lowerFirst(o.Label))
	}

	var body strings.Builder
	for i, line := range script {
		if i > 0 {
			if script[i-1].PauseSeconds >= longPause {
				body.WriteString(" " + PauseMarker + " ")
			} else {
				body.WriteString(" ")
			}
		}
		body.WriteString(line.Text)
	}

	return ChannelMessage{
		Channel: IVR,
		Body:    body.String(),
		Script:  script,
		Options: options,
	}
}
