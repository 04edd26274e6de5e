package domain

import "github.com/jonboulle/clockwork"

// clock stamps GeneratedAt on composed alerts. Rule evaluation never reads it.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for alert timestamps. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
