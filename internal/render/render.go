// Package render turns a composed alert into channel-specific message payloads.
package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/couchcryptid/agalert-service/internal/domain"
	"github.com/go-telegram/bot/models"
	"golang.org/x/sync/errgroup"
)

// Channel is a delivery medium.
type Channel string

const (
	SMS      Channel = "sms"
	WhatsApp Channel = "whatsapp"
	USSD     Channel = "ussd"
	IVR      Channel = "ivr"
	Telegram Channel = "telegram"
)

// Channels lists every supported channel.
var Channels = []Channel{SMS, WhatsApp, USSD, IVR, Telegram}

// ChannelNames returns the supported channel names.
func ChannelNames() []string {
	names := make([]string, len(Channels))
	for i, c := range Channels {
		names[i] = string(c)
	}
	return names
}

// ParseChannel maps a case-insensitive name to a Channel.
func ParseChannel(name string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Channels {
		if c == known {
			return c, nil
		}
	}
	return "", domain.NewValidationError(domain.ErrUnsupportedChannel, name, ChannelNames())
}

// ParseChannels maps names to channels, dropping duplicates. The first
// unsupported name fails the whole set.
func ParseChannels(names []string) ([]Channel, error) {
	seen := make(map[Channel]bool, len(names))
	out := make([]Channel, 0, len(names))
	for _, n := range names {
		c, err := ParseChannel(n)
		if err != nil {
			return nil, err
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

// MenuOption is a selectable follow-up on an interactive channel.
type MenuOption struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Response string `json:"response,omitempty"`
}

// ScriptLine is one spoken IVR prompt followed by a pause.
type ScriptLine struct {
	Text         string  `json:"text"`
	PauseSeconds float64 `json:"pause_seconds"`
}

// Button is a WhatsApp quick-reply button.
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ChannelMessage is a rendered payload ready for a delivery layer.
type ChannelMessage struct {
	Channel     Channel                      `json:"channel"`
	Body        string                       `json:"body"`
	Truncated   bool                         `json:"truncated"`
	Options     []MenuOption                 `json:"options,omitempty"`
	Script      []ScriptLine                 `json:"script,omitempty"`
	Buttons     []Button                     `json:"buttons,omitempty"`
	ParseMode   models.ParseMode             `json:"parse_mode,omitempty"`
	ReplyMarkup *models.InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// Limits caps message sizes per channel, in characters.
type Limits struct {
	SMS      int
	USSDPage int
	WhatsApp int
	Telegram int
}

// DefaultLimits returns the carrier and platform limits.
func DefaultLimits() Limits {
	return Limits{
		SMS:      160,
		USSDPage: 182,
		WhatsApp: 4096,
		Telegram: 4096,
	}
}

// Renderer formats alerts for delivery channels. It holds no mutable state
// and is safe for concurrent use.
type Renderer struct {
	limits     Limits
	formatters map[Channel]func(domain.Alert) ChannelMessage
}

// New creates a Renderer. Zero limits fall back to DefaultLimits.
func New(limits Limits) *Renderer {
	def := DefaultLimits()
	if limits.SMS <= 0 {
		limits.SMS = def.SMS
	}
	if limits.USSDPage <= 0 {
		limits.USSDPage = def.USSDPage
	}
	if limits.WhatsApp <= 0 {
		limits.WhatsApp = def.WhatsApp
	}
	if limits.Telegram <= 0 {
		limits.Telegram = def.Telegram
	}

	r := &Renderer{limits: limits}
	r.formatters = map[Channel]func(domain.Alert) ChannelMessage{
		SMS:      r.sms,
		WhatsApp: r.whatsApp,
		USSD:     r.ussd,
		IVR:      r.ivr,
		Telegram: r.telegram,
	}
	return r
}

// Render produces one message per requested channel, rendering channels
// concurrently. It fails only for unsupported channels or a cancelled ctx.
func (r *Renderer) Render(ctx context.Context, alert domain.Alert, channels ...Channel) (map[Channel]ChannelMessage, error) {
	for _, c := range channels {
		if _, ok := r.formatters[c]; !ok {
			return nil, domain.NewValidationError(domain.ErrUnsupportedChannel, string(c), ChannelNames())
		}
	}

	results := make([]ChannelMessage, len(channels))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range channels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("render %s: %w", c, err)
			}
			results[i] = r.formatters[c](alert)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[Channel]ChannelMessage, len(channels))
	for i, c := range channels {
		out[c] = results[i]
	}
	return out, nil
}
