// Command preview renders an alert for every channel from a recorded
// Open-Meteo forecast, without network access. It is used to review message
// wording and lengths before a release.
//
// Usage:
//
//	go run ./cmd/preview \
//	  -fixture data/mock/open_meteo_patna_monsoon.json \
//	  -district Patna -crop rice -days 3 -channels sms,whatsapp,ussd,ivr,telegram
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/agalert-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/agalert-service/internal/catalog"
	"github.com/couchcryptid/agalert-service/internal/domain"
	"github.com/couchcryptid/agalert-service/internal/observability"
	"github.com/couchcryptid/agalert-service/internal/pipeline"
	"github.com/couchcryptid/agalert-service/internal/render"
)

// fixtureFetcher returns the same recorded forecast for every location.
type fixtureFetcher struct {
	raw domain.RawForecast
}

func (f fixtureFetcher) FetchForecast(context.Context, float64, float64, int) (domain.RawForecast, error) {
	return f.raw, nil
}

type options struct {
	fixture  string
	district string
	crop     string
	planted  string
	days     int
	channels string
	format   string
}

func main() {
	var opts options
	flag.StringVar(&opts.fixture, "fixture", "data/mock/open_meteo_patna_monsoon.json", "Open-Meteo forecast response to replay")
	flag.StringVar(&opts.district, "district", "Patna", "district name")
	flag.StringVar(&opts.crop, "crop", "", "crop id (empty for a district-wide alert)")
	flag.StringVar(&opts.planted, "planted", "", "planting date YYYY-MM-DD")
	flag.IntVar(&opts.days, "days", 3, "forecast days (1-7)")
	flag.StringVar(&opts.channels, "channels", strings.Join(render.ChannelNames(), ","), "comma-separated channels")
	flag.StringVar(&opts.format, "format", "text", "output format: text, json or csv")
	flag.Parse()

	if err := run(opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(opts options, out io.Writer) error {
	f, err := os.Open(opts.fixture)
	if err != nil {
		return fmt.Errorf("open fixture: %w", err)
	}
	raw, err := openmeteo.DecodeForecast(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("fixture %s: %w", opts.fixture, err)
	}

	// Pin generated_at to the fixture's first day so IDs are reproducible.
	if len(raw.Records) > 0 {
		if first, err := domain.ParseDate(raw.Records[0].Date); err == nil {
			domain.SetClock(clockwork.NewFakeClockAt(first.Add(6 * time.Hour)))
			defer domain.SetClock(nil)
		}
	}

	cat, err := catalog.Default()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := pipeline.NewService(cat, fixtureFetcher{raw: raw}, render.New(render.DefaultLimits()),
		pipeline.ServiceConfig{DefaultDays: opts.days}, observability.NewMetricsForTesting(), logger)
	if err != nil {
		return err
	}

	res, err := svc.GenerateAlert(context.Background(), pipeline.AlertRequest{
		District:     opts.district,
		Crop:         opts.crop,
		Days:         opts.days,
		PlantingDate: opts.planted,
		Channels:     splitChannels(opts.channels),
	})
	if err != nil {
		return err
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "csv":
		return render.ExportCSV(out, res.Alert)
	case "text":
		return printText(out, res)
	default:
		return fmt.Errorf("unknown format %q (valid: text, json, csv)", opts.format)
	}
}

func printText(out io.Writer, res pipeline.Result) error {
	a := res.Alert
	fmt.Fprintf(out, "=== %s | %s | %s ===\n", a.Subject(), strings.ToUpper(a.Severity.String()), a.Season.Title())
	for _, r := range a.Recommendations {
		fmt.Fprintf(out, "  D%d [%s] %s\n", r.Day, r.Severity, r.Text)
	}
	for _, ch := range render.Channels {
		msg, ok := res.Messages[ch]
		if !ok {
			continue
		}
		truncated := ""
		if msg.Truncated {
			truncated = ", truncated"
		}
		fmt.Fprintf(out, "\n--- %s (%d chars%s) ---\n%s\n", ch, len([]rune(msg.Body)), truncated, msg.Body)
		for _, o := range msg.Options {
			fmt.Fprintf(out, "  [%s] %s\n", o.Key, o.Label)
		}
	}
	return nil
}

func splitChannels(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
