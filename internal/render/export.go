package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/couchcryptid/agalert-service/internal/domain"
)

var csvHeader = []string{
	"alert_id", "district", "crop", "season", "stage", "severity",
	"day", "date", "rule_id", "rule_severity", "recommendation", "generated_at",
}

// ExportCSV writes one row per recommendation of each alert.
func ExportCSV(w io.Writer, alerts ...domain.Alert) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range alerts {
		for _, rec := range a.Recommendations {
			date := ""
			if !rec.Date.IsZero() {
				date = rec.Date.Format(time.DateOnly)
			}
			row := []string{
				a.ID, a.District, a.Crop, string(a.Season), a.Stage, a.Severity.String(),
				strconv.Itoa(rec.Day), date, rec.RuleID, rec.Severity.String(), rec.Text,
				a.GeneratedAt.UTC().Format(time.RFC3339),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write csv row for %s: %w", a.ID, err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
