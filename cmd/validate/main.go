// Command validate checks a reference catalog before it is deployed: schema
// and stage tables, district coverage and coordinates, and that every crop and
// stage named by the alert rules exists.
//
// Usage:
//
//	go run ./cmd/validate -catalog internal/catalog/data/bihar.yaml
//
// Without -catalog the embedded Bihar catalog is checked.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/agalert-service/internal/catalog"
	"github.com/couchcryptid/agalert-service/internal/domain"
)

const expectedDistricts = 38

// Bihar's bounding box, with a little slack.
const (
	minLat, maxLat = 24.2, 27.6
	minLon, maxLon = 83.2, 88.4
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	path := flag.String("catalog", "", "path to a catalog YAML file (default: embedded Bihar catalog)")
	flag.Parse()
	os.Exit(run(*path, os.Stdout))
}

func run(path string, out io.Writer) int {
	fmt.Fprintln(out, "=== Catalog Validation ===")
	fmt.Fprintln(out)

	cat, err := load(path)
	if err != nil {
		fmt.Fprintf(out, "  %-42s \033[31mFAIL\033[0m\n\n  %v\n", "Schema and stage tables", err)
		return 1
	}

	phases := []*phase{
		{name: "Schema and stage tables"},
		validateDistricts(cat),
		validateCrops(cat),
		validateRuleCoverage(cat, domain.DefaultRules()),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Districts: %d, crops: %d, rules: %d\n", len(cat.ListDistricts()), len(cat.CropIDs()), len(domain.DefaultRules()))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func load(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

func validateDistricts(cat *catalog.Catalog) *phase {
	p := &phase{name: "District coverage"}
	districts := cat.Districts()
	if len(districts) != expectedDistricts {
		p.errorf("expected %d districts, found %d", expectedDistricts, len(districts))
	}

	supported := make(map[string]bool)
	for _, id := range cat.CropIDs() {
		supported[id] = true
	}
	for _, d := range districts {
		if d.Lat < minLat || d.Lat > maxLat || d.Lon < minLon || d.Lon > maxLon {
			p.errorf("%s: coordinates %.2f,%.2f fall outside Bihar", d.Name, d.Lat, d.Lon)
		}
		hasSupported := false
		for _, c := range d.Crops() {
			if supported[c] {
				hasSupported = true
				break
			}
		}
		if !hasSupported {
			p.errorf("%s: grows none of the crops with calendars (%s)", d.Name, strings.Join(cat.CropIDs(), ", "))
		}
	}
	return p
}

func validateCrops(cat *catalog.Catalog) *phase {
	p := &phase{name: "Crop calendars"}
	for _, id := range cat.CropIDs() {
		crop, err := cat.Crop(id)
		if err != nil {
			p.errorf("%s: %v", id, err)
			continue
		}
		if len(crop.Sowing) == 0 {
			p.errorf("%s: no nominal sowing date", id)
		}
		for _, s := range crop.Sowing {
			if !crop.GrownIn(s.Season) {
				p.errorf("%s: sowing date in %s, which is not one of its seasons", id, s.Season)
			}
		}
	}
	return p
}

func validateRuleCoverage(cat *catalog.Catalog, rules []domain.AlertRule) *phase {
	p := &phase{name: "Rule coverage"}
	stages := make(map[string]map[string]bool)
	allStages := make(map[string]bool)
	for _, id := range cat.CropIDs() {
		crop, err := cat.Crop(id)
		if err != nil {
			continue
		}
		stages[id] = make(map[string]bool)
		for _, s := range crop.Stages {
			key := strings.ToLower(s.Name)
			stages[id][key] = true
			allStages[key] = true
		}
	}

	for _, r := range rules {
		if r.Crop != "" {
			cropStages, ok := stages[r.Crop]
			if !ok {
				p.errorf("rule %s: crop %q is not in the catalog", r.ID, r.Crop)
				continue
			}
			if r.Stage != "" && !cropStages[strings.ToLower(r.Stage)] {
				p.errorf("rule %s: %s has no stage %q", r.ID, r.Crop, r.Stage)
			}
			continue
		}
		if r.Stage != "" && !allStages[strings.ToLower(r.Stage)] {
			p.errorf("rule %s: no crop has a stage %q", r.ID, r.Stage)
		}
	}
	return p
}
