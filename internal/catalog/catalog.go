// Package catalog serves the read-only reference data behind alerts: Bihar's
// districts with their crops and season windows, and the crop calendars.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/agalert-service/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed data/bihar.yaml
var biharYAML []byte

// Default returns the catalog built from the embedded Bihar reference data.
// It is loaded once per process and shared.
var Default = sync.OnceValues(func() (*Catalog, error) {
	return Load(bytes.NewReader(biharYAML))
})

// Catalog is an immutable index over districts and crops. It is safe for
// concurrent use.
type Catalog struct {
	districts []domain.District
	byKey     map[string]int
	crops     map[string]domain.Crop
	cropIDs   []string
	seasons   []domain.SeasonWindow
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a catalog document.
func Load(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return build(doc)
}

func build(doc document) (*Catalog, error) {
	var errs []error

	seasons, err := doc.seasonWindows(doc.Seasons)
	if err != nil {
		errs = append(errs, err)
	} else if err := domain.ValidateSeasonWindows(seasons); err != nil {
		errs = append(errs, fmt.Errorf("seasons: %w", err))
	}

	c := &Catalog{
		byKey:   make(map[string]int, len(doc.Districts)*2),
		crops:   make(map[string]domain.Crop, len(doc.Crops)),
		seasons: seasons,
	}

	for _, ce := range doc.Crops {
		crop, err := ce.toDomain()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := c.crops[crop.ID]; dup {
			errs = append(errs, fmt.Errorf("crop %s: duplicate id", crop.ID))
			continue
		}
		c.crops[crop.ID] = crop
		c.cropIDs = append(c.cropIDs, crop.ID)
	}

	for _, de := range doc.Districts {
		d, err := de.toDomain(doc, seasons)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.districts = append(c.districts, d)
	}
	sort.Slice(c.districts, func(i, j int) bool { return c.districts[i].Name < c.districts[j].Name })
	for i, d := range c.districts {
		for _, key := range []string{normalizeKey(d.Name), normalizeKey(d.ID)} {
			if prev, dup := c.byKey[key]; dup && prev != i {
				errs = append(errs, fmt.Errorf("district %s: duplicate name or id %q", d.Name, key))
				continue
			}
			c.byKey[key] = i
		}
	}

	if len(c.districts) == 0 {
		errs = append(errs, errors.New("catalog has no districts"))
	}
	if len(c.crops) == 0 {
		errs = append(errs, errors.New("catalog has no crops"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return c, nil
}

// District resolves a district by name or id, ignoring case, surrounding
// whitespace and hyphens.
func (c *Catalog) District(name string) (domain.District, error) {
	i, ok := c.byKey[normalizeKey(name)]
	if !ok {
		return domain.District{}, domain.NewValidationError(domain.ErrUnknownDistrict, name, c.ListDistricts())
	}
	return c.districts[i], nil
}

// DistrictCrops returns the crop groups grown in a district.
func (c *Catalog) DistrictCrops(name string) (domain.DistrictCrops, error) {
	d, err := c.District(name)
	if err != nil {
		return domain.DistrictCrops{}, err
	}
	return d.CropBreakdown(), nil
}

// Crop returns the calendar template for a supported crop.
func (c *Catalog) Crop(name string) (domain.Crop, error) {
	crop, ok := c.crops[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return domain.Crop{}, domain.NewValidationError(domain.ErrUnknownCrop, name, c.cropIDs)
	}
	return crop, nil
}

// CropCalendar anchors a crop's stages to planting. A zero planting date
// selects the nominal sowing date of the cycle containing on.
func (c *Catalog) CropCalendar(name string, planting, on time.Time) (domain.CropCalendar, error) {
	crop, err := c.Crop(name)
	if err != nil {
		return domain.CropCalendar{}, err
	}
	if planting.IsZero() {
		p, ok := crop.NominalPlanting(on)
		if !ok {
			// Off-season: show the next cycle.
			p, _ = crop.NominalPlanting(nextSowing(crop, on))
		}
		planting = p
	}
	return crop.Calendar(planting), nil
}

// CropIDs lists supported crops in catalog order.
func (c *Catalog) CropIDs() []string {
	return append([]string(nil), c.cropIDs...)
}

// ListDistricts returns district names in alphabetical order.
func (c *Catalog) ListDistricts() []string {
	names := make([]string, len(c.districts))
	for i, d := range c.districts {
		names[i] = d.Name
	}
	return names
}

// Districts returns every district in alphabetical order.
func (c *Catalog) Districts() []domain.District {
	return append([]domain.District(nil), c.districts...)
}

// SeasonWindows returns the catalog-wide season calendar.
func (c *Catalog) SeasonWindows() []domain.SeasonWindow {
	return append([]domain.SeasonWindow(nil), c.seasons...)
}

// nextSowing returns the first nominal sowing date after on.
func nextSowing(crop domain.Crop, on time.Time) time.Time {
	on = domain.DateOnly(on)
	var next time.Time
	for _, sd := range crop.Sowing {
		p := time.Date(on.Year(), sd.Month, sd.Day, 0, 0, 0, 0, time.UTC)
		if !p.After(on) {
			p = p.AddDate(1, 0, 0)
		}
		if next.IsZero() || p.Before(next) {
			next = p
		}
	}
	if next.IsZero() {
		return on
	}
	return next
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
