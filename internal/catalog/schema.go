package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/agalert-service/internal/domain"
)

// document is the on-disk YAML layout.
type document struct {
	Seasons   []seasonEntry   `yaml:"seasons"`
	Crops     []cropEntry     `yaml:"crops"`
	Districts []districtEntry `yaml:"districts"`
}

type seasonEntry struct {
	Season     string `yaml:"season"`
	StartMonth int    `yaml:"start_month"`
	EndMonth   int    `yaml:"end_month"`
}

type sowingEntry struct {
	Season string `yaml:"season"`
	Month  int    `yaml:"month"`
	Day    int    `yaml:"day"`
}

type stageEntry struct {
	Name     string `yaml:"name"`
	StartDay int    `yaml:"start_day"`
	EndDay   int    `yaml:"end_day"`
}

type cropEntry struct {
	ID           string        `yaml:"id"`
	Name         string        `yaml:"name"`
	Seasons      []string      `yaml:"seasons"`
	Planting     string        `yaml:"planting"`
	Harvesting   string        `yaml:"harvesting"`
	DurationDays int           `yaml:"duration_days"`
	Sowing       []sowingEntry `yaml:"sowing"`
	Stages       []stageEntry  `yaml:"stages"`
}

type districtEntry struct {
	ID        string        `yaml:"id"`
	Name      string        `yaml:"name"`
	Lat       float64       `yaml:"lat"`
	Lon       float64       `yaml:"lon"`
	Primary   []string      `yaml:"primary"`
	Secondary []string      `yaml:"secondary"`
	Specialty []string      `yaml:"specialty"`
	Seasons   []seasonEntry `yaml:"seasons,omitempty"`
}

func (doc document) seasonWindows(entries []seasonEntry) ([]domain.SeasonWindow, error) {
	if len(entries) == 0 {
		return domain.DefaultSeasonWindows(), nil
	}
	out := make([]domain.SeasonWindow, 0, len(entries))
	for _, e := range entries {
		s, err := domain.ParseSeason(e.Season)
		if err != nil {
			return nil, fmt.Errorf("seasons: %w", err)
		}
		out = append(out, domain.SeasonWindow{
			Season:     s,
			StartMonth: time.Month(e.StartMonth),
			EndMonth:   time.Month(e.EndMonth),
		})
	}
	return out, nil
}

func (e cropEntry) toDomain() (domain.Crop, error) {
	crop := domain.Crop{
		ID:           strings.ToLower(strings.TrimSpace(e.ID)),
		Name:         e.Name,
		Planting:     e.Planting,
		Harvesting:   e.Harvesting,
		DurationDays: e.DurationDays,
	}
	for _, name := range e.Seasons {
		s, err := domain.ParseSeason(name)
		if err != nil {
			return domain.Crop{}, fmt.Errorf("crop %s: %w", e.ID, err)
		}
		crop.Seasons = append(crop.Seasons, s)
	}
	for _, sw := range e.Sowing {
		s, err := domain.ParseSeason(sw.Season)
		if err != nil {
			return domain.Crop{}, fmt.Errorf("crop %s sowing: %w", e.ID, err)
		}
		crop.Sowing = append(crop.Sowing, domain.SowingDate{Season: s, Month: time.Month(sw.Month), Day: sw.Day})
	}
	for _, st := range e.Stages {
		crop.Stages = append(crop.Stages, domain.GrowthStage{Name: st.Name, StartDay: st.StartDay, EndDay: st.EndDay})
	}
	if err := crop.Validate(); err != nil {
		return domain.Crop{}, err
	}
	return crop, nil
}

func (e districtEntry) toDomain(doc document, defaults []domain.SeasonWindow) (domain.District, error) {
	if strings.TrimSpace(e.Name) == "" {
		return domain.District{}, fmt.Errorf("district %q: name is required", e.ID)
	}
	if len(e.Primary) == 0 {
		return domain.District{}, fmt.Errorf("district %s: at least one primary crop is required", e.Name)
	}
	if e.Lat < -90 || e.Lat > 90 || e.Lon < -180 || e.Lon > 180 {
		return domain.District{}, fmt.Errorf("district %s: coordinates out of range", e.Name)
	}

	seasons := defaults
	if len(e.Seasons) > 0 {
		var err error
		seasons, err = doc.seasonWindows(e.Seasons)
		if err != nil {
			return domain.District{}, fmt.Errorf("district %s: %w", e.Name, err)
		}
		if err := domain.ValidateSeasonWindows(seasons); err != nil {
			return domain.District{}, fmt.Errorf("district %s: %w", e.Name, err)
		}
	}

	id := e.ID
	if id == "" {
		id = strings.ReplaceAll(strings.ToLower(e.Name), " ", "-")
	}
	return domain.District{
		ID:        id,
		Name:      e.Name,
		Lat:       e.Lat,
		Lon:       e.Lon,
		Primary:   lower(e.Primary),
		Secondary: lower(e.Secondary),
		Specialty: lower(e.Specialty),
		Seasons:   seasons,
	}, nil
}

func lower(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
