package domain

import "strings"

// District is one of Bihar's administrative districts with the crops commonly
// grown there.
type District struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Lat       float64        `json:"lat"`
	Lon       float64        `json:"lon"`
	Primary   []string       `json:"primary_crops"`
	Secondary []string       `json:"secondary_crops"`
	Specialty []string       `json:"specialty_crops"`
	Seasons   []SeasonWindow `json:"-"`
}

// DistrictCrops is the crop breakdown returned by catalog lookups.
type DistrictCrops struct {
	District  string   `json:"district"`
	Primary   []string `json:"primary"`
	Secondary []string `json:"secondary"`
	Specialty []string `json:"specialty"`
}

// Crops returns every crop grown in the district, primary first, without duplicates.
func (d District) Crops() []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range [][]string{d.Primary, d.Secondary, d.Specialty} {
		for _, c := range group {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// Grows reports whether crop appears in any of the district's crop groups.
func (d District) Grows(crop string) bool {
	for _, c := range d.Crops() {
		if strings.EqualFold(c, crop) {
			return true
		}
	}
	return false
}

// CropBreakdown returns the district's crop groups.
func (d District) CropBreakdown() DistrictCrops {
	return DistrictCrops{
		District:  d.Name,
		Primary:   append([]string(nil), d.Primary...),
		Secondary: append([]string(nil), d.Secondary...),
		Specialty: append([]string(nil), d.Specialty...),
	}
}

// Catalog resolves reference data by user-supplied name.
type Catalog interface {
	District(name string) (District, error)
	Crop(name string) (Crop, error)
	CropIDs() []string
}
