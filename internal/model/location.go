package model

// Location describes a zip code as returned by POST /locations.
type Location struct {
	ZipCode   string  `json:"zip_code"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	County    string  `json:"county"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GeoBoundingBox restricts a location search to an area. Either the four
// edges (top/left/bottom/right) or two opposite corners are expected.
type GeoBoundingBox struct {
	Top         *Coordinates `json:"top,omitempty"`
	Left        *Coordinates `json:"left,omitempty"`
	Bottom      *Coordinates `json:"bottom,omitempty"`
	Right       *Coordinates `json:"right,omitempty"`
	BottomLeft  *Coordinates `json:"bottom_left,omitempty"`
	TopLeft     *Coordinates `json:"top_left,omitempty"`
	BottomRight *Coordinates `json:"bottom_right,omitempty"`
	TopRight    *Coordinates `json:"top_right,omitempty"`
}

// LocationSearchParams is the body of POST /locations/search.
type LocationSearchParams struct {
	City           string          `json:"city,omitempty"`
	States         []string        `json:"states,omitempty" validate:"omitempty,dive,len=2,uppercase"`
	GeoBoundingBox *GeoBoundingBox `json:"geoBoundingBox,omitempty"`
	Size           int             `json:"size,omitempty" validate:"gte=0,lte=10000"`
	From           int             `json:"from,omitempty" validate:"gte=0"`
}

// LocationSearchResponse is the body of POST /locations/search.
type LocationSearchResponse struct {
	Results []Location `json:"results"`
	Total   int        `json:"total"`
}

// ZipCodes returns the zip codes of locations in order, skipping duplicates.
func ZipCodes(locs []Location) []string {
	seen := make(map[string]bool, len(locs))
	zips := make([]string, 0, len(locs))
	for _, l := range locs {
		if l.ZipCode == "" || seen[l.ZipCode] {
			continue
		}
		seen[l.ZipCode] = true
		zips = append(zips, l.ZipCode)
	}
	return zips
}
