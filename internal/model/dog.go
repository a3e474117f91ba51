package model

// MaxBatch is the largest number of dog ids or zip codes the service accepts
// in a single request body.
const MaxBatch = 100

// MaxFavorites is the cap on the favorites set.
const MaxFavorites = 100

// Default search bounds.
const (
	DefaultAgeMin   = 0
	DefaultAgeMax   = 20
	DefaultPageSize = 25
)

// Dog is a shelter dog record as returned by POST /dogs. Records are a cached
// copy of server-side truth and are never modified locally.
type Dog struct {
	ID      string `json:"id"`
	Img     string `json:"img"`
	Name    string `json:"name"`
	Age     int    `json:"age"`
	ZipCode string `json:"zip_code"`
	Breed   string `json:"breed"`
}

// DogSearchParams are the query parameters of GET /dogs/search.
type DogSearchParams struct {
	Breeds   []string `json:"breeds,omitempty"`
	ZipCodes []string `json:"zipCodes,omitempty"`
	AgeMin   *int     `json:"ageMin,omitempty"`
	AgeMax   *int     `json:"ageMax,omitempty"`
	Size     int      `json:"size,omitempty"`
	From     int      `json:"from,omitempty"`
	Sort     string   `json:"sort,omitempty"`
}

// DogSearchResponse is the body of GET /dogs/search.
type DogSearchResponse struct {
	ResultIDs []string `json:"resultIds"`
	Total     int      `json:"total"`
	Next      string   `json:"next,omitempty"`
	Prev      string   `json:"prev,omitempty"`
}

// MatchResponse is the body of POST /dogs/match.
type MatchResponse struct {
	Match string `json:"match"`
}

// DogIDs returns the ids of dogs in order.
func DogIDs(dogs []Dog) []string {
	ids := make([]string, len(dogs))
	for i, d := range dogs {
		ids[i] = d.ID
	}
	return ids
}
