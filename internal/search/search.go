// Package search holds the dog search criteria and pagination state, and
// turns it into GET /dogs/search parameters.
//
// Changing any filter (breeds, zip codes, age bounds), the sort, or the page
// size moves the cursor back to the first page. Offsets are always a multiple
// of the page size and page numbers are clamped rather than rejected.
package search

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/alfredjeanlab/dogmatch/internal/model"
)

// Criteria is the persisted search input.
type Criteria struct {
	Breeds   []string   `json:"breeds,omitempty"`
	ZipCodes []string   `json:"zip_codes,omitempty"`
	AgeMin   int        `json:"age_min"`
	AgeMax   int        `json:"age_max"`
	Sort     model.Sort `json:"sort"`
	PageSize int        `json:"page_size"`
	Offset   int        `json:"offset"`
}

// DefaultCriteria returns breed:asc, ages 0-20, no breed or zip filter.
func DefaultCriteria(pageSize int) Criteria {
	if pageSize <= 0 {
		pageSize = model.DefaultPageSize
	}
	pageSize = min(pageSize, model.MaxBatch)
	return Criteria{
		AgeMin:   model.DefaultAgeMin,
		AgeMax:   model.DefaultAgeMax,
		Sort:     model.DefaultSort,
		PageSize: pageSize,
	}
}

func (c Criteria) clone() Criteria {
	c.Breeds = slices.Clone(c.Breeds)
	c.ZipCodes = slices.Clone(c.ZipCodes)
	return c
}

// Update is a partial change to Criteria. Nil fields are left alone.
type Update struct {
	Breeds   *[]string
	ZipCodes *[]string
	AgeMin   *int
	AgeMax   *int
	Sort     *model.Sort
	PageSize *int
	// Page and Offset move the cursor without touching filters. Page wins
	// when both are set. Both are ignored if a filter changed.
	Page   *int
	Offset *int
}

// State is the search state machine. It is safe for concurrent use.
type State struct {
	mu    sync.RWMutex
	c     Criteria
	total int
}

// New returns a State with default criteria and the given page size.
func New(pageSize int) *State {
	return &State{c: DefaultCriteria(pageSize)}
}

// Criteria returns a copy of the current criteria.
func (s *State) Criteria() Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.c.clone()
}

// SetCriteria merges u into the current criteria and reports whether anything
// changed. Age bounds and sort are validated as a whole; an invalid update is
// rejected with a *model.ValidationError and nothing is applied, as is a page
// size above model.MaxBatch. A page size <= 0 is ignored.
func (s *State) SetCriteria(u Update) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.c.clone()
	filtered := false

	if u.Breeds != nil {
		if b := normalize(*u.Breeds); !slices.Equal(b, next.Breeds) {
			next.Breeds = b
			filtered = true
		}
	}
	if u.ZipCodes != nil {
		if z := normalize(*u.ZipCodes); !slices.Equal(z, next.ZipCodes) {
			next.ZipCodes = z
			filtered = true
		}
	}
	if u.AgeMin != nil && *u.AgeMin != next.AgeMin {
		next.AgeMin = *u.AgeMin
		filtered = true
	}
	if u.AgeMax != nil && *u.AgeMax != next.AgeMax {
		next.AgeMax = *u.AgeMax
		filtered = true
	}
	if u.Sort != nil && *u.Sort != next.Sort {
		next.Sort = *u.Sort
		filtered = true
	}
	if u.PageSize != nil && *u.PageSize > model.MaxBatch {
		return false, &model.ValidationError{Errors: []model.FieldError{{Field: "size", Message: fmt.Sprintf("must be at most %d", model.MaxBatch)}}}
	}
	if u.PageSize != nil && *u.PageSize > 0 && *u.PageSize != next.PageSize {
		next.PageSize = *u.PageSize
		filtered = true
	}

	if err := validate(next); err != nil {
		return false, err
	}

	if filtered {
		next.Offset = 0
		s.c = next
		return true, nil
	}

	switch {
	case u.Page != nil:
		return s.setPageLocked(*u.Page), nil
	case u.Offset != nil:
		return s.setPageLocked(*u.Offset/s.c.PageSize + 1), nil
	}
	return false, nil
}

func validate(c Criteria) error {
	ve := &model.ValidationError{}
	if err := model.ValidateAgeRange(c.AgeMin, c.AgeMax); err != nil {
		ve = err.(*model.ValidationError)
	}
	if !c.Sort.Field.IsValid() || !c.Sort.Direction.IsValid() {
		ve.Errors = append(ve.Errors, model.FieldError{Field: "sort", Message: "invalid sort " + c.Sort.String()})
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// normalize trims, drops blanks and duplicates, and sorts, so equal sets
// compare equal.
func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// SetPage moves to page n, clamped to [1, TotalPages].
func (s *State) SetPage(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setPageLocked(n)
}

func (s *State) setPageLocked(n int) bool {
	n = max(1, min(n, s.totalPagesLocked()))
	offset := (n - 1) * s.c.PageSize
	if offset == s.c.Offset {
		return false
	}
	s.c.Offset = offset
	return true
}

// SetPageSize changes the page size and returns to page 1. n <= 0 is a no-op.
func (s *State) SetPageSize(n int) bool {
	changed, _ := s.SetCriteria(Update{PageSize: &n})
	return changed
}

// SetTotal records the total match count from the latest applied result.
// The cursor is pulled back if the result set shrank below it.
func (s *State) SetTotal(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = max(0, total)
	if pages := s.totalPagesLocked(); s.c.Offset/s.c.PageSize+1 > pages {
		s.c.Offset = (pages - 1) * s.c.PageSize
	}
}

// Total returns the last recorded total.
func (s *State) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// TotalPages is ceil(total/pageSize), never less than 1.
func (s *State) TotalPages() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalPagesLocked()
}

func (s *State) totalPagesLocked() int {
	pages := (s.total + s.c.PageSize - 1) / s.c.PageSize
	return max(1, pages)
}

// Page is the 1-based current page.
func (s *State) Page() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.c.Offset/s.c.PageSize + 1
}

// HasNext reports whether results exist past the current page.
func (s *State) HasNext() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.c.Offset+s.c.PageSize < s.total
}

// HasPrev reports whether the current page is past the first.
func (s *State) HasPrev() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.c.Offset/s.c.PageSize+1 > 1
}

// Next advances one page if there is one.
func (s *State) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c.Offset+s.c.PageSize >= s.total {
		return false
	}
	return s.setPageLocked(s.c.Offset/s.c.PageSize + 2)
}

// Prev goes back one page if possible.
func (s *State) Prev() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setPageLocked(s.c.Offset / s.c.PageSize)
}

// ToggleSort flips the direction when field is already active, otherwise
// selects field ascending. The cursor returns to page 1. An unknown field
// leaves the sort and cursor unchanged.
func (s *State) ToggleSort(field model.SortField) model.Sort {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !field.IsValid() {
		return s.c.Sort
	}
	if s.c.Sort.Field == field {
		s.c.Sort.Direction = s.c.Sort.Direction.Flip()
	} else {
		s.c.Sort = model.Sort{Field: field, Direction: model.SortAsc}
	}
	s.c.Offset = 0
	return s.c.Sort
}

// Reset restores default filters and sort, keeping the page size.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = DefaultCriteria(s.c.PageSize)
	s.total = 0
}

// Params builds the search request for the current criteria.
func (s *State) Params() *model.DogSearchParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.c.Params()
}

// Params builds the search request for c.
func (c Criteria) Params() *model.DogSearchParams {
	ageMin, ageMax := c.AgeMin, c.AgeMax
	return &model.DogSearchParams{
		Breeds:   slices.Clone(c.Breeds),
		ZipCodes: slices.Clone(c.ZipCodes),
		AgeMin:   &ageMin,
		AgeMax:   &ageMax,
		Size:     c.PageSize,
		From:     c.Offset,
		Sort:     c.Sort.String(),
	}
}

// Fingerprint identifies the request the current criteria produce.
func (s *State) Fingerprint() string {
	return Fingerprint(s.Params())
}

// Fingerprint hashes search params. Equal params give equal fingerprints.
func Fingerprint(p *model.DogSearchParams) string {
	data, _ := json.Marshal(p)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// snapshot is the persisted form of State.
type snapshot struct {
	Criteria Criteria `json:"criteria"`
	Total    int      `json:"total"`
}

// MarshalJSON encodes criteria and the last known total.
func (s *State) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(snapshot{Criteria: s.c, Total: s.total})
}

// UnmarshalJSON restores a State, repairing values that break its
// invariants (non-positive page size, unaligned offset, invalid sort).
func (s *State) UnmarshalJSON(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	c := snap.Criteria
	if c.PageSize <= 0 || c.PageSize > model.MaxBatch {
		c.PageSize = model.DefaultPageSize
	}
	if !c.Sort.Field.IsValid() || !c.Sort.Direction.IsValid() {
		c.Sort = model.DefaultSort
	}
	if model.ValidateAgeRange(c.AgeMin, c.AgeMax) != nil {
		c.AgeMin, c.AgeMax = model.DefaultAgeMin, model.DefaultAgeMax
	}
	c.Breeds = normalize(c.Breeds)
	c.ZipCodes = normalize(c.ZipCodes)
	c.Offset = max(0, c.Offset) / c.PageSize * c.PageSize

	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = c
	s.total = max(0, snap.Total)
	return nil
}
