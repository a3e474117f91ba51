package model

import (
	"fmt"
	"strings"
)

// SortField is a dog attribute the search endpoint can order by.
type SortField string

const (
	SortByBreed SortField = "breed"
	SortByName  SortField = "name"
	SortByAge   SortField = "age"
)

// IsValid checks whether the field is a known value.
func (f SortField) IsValid() bool {
	switch f {
	case SortByBreed, SortByName, SortByAge:
		return true
	}
	return false
}

// SortDirection is ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// IsValid checks whether the direction is a known value.
func (d SortDirection) IsValid() bool {
	return d == SortAsc || d == SortDesc
}

// Flip returns the opposite direction.
func (d SortDirection) Flip() SortDirection {
	if d == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// Sort pairs a field with a direction.
type Sort struct {
	Field     SortField     `json:"field"`
	Direction SortDirection `json:"direction"`
}

// DefaultSort is breed ascending.
var DefaultSort = Sort{Field: SortByBreed, Direction: SortAsc}

// String renders the sort as the service expects it, e.g. "breed:asc".
func (s Sort) String() string {
	return string(s.Field) + ":" + string(s.Direction)
}

// ParseSort parses "field" or "field:dir". A missing direction means ascending.
func ParseSort(s string) (Sort, error) {
	field, dir, found := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	out := Sort{Field: SortField(field), Direction: SortAsc}
	if found {
		out.Direction = SortDirection(dir)
	}
	if !out.Field.IsValid() {
		return Sort{}, fmt.Errorf("invalid sort field %q (must be breed, name or age)", field)
	}
	if !out.Direction.IsValid() {
		return Sort{}, fmt.Errorf("invalid sort direction %q (must be asc or desc)", dir)
	}
	return out, nil
}
