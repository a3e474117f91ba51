package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alfredjeanlab/dogmatch/internal/model"
	"github.com/alfredjeanlab/dogmatch/internal/store"
)

func ptr[T any](v T) *T { return &v }

// onPage returns a 25-per-page state with total results, moved to page.
func onPage(t *testing.T, total, page int) *State {
	t.Helper()
	s := New(25)
	s.SetTotal(total)
	s.SetPage(page)
	if got := s.Page(); got != page {
		t.Fatalf("setup: Page() = %d, want %d", got, page)
	}
	return s
}

func TestNew_Defaults(t *testing.T) {
	s := New(0)
	c := s.Criteria()
	if c.AgeMin != 0 || c.AgeMax != 20 {
		t.Errorf("ages = %d-%d, want 0-20", c.AgeMin, c.AgeMax)
	}
	if c.Sort != model.DefaultSort {
		t.Errorf("sort = %v, want breed:asc", c.Sort)
	}
	if c.PageSize != model.DefaultPageSize || c.Offset != 0 {
		t.Errorf("size/offset = %d/%d", c.PageSize, c.Offset)
	}
	if s.Page() != 1 || s.HasPrev() || s.HasNext() {
		t.Errorf("page=%d hasPrev=%v hasNext=%v", s.Page(), s.HasPrev(), s.HasNext())
	}
}

func TestSetCriteria_FilterChangesResetOffset(t *testing.T) {
	for _, tc := range []struct {
		name string
		u    Update
	}{
		{name: "breeds", u: Update{Breeds: ptr([]string{"Boxer"})}},
		{name: "zip codes", u: Update{ZipCodes: ptr([]string{"02139"})}},
		{name: "age min", u: Update{AgeMin: ptr(2)}},
		{name: "age max", u: Update{AgeMax: ptr(10)}},
		{name: "sort", u: Update{Sort: &model.Sort{Field: model.SortByAge, Direction: model.SortDesc}}},
		{name: "page size", u: Update{PageSize: ptr(50)}},
		{name: "filter wins over page", u: Update{AgeMin: ptr(1), Page: ptr(3)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := onPage(t, 200, 3)
			changed, err := s.SetCriteria(tc.u)
			if err != nil {
				t.Fatalf("SetCriteria() error = %v", err)
			}
			if !changed {
				t.Error("changed = false, want true")
			}
			if s.Criteria().Offset != 0 || s.Page() != 1 {
				t.Errorf("offset=%d page=%d, want 0/1", s.Criteria().Offset, s.Page())
			}
		})
	}
}

func TestSetCriteria_PageOnlyKeepsFilters(t *testing.T) {
	s := New(25)
	if _, err := s.SetCriteria(Update{Breeds: ptr([]string{"Pug"}), AgeMax: ptr(8)}); err != nil {
		t.Fatal(err)
	}
	s.SetTotal(100)

	changed, err := s.SetCriteria(Update{Page: ptr(3)})
	if err != nil || !changed {
		t.Fatalf("SetCriteria(page) = %v, %v", changed, err)
	}
	c := s.Criteria()
	if c.Offset != 50 {
		t.Errorf("offset = %d, want 50", c.Offset)
	}
	if len(c.Breeds) != 1 || c.Breeds[0] != "Pug" || c.AgeMax != 8 {
		t.Errorf("filters changed: %+v", c)
	}

	// Explicit offsets snap to a page boundary.
	if _, err := s.SetCriteria(Update{Offset: ptr(30)}); err != nil {
		t.Fatal(err)
	}
	if got := s.Criteria().Offset; got != 25 {
		t.Errorf("offset = %d, want 25", got)
	}
}

func TestSetCriteria_SameValuesNoChange(t *testing.T) {
	s := onPage(t, 200, 2)
	changed, err := s.SetCriteria(Update{
		Breeds: ptr([]string{}),
		AgeMin: ptr(0),
		AgeMax: ptr(20),
		Sort:   ptr(model.DefaultSort),
	})
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("changed = true for identical values")
	}
	if s.Page() != 2 {
		t.Errorf("page = %d, want 2", s.Page())
	}
}

func TestSetCriteria_BreedSetOrderInsensitive(t *testing.T) {
	s := New(25)
	_, _ = s.SetCriteria(Update{Breeds: ptr([]string{"Pug", "Boxer"})})
	s.SetTotal(100)
	s.SetPage(2)

	changed, _ := s.SetCriteria(Update{Breeds: ptr([]string{"Boxer", " Pug", "Pug"})})
	if changed {
		t.Error("reordered breed set counted as a change")
	}
	if s.Page() != 2 {
		t.Errorf("page = %d, want 2", s.Page())
	}
}

func TestSetCriteria_NonPositivePageSizeIgnored(t *testing.T) {
	for _, size := range []int{0, -5} {
		s := onPage(t, 200, 2)
		changed, err := s.SetCriteria(Update{PageSize: ptr(size)})
		if err != nil {
			t.Fatalf("SetCriteria(size=%d) error = %v", size, err)
		}
		if changed {
			t.Errorf("size=%d: changed = true", size)
		}
		if c := s.Criteria(); c.PageSize != 25 || c.Offset != 25 {
			t.Errorf("size=%d: criteria = %+v", size, c)
		}
	}
}

func TestSetCriteria_InvalidAgesRejected(t *testing.T) {
	s := onPage(t, 200, 2)
	_, err := s.SetCriteria(Update{AgeMin: ptr(10), AgeMax: ptr(3)})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *model.ValidationError", err)
	}
	if c := s.Criteria(); c.AgeMin != 0 || c.AgeMax != 20 || c.Offset != 25 {
		t.Errorf("criteria mutated on rejected update: %+v", c)
	}
}

func TestSetPage_Clamps(t *testing.T) {
	for _, tc := range []struct {
		name  string
		total int
		page  int
		want  int
	}{
		{name: "zero", total: 101, page: 0, want: 1},
		{name: "negative", total: 101, page: -3, want: 1},
		{name: "beyond last", total: 101, page: 9, want: 5},
		{name: "last", total: 101, page: 5, want: 5},
		{name: "no results", total: 0, page: 4, want: 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := New(25)
			s.SetTotal(tc.total)
			s.SetPage(tc.page)
			if got := s.Page(); got != tc.want {
				t.Errorf("Page() = %d, want %d", got, tc.want)
			}
			if off := s.Criteria().Offset; off != (tc.want-1)*25 {
				t.Errorf("offset = %d, want %d", off, (tc.want-1)*25)
			}
		})
	}
}

func TestSetPageSize(t *testing.T) {
	s := onPage(t, 200, 4)
	if !s.SetPageSize(10) {
		t.Fatal("SetPageSize(10) = false")
	}
	if s.Page() != 1 || s.TotalPages() != 20 {
		t.Errorf("page=%d pages=%d, want 1/20", s.Page(), s.TotalPages())
	}
	if s.SetPageSize(0) {
		t.Error("SetPageSize(0) = true, want no-op")
	}
}

func TestTotalPages(t *testing.T) {
	for _, tc := range []struct{ total, size, want int }{
		{0, 25, 1},
		{1, 25, 1},
		{25, 25, 1},
		{26, 25, 2},
		{101, 25, 5},
	} {
		s := New(tc.size)
		s.SetTotal(tc.total)
		if got := s.TotalPages(); got != tc.want {
			t.Errorf("TotalPages(total=%d, size=%d) = %d, want %d", tc.total, tc.size, got, tc.want)
		}
	}
}

func TestHasNextHasPrev(t *testing.T) {
	s := onPage(t, 50, 1)
	if !s.HasNext() || s.HasPrev() {
		t.Errorf("page 1: hasNext=%v hasPrev=%v", s.HasNext(), s.HasPrev())
	}
	if !s.Next() {
		t.Fatal("Next() = false")
	}
	if s.HasNext() || !s.HasPrev() {
		t.Errorf("page 2: hasNext=%v hasPrev=%v", s.HasNext(), s.HasPrev())
	}
	if s.Next() {
		t.Error("Next() past last page = true")
	}
	if !s.Prev() || s.Page() != 1 {
		t.Errorf("Prev() to page %d", s.Page())
	}
	if s.Prev() {
		t.Error("Prev() on page 1 = true")
	}
}

func TestSetTotal_ShrinkPullsCursorBack(t *testing.T) {
	s := onPage(t, 200, 8)
	s.SetTotal(60)
	if s.Page() != 3 {
		t.Errorf("Page() = %d, want 3", s.Page())
	}
}

func TestToggleSort(t *testing.T) {
	s := onPage(t, 200, 3)

	got := s.ToggleSort(model.SortByBreed)
	if got != (model.Sort{Field: model.SortByBreed, Direction: model.SortDesc}) {
		t.Errorf("toggle same field = %v, want breed:desc", got)
	}
	if s.Page() != 1 {
		t.Errorf("page = %d after sort change, want 1", s.Page())
	}

	got = s.ToggleSort(model.SortByAge)
	if got != (model.Sort{Field: model.SortByAge, Direction: model.SortAsc}) {
		t.Errorf("toggle new field while desc = %v, want age:asc", got)
	}
}

func TestToggleSort_UnknownField(t *testing.T) {
	s := onPage(t, 200, 3)

	got := s.ToggleSort(model.SortField("weight"))
	if got != model.DefaultSort {
		t.Errorf("ToggleSort(weight) = %v, want unchanged %v", got, model.DefaultSort)
	}
	if p := s.Params(); p.Sort != model.DefaultSort.String() {
		t.Errorf("Params().Sort = %q", p.Sort)
	}
	if s.Page() != 3 {
		t.Errorf("page = %d, want 3", s.Page())
	}
}

func TestReset(t *testing.T) {
	s := New(10)
	_, _ = s.SetCriteria(Update{Breeds: ptr([]string{"Pug"}), AgeMin: ptr(3), Sort: &model.Sort{Field: model.SortByName, Direction: model.SortDesc}})
	s.SetTotal(100)
	s.SetPage(4)

	s.Reset()
	c := s.Criteria()
	if len(c.Breeds) != 0 || c.AgeMin != 0 || c.AgeMax != 20 || c.Sort != model.DefaultSort {
		t.Errorf("criteria after Reset = %+v", c)
	}
	if c.PageSize != 10 || c.Offset != 0 {
		t.Errorf("size/offset after Reset = %d/%d, want 10/0", c.PageSize, c.Offset)
	}
}

func TestParamsAndFingerprint(t *testing.T) {
	s := New(25)
	_, _ = s.SetCriteria(Update{Breeds: ptr([]string{"Pug", "Boxer"}), ZipCodes: ptr([]string{"02139"})})
	s.SetTotal(100)
	s.SetPage(2)

	p := s.Params()
	if p.Size != 25 || p.From != 25 || p.Sort != "breed:asc" {
		t.Errorf("params = %+v", p)
	}
	if *p.AgeMin != 0 || *p.AgeMax != 20 {
		t.Errorf("ages = %d-%d", *p.AgeMin, *p.AgeMax)
	}
	if len(p.Breeds) != 2 || p.Breeds[0] != "Boxer" {
		t.Errorf("breeds = %v, want sorted", p.Breeds)
	}

	fp := s.Fingerprint()
	if fp != Fingerprint(s.Params()) {
		t.Error("fingerprint not stable")
	}
	s.SetPage(3)
	if s.Fingerprint() == fp {
		t.Error("fingerprint unchanged across pages")
	}
}

func TestState_JSONRoundTrip(t *testing.T) {
	s := New(25)
	_, _ = s.SetCriteria(Update{Breeds: ptr([]string{"Pug"}), AgeMax: ptr(9)})
	s.SetTotal(80)
	s.SetPage(2)

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := New(10)
	if err := json.Unmarshal(data, got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Fingerprint() != s.Fingerprint() || got.Total() != 80 || got.Page() != 2 {
		t.Errorf("restored = %+v total=%d", got.Criteria(), got.Total())
	}
}

func TestState_UnmarshalRepairs(t *testing.T) {
	got := New(25)
	raw := `{"criteria":{"age_min":9,"age_max":2,"sort":{"field":"color","direction":"up"},"page_size":0,"offset":37},"total":-4}`
	if err := json.Unmarshal([]byte(raw), got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	c := got.Criteria()
	if c.PageSize != 25 || c.Offset != 25 || c.Sort != model.DefaultSort || c.AgeMin != 0 || c.AgeMax != 20 {
		t.Errorf("repaired = %+v", c)
	}
	if got.Total() != 0 {
		t.Errorf("total = %d, want 0", got.Total())
	}
}

func TestLoadSave(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()

	st, err := Load(ctx, mem, 25)
	if err != nil {
		t.Fatalf("Load(empty) error = %v", err)
	}
	_, _ = st.SetCriteria(Update{AgeMin: ptr(4)})
	if err := Save(ctx, mem, st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again, err := Load(ctx, mem, 25)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if again.Criteria().AgeMin != 4 {
		t.Errorf("AgeMin = %d, want 4", again.Criteria().AgeMin)
	}

	_ = mem.Set(ctx, store.KeySearch, []byte("{not json"))
	fresh, err := Load(ctx, mem, 25)
	if err != nil {
		t.Fatalf("Load(corrupt) error = %v", err)
	}
	if fresh.Criteria().AgeMin != 0 {
		t.Error("corrupt state not replaced with defaults")
	}
	if _, err := mem.Get(ctx, store.KeySearch); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("corrupt blob not dropped: %v", err)
	}
}

func TestSetCriteria_PageSizeAboveBatchRejected(t *testing.T) {
	s := New(25)
	_, err := s.SetCriteria(Update{PageSize: ptr(model.MaxBatch + 1)})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *model.ValidationError", err)
	}
	if s.Criteria().PageSize != 25 {
		t.Errorf("page size = %d", s.Criteria().PageSize)
	}
}
