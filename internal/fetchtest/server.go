// Package fetchtest runs an in-process fake of the Fetch dog adoption
// service for tests. It keeps a fixed catalog, issues a session cookie on
// login and can be told to start rejecting that session.
package fetchtest

import (
	"cmp"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/alfredjeanlab/dogmatch/internal/model"
)

// CookieName is the session cookie the service sets on login.
const CookieName = "fetch-access-token"

// Server is a fake Fetch service.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	dogs      []model.Dog
	locations []model.Location
	token     string
	logins    int
	expired   bool
	embedded  bool
	failNext  int
	calls     map[string]int
	pick      func(ids []string) string
}

// New starts a server with the given catalog and closes it when t ends.
func New(t testing.TB, dogs []model.Dog, locations []model.Location) *Server {
	t.Helper()
	s := &Server{
		dogs:      slices.Clone(dogs),
		locations: slices.Clone(locations),
		calls:     make(map[string]int),
		pick:      func(ids []string) string { return ids[0] },
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.login)
	mux.HandleFunc("POST /auth/logout", s.logout)
	mux.HandleFunc("GET /dogs/breeds", s.authed(s.breeds))
	mux.HandleFunc("GET /dogs/search", s.authed(s.search))
	mux.HandleFunc("POST /dogs", s.authed(s.details))
	mux.HandleFunc("POST /dogs/match", s.authed(s.match))
	mux.HandleFunc("POST /locations", s.authed(s.lookup))
	mux.HandleFunc("POST /locations/search", s.authed(s.searchLocations))
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Expire makes the service reject the current session. With embedded set,
// rejections are HTTP 200 responses carrying {"code":403}; otherwise 401.
func (s *Server) Expire(embedded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = true
	s.embedded = embedded
}

// FailNext makes the next n authenticated requests fail with HTTP 503.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// SetMatchPicker replaces the match choice (first candidate by default).
func (s *Server) SetMatchPicker(fn func(ids []string) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pick = fn
}

// Calls returns how many requests hit the route "METHOD /path".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Logins returns the number of successful logins.
func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

func (s *Server) count(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[r.Method+" "+r.URL.Path]++
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.count(r)
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Email == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.logins++
	s.token = "tok-" + strconv.Itoa(s.logins)
	s.expired = false
	token := s.token
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: token, Path: "/", HttpOnly: true})
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.count(r)
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.count(r)
		c, err := r.Cookie(CookieName)

		s.mu.Lock()
		ok := err == nil && s.token != "" && c.Value == s.token && !s.expired
		embedded := s.embedded
		fail := s.failNext > 0
		if ok && fail {
			s.failNext--
		}
		s.mu.Unlock()

		switch {
		case !ok && embedded:
			writeJSON(w, map[string]int{"code": http.StatusForbidden})
		case !ok:
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		case fail:
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		default:
			next(w, r)
		}
	}
}

func (s *Server) breeds(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, d := range s.dogs {
		out = append(out, d.Breed)
	}
	slices.Sort(out)
	writeJSON(w, slices.Compact(out))
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	breeds, zips := q["breeds[]"], q["zipCodes[]"]
	ageMin, ageMax := atoiOr(q.Get("ageMin"), -1), atoiOr(q.Get("ageMax"), -1)
	size, from := atoiOr(q.Get("size"), 25), atoiOr(q.Get("from"), 0)
	if size > 10000 || from < 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	var hits []model.Dog
	for _, d := range s.dogs {
		switch {
		case len(breeds) > 0 && !slices.Contains(breeds, d.Breed):
		case len(zips) > 0 && !slices.Contains(zips, d.ZipCode):
		case ageMin >= 0 && d.Age < ageMin:
		case ageMax >= 0 && d.Age > ageMax:
		default:
			hits = append(hits, d)
		}
	}
	s.mu.Unlock()

	sortDogs(hits, q.Get("sort"))
	resp := model.DogSearchResponse{ResultIDs: []string{}, Total: len(hits)}
	for _, d := range hits[min(from, len(hits)):min(from+size, len(hits))] {
		resp.ResultIDs = append(resp.ResultIDs, d.ID)
	}
	if from+size < len(hits) {
		resp.Next = fmt.Sprintf("/dogs/search?size=%d&from=%d", size, from+size)
	}
	if from > 0 {
		resp.Prev = fmt.Sprintf("/dogs/search?size=%d&from=%d", size, max(0, from-size))
	}
	writeJSON(w, resp)
}

func sortDogs(dogs []model.Dog, sortParam string) {
	field, dir, _ := strings.Cut(sortParam, ":")
	slices.SortStableFunc(dogs, func(a, b model.Dog) int {
		var c int
		switch field {
		case "name":
			c = cmp.Compare(a.Name, b.Name)
		case "age":
			c = cmp.Compare(a.Age, b.Age)
		default:
			c = cmp.Compare(a.Breed, b.Breed)
		}
		if dir == "desc" {
			c = -c
		}
		return c
	})
}

func (s *Server) details(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if !decodeBatch(w, r, &ids) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Catalog order, not request order, like the real service.
	out := []model.Dog{}
	for _, d := range s.dogs {
		if slices.Contains(ids, d.ID) {
			out = append(out, d)
		}
	}
	writeJSON(w, out)
}

func (s *Server) match(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if !decodeBatch(w, r, &ids) {
		return
	}
	if len(ids) == 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	pick := s.pick
	s.mu.Unlock()
	writeJSON(w, model.MatchResponse{Match: pick(ids)})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	var zips []string
	if !decodeBatch(w, r, &zips) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Location{}
	for _, z := range zips {
		for _, l := range s.locations {
			if l.ZipCode == z {
				out = append(out, l)
				break
			}
		}
	}
	writeJSON(w, out)
}

func (s *Server) searchLocations(w http.ResponseWriter, r *http.Request) {
	var p model.LocationSearchParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	size := p.Size
	if size <= 0 {
		size = 25
	}
	s.mu.Lock()
	var hits []model.Location
	for _, l := range s.locations {
		if p.City != "" && !strings.EqualFold(p.City, l.City) {
			continue
		}
		if len(p.States) > 0 && !slices.Contains(p.States, l.State) {
			continue
		}
		hits = append(hits, l)
	}
	s.mu.Unlock()
	page := hits[min(p.From, len(hits)):min(p.From+size, len(hits))]
	writeJSON(w, model.LocationSearchResponse{Results: append([]model.Location{}, page...), Total: len(hits)})
}

func decodeBatch(w http.ResponseWriter, r *http.Request, v *[]string) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil || len(*v) > model.MaxBatch {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	return true
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
