package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/dogmatch/internal/idgen"
	"github.com/alfredjeanlab/dogmatch/internal/model"
)

// DefaultTimeout applies when no timeout option is given.
const DefaultTimeout = 15 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 8 << 20

// HTTPClient implements FetchClient using the Fetch HTTP/JSON REST API.
// Authentication is a cookie set by /auth/login and held in the client's jar.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	jar        *sessionJar
	logger     *slog.Logger
}

// sessionJar is the client's cookie jar for its whole lifetime. reset
// empties it in place so requests already in flight keep a valid jar.
type sessionJar struct {
	mu  sync.Mutex
	jar *cookiejar.Jar
}

func newSessionJar() *sessionJar {
	// cookiejar.New only fails on a bad PublicSuffixList, and we pass none.
	jar, _ := cookiejar.New(nil)
	return &sessionJar{jar: jar}
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

func (j *sessionJar) reset() {
	jar, _ := cookiejar.New(nil)
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar = jar
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *HTTPClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTransport replaces the underlying round tripper (tests, proxies).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *HTTPClient) {
		if rt != nil {
			c.httpClient.Transport = rt
		}
	}
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "https://frontend-take-home-service.fetch.com").
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	jar := newSessionJar()
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Jar: jar, Timeout: DefaultTimeout},
		jar:        jar,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// Cookies returns the session cookies currently held for the service.
func (c *HTTPClient) Cookies() []*http.Cookie {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil
	}
	return c.jar.Cookies(u)
}

// SetCookies seeds the jar with previously saved session cookies.
func (c *HTTPClient) SetCookies(cookies []*http.Cookie) {
	u, err := url.Parse(c.baseURL)
	if err != nil || len(cookies) == 0 {
		return
	}
	c.jar.SetCookies(u, cookies)
}

// ClearCookies drops every cookie held for the service. It is safe to call
// while requests are in flight.
func (c *HTTPClient) ClearCookies() {
	c.jar.reset()
}

// --- Auth ---

func (c *HTTPClient) Login(ctx context.Context, name, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/login", &LoginRequest{Name: name, Email: email}, nil)
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// --- Dogs ---

func (c *HTTPClient) Breeds(ctx context.Context) ([]string, error) {
	var breeds []string
	if err := c.doJSON(ctx, http.MethodGet, "/dogs/breeds", nil, &breeds); err != nil {
		return nil, err
	}
	return breeds, nil
}

func (c *HTTPClient) SearchDogs(ctx context.Context, params *model.DogSearchParams) (*model.DogSearchResponse, error) {
	path := "/dogs/search"
	if q := searchQuery(params); len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp model.DogSearchResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// searchQuery encodes params the way the service's query parser expects
// arrays: repeated "breeds[]" keys.
func searchQuery(p *model.DogSearchParams) url.Values {
	q := url.Values{}
	if p == nil {
		return q
	}
	for _, b := range p.Breeds {
		q.Add("breeds[]", b)
	}
	for _, z := range p.ZipCodes {
		q.Add("zipCodes[]", z)
	}
	if p.AgeMin != nil {
		q.Set("ageMin", strconv.Itoa(*p.AgeMin))
	}
	if p.AgeMax != nil {
		q.Set("ageMax", strconv.Itoa(*p.AgeMax))
	}
	if p.Size > 0 {
		q.Set("size", strconv.Itoa(p.Size))
	}
	if p.From > 0 {
		q.Set("from", strconv.Itoa(p.From))
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	return q
}

func (c *HTTPClient) Dogs(ctx context.Context, ids []string) ([]model.Dog, error) {
	if err := model.ValidateBatch("ids", ids); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Dog{}, nil
	}
	var dogs []model.Dog
	if err := c.doJSON(ctx, http.MethodPost, "/dogs", ids, &dogs); err != nil {
		return nil, err
	}
	return dogs, nil
}

func (c *HTTPClient) Match(ctx context.Context, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", &model.ValidationError{Errors: []model.FieldError{{Field: "ids", Message: "at least one dog is required"}}}
	}
	if err := model.ValidateBatch("ids", ids); err != nil {
		return "", err
	}
	var resp model.MatchResponse
	if err := c.doJSON(ctx, http.MethodPost, "/dogs/match", ids, &resp); err != nil {
		return "", err
	}
	return resp.Match, nil
}

// --- Locations ---

func (c *HTTPClient) Locations(ctx context.Context, zipCodes []string) ([]model.Location, error) {
	if err := model.ValidateBatch("zipCodes", zipCodes); err != nil {
		return nil, err
	}
	if len(zipCodes) == 0 {
		return []model.Location{}, nil
	}
	var locs []model.Location
	if err := c.doJSON(ctx, http.MethodPost, "/locations", zipCodes, &locs); err != nil {
		return nil, err
	}
	return locs, nil
}

func (c *HTTPClient) SearchLocations(ctx context.Context, params *model.LocationSearchParams) (*model.LocationSearchResponse, error) {
	if params == nil {
		params = &model.LocationSearchParams{}
	}
	if err := model.ValidateLocationSearch(params); err != nil {
		return nil, err
	}
	var resp model.LocationSearchResponse
	if err := c.doJSON(ctx, http.MethodPost, "/locations/search", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- internal helpers ---

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (login/logout return plain "OK").
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	reqID := idgen.RequestID()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "request failed", "method", method, "path", path, "request_id", reqID, "err", err)
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()
	c.logger.DebugContext(ctx, "request done",
		"method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "elapsed", time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &authError{StatusCode: resp.StatusCode}
	}

	// 204 No Content: success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &NetworkError{Op: "reading response", Err: err}
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &errResp) == nil {
			if errResp.Error != "" {
				return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
			}
			if errResp.Message != "" {
				return &APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if embeddedForbidden(respBody) {
		return &authError{StatusCode: resp.StatusCode, Embedded: true}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// embeddedForbidden detects the service's habit of answering 200 with an
// error object whose code is 403.
func embeddedForbidden(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var probe struct {
		Code *int `json:"code"`
	}
	if json.Unmarshal(trimmed, &probe) != nil || probe.Code == nil {
		return false
	}
	return *probe.Code == http.StatusForbidden
}
