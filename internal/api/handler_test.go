package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/eugenenazirov/cargo-loader/internal/packing"
	"github.com/eugenenazirov/cargo-loader/internal/storage"
)

type controllableClock struct {
	mu  sync.RWMutex
	now time.Time
}

func newControllableClock(initial time.Time) *controllableClock {
	return &controllableClock{now: initial}
}

func (c *controllableClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *controllableClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setupTestRouter(t *testing.T, opts ...HandlerOption) (http.Handler, *controllableClock) {
	t.Helper()

	store := storage.NewMemoryStorage()
	clock := newControllableClock(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC))

	handler := NewHandler(store, append([]HandlerOption{WithClock(clock.Now)}, opts...)...)
	logger := zaptest.NewLogger(t)
	router := NewRouter(handler, logger, WithLogging(false), WithRateLimit(0, 0))

	return router, clock
}

func doJSON(t *testing.T, router http.Handler, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload == nil {
		body = bytes.NewReader(nil)
	} else {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func repeated(count int, weight float64) []map[string]any {
	items := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, map[string]any{
			"name": "Item", "weightKg": weight, "lengthM": 0.5, "widthM": 1, "heightM": 2,
		})
	}
	return items
}

type loadBody struct {
	Algorithm string `json:"algorithm"`
	Items     int    `json:"items"`
	Trolleys  int    `json:"trolleys"`
	Message   string `json:"message"`
}

func decodeLoad(t *testing.T, rec *httptest.ResponseRecorder) loadBody {
	t.Helper()

	var body loadBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func TestRequestContextHelpers(t *testing.T) {
	if got := requestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request ID, got %q", got)
	}
	if loggerFromContext(context.Background()) == nil {
		t.Fatalf("expected a no-op logger for a bare context")
	}

	var seenID string
	handler := requestContextMiddleware(zaptest.NewLogger(t), http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seenID = requestIDFromContext(r.Context())
		loggerFromContext(r.Context()).Info("inside handler")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seenID != "abc" {
		t.Fatalf("expected abc, got %s", seenID)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "abc" {
		t.Fatalf("expected echoed request ID, got %q", got)
	}

	resp := httptest.NewRecorder()
	writeInternalError(resp, assertError("boom"))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.Code)
	}
}

type assertError string

func (a assertError) Error() string { return string(a) }

func TestHealthEndpoint(t *testing.T) {
	router, clock := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %s", body.Status)
	}
	if !body.Timestamp.Equal(clock.Now()) {
		t.Fatalf("expected timestamp %s, got %s", clock.Now(), body.Timestamp)
	}
}

func TestAlgorithmsEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t, WithDefaultAlgorithm(packing.FirstFitDecreasing))

	rec := doJSON(t, router, http.MethodGet, "/api/algorithms", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Algorithms         []string `json:"algorithms"`
		Default            string   `json:"default"`
		TrolleyMaxWeightKg float64  `json:"trolleyMaxWeightKg"`
		CargoMaxWeightKg   float64  `json:"cargoMaxWeightKg"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(body.Algorithms) != 2 {
		t.Fatalf("expected two algorithms, got %v", body.Algorithms)
	}
	if body.Default != "first_fit_decreasing" {
		t.Fatalf("expected configured default, got %s", body.Default)
	}
	if body.TrolleyMaxWeightKg != 2000 || body.CargoMaxWeightKg != 200 {
		t.Fatalf("unexpected limits: %+v", body)
	}
}

func TestLoadEndpointReferenceBatches(t *testing.T) {
	mixed := append(append(repeated(10, 10), repeated(10, 200)...), repeated(10, 190)...)

	tests := []struct {
		name      string
		algorithm string
		items     []map[string]any
		want      int
		message   string
	}{
		{name: "SingleFirstFit", algorithm: "first_fit", items: repeated(1, 100), want: 1, message: "Loaded 1 items into 1 trolley"},
		{name: "TwentyOneFirstFit", algorithm: "first_fit", items: repeated(21, 100), want: 2, message: "Loaded 21 items into 2 trolleys"},
		{name: "MixedFirstFit", algorithm: "first_fit", items: mixed, want: 3},
		{name: "MixedDecreasing", algorithm: "first_fit_decreasing", items: mixed, want: 2},
		{name: "MixedDefault", algorithm: "", items: mixed, want: 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := setupTestRouter(t)

			rec := doJSON(t, router, http.MethodPost, "/api/load", map[string]any{
				"algorithm": tc.algorithm,
				"items":     tc.items,
			})
			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
			}

			body := decodeLoad(t, rec)
			if body.Trolleys != tc.want {
				t.Fatalf("expected %d trolleys, got %d", tc.want, body.Trolleys)
			}
			if body.Items != len(tc.items) {
				t.Fatalf("expected %d items, got %d", len(tc.items), body.Items)
			}
			if tc.message != "" && body.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, body.Message)
			}
		})
	}
}

func TestLoadEndpointCargoStrings(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/load", map[string]any{
		"algorithm": "first_fit_decreasing",
		"cargo":     []string{"Item 100 0.5 1 2", "Other 150 1 1 1"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeLoad(t, rec)
	if body.Items != 2 || body.Trolleys != 1 || body.Algorithm != "first_fit_decreasing" {
		t.Fatalf("unexpected response: %+v", body)
	}
}

func TestLoadEndpointErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		raw     string
		want    int
		kind    string
	}{
		{name: "MalformedJSON", raw: "{", want: http.StatusBadRequest},
		{name: "UnknownAlgorithm", payload: map[string]any{"algorithm": "best_fit", "items": repeated(1, 10)}, want: http.StatusBadRequest},
		{name: "Empty", payload: map[string]any{}, want: http.StatusBadRequest},
		{name: "TooHeavy", payload: map[string]any{"items": repeated(1, 300)}, want: http.StatusUnprocessableEntity, kind: "validation"},
		{name: "MalformedCargo", payload: map[string]any{"cargo": []string{"Item 100 0.5"}}, want: http.StatusBadRequest, kind: "parse"},
		{name: "UnknownManifest", payload: map[string]any{"manifest": "nope"}, want: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := setupTestRouter(t)

			var rec *httptest.ResponseRecorder
			if tc.raw != "" {
				req := httptest.NewRequest(http.MethodPost, "/api/load", strings.NewReader(tc.raw))
				rec = httptest.NewRecorder()
				router.ServeHTTP(rec, req)
			} else {
				rec = doJSON(t, router, http.MethodPost, "/api/load", tc.payload)
			}

			if rec.Code != tc.want {
				t.Fatalf("expected status %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}

			var body struct {
				Error string `json:"error"`
				Kind  string `json:"kind"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body.Error == "" {
				t.Fatalf("expected error message")
			}
			if body.Kind != tc.kind {
				t.Fatalf("expected kind %q, got %q", tc.kind, body.Kind)
			}
		})
	}
}

func TestManifestLifecycle(t *testing.T) {
	router, clock := setupTestRouter(t)

	clock.Advance(time.Hour)
	rec := doJSON(t, router, http.MethodPut, "/api/manifests/dock-a", map[string]any{
		"items": repeated(21, 100),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var stored struct {
		Name      string           `json:"name"`
		Items     []map[string]any `json:"items"`
		UpdatedAt time.Time        `json:"updatedAt"`
		Message   string           `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&stored); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stored.Name != "dock-a" || len(stored.Items) != 21 || stored.Message == "" {
		t.Fatalf("unexpected manifest response: %+v", stored)
	}
	if !stored.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("expected updatedAt %s, got %s", clock.Now(), stored.UpdatedAt)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/manifests", nil)
	var list struct {
		Manifests []string `json:"manifests"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(list.Manifests) != 1 || list.Manifests[0] != "dock-a" {
		t.Fatalf("unexpected manifest list: %v", list.Manifests)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/manifests/dock-a", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/load", map[string]any{
		"manifest": "dock-a",
		"items":    repeated(1, 100),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeLoad(t, rec); body.Items != 22 || body.Trolleys != 2 {
		t.Fatalf("unexpected load result: %+v", body)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/manifests/dock-a", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/manifests/dock-a", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", rec.Code)
	}
}

func TestPutManifestFromYAML(t *testing.T) {
	router, _ := setupTestRouter(t)

	doc := "10223:\n  mass: 200\n  volume: [0.5, 1, 2]\n10224:\n  mass: 10\n  volume: [4, 1, 0.5]\n"
	req := httptest.NewRequest(http.MethodPut, "/api/manifests/yard", strings.NewReader(doc))
	req.Header.Set("Content-Type", "application/yaml; charset=utf-8")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Items []struct {
			Name     string  `json:"name"`
			WeightKg float64 `json:"weightKg"`
		} `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Items) != 2 || body.Items[0].Name != "10223" || body.Items[1].WeightKg != 10 {
		t.Fatalf("unexpected items: %+v", body.Items)
	}
}

func TestPutManifestValidatesInput(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        int
	}{
		{name: "EmptyItems", contentType: "application/json", body: `{"items": []}`, want: http.StatusBadRequest},
		{name: "BadJSON", contentType: "application/json", body: `{`, want: http.StatusBadRequest},
		{name: "InvalidItem", contentType: "application/json", body: `{"items": [{"name": "x", "weightKg": 0, "lengthM": 1, "widthM": 1, "heightM": 1}]}`, want: http.StatusUnprocessableEntity},
		{name: "YAMLMissingMass", contentType: "text/yaml", body: "x:\n  volume: [1, 1, 1]\n", want: http.StatusBadRequest},
		{name: "YAMLTooLarge", contentType: "application/x-yaml", body: "x:\n  mass: 1\n  volume: [2, 2, 2]\n", want: http.StatusUnprocessableEntity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := setupTestRouter(t)

			req := httptest.NewRequest(http.MethodPut, "/api/manifests/bad", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.contentType)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected status %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDeleteUnknownManifest(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodDelete, "/api/manifests/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestCorsPreflight(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/load", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected Access-Control-Allow-Origin header to be set")
	}
}

func TestRequestIDPropagation(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "test-request-id")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "test-request-id" {
		t.Fatalf("expected request ID to be echoed, got %q", got)
	}
}

func TestLoadEndpointLogsOutcome(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router := NewRouter(NewHandler(storage.NewMemoryStorage()), zap.New(core), WithLogging(false), WithRateLimit(0, 0))

	rec := doJSON(t, router, http.MethodPost, "/api/load", map[string]any{
		"algorithm": "first_fit_decreasing",
		"items":     repeated(21, 100),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	entries := logs.FilterMessage("cargo loaded").All()
	if len(entries) != 1 {
		t.Fatalf("expected one load log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["trolleys"] != int64(2) || fields["items"] != int64(21) {
		t.Fatalf("unexpected load log fields: %v", fields)
	}
	if fields["request_id"] != rec.Header().Get("X-Request-ID") {
		t.Fatalf("expected load log to carry the request ID, got %v", fields["request_id"])
	}
}

func TestManifestNameIsTrimmed(t *testing.T) {
	router, clock := setupTestRouter(t)
	clock.Advance(time.Hour)

	rec := doJSON(t, router, http.MethodPut, "/api/manifests/%20box", map[string]any{
		"items": repeated(2, 100),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var stored struct {
		Name      string    `json:"name"`
		UpdatedAt time.Time `json:"updatedAt"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&stored); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stored.Name != "box" {
		t.Fatalf("expected trimmed name box, got %q", stored.Name)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/manifests/box", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var fetched struct {
		UpdatedAt time.Time `json:"updatedAt"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&fetched); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !fetched.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("expected updatedAt %s, got %s", clock.Now(), fetched.UpdatedAt)
	}

	if rec := doJSON(t, router, http.MethodDelete, "/api/manifests/box%20", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 deleting with trailing space, got %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/api/manifests/box", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}
