package api

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lumastrip/server/internal/cache"
	"github.com/lumastrip/server/internal/render"
	"github.com/lumastrip/server/internal/service"
	"github.com/lumastrip/server/pkg/palette"
)

// testServer holds the router and its dependencies
type testServer struct {
	router *chi.Mux
	cache  *cache.Manager
	jobs   *JobManager
}

// setupTestServer initializes all components against a temp SQLite file
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	cacheManager, err := cache.NewManager(cache.Config{
		StripCacheSizeMB: 8,
		StripTTL:         1 * time.Minute,
		QueryCacheSize:   16,
	})
	if err != nil {
		t.Fatalf("Failed to initialize cache: %v", err)
	}
	t.Cleanup(func() { cacheManager.Close() })

	renderer := render.NewStripRenderer(render.Config{PixelSize: 2})

	registry := NewPaletteRegistry("classic", []string{"classic", "ramp"}, "")
	palettes := map[string]*palette.Palette{
		"classic": palette.MustNew([]palette.Color{palette.Red, palette.Green, palette.Blue, palette.White}),
		"ramp":    palette.MustNew([]palette.Color{palette.Black, palette.White}, palette.Continuous(), palette.Autoscale()),
	}
	for name, p := range palettes {
		registry.Register(name, service.NewPaletteService(service.PaletteServiceConfig{
			Name:           name,
			Palette:        p,
			Cache:          cacheManager,
			Renderer:       renderer,
			MaxWidth:       64,
			MaxSheetPixels: 1024,
		}))
	}

	jobs, err := NewJobManager(JobManagerConfig{
		SQLitePath: filepath.Join(t.TempDir(), "exports.sqlite"),
	})
	if err != nil {
		t.Fatalf("Failed to initialize job manager: %v", err)
	}
	jobs.Executor = service.NewExportService(registry).ExecuteExportJob
	jobs.Start()
	t.Cleanup(jobs.Stop)

	return &testServer{
		router: NewRouter(RouterConfig{
			Registry:    registry,
			Cache:       cacheManager,
			CORSOrigins: []string{"http://localhost:3000"},
			JobManager:  jobs,
			MaxFrames:   16,
		}),
		cache: cacheManager,
		jobs:  jobs,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to parse JSON %q: %v", rr.Body.String(), err)
	}
}

type colorResponse struct {
	Color service.ColorJSON `json:"color"`
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Errorf("unexpected health response: %d %q", rr.Code, rr.Body.String())
	}
}

func TestPalettesEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, http.MethodGet, "/api/palettes", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var resp struct {
		Default  string         `json:"default"`
		Title    string         `json:"title"`
		Palettes []service.Info `json:"palettes"`
	}
	decodeJSON(t, rr, &resp)

	if resp.Default != "classic" || resp.Title != "lumastrip" {
		t.Errorf("unexpected header fields: %+v", resp)
	}
	if len(resp.Palettes) != 2 || resp.Palettes[0].Name != "classic" || resp.Palettes[1].Name != "ramp" {
		t.Fatalf("unexpected palettes: %+v", resp.Palettes)
	}
	if !resp.Palettes[1].Continuous || !resp.Palettes[1].Autoscale || resp.Palettes[1].Size != 2 {
		t.Errorf("unexpected ramp info: %+v", resp.Palettes[1])
	}
}

func TestPaletteInfoEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, http.MethodGet, "/api/palettes/classic", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Info   service.Info        `json:"info"`
		Colors []service.ColorJSON `json:"colors"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Info.Size != 4 || len(resp.Colors) != 4 || resp.Colors[2].Hex != "#0000ff" {
		t.Errorf("unexpected info: %+v", resp)
	}

	rr = ts.do(t, http.MethodGet, "/api/palettes/missing", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown palette, got %d", rr.Code)
	}
}

func TestSlotEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		path string
		code int
		hex  string
	}{
		{"/api/palettes/classic/slots/0", http.StatusOK, "#ff0000"},
		{"/api/palettes/classic/slots/5", http.StatusOK, "#00ff00"},
		{"/api/palettes/classic/slots/-1", http.StatusOK, "#ffffff"},
		{"/api/palettes/classic/slots/abc", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := ts.do(t, http.MethodGet, tt.path, "")
			if rr.Code != tt.code {
				t.Fatalf("Expected status %d, got %d", tt.code, rr.Code)
			}
			if tt.code != http.StatusOK {
				return
			}
			var resp colorResponse
			decodeJSON(t, rr, &resp)
			if resp.Color.Hex != tt.hex {
				t.Errorf("got %s, want %s", resp.Color.Hex, tt.hex)
			}
		})
	}
}

func TestColorEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		path string
		code int
		hex  string
	}{
		{"discrete", "/api/palettes/classic/color?x=1", http.StatusOK, "#00ff00"},
		{"wrap", "/api/palettes/classic/color?x=6.5", http.StatusOK, "#0000ff"},
		{"midpoint", "/api/palettes/ramp/color?x=0.5&total=1", http.StatusOK, "#808080"},
		{"missingX", "/api/palettes/classic/color", http.StatusBadRequest, ""},
		{"badX", "/api/palettes/classic/color?x=abc", http.StatusBadRequest, ""},
		{"nanX", "/api/palettes/classic/color?x=NaN", http.StatusBadRequest, ""},
		{"zeroTotal", "/api/palettes/ramp/color?x=1&total=0", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodGet, tt.path, "")
			if rr.Code != tt.code {
				t.Fatalf("Expected status %d, got %d: %s", tt.code, rr.Code, rr.Body.String())
			}
			if tt.code != http.StatusOK {
				return
			}
			var resp colorResponse
			decodeJSON(t, rr, &resp)
			if resp.Color.Hex != tt.hex {
				t.Errorf("got %s, want %s", resp.Color.Hex, tt.hex)
			}
		})
	}
}

func TestStripEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, http.MethodGet, "/api/palettes/classic/strip?width=4&offset=2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Width  int                 `json:"width"`
		Colors []service.ColorJSON `json:"colors"`
	}
	decodeJSON(t, rr, &resp)

	want := []string{"#0000ff", "#ffffff", "#ff0000", "#00ff00"}
	if resp.Width != 4 || len(resp.Colors) != len(want) {
		t.Fatalf("unexpected strip: %+v", resp)
	}
	for i, hex := range want {
		if resp.Colors[i].Hex != hex {
			t.Errorf("position %d: got %s, want %s", i, resp.Colors[i].Hex, hex)
		}
	}

	for _, path := range []string{
		"/api/palettes/classic/strip?width=0",
		"/api/palettes/classic/strip?width=65",
		"/api/palettes/classic/strip?width=x",
		"/api/palettes/classic/strip?width=4&offset=bad",
	} {
		if rr := ts.do(t, http.MethodGet, path, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rr.Code)
		}
	}
}

func TestStripPNGEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, http.MethodGet, "/api/palettes/ramp/strip.png?width=10&height=5", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected Content-Type image/png, got %s", ct)
	}

	img, err := png.Decode(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 5 {
		t.Errorf("unexpected bounds %v", b)
	}

	if rr := ts.do(t, http.MethodGet, "/api/palettes/ramp/strip.png?height=0", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for zero height, got %d", rr.Code)
	}
}

func TestResolveEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, http.MethodPost, "/api/resolve", `{
		"colors": ["red", "#00ff00", "blue"],
		"continuous": true,
		"coordinates": [0, 1, 1.5, 3]
	}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Options palette.Options     `json:"options"`
		Colors  []service.ColorJSON `json:"colors"`
	}
	decodeJSON(t, rr, &resp)

	want := []string{"#ff0000", "#55aa00", "#00ff00", "#ff0000"}
	if len(resp.Colors) != len(want) {
		t.Fatalf("unexpected colors: %+v", resp.Colors)
	}
	for i, hex := range want {
		if resp.Colors[i].Hex != hex {
			t.Errorf("coordinate %d: got %s, want %s", i, resp.Colors[i].Hex, hex)
		}
	}
	if !resp.Options.Continuous || resp.Options.Scale != 1 {
		t.Errorf("unexpected options: %+v", resp.Options)
	}

	bad := map[string]string{
		"badColor":   `{"colors": ["nope"], "coordinates": [0]}`,
		"zeroScale":  `{"colors": ["red"], "scale": 0, "coordinates": [0]}`,
		"zeroTotal":  `{"colors": ["red", "blue"], "total": 0, "coordinates": [0]}`,
		"badJSON":    `{"colors": `,
		"wrongTypes": `{"colors": "red"}`,
		"overflow":   `{"colors": ["red", "blue"], "scale": 1e300, "coordinates": [1e10]}`,
	}
	for name, body := range bad {
		t.Run(name, func(t *testing.T) {
			if rr := ts.do(t, http.MethodPost, "/api/resolve", body); rr.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestExportJobLifecycle(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, http.MethodPost, "/api/exports", `{"palette": "classic", "width": 8, "frames": 4}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", rr.Code, rr.Body.String())
	}
	var submitted struct {
		JobID string `json:"job_id"`
	}
	decodeJSON(t, rr, &submitted)
	if submitted.JobID == "" {
		t.Fatal("missing job_id")
	}

	// Poll until the worker finishes
	deadline := time.Now().Add(5 * time.Second)
	var status struct {
		Status   string `json:"status"`
		Error    string `json:"error"`
		Progress struct {
			Done  int `json:"done"`
			Total int `json:"total"`
		} `json:"progress"`
	}
	for {
		rr = ts.do(t, http.MethodGet, "/api/exports/"+submitted.JobID, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		decodeJSON(t, rr, &status)
		if status.Status == "completed" || status.Status == "failed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, last status %q", status.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if status.Status != "completed" {
		t.Fatalf("job failed: %s", status.Error)
	}
	if status.Progress.Done != 4 || status.Progress.Total != 4 {
		t.Errorf("unexpected progress %+v", status.Progress)
	}

	rr = ts.do(t, http.MethodGet, "/api/exports/"+submitted.JobID+"/result", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	img, err := png.Decode(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("Failed to decode sheet: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Errorf("unexpected sheet bounds %v", b)
	}

	rr = ts.do(t, http.MethodGet, "/api/palettes/classic/exports", "")
	var listed struct {
		Jobs []struct {
			ID string `json:"job_id"`
		} `json:"jobs"`
	}
	decodeJSON(t, rr, &listed)
	if len(listed.Jobs) != 1 || listed.Jobs[0].ID != submitted.JobID {
		t.Errorf("unexpected job list %+v", listed)
	}

	// Deleting a finished job removes it
	rr = ts.do(t, http.MethodDelete, "/api/exports/"+submitted.JobID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if rr := ts.do(t, http.MethodGet, "/api/exports/"+submitted.JobID, ""); rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", rr.Code)
	}
}

func TestExportSubmitValidation(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"unknownPalette", `{"palette": "missing"}`, http.StatusNotFound},
		{"badWidth", `{"palette": "classic", "width": 1000}`, http.StatusBadRequest},
		{"tooManyFrames", `{"palette": "classic", "width": 4, "frames": 17}`, http.StatusBadRequest},
		{"negativeFrames", `{"palette": "classic", "width": 4, "frames": -1}`, http.StatusBadRequest},
		{"stepOverflow", `{"palette": "classic", "width": 4, "frames": 3, "step": 1e308}`, http.StatusBadRequest},
		{"scaledOverflow", `{"palette": "ramp", "width": 1, "frames": 2, "step": 1e308}`, http.StatusBadRequest},
		{"sheetTooLarge", `{"palette": "classic", "width": 64, "frames": 16}`, http.StatusBadRequest},
		{"hugeStepOneFrame", `{"palette": "classic", "width": 4, "frames": 1, "step": 1e308}`, http.StatusAccepted},
		{"badJSON", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodPost, "/api/exports", tt.body)
			if rr.Code != tt.code {
				t.Errorf("Expected status %d, got %d: %s", tt.code, rr.Code, rr.Body.String())
			}
		})
	}

	for _, path := range []string{"/api/exports/nope", "/api/exports/nope/result"} {
		if rr := ts.do(t, http.MethodGet, path, ""); rr.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rr.Code)
		}
	}
}

func TestCacheEndpoints(t *testing.T) {
	ts := setupTestServer(t)

	ts.do(t, http.MethodGet, "/api/palettes/classic/strip?width=4", "")
	if _, ok := ts.cache.GetQuery(cache.ColorsKey("classic", 4, 0)); !ok {
		t.Fatal("expected strip to be cached")
	}

	rr := ts.do(t, http.MethodGet, "/api/cache/stats", "")
	var stats map[string]interface{}
	decodeJSON(t, rr, &stats)
	if stats["query_cache_len"] != float64(1) {
		t.Errorf("unexpected stats %v", stats)
	}

	rr = ts.do(t, http.MethodDelete, "/api/cache", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if _, ok := ts.cache.GetQuery(cache.ColorsKey("classic", 4, 0)); ok {
		t.Error("expected cache to be empty after reset")
	}
}

func TestCORSHeaders(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/palettes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Expected Access-Control-Allow-Origin http://localhost:3000, got %q", got)
	}
}
