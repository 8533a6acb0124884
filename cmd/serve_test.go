package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/popframe/internal/config"
	"github.com/sells-group/popframe/internal/model"
	"github.com/sells-group/popframe/internal/store"
)

const testSettlements = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [0, 0]},
     "properties": {"id": 1, "name": "Alpha", "population": 2000000}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [1000, 0]},
     "properties": {"id": 2, "name": "Beta", "population": 60000}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [5000, 0]},
     "properties": {"id": 3, "name": "Gamma", "population": 3000}}
  ]
}`

const testBoundary = `{"type": "Polygon", "coordinates": [[[-10000, -10000], [10000, -10000], [10000, 10000], [-10000, 10000], [-10000, -10000]]]}`

func testConfig() *config.Config {
	return &config.Config{
		Agglomeration: config.AgglomerationConfig{
			BaseTime:      80,
			TimeStep:      10,
			MinPopulation: 15000,
			RadiusUnit:    500,
			QuadSegments:  16,
		},
		Analysis:   config.AnalysisConfig{Resolution: 1, Seed: 1, Weighting: "uniform"},
		Population: config.PopulationConfig{CityMultiplier: 10},
		Server:     config.ServerConfig{Port: 8080, RatePerSec: 10, Burst: 20},
		Store:      config.StoreConfig{Driver: "none"},
		Log:        config.LogConfig{Level: "info", Format: "json"},
	}
}

func regionBody(t *testing.T, populations string) []byte {
	t.Helper()
	req := map[string]any{
		"settlements": json.RawMessage(testSettlements),
		"matrix": map[string]any{
			"ids": []int64{1, 2, 3},
			"values": [][]float64{
				{0, 10, 30},
				{10, 0, 20},
				{30, 20, 0},
			},
		},
		"boundary": json.RawMessage(testBoundary),
	}
	if populations != "" {
		req["populations"] = json.RawMessage(populations)
	}
	b, err := json.Marshal(req)
	require.NoError(t, err)
	return b
}

func newTestServer(t *testing.T, st store.Store, limiter *rate.Limiter) http.Handler {
	t.Helper()
	eng, err := newEngine(testConfig())
	require.NoError(t, err)
	return newServer(eng, st, limiter).routes()
}

type featureCollection struct {
	Type     string `json:"type"`
	Features []struct {
		Geometry struct {
			Type string `json:"type"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

func decodeFeatures(t *testing.T, rec *httptest.ResponseRecorder) featureCollection {
	t.Helper()
	var fc featureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	return fc
}

func post(h http.Handler, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestNetworkEndpoint(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := post(h, "/network", regionBody(t, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("X-Run-ID"))

	fc := decodeFeatures(t, rec)
	counts := map[string]int{}
	for _, f := range fc.Features {
		counts[f.Geometry.Type]++
	}
	assert.Equal(t, 3, counts["Point"])
	assert.Equal(t, 2, counts["LineString"])
}

func TestNetworkEndpoint_InvalidJSON(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := post(h, "/network", []byte(`{"settlements":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid input")
}

func TestNetworkEndpoint_MissingBoundary(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := post(h, "/network", []byte(`{"settlements":`+testSettlements+`}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNetworkEndpoint_MatrixMismatch(t *testing.T) {
	h := newTestServer(t, nil, nil)

	body := strings.Replace(string(regionBody(t, "")), `"ids":[1,2,3]`, `"ids":[1,2,4]`, 1)
	rec := post(h, "/network", []byte(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestNetworkEndpoint_UnknownPopulationID(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := post(h, "/network", regionBody(t, `{"99": 5000}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestNetworkEndpoint_Views(t *testing.T) {
	h := newTestServer(t, nil, nil)

	fc := decodeFeatures(t, post(h, "/network?view=nodes", regionBody(t, "")))
	require.Len(t, fc.Features, 3)
	for _, f := range fc.Features {
		assert.Equal(t, "Point", f.Geometry.Type)
	}

	fc = decodeFeatures(t, post(h, "/network?view=edges", regionBody(t, "")))
	require.Len(t, fc.Features, 2)
	for _, f := range fc.Features {
		assert.Equal(t, "LineString", f.Geometry.Type)
	}
}

func TestNetworkEndpoint_PopulationUnits(t *testing.T) {
	h := newTestServer(t, nil, nil)

	// One unit around Alpha and Beta; both have median time 10 and share it evenly.
	units := `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[-500, -500], [1500, -500], [1500, 500], [-500, 500], [-500, -500]]]},
	   "properties": {"id": 1, "population": 100000}}
	]}`
	rec := post(h, "/network?view=nodes", regionBody(t, units))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	pops := map[string]float64{}
	for _, f := range decodeFeatures(t, rec).Features {
		pops[f.Properties["name"].(string)] = f.Properties["population"].(float64)
	}
	assert.Equal(t, map[string]float64{"Alpha": 50000, "Beta": 50000, "Gamma": 3000}, pops)
}

func TestNetworkEndpoint_InvalidUnits(t *testing.T) {
	h := newTestServer(t, nil, nil)

	units := `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "geometry": {"type": "Point", "coordinates": [0, 0]}, "properties": {"population": 100}}
	]}`
	rec := post(h, "/network", regionBody(t, units))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestAgglomerationsEndpoint_RecordsRun(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	h := newTestServer(t, st, nil)

	rec := post(h, "/agglomerations", regionBody(t, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	runID := rec.Header().Get("X-Run-ID")
	require.NotEmpty(t, runID)

	fc := decodeFeatures(t, rec)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Polygon", fc.Features[0].Geometry.Type)

	run, err := st.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, model.RunKindAgglomeration, run.Kind)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Summary)
	assert.Equal(t, 3, run.Summary.Settlements)
	assert.Equal(t, 1, run.Summary.Agglomerations)
}

func TestAgglomerationsEndpoint_MembershipView(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := post(h, "/agglomerations?view=membership", regionBody(t, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	fc := decodeFeatures(t, rec)
	require.Len(t, fc.Features, 3)
	for _, f := range fc.Features {
		assert.Equal(t, "Point", f.Geometry.Type)
		assert.NotEqual(t, "outside", f.Properties["status"])
	}
}

func TestAnalysisEndpoint(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := post(h, "/analysis", regionBody(t, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	fc := decodeFeatures(t, rec)
	require.NotEmpty(t, fc.Features)
	var total float64
	for _, f := range fc.Features {
		assert.Equal(t, "Polygon", f.Geometry.Type)
		total += f.Properties["population"].(float64)
	}
	assert.InDelta(t, 2063000.0, total, 0.5)
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, nil, rate.NewLimiter(rate.Limit(0.001), 1))

	first := post(h, "/network", regionBody(t, ""))
	assert.Equal(t, http.StatusOK, first.Code)

	second := post(h, "/network", regionBody(t, ""))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// health is not limited
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/analysis", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
