package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"territory-route-service/internal/adapters/distance"
	"territory-route-service/internal/api/dto"
	"territory-route-service/internal/geo"
	"territory-route-service/internal/services"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRouter(t *testing.T, src *distance.MockDistanceSource) http.Handler {
	t.Helper()
	opts := services.DefaultMatrixOptions()
	opts.RateInterval = 0
	builder := services.NewMatrixBuilder(src, opts, zaptest.NewLogger(t))
	planner := services.NewPlanner(builder, geo.MercatorProjector{}, services.PlannerOptions{
		Partition: services.DefaultPartitionOptions(),
	}, zaptest.NewLogger(t))
	return NewRouter(planner, Options{Version: "test", Provider: "mock", MaxBodyBytes: 1 << 20}, zaptest.NewLogger(t))
}

func planBody(t *testing.T, n, territories, days int) []byte {
	t.Helper()
	req := dto.PlanRequest{Territories: territories, Days: days}
	for i := 0; i < n; i++ {
		req.Points = append(req.Points, dto.PointRequest{
			Name: fmt.Sprintf("store-%d", i),
			Lat:  33.4 + float64(i)*0.01,
			Lon:  -112.0 + float64(i%2)*0.8,
		})
	}
	b, err := json.Marshal(req)
	require.NoError(t, err)
	return b
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t, distance.NewMockDistanceSource(nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "mock", body["distance_source"])
}

func TestPlans(t *testing.T) {
	router := newTestRouter(t, distance.NewMockDistanceSource(nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/plans", bytes.NewReader(planBody(t, 12, 2, 3)))
	req.Header.Set("X-Request-ID", "req-1")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))

	var res dto.PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 0, res.FallbackBuckets)
	require.Len(t, res.Routes, 6)

	seen := map[int]bool{}
	for _, r := range res.Routes {
		assert.GreaterOrEqual(t, r.Territory, 1)
		assert.GreaterOrEqual(t, r.Day, 1)
		for i, s := range r.Stops {
			assert.Equal(t, i+1, s.VisitOrder)
			assert.True(t, strings.HasPrefix(s.Name, "store-"))
			seen[s.Index] = true
		}
	}
	assert.Len(t, seen, 12)
}

func TestPartitions(t *testing.T) {
	src := distance.NewMockDistanceSource(nil)
	router := newTestRouter(t, src)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/partitions", bytes.NewReader(planBody(t, 7, 1, 3))))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res dto.PartitionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Assignments, 7)

	sizes := map[int]int{}
	for _, a := range res.Assignments {
		assert.Equal(t, 1, a.Territory)
		sizes[a.Day]++
	}
	assert.Equal(t, map[int]int{1: 3, 2: 2, 3: 2}, sizes)
	assert.Empty(t, src.Calls(), "partitioning must not query distances")
}

func TestPlansRejectsBadRequests(t *testing.T) {
	router := newTestRouter(t, distance.NewMockDistanceSource(nil))

	cases := map[string]struct {
		method string
		body   string
		status int
	}{
		"wrong method":     {http.MethodGet, "", http.StatusMethodNotAllowed},
		"invalid json":     {http.MethodPost, "{", http.StatusBadRequest},
		"unknown field":    {http.MethodPost, `{"territories":1,"days":1,"color":"red"}`, http.StatusBadRequest},
		"zero territories": {http.MethodPost, `{"territories":0,"days":1,"points":[{"lat":1,"lon":1}]}`, http.StatusBadRequest},
		"zero days":        {http.MethodPost, `{"territories":1,"days":0,"points":[{"lat":1,"lon":1}]}`, http.StatusBadRequest},
		"too few points":   {http.MethodPost, `{"territories":3,"days":1,"points":[{"lat":1,"lon":1}]}`, http.StatusBadRequest},
		"bad coordinates":  {http.MethodPost, `{"territories":1,"days":1,"points":[{"lat":100,"lon":1}]}`, http.StatusBadRequest},
		"two json objects": {http.MethodPost, `{"territories":1,"days":1} {}`, http.StatusBadRequest},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tc.method, "/plans", strings.NewReader(tc.body)))
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, distance.NewMockDistanceSource(nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/plans", bytes.NewReader(planBody(t, 4, 1, 1))))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "buckets_planned_total")
	assert.Contains(t, body, `http_requests_total{method="POST",path="/plans",status="200"}`)
}
