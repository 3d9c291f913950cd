package distance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"territory-route-service/internal/domain"
	"territory-route-service/internal/ports"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	phoenix = domain.Coordinates{Lat: 33.448377, Lon: -112.074037}
	tempe   = domain.Coordinates{Lat: 33.425510, Lon: -111.940005}
	mesa    = domain.Coordinates{Lat: 33.415184, Lon: -111.831472}
)

func TestGoogleSourceMatrix(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/distancematrix/json", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"origins":      q.Get("origins"),
			"destinations": q.Get("destinations"),
			"units":        q.Get("units"),
			"mode":         q.Get("mode"),
			"key":          q.Get("key"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"rows": [
				{"elements": [
					{"status": "OK", "distance": {"value": 0}, "duration": {"value": 0}},
					{"status": "OK", "distance": {"value": 14200}, "duration": {"value": 960}},
					{"status": "ZERO_RESULTS"}
				]},
				{"elements": [
					{"status": "OK", "distance": {"value": 14100}, "duration": {"value": 950}},
					{"status": "OK", "distance": {"value": 0}, "duration": {"value": 0}},
					{"status": "OK", "distance": {"value": 11000}, "duration": {"value": 700}}
				]}
			]
		}`))
	}))
	defer srv.Close()

	src, err := NewGoogleSource("secret", srv.URL, srv.Client())
	require.NoError(t, err)

	cells, err := src.Matrix(context.Background(), []domain.Coordinates{phoenix, tempe}, []domain.Coordinates{phoenix, tempe, mesa})
	require.NoError(t, err)

	assert.Equal(t, "33.448377,-112.074037|33.425510,-111.940005", gotQuery["origins"])
	assert.Equal(t, "33.448377,-112.074037|33.425510,-111.940005|33.415184,-111.831472", gotQuery["destinations"])
	assert.Equal(t, "metric", gotQuery["units"])
	assert.Equal(t, "driving", gotQuery["mode"])
	assert.Equal(t, "secret", gotQuery["key"])

	require.Len(t, cells, 2)
	require.Len(t, cells[0], 3)
	assert.True(t, cells[0][1].OK)
	assert.Equal(t, 14200, cells[0][1].DistanceMeters)
	assert.Equal(t, 960, cells[0][1].DurationSeconds)
	assert.False(t, cells[0][2].OK)
	assert.Equal(t, 11000, cells[1][2].DistanceMeters)
}

func TestGoogleSourceTopLevelStatusFailsBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "OVER_QUERY_LIMIT", "error_message": "slow down", "rows": []}`))
	}))
	defer srv.Close()

	src, err := NewGoogleSource("secret", srv.URL, srv.Client())
	require.NoError(t, err)

	_, err = src.Matrix(context.Background(), []domain.Coordinates{phoenix}, []domain.Coordinates{tempe})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OVER_QUERY_LIMIT")
}

func TestGoogleSourceMalformedShapeFailsBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "OK", "rows": [{"elements": []}]}`))
	}))
	defer srv.Close()

	src, err := NewGoogleSource("secret", srv.URL, srv.Client())
	require.NoError(t, err)

	_, err = src.Matrix(context.Background(), []domain.Coordinates{phoenix}, []domain.Coordinates{tempe})
	assert.Error(t, err)
}

func TestGoogleSourceRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status": "OK", "rows": [{"elements": [{"status": "OK", "distance": {"value": 7}, "duration": {"value": 1}}]}]}`))
	}))
	defer srv.Close()

	src, err := NewGoogleSource("secret", srv.URL, srv.Client())
	require.NoError(t, err)
	src.backoff = time.Millisecond

	cells, err := src.Matrix(context.Background(), []domain.Coordinates{phoenix}, []domain.Coordinates{tempe})
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, 7, cells[0][0].DistanceMeters)
}

func TestGoogleSourceDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad key", http.StatusForbidden)
	}))
	defer srv.Close()

	src, err := NewGoogleSource("secret", srv.URL, srv.Client())
	require.NoError(t, err)
	src.backoff = time.Millisecond

	_, err = src.Matrix(context.Background(), []domain.Coordinates{phoenix}, []domain.Coordinates{tempe})
	require.Error(t, err)

	var he *httpStatusError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusForbidden, he.Code)
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewGoogleSourceRequiresKey(t *testing.T) {
	_, err := NewGoogleSource("", "", nil)
	assert.Error(t, err)
}

func TestGoogleSourceWaitsOnThrottleBeforeEachAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"OK","rows":[{"elements":[{"status":"OK","distance":{"value":9},"duration":{"value":3}}]}]}`))
	}))
	defer srv.Close()

	src, err := NewGoogleSource("k", srv.URL, srv.Client())
	require.NoError(t, err)
	src.backoff = time.Millisecond

	waits := 0
	ctx := ports.WithThrottle(context.Background(), func(context.Context) error {
		waits++
		return nil
	})

	cells, err := src.Matrix(ctx, []domain.Coordinates{phoenix}, []domain.Coordinates{tempe})
	require.NoError(t, err)
	assert.Equal(t, 9, cells[0][0].DistanceMeters)
	assert.Equal(t, 2, waits)
}
