package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"territory-route-service/internal/domain"
	"territory-route-service/internal/platform/obs"
	"territory-route-service/internal/ports"
)

type googleValue struct {
	Value int `json:"value"`
}

type googleElement struct {
	Status   string      `json:"status"`
	Distance googleValue `json:"distance"`
	Duration googleValue `json:"duration"`
}

type googleMatrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []googleElement `json:"elements"`
	} `json:"rows"`
}

// GoogleSource implements DistanceSource using the Google Distance Matrix API.
// It is safe for concurrent use.
type GoogleSource struct {
	*httpClient
	apiKey  string
	baseURL string
	mode    string
}

func NewGoogleSource(apiKey, baseURL string, session *http.Client) (*GoogleSource, error) {
	if apiKey == "" {
		return nil, errors.New("new google source: api key is empty")
	}
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com"
	}

	return &GoogleSource{
		httpClient: newHTTPClient(session, nil),
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		mode:       "driving",
	}, nil
}

func (g *GoogleSource) Name() string { return "google" }

func (g *GoogleSource) Matrix(
	ctx context.Context,
	origins, destinations []domain.Coordinates,
) (_ [][]ports.MatrixCell, err error) {
	defer obs.Time(ctx, "google.Matrix")(&err)

	if len(origins) == 0 || len(destinations) == 0 {
		return emptyGrid(len(origins), len(destinations)), nil
	}

	endpoint := g.baseURL + "/maps/api/distancematrix/json"
	originsParam := joinLatLon(origins)
	destinationsParam := joinLatLon(destinations)

	resp, err := g.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := g.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("origins", originsParam)
		q.Set("destinations", destinationsParam)
		q.Set("units", "metric")
		q.Set("mode", g.mode)
		q.Set("key", g.apiKey)
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("distance matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var mr googleMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode distance matrix response: %w", err)
	}

	if mr.Status != "OK" {
		if mr.ErrorMessage != "" {
			return nil, fmt.Errorf("distance matrix status %s: %s", mr.Status, mr.ErrorMessage)
		}
		return nil, fmt.Errorf("distance matrix status %s", mr.Status)
	}

	if len(mr.Rows) != len(origins) {
		return nil, fmt.Errorf("expected %d rows; got %d", len(origins), len(mr.Rows))
	}

	out := make([][]ports.MatrixCell, len(origins))
	for i, row := range mr.Rows {
		if len(row.Elements) != len(destinations) {
			return nil, fmt.Errorf("row %d: expected %d elements; got %d", i, len(destinations), len(row.Elements))
		}

		out[i] = make([]ports.MatrixCell, len(destinations))
		for j, el := range row.Elements {
			if el.Status != "OK" {
				continue
			}
			out[i][j] = ports.MatrixCell{
				DistanceResult: ports.DistanceResult{
					DistanceMeters:  el.Distance.Value,
					DurationSeconds: el.Duration.Value,
				},
				OK: true,
			}
		}
	}

	return out, nil
}

// joinLatLon renders coordinates as "lat,lon|lat,lon".
func joinLatLon(coords []domain.Coordinates) string {
	var b strings.Builder
	for i, c := range coords {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.FormatFloat(c.Lat, 'f', 6, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(c.Lon, 'f', 6, 64))
	}
	return b.String()
}
