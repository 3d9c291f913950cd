package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"territory-route-service/internal/domain"
	"territory-route-service/internal/platform/obs"
	"territory-route-service/internal/ports"
)

type osrmTableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// OSRMSource implements DistanceSource using an OSRM /table service.
type OSRMSource struct {
	*httpClient
	baseURL string
	profile string
}

func NewOSRMSource(baseURL string, session *http.Client) *OSRMSource {
	if baseURL == "" {
		baseURL = "https://router.project-osrm.org"
	}
	return &OSRMSource{
		httpClient: newHTTPClient(session, nil),
		baseURL:    strings.TrimRight(baseURL, "/"),
		profile:    "driving",
	}
}

func (o *OSRMSource) Name() string { return "osrm" }

func (o *OSRMSource) Matrix(
	ctx context.Context,
	origins, destinations []domain.Coordinates,
) (_ [][]ports.MatrixCell, err error) {
	defer obs.Time(ctx, "osrm.Matrix")(&err)

	if len(origins) == 0 || len(destinations) == 0 {
		return emptyGrid(len(origins), len(destinations)), nil
	}

	all := make([]string, 0, len(origins)+len(destinations))
	sources := make([]string, 0, len(origins))
	for _, c := range origins {
		sources = append(sources, strconv.Itoa(len(all)))
		all = append(all, lonLat(c))
	}
	dests := make([]string, 0, len(destinations))
	for _, c := range destinations {
		dests = append(dests, strconv.Itoa(len(all)))
		all = append(all, lonLat(c))
	}

	endpoint := fmt.Sprintf("%s/table/v1/%s/%s", o.baseURL, o.profile, strings.Join(all, ";"))

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := o.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("sources", strings.Join(sources, ";"))
		q.Set("destinations", strings.Join(dests, ";"))
		q.Set("annotations", "distance,duration")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("table request failed: %w", err)
	}
	defer resp.Body.Close()

	var tr osrmTableResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode table response: %w", err)
	}

	if tr.Code != "Ok" {
		return nil, fmt.Errorf("table code %s: %s", tr.Code, tr.Message)
	}
	if len(tr.Distances) != len(origins) {
		return nil, fmt.Errorf("expected %d rows; got %d", len(origins), len(tr.Distances))
	}

	out := make([][]ports.MatrixCell, len(origins))
	for i, row := range tr.Distances {
		if len(row) != len(destinations) {
			return nil, fmt.Errorf("row %d: expected %d cells; got %d", i, len(destinations), len(row))
		}

		out[i] = make([]ports.MatrixCell, len(destinations))
		for j, meters := range row {
			if meters == nil {
				continue
			}
			cell := ports.MatrixCell{OK: true}
			cell.DistanceMeters = int(math.Round(*meters))
			if i < len(tr.Durations) && j < len(tr.Durations[i]) && tr.Durations[i][j] != nil {
				cell.DurationSeconds = int(math.Round(*tr.Durations[i][j]))
			}
			out[i][j] = cell
		}
	}

	return out, nil
}

func lonLat(c domain.Coordinates) string {
	return strconv.FormatFloat(c.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
}
