package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"territory-route-service/internal/domain"
	"territory-route-service/internal/platform/obs"
	"territory-route-service/internal/ports"
)

type orsMatrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Sources      []int       `json:"sources"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
}

type orsMatrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// ORSSource implements DistanceSource using the OpenRouteService matrix endpoint.
type ORSSource struct {
	*httpClient
	baseURL string
	profile string
}

func NewORSSource(apiKey, baseURL string, session *http.Client) (*ORSSource, error) {
	if apiKey == "" {
		return nil, errors.New("new ORS source: api key is empty")
	}
	if baseURL == "" {
		baseURL = "https://api.openrouteservice.org"
	}

	return &ORSSource{
		httpClient: newHTTPClient(session, map[string]string{"Authorization": apiKey}),
		baseURL:    strings.TrimRight(baseURL, "/"),
		profile:    "driving-car",
	}, nil
}

func (o *ORSSource) Name() string { return "ors" }

// Matrix posts origins followed by destinations as one location list and
// selects them with the sources/destinations index arrays.
func (o *ORSSource) Matrix(
	ctx context.Context,
	origins, destinations []domain.Coordinates,
) (_ [][]ports.MatrixCell, err error) {
	defer obs.Time(ctx, "ors.Matrix")(&err)

	if len(origins) == 0 || len(destinations) == 0 {
		return emptyGrid(len(origins), len(destinations)), nil
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)

	locations := make([][]float64, 0, len(origins)+len(destinations))
	srcIdx := make([]int, 0, len(origins))
	for _, c := range origins {
		srcIdx = append(srcIdx, len(locations))
		locations = append(locations, c.CoordsToList())
	}
	dstIdx := make([]int, 0, len(destinations))
	for _, c := range destinations {
		dstIdx = append(dstIdx, len(locations))
		locations = append(locations, c.CoordsToList())
	}

	payload, err := json.Marshal(orsMatrixRequest{
		Locations:    locations,
		Sources:      srcIdx,
		Destinations: dstIdx,
		Metrics:      []string{"distance", "duration"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal matrix request: %w", err)
	}

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var mr orsMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode matrix response: %w", err)
	}

	if len(mr.Distances) != len(origins) || len(mr.Durations) != len(origins) {
		return nil, fmt.Errorf(
			"expected %d source rows; got distances=%d durations=%d",
			len(origins), len(mr.Distances), len(mr.Durations),
		)
	}

	out := make([][]ports.MatrixCell, len(origins))
	for i := range origins {
		rowDistances, rowDurations := mr.Distances[i], mr.Durations[i]
		if len(rowDistances) != len(destinations) || len(rowDurations) != len(destinations) {
			return nil, fmt.Errorf(
				"row %d lengths do not match destinations: distances=%d durations=%d destinations=%d",
				i, len(rowDistances), len(rowDurations), len(destinations),
			)
		}

		out[i] = make([]ports.MatrixCell, len(destinations))
		for j := range destinations {
			meters, seconds := rowDistances[j], rowDurations[j]
			if meters == nil || seconds == nil {
				continue
			}
			// ORS returns float metrics; round to nearest integer for domain consistency.
			out[i][j] = ports.MatrixCell{
				DistanceResult: ports.DistanceResult{
					DistanceMeters:  int(math.Round(*meters)),
					DurationSeconds: int(math.Round(*seconds)),
				},
				OK: true,
			}
		}
	}

	return out, nil
}

func emptyGrid(rows, cols int) [][]ports.MatrixCell {
	out := make([][]ports.MatrixCell, rows)
	for i := range out {
		out[i] = make([]ports.MatrixCell, cols)
	}
	return out
}
