package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"territory-route-service/internal/ports"
)

// uniquePairs drops blank and repeated pairs and returns them as parallel
// origin/destination slices.
func uniquePairs(pairs []ports.DistancePair) (origins, destinations []string) {
	seen := make(map[ports.DistancePair]struct{}, len(pairs))
	for _, p := range pairs {
		if validPair(p) != nil {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		origins = append(origins, p.Origin)
		destinations = append(destinations, p.Destination)
	}
	return origins, destinations
}

// groupByOrigin returns the unique destinations requested per origin.
func groupByOrigin(pairs []ports.DistancePair) map[string][]string {
	origins, destinations := uniquePairs(pairs)
	out := make(map[string][]string)
	for i, o := range origins {
		out[o] = append(out[o], destinations[i])
	}
	return out
}

func validPair(p ports.DistancePair) error {
	if strings.TrimSpace(p.Origin) == "" || strings.TrimSpace(p.Destination) == "" {
		return errors.New("empty origin or destination key")
	}
	return nil
}

func scanDistances(rows *sql.Rows, hint int) (map[ports.DistancePair]ports.DistanceResult, error) {
	out := make(map[ports.DistancePair]ports.DistanceResult, hint)
	for rows.Next() {
		var p ports.DistancePair
		var meters, seconds int
		if err := rows.Scan(&p.Origin, &p.Destination, &meters, &seconds); err != nil {
			return nil, fmt.Errorf("get distance cache: scan rows: %w", err)
		}
		out[p] = ports.DistanceResult{
			DistanceMeters:  meters,
			DurationSeconds: seconds,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get distance cache: row iteration: %w", err)
	}
	return out, nil
}
