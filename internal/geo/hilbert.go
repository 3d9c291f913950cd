package geo

import (
	"territory-route-service/internal/domain"

	"github.com/golang/geo/s2"
)

// HilbertKey returns the S2 leaf cell id of c. S2 cell ids follow a Hilbert
// curve over each cube face, so sorting by key keeps nearby points adjacent
// far better than a plain (lat, lon) sort.
func HilbertKey(c domain.Coordinates) uint64 {
	return uint64(s2.CellIDFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon)))
}
