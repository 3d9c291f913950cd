package geo

import (
	"territory-route-service/internal/domain"
	"territory-route-service/internal/ports"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// MercatorProjector projects WGS84 (EPSG:4326) to spherical Web Mercator
// (EPSG:3857) so that k-means can use Euclidean distances in meters.
type MercatorProjector struct{}

func (MercatorProjector) Project(c domain.Coordinates) domain.Projected {
	p := project.WGS84.ToMercator(orb.Point{c.Lon, c.Lat})
	return domain.Projected{X: p.X(), Y: p.Y()}
}

// ProjectAll fills Projected on every point of the dataset in place.
func ProjectAll(ds *domain.Dataset, p ports.Projector) {
	for i := range ds.Points {
		ds.Points[i].Projected = p.Project(ds.Points[i].Coord)
	}
}
