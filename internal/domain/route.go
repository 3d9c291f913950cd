package domain

import "fmt"

// Identifies one representative's visiting day: territory and day index, both 0-based.
type BucketKey struct {
	Territory int
	Day       int
}

func (k BucketKey) String() string {
	return fmt.Sprintf("territory=%d day=%d", k.Territory+1, k.Day+1)
}

// Less orders bucket keys by territory, then day.
func (k BucketKey) Less(o BucketKey) bool {
	if k.Territory != o.Territory {
		return k.Territory < o.Territory
	}
	return k.Day < o.Day
}

// Territory and day labels attached to a point by the two partitioning stages.
type Assignment struct {
	Territory int
	Day       int
}

func (a Assignment) Key() BucketKey { return BucketKey{Territory: a.Territory, Day: a.Day} }

// Represents a single stop in a day route.
// PointIndex refers to Dataset.Points; VisitOrder is 1-based and contiguous per bucket.
type RouteStop struct {
	PointIndex int
	VisitOrder int
	LegMeters  float64
}

// Represents the ordered visits for one (territory, day) bucket.
// Fallback is set when the travel costs came from the great-circle estimate
// instead of the distance source.
type BucketRoute struct {
	Key             BucketKey
	Stops           []RouteStop
	TotalMeters     float64
	Fallback        bool
	Batches         int
	MissingElements int
}

// Plan is the full output of a planning run. Routes are sorted by bucket key.
type Plan struct {
	RunID       string
	Territories int
	Days        int
	Dataset     *Dataset
	Assignments []Assignment
	Routes      []BucketRoute
}

// FallbackCount returns how many buckets were routed on fallback distances.
func (p *Plan) FallbackCount() int {
	n := 0
	for _, r := range p.Routes {
		if r.Fallback {
			n++
		}
	}
	return n
}
