package domain

// Represents a single geocoded location handled by the planner.
// A Point is created once during ingestion and never mutated afterwards;
// territory and day labels live in Assignment values alongside it.
type Point struct {
	Index      int
	Coord      Coordinates
	Projected  Projected
	Attributes map[string]string
}

// Name returns the display attribute stored under key, or "" when absent.
func (p Point) Name(key string) string {
	if p.Attributes == nil {
		return ""
	}
	return p.Attributes[key]
}

// Dataset is the ingested input: the attribute column order (for export) and
// the points in input order. Point.Index equals the position in Points.
type Dataset struct {
	Columns []string
	Points  []Point
}
