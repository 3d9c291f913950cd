package dto

type PointRequest struct {
	Name       string            `json:"name"`
	Lat        float64           `json:"lat"`
	Lon        float64           `json:"lon"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type PlanRequest struct {
	Territories int            `json:"territories"`
	Days        int            `json:"days"`
	Points      []PointRequest `json:"points"`
}

type StopResponse struct {
	VisitOrder int     `json:"visit_order"`
	Index      int     `json:"index"`
	Name       string  `json:"name,omitempty"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	LegMeters  float64 `json:"leg_meters"`
}

type RouteResponse struct {
	Territory       int            `json:"territory"`
	Day             int            `json:"day"`
	TotalMeters     float64        `json:"total_meters"`
	Fallback        bool           `json:"fallback"`
	MissingElements int            `json:"missing_elements"`
	Stops           []StopResponse `json:"stops"`
}

type PlanResponse struct {
	RunID           string          `json:"run_id"`
	Territories     int             `json:"territories"`
	Days            int             `json:"days"`
	FallbackBuckets int             `json:"fallback_buckets"`
	Routes          []RouteResponse `json:"routes"`
}

type AssignmentResponse struct {
	Index     int `json:"index"`
	Territory int `json:"territory"`
	Day       int `json:"day"`
}

type PartitionResponse struct {
	Territories int                  `json:"territories"`
	Days        int                  `json:"days"`
	Assignments []AssignmentResponse `json:"assignments"`
}
