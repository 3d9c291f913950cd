package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"territory-route-service/internal/api/dto"
	"territory-route-service/internal/domain"
)

// RoutePlanner is the planning surface the HTTP layer depends on.
type RoutePlanner interface {
	Plan(ctx context.Context, ds *domain.Dataset, territories, days int) (*domain.Plan, error)
	Partition(ctx context.Context, ds *domain.Dataset, territories, days int) ([]domain.Assignment, error)
}

type PlanHandler struct {
	Planner      RoutePlanner
	NameColumn   string
	MaxBodyBytes int64
}

// Plan partitions the posted points and returns one ordered route per
// (territory, day) bucket.
func (h *PlanHandler) Plan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ds, req, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	plan, err := h.Planner.Plan(r.Context(), ds, req.Territories, req.Days)
	if err != nil {
		writeServiceError(w, r, "plan", err)
		return
	}

	res := dto.PlanResponse{
		RunID:           plan.RunID,
		Territories:     plan.Territories,
		Days:            plan.Days,
		FallbackBuckets: plan.FallbackCount(),
		Routes:          make([]dto.RouteResponse, 0, len(plan.Routes)),
	}
	for _, route := range plan.Routes {
		stops := make([]dto.StopResponse, 0, len(route.Stops))
		for _, s := range route.Stops {
			p := ds.Points[s.PointIndex]
			stops = append(stops, dto.StopResponse{
				VisitOrder: s.VisitOrder,
				Index:      s.PointIndex,
				Name:       p.Name(h.nameColumn()),
				Lat:        p.Coord.Lat,
				Lon:        p.Coord.Lon,
				LegMeters:  s.LegMeters,
			})
		}
		res.Routes = append(res.Routes, dto.RouteResponse{
			Territory:       route.Key.Territory + 1,
			Day:             route.Key.Day + 1,
			TotalMeters:     route.TotalMeters,
			Fallback:        route.Fallback,
			MissingElements: route.MissingElements,
			Stops:           stops,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Partition returns territory and day assignments only; it never queries a
// distance source.
func (h *PlanHandler) Partition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ds, req, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	assignments, err := h.Planner.Partition(r.Context(), ds, req.Territories, req.Days)
	if err != nil {
		writeServiceError(w, r, "partition", err)
		return
	}

	res := dto.PartitionResponse{
		Territories: req.Territories,
		Days:        req.Days,
		Assignments: make([]dto.AssignmentResponse, 0, len(assignments)),
	}
	for i, a := range assignments {
		res.Assignments = append(res.Assignments, dto.AssignmentResponse{
			Index:     i,
			Territory: a.Territory + 1,
			Day:       a.Day + 1,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *PlanHandler) nameColumn() string {
	if h.NameColumn == "" {
		return "Retailer"
	}
	return h.NameColumn
}

func (h *PlanHandler) readRequest(w http.ResponseWriter, r *http.Request) (*domain.Dataset, dto.PlanRequest, bool) {
	var req dto.PlanRequest
	if !decodeJSON(w, r, h.MaxBodyBytes, &req) {
		return nil, req, false
	}

	if req.Territories < 1 {
		writeError(w, r, http.StatusBadRequest, "territories must be >= 1")
		return nil, req, false
	}
	if req.Days < 1 {
		writeError(w, r, http.StatusBadRequest, "days must be >= 1")
		return nil, req, false
	}
	if len(req.Points) < req.Territories {
		writeError(w, r, http.StatusBadRequest,
			fmt.Sprintf("%d points cannot form %d territories", len(req.Points), req.Territories))
		return nil, req, false
	}

	ds, err := h.dataset(req.Points)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return nil, req, false
	}
	return ds, req, true
}

func (h *PlanHandler) dataset(points []dto.PointRequest) (*domain.Dataset, error) {
	name := h.nameColumn()
	columnSet := map[string]bool{}
	ds := &domain.Dataset{Points: make([]domain.Point, 0, len(points))}

	for i, p := range points {
		c := domain.Coordinates{Lat: p.Lat, Lon: p.Lon}
		if !c.Valid() {
			return nil, fmt.Errorf("point %d: coordinates out of range", i)
		}

		attrs := make(map[string]string, len(p.Attributes)+1)
		for k, v := range p.Attributes {
			attrs[k] = v
			columnSet[k] = true
		}
		if p.Name != "" {
			attrs[name] = p.Name
		}

		ds.Points = append(ds.Points, domain.Point{Index: i, Coord: c, Attributes: attrs})
	}

	ds.Columns = append(ds.Columns, name)
	delete(columnSet, name)
	extra := make([]string, 0, len(columnSet))
	for k := range columnSet {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	ds.Columns = append(ds.Columns, extra...)

	return ds, nil
}
