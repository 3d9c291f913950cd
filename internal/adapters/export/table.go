package export

import (
	"strconv"
	"strings"
	"territory-route-service/internal/adapters/repositories"
	"territory-route-service/internal/domain"
)

// Leading columns of the route table. All three are 1-based.
var routeColumns = []string{"Territory", "Day", "Visit Order"}

// excluded reports whether an input column is left out of the export.
func excluded(col string) bool {
	switch col {
	case "", repositories.LatitudeColumn, repositories.LongitudeColumn:
		return true
	}
	return strings.HasPrefix(strings.ToLower(col), "geocodio")
}

// RouteTable flattens a plan into rows sorted by territory, day and visit
// order, followed by the kept input attributes in input column order.
func RouteTable(plan *domain.Plan) (header []string, rows [][]string) {
	var attrs []string
	if plan.Dataset != nil {
		for _, c := range plan.Dataset.Columns {
			if !excluded(c) {
				attrs = append(attrs, c)
			}
		}
	}

	header = append(append([]string{}, routeColumns...), attrs...)

	for _, r := range plan.Routes {
		for _, s := range r.Stops {
			row := make([]string, 0, len(header))
			row = append(row,
				strconv.Itoa(r.Key.Territory+1),
				strconv.Itoa(r.Key.Day+1),
				strconv.Itoa(s.VisitOrder),
			)
			p := plan.Dataset.Points[s.PointIndex]
			for _, c := range attrs {
				row = append(row, p.Attributes[c])
			}
			rows = append(rows, row)
		}
	}

	return header, rows
}

// SummaryTable has one row per bucket.
func SummaryTable(plan *domain.Plan) (header []string, rows [][]string) {
	header = []string{"Territory", "Day", "Stops", "Total km", "Fallback", "Missing Pairs"}
	for _, r := range plan.Routes {
		rows = append(rows, []string{
			strconv.Itoa(r.Key.Territory + 1),
			strconv.Itoa(r.Key.Day + 1),
			strconv.Itoa(len(r.Stops)),
			strconv.FormatFloat(r.TotalMeters/1000, 'f', 2, 64),
			strconv.FormatBool(r.Fallback),
			strconv.Itoa(r.MissingElements),
		})
	}
	return header, rows
}
