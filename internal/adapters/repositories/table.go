package repositories

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"territory-route-service/internal/domain"
)

const (
	LatitudeColumn  = "Latitude"
	LongitudeColumn = "Longitude"
)

// ErrNoCoordinateColumns is returned when a header has no latitude or longitude column.
var ErrNoCoordinateColumns = errors.New("no latitude/longitude columns")

var columnRenames = map[string]string{
	"geocodio latitude":  LatitudeColumn,
	"geocodio longitude": LongitudeColumn,
	"latitude":           LatitudeColumn,
	"longitude":          LongitudeColumn,
	"lat":                LatitudeColumn,
	"lon":                LongitudeColumn,
	"lng":                LongitudeColumn,
}

// NormalizeHeader trims column names and maps the known coordinate aliases
// to Latitude/Longitude. The first alias found wins; later duplicates keep
// their original name.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	taken := map[string]bool{}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if canon, ok := columnRenames[strings.ToLower(h)]; ok && !taken[canon] {
			taken[canon] = true
			h = canon
		}
		out[i] = h
	}
	return out
}

// TableStats describes what BuildDataset kept and dropped.
type TableStats struct {
	Rows    int
	Kept    int
	Dropped int
}

// BuildDataset turns a header plus string rows into points. Rows whose
// coordinates are missing, unparsable or out of range are dropped and counted.
func BuildDataset(header []string, rows [][]string) (*domain.Dataset, TableStats, error) {
	columns := NormalizeHeader(header)

	latIdx, lonIdx := -1, -1
	for i, c := range columns {
		switch c {
		case LatitudeColumn:
			latIdx = i
		case LongitudeColumn:
			lonIdx = i
		}
	}
	if latIdx < 0 || lonIdx < 0 {
		return nil, TableStats{}, fmt.Errorf("build dataset: %w in header %v", ErrNoCoordinateColumns, header)
	}

	ds := &domain.Dataset{Columns: columns, Points: make([]domain.Point, 0, len(rows))}
	stats := TableStats{Rows: len(rows)}

	for _, row := range rows {
		if isBlank(row) {
			stats.Rows--
			continue
		}

		lat, okLat := parseCoord(cell(row, latIdx))
		lon, okLon := parseCoord(cell(row, lonIdx))
		coord := domain.Coordinates{Lat: lat, Lon: lon}
		if !okLat || !okLon || !coord.Valid() {
			stats.Dropped++
			continue
		}

		attrs := make(map[string]string, len(columns))
		for i, c := range columns {
			if c == "" {
				continue
			}
			attrs[c] = cell(row, i)
		}

		ds.Points = append(ds.Points, domain.Point{
			Index:      len(ds.Points),
			Coord:      coord,
			Attributes: attrs,
		})
	}

	stats.Kept = len(ds.Points)
	return ds, stats, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseCoord(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
