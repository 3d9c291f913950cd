package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"path/filepath"
	"territory-route-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func samplePlan() *domain.Plan {
	ds := &domain.Dataset{
		Columns: []string{"Retailer", "Latitude", "Longitude", "Geocodio Accuracy Score", "City"},
		Points: []domain.Point{
			{Index: 0, Attributes: map[string]string{"Retailer": "A", "City": "Phoenix", "Latitude": "1"}},
			{Index: 1, Attributes: map[string]string{"Retailer": "B", "City": "Tempe"}},
			{Index: 2, Attributes: map[string]string{"Retailer": "C", "City": "Mesa"}},
		},
	}
	return &domain.Plan{
		Dataset: ds,
		Routes: []domain.BucketRoute{
			{
				Key:         domain.BucketKey{Territory: 0, Day: 0},
				Stops:       []domain.RouteStop{{PointIndex: 2, VisitOrder: 1}, {PointIndex: 0, VisitOrder: 2, LegMeters: 1500}},
				TotalMeters: 1500,
			},
			{
				Key:      domain.BucketKey{Territory: 1, Day: 1},
				Stops:    []domain.RouteStop{{PointIndex: 1, VisitOrder: 1}},
				Fallback: true,
			},
		},
	}
}

func TestRouteTable(t *testing.T) {
	header, rows := RouteTable(samplePlan())

	assert.Equal(t, []string{"Territory", "Day", "Visit Order", "Retailer", "City"}, header)
	assert.Equal(t, [][]string{
		{"1", "1", "1", "C", "Mesa"},
		{"1", "1", "2", "A", "Phoenix"},
		{"2", "2", "1", "B", "Tempe"},
	}, rows)
}

func TestSummaryTable(t *testing.T) {
	_, rows := SummaryTable(samplePlan())
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "1", "2", "1.50", "false", "0"}, rows[0])
	assert.Equal(t, "true", rows[1][4])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, samplePlan()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "Visit Order", records[0][2])
	assert.Equal(t, "Phoenix", records[2][4])
}

func TestXLSXRouteWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.xlsx")
	w, err := NewRouteWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteRoutes(context.Background(), samplePlan()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(routesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Territory", "Day", "Visit Order", "Retailer", "City"}, rows[0])
	assert.Equal(t, []string{"2", "2", "1", "B", "Tempe"}, rows[3])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Len(t, summary, 3)
}

func TestCSVRouteWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.csv")
	w, err := NewRouteWriter(path)
	require.NoError(t, err)
	assert.NoError(t, w.WriteRoutes(context.Background(), samplePlan()))
}

func TestNewRouteWriterRejectsUnknownExtension(t *testing.T) {
	_, err := NewRouteWriter("routes.txt")
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}
