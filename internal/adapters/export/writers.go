package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"territory-route-service/internal/domain"
	"territory-route-service/internal/platform/obs"
	"territory-route-service/internal/ports"

	"github.com/xuri/excelize/v2"
)

const (
	routesSheet  = "Routes"
	summarySheet = "Summary"
)

// CSVRouteWriter writes the route table as CSV.
type CSVRouteWriter struct {
	Path string
}

func (w CSVRouteWriter) WriteRoutes(ctx context.Context, plan *domain.Plan) (err error) {
	defer obs.Time(ctx, "export.csv.WriteRoutes")(&err)

	f, err := os.Create(w.Path)
	if err != nil {
		return fmt.Errorf("write routes: create %q: %w", w.Path, err)
	}

	if err := WriteCSV(f, plan); err != nil {
		f.Close()
		return fmt.Errorf("write routes: %q: %w", w.Path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write routes: close %q: %w", w.Path, err)
	}
	return nil
}

// WriteCSV renders the route table to out.
func WriteCSV(out io.Writer, plan *domain.Plan) error {
	header, rows := RouteTable(plan)

	cw := csv.NewWriter(out)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// XLSXRouteWriter writes a workbook with a Routes sheet and a per-bucket
// Summary sheet.
type XLSXRouteWriter struct {
	Path string
}

func (w XLSXRouteWriter) WriteRoutes(ctx context.Context, plan *domain.Plan) (err error) {
	defer obs.Time(ctx, "export.xlsx.WriteRoutes")(&err)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), routesSheet); err != nil {
		return fmt.Errorf("write routes: rename sheet: %w", err)
	}

	header, rows := RouteTable(plan)
	if err := writeSheet(f, routesSheet, header, rows, 3); err != nil {
		return fmt.Errorf("write routes: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("write routes: add summary sheet: %w", err)
	}
	header, rows = SummaryTable(plan)
	if err := writeSheet(f, summarySheet, header, rows, 4); err != nil {
		return fmt.Errorf("write routes: %w", err)
	}

	if err := f.SaveAs(w.Path); err != nil {
		return fmt.Errorf("write routes: save %q: %w", w.Path, err)
	}
	return nil
}

// writeSheet writes header and rows with a stream writer. The first
// numericCols columns are stored as numbers.
func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string, numericCols int) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("stream %s: %w", sheet, err)
	}

	if err := sw.SetRow("A1", toCells(header, 0)); err != nil {
		return fmt.Errorf("stream %s header: %w", sheet, err)
	}
	for i, r := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cellName, toCells(r, numericCols)); err != nil {
			return fmt.Errorf("stream %s row %d: %w", sheet, i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("stream %s flush: %w", sheet, err)
	}
	return nil
}

func toCells(values []string, numericCols int) []any {
	out := make([]any, len(values))
	for i, v := range values {
		if i < numericCols {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				out[i] = n
				continue
			}
		}
		out[i] = v
	}
	return out
}

// NewRouteWriter picks the CSV or XLSX writer from the file extension.
func NewRouteWriter(path string) (ports.RouteWriter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSVRouteWriter{Path: path}, nil
	case ".xlsx":
		return XLSXRouteWriter{Path: path}, nil
	}
	return nil, fmt.Errorf("new route writer: %w: unsupported output %q (want .csv or .xlsx)", domain.ErrConfiguration, path)
}
