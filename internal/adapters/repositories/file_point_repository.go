package repositories

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"territory-route-service/internal/domain"
	"territory-route-service/internal/platform/obs"
	"territory-route-service/internal/ports"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ErrEmptyInput is returned when the input has no header row.
var ErrEmptyInput = errors.New("input has no header row")

// CSV-backed implementation of the PointRepository port.
type CSVPointRepository struct {
	Path   string
	logger *zap.Logger
}

func NewCSVPointRepository(path string, logger *zap.Logger) *CSVPointRepository {
	return &CSVPointRepository{Path: path, logger: obs.OrNop(logger)}
}

func (r *CSVPointRepository) LoadPoints(ctx context.Context) (_ *domain.Dataset, err error) {
	defer obs.Time(ctx, "points.csv.Load")(&err)

	f, err := os.Open(r.Path)
	if err != nil {
		return nil, fmt.Errorf("load points: open %q: %w", r.Path, err)
	}
	defer f.Close()

	ds, err := ReadCSV(f, r.logger)
	if err != nil {
		return nil, fmt.Errorf("load points: %q: %w", r.Path, err)
	}
	return ds, nil
}

// ReadCSV parses a CSV stream with a header row into a dataset.
func ReadCSV(in io.Reader, logger *zap.Logger) (*domain.Dataset, error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return datasetFromRecords(records, logger)
}

// XLSX-backed implementation of the PointRepository port. Sheet defaults to
// the first sheet in the workbook.
type XLSXPointRepository struct {
	Path   string
	Sheet  string
	logger *zap.Logger
}

func NewXLSXPointRepository(path, sheet string, logger *zap.Logger) *XLSXPointRepository {
	return &XLSXPointRepository{Path: path, Sheet: sheet, logger: obs.OrNop(logger)}
}

func (r *XLSXPointRepository) LoadPoints(ctx context.Context) (_ *domain.Dataset, err error) {
	defer obs.Time(ctx, "points.xlsx.Load")(&err)

	f, err := excelize.OpenFile(r.Path)
	if err != nil {
		return nil, fmt.Errorf("load points: open %q: %w", r.Path, err)
	}
	defer f.Close()

	sheet := r.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("load points: read sheet %q: %w", sheet, err)
	}

	ds, err := datasetFromRecords(rows, r.logger)
	if err != nil {
		return nil, fmt.Errorf("load points: %q: %w", r.Path, err)
	}
	return ds, nil
}

func datasetFromRecords(records [][]string, logger *zap.Logger) (*domain.Dataset, error) {
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	ds, stats, err := BuildDataset(records[0], records[1:])
	if err != nil {
		return nil, err
	}

	logger = obs.OrNop(logger)
	if stats.Dropped > 0 {
		logger.Warn("dropped rows without usable coordinates",
			zap.Int("dropped", stats.Dropped),
			zap.Int("rows", stats.Rows),
		)
	}
	logger.Info("points loaded", zap.Int("points", stats.Kept))

	return ds, nil
}

// NewPointRepository picks the CSV or XLSX repository from the file extension.
func NewPointRepository(path, sheet string, logger *zap.Logger) (ports.PointRepository, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVPointRepository(path, logger), nil
	case ".xlsx", ".xlsm":
		return NewXLSXPointRepository(path, sheet, logger), nil
	}
	return nil, fmt.Errorf("new point repository: %w: unsupported input %q (want .csv or .xlsx)", domain.ErrConfiguration, path)
}
