package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"territory-route-service/internal/domain"
	"territory-route-service/internal/geo"
	"territory-route-service/internal/platform/metrics"
	"territory-route-service/internal/platform/obs"
	"territory-route-service/internal/ports"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MaxBatch is the largest number of coordinates the distance source accepts
// per query, as origins and as destinations.
const MaxBatch = 25

// DefaultBatchTimeout matches the per-request bound of the HTTP sources.
const DefaultBatchTimeout = 15 * time.Second

type MatrixOptions struct {
	// MaxBatch caps origins and destinations per query.
	MaxBatch int
	// RateInterval is the minimum spacing between two remote batch queries.
	// Batches answered from a cache do not wait.
	RateInterval time.Duration
	// BatchTimeout bounds one attempt, transport retries included.
	BatchTimeout time.Duration
	// Retries is how many times a failed batch is re-issued before the
	// build reports the source unavailable.
	Retries int
	// CrossTerms fills the off-diagonal blocks of a split matrix with
	// cross-batch queries. When false those cells stay Unreachable.
	CrossTerms bool
}

func DefaultMatrixOptions() MatrixOptions {
	return MatrixOptions{
		MaxBatch:     MaxBatch,
		RateInterval: 100 * time.Millisecond,
		BatchTimeout: DefaultBatchTimeout,
		Retries:      1,
		CrossTerms:   true,
	}
}

// Outcome of MatrixBuilder.Build.
type MatrixResult struct {
	Matrix          *domain.Matrix
	Fallback        bool
	Batches         int
	MissingElements int
}

// MatrixBuilder obtains n×n travel-cost matrices from a capped distance source.
//
// Buckets larger than MaxBatch are split at the midpoint and built
// recursively; the two halves become diagonal blocks and, with CrossTerms, the
// off-diagonal blocks are queried in MaxBatch×MaxBatch chunks. Any batch that
// still fails after Retries makes the whole build fall back to great-circle
// distances. The builder is safe for concurrent use; all callers share one
// rate limiter.
type MatrixBuilder struct {
	source  ports.DistanceSource
	opts    MatrixOptions
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewMatrixBuilder(source ports.DistanceSource, opts MatrixOptions, logger *zap.Logger) *MatrixBuilder {
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = MaxBatch
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = DefaultBatchTimeout
	}

	limit := rate.Inf
	if opts.RateInterval > 0 {
		limit = rate.Every(opts.RateInterval)
	}

	return &MatrixBuilder{
		source:  source,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		logger:  obs.OrNop(logger),
	}
}

// batchStats is shared by one Build call across its recursion.
type batchStats struct {
	batches atomic.Int64
	missing atomic.Int64
}

// Build returns the travel-cost matrix for coords. It never fails: when the
// source is missing or unavailable the great-circle matrix is returned with
// Fallback set.
func (b *MatrixBuilder) Build(ctx context.Context, coords []domain.Coordinates) (res MatrixResult) {
	n := len(coords)
	if n <= 1 {
		return MatrixResult{Matrix: domain.NewMatrix(n)}
	}

	if b.source == nil {
		return b.fallback(coords, MatrixResult{}, nil)
	}

	var err error
	defer obs.Time(ctx, "matrix.Build")(&err)

	stats := &batchStats{}
	m, err := b.build(ctx, coords, stats)

	res = MatrixResult{
		Batches:         int(stats.batches.Load()),
		MissingElements: int(stats.missing.Load()),
	}
	if err != nil {
		return b.fallback(coords, res, err)
	}

	m.ZeroDiagonal()
	res.Matrix = m
	return res
}

func (b *MatrixBuilder) fallback(coords []domain.Coordinates, res MatrixResult, cause error) MatrixResult {
	metrics.MatrixFallbacks.Inc()

	fields := []zap.Field{zap.Int("points", len(coords)), zap.Int("batches", res.Batches)}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	b.logger.Warn("falling back to great-circle distances; routes may be sub-optimal", fields...)

	res.Matrix = geo.GreatCircleMatrix(coords)
	res.Fallback = true
	res.MissingElements = 0
	return res
}

func (b *MatrixBuilder) build(ctx context.Context, coords []domain.Coordinates, stats *batchStats) (*domain.Matrix, error) {
	n := len(coords)
	if n <= b.opts.MaxBatch {
		return b.queryBlock(ctx, coords, coords, stats)
	}

	mid := n / 2
	left, right := coords[:mid], coords[mid:]

	leftM, err := b.build(ctx, left, stats)
	if err != nil {
		return nil, err
	}
	rightM, err := b.build(ctx, right, stats)
	if err != nil {
		return nil, err
	}

	full := domain.NewMatrix(n)
	full.SetBlock(0, 0, leftM)
	full.SetBlock(mid, mid, rightM)

	if !b.opts.CrossTerms {
		return full, nil
	}

	lr, err := b.crossBlock(ctx, left, right, stats)
	if err != nil {
		return nil, err
	}
	rl, err := b.crossBlock(ctx, right, left, stats)
	if err != nil {
		return nil, err
	}
	full.SetBlock(0, mid, lr)
	full.SetBlock(mid, 0, rl)

	return full, nil
}

// crossBlock fills an origins×destinations block in MaxBatch-sized chunks.
func (b *MatrixBuilder) crossBlock(ctx context.Context, origins, destinations []domain.Coordinates, stats *batchStats) (*domain.Matrix, error) {
	out := domain.NewRectMatrix(len(origins), len(destinations))
	step := b.opts.MaxBatch

	for oi := 0; oi < len(origins); oi += step {
		oEnd := min(oi+step, len(origins))
		for di := 0; di < len(destinations); di += step {
			dEnd := min(di+step, len(destinations))

			blk, err := b.queryBlock(ctx, origins[oi:oEnd], destinations[di:dEnd], stats)
			if err != nil {
				return nil, err
			}
			out.SetBlock(oi, di, blk)
		}
	}

	return out, nil
}

// queryBlock issues one batch, retrying up to opts.Retries times. Each attempt
// runs under opts.BatchTimeout; the shared limiter is applied by the source
// right before it goes remote.
func (b *MatrixBuilder) queryBlock(ctx context.Context, origins, destinations []domain.Coordinates, stats *batchStats) (*domain.Matrix, error) {
	name := b.source.Name()
	var lastErr error

	for attempt := 0; attempt <= b.opts.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}

		stats.batches.Add(1)
		cells, err := b.attempt(ctx, origins, destinations)
		if err == nil {
			err = checkShape(cells, len(origins), len(destinations))
		}
		if err != nil {
			metrics.DistanceBatches.WithLabelValues(name, "error").Inc()
			lastErr = err
			b.logger.Warn("distance batch failed",
				zap.String("source", name),
				zap.Int("attempt", attempt+1),
				zap.Int("origins", len(origins)),
				zap.Int("destinations", len(destinations)),
				zap.Error(err),
			)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		metrics.DistanceBatches.WithLabelValues(name, "ok").Inc()

		m := domain.NewRectMatrix(len(origins), len(destinations))
		missing := 0
		for i, row := range cells {
			for j, cell := range row {
				if !cell.OK || cell.DistanceMeters < 0 {
					if origins[i] != destinations[j] {
						missing++
					}
					continue
				}
				m.Set(i, j, float64(cell.DistanceMeters))
			}
		}
		if missing > 0 {
			stats.missing.Add(int64(missing))
			metrics.MissingElements.WithLabelValues(name).Add(float64(missing))
		}

		return m, nil
	}

	return nil, fmt.Errorf("query block: %w: %w", domain.ErrSourceUnavailable, lastErr)
}

func (b *MatrixBuilder) attempt(ctx context.Context, origins, destinations []domain.Coordinates) ([][]ports.MatrixCell, error) {
	actx, cancel := context.WithTimeout(ports.WithThrottle(ctx, b.limiter.Wait), b.opts.BatchTimeout)
	defer cancel()
	return b.source.Matrix(actx, origins, destinations)
}

func checkShape(cells [][]ports.MatrixCell, rows, cols int) error {
	if len(cells) != rows {
		return fmt.Errorf("malformed response: %d rows, want %d", len(cells), rows)
	}
	for i, r := range cells {
		if len(r) != cols {
			return fmt.Errorf("malformed response: row %d has %d elements, want %d", i, len(r), cols)
		}
	}
	return nil
}
