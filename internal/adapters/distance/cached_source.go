package distance

import (
	"context"
	"territory-route-service/internal/domain"
	"territory-route-service/internal/platform/obs"
	"territory-route-service/internal/ports"

	"go.uber.org/zap"
)

// CachedSource consults a persistent DistanceCache before querying the inner
// source. A batch is served from the cache only when every pair hits; otherwise
// the whole batch goes to the inner source and its resolved cells are written
// back. Cache failures are logged and never fail the batch.
type CachedSource struct {
	inner  ports.DistanceSource
	cache  ports.DistanceCache
	logger *zap.Logger
}

func NewCachedSource(inner ports.DistanceSource, cache ports.DistanceCache, logger *zap.Logger) *CachedSource {
	return &CachedSource{inner: inner, cache: cache, logger: obs.OrNop(logger)}
}

func (c *CachedSource) Name() string { return c.inner.Name() }

func (c *CachedSource) Matrix(
	ctx context.Context,
	origins, destinations []domain.Coordinates,
) ([][]ports.MatrixCell, error) {
	pairs := make([]ports.DistancePair, 0, len(origins)*len(destinations))
	lookup := make([]ports.DistancePair, 0, len(origins)*len(destinations))
	for _, o := range origins {
		for _, d := range destinations {
			p := ports.DistancePair{Origin: o.Key(), Destination: d.Key()}
			pairs = append(pairs, p)
			if p.Origin != p.Destination {
				lookup = append(lookup, p)
			}
		}
	}

	hits, err := c.cache.GetMany(ctx, lookup)
	if err != nil {
		c.logger.Warn("distance cache read failed", zap.String("source", c.inner.Name()), zap.Error(err))
		hits = nil
	}

	if len(pairs) > 0 && allCached(lookup, hits) {
		out := make([][]ports.MatrixCell, len(origins))
		for i := range origins {
			out[i] = make([]ports.MatrixCell, len(destinations))
			for j := range destinations {
				// Same-position pairs are not stored; their zero value is the answer.
				out[i][j] = ports.MatrixCell{DistanceResult: hits[pairs[i*len(destinations)+j]], OK: true}
			}
		}
		return out, nil
	}

	cells, err := c.inner.Matrix(ctx, origins, destinations)
	if err != nil {
		return nil, err
	}

	fresh := make(map[ports.DistancePair]ports.DistanceResult)
	for i, row := range cells {
		for j, cell := range row {
			if !cell.OK || i >= len(origins) || j >= len(destinations) {
				continue
			}
			p := pairs[i*len(destinations)+j]
			if p.Origin == p.Destination {
				continue
			}
			fresh[p] = cell.DistanceResult
		}
	}

	if len(fresh) > 0 {
		if err := c.cache.PutMany(ctx, fresh); err != nil {
			c.logger.Warn("distance cache write failed", zap.String("source", c.inner.Name()), zap.Error(err))
		}
	}

	return cells, nil
}

func allCached(pairs []ports.DistancePair, hits map[ports.DistancePair]ports.DistanceResult) bool {
	for _, p := range pairs {
		if _, ok := hits[p]; !ok {
			return false
		}
	}
	return true
}
