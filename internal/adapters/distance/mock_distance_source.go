package distance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"territory-route-service/internal/domain"
	"territory-route-service/internal/geo"
	"territory-route-service/internal/ports"
	"time"
)

// ErrMockFailure is returned by MockDistanceSource for injected batch failures.
var ErrMockFailure = errors.New("mock distance source: injected failure")

type MockPair struct {
	From, To domain.Coordinates
	Meters   int
	Seconds  int
}

// MockCall records the shape of one Matrix call.
type MockCall struct {
	Origins      int
	Destinations int
}

// MockDistanceSource is a deterministic in-memory DistanceSource.
//
// Pairs listed explicitly win; any other pair resolves to the rounded
// great-circle distance. Failures can be injected per call number, per pair or
// for every call.
type MockDistanceSource struct {
	mu    sync.Mutex
	pairs map[ports.DistancePair]ports.DistanceResult
	calls []MockCall

	// MaxBatch rejects calls with more origins or destinations. 0 disables the check.
	MaxBatch int
	// FailAll makes every call fail.
	FailAll bool
	// FailCalls holds 1-based call numbers that fail.
	FailCalls map[int]bool
	// Missing holds pairs reported as not OK.
	Missing map[ports.DistancePair]bool
	// Delay stalls every call, honoring ctx, to simulate a slow remote.
	Delay time.Duration
}

func NewMockDistanceSource(pairs []MockPair) *MockDistanceSource {
	m := make(map[ports.DistancePair]ports.DistanceResult, len(pairs))
	for _, p := range pairs {
		m[ports.DistancePair{Origin: p.From.Key(), Destination: p.To.Key()}] = ports.DistanceResult{
			DistanceMeters:  p.Meters,
			DurationSeconds: p.Seconds,
		}
	}
	return &MockDistanceSource{pairs: m}
}

func (s *MockDistanceSource) Name() string { return "mock" }

func (s *MockDistanceSource) Matrix(ctx context.Context, origins, destinations []domain.Coordinates) ([][]ports.MatrixCell, error) {
	if err := ports.Throttle(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.record(origins, destinations)
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, MockCall{Origins: len(origins), Destinations: len(destinations)})
	n := len(s.calls)

	if s.FailAll || s.FailCalls[n] {
		return nil, fmt.Errorf("call %d: %w", n, ErrMockFailure)
	}
	if s.MaxBatch > 0 && (len(origins) > s.MaxBatch || len(destinations) > s.MaxBatch) {
		return nil, fmt.Errorf("mock distance source: %dx%d exceeds batch cap %d", len(origins), len(destinations), s.MaxBatch)
	}

	out := make([][]ports.MatrixCell, len(origins))
	for i, o := range origins {
		out[i] = make([]ports.MatrixCell, len(destinations))
		for j, d := range destinations {
			key := ports.DistancePair{Origin: o.Key(), Destination: d.Key()}
			if s.Missing[key] {
				continue
			}
			if r, ok := s.pairs[key]; ok {
				out[i][j] = ports.MatrixCell{DistanceResult: r, OK: true}
				continue
			}
			meters := int(math.Round(geo.GreatCircleMeters(o, d)))
			out[i][j] = ports.MatrixCell{
				DistanceResult: ports.DistanceResult{DistanceMeters: meters, DurationSeconds: meters / 10},
				OK:             true,
			}
		}
	}

	return out, nil
}

func (s *MockDistanceSource) record(origins, destinations []domain.Coordinates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, MockCall{Origins: len(origins), Destinations: len(destinations)})
}

// Calls returns a copy of the recorded calls.
func (s *MockDistanceSource) Calls() []MockCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MockCall(nil), s.calls...)
}
