package repository

import (
	"context"
	"time"

	"github.com/cinereview/core/internal/domain/entities"
	"github.com/cinereview/core/internal/infrastructure/logger"
	"github.com/cinereview/core/internal/infrastructure/metrics"
	"github.com/cinereview/core/internal/ports"
)

// InstrumentedStore records latency and outcome of every call on the wrapped store
type InstrumentedStore struct {
	next    ports.ReviewStore
	backend string
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// Instrument wraps store. A nil m disables metrics; logging stays on.
func Instrument(store ports.ReviewStore, backend string, m *metrics.Metrics, appLogger *logger.Logger) *InstrumentedStore {
	if appLogger == nil {
		appLogger = logger.NewNop()
	}
	return &InstrumentedStore{
		next:    store,
		backend: backend,
		metrics: m,
		logger:  appLogger.WithComponent("review_store").WithFields("backend", backend),
	}
}

var _ ports.ReviewStore = (*InstrumentedStore)(nil)

func (s *InstrumentedStore) List(ctx context.Context, id entities.MovieID) ([]entities.Review, error) {
	start := time.Now()
	reviews, err := s.next.List(ctx, id)
	s.observe("list", id, start, err)
	return reviews, err
}

func (s *InstrumentedStore) Append(ctx context.Context, id entities.MovieID, review entities.Review) (entities.Review, error) {
	start := time.Now()
	stored, err := s.next.Append(ctx, id, review)
	s.observe("append", id, start, err)
	return stored, err
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Stats passes through the wrapped store's statistics, if it reports any
func (s *InstrumentedStore) Stats() map[string]interface{} {
	if reporter, ok := s.next.(ports.StatsReporter); ok {
		return reporter.Stats()
	}
	return nil
}

func (s *InstrumentedStore) Close() error {
	return s.next.Close()
}

func (s *InstrumentedStore) observe(op string, id entities.MovieID, start time.Time, err error) {
	elapsed := time.Since(start)
	s.logger.LogStorageOperation(op, id.String(), float64(elapsed.Nanoseconds())/1e6, err)

	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.StoreOperations.WithLabelValues(s.backend, op, result).Inc()
	s.metrics.StoreOperationDuration.WithLabelValues(s.backend, op).Observe(elapsed.Seconds())
}
