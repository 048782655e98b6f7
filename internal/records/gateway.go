package records

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/sheetdash/internal/dashboard"
	"github.com/teemow/sheetdash/internal/instrumentation"
	"github.com/teemow/sheetdash/internal/logging"
)

// Gateway appends keyed records to a Store and reads them back.
type Gateway struct {
	store   Store
	metrics *instrumentation.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithMetrics records store call outcomes.
func WithMetrics(m *instrumentation.Metrics) GatewayOption {
	return func(g *Gateway) { g.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = logger }
}

// NewGateway wraps store.
func NewGateway(store Store, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.WithComponent(g.logger, "records")
	return g
}

// Store returns the underlying store.
func (g *Gateway) Store() Store {
	return g.store
}

// SaveAll appends every record as a new entity and returns how many were
// written. Records are not deduplicated. On failure, records written before
// the fault stay written and the count reflects them.
func (g *Gateway) SaveAll(ctx context.Context, recs []dashboard.KeyedRecord) (int, error) {
	ctx, span := instrumentation.StartStoreSpan(ctx, g.store.Backend(), instrumentation.StoreOpInsert, len(recs))
	start := time.Now()
	createdAt := g.now().UTC()

	written := 0
	var err error
	for _, rec := range recs {
		stored := StoredRecord{
			ID:        uuid.New(),
			Fields:    map[string]any(rec),
			CreatedAt: createdAt,
		}
		if insertErr := g.store.Insert(ctx, stored); insertErr != nil {
			err = &StorageError{Op: OpInsert, Err: insertErr}
			break
		}
		written++
	}

	instrumentation.EndSpan(span, err)
	g.metrics.RecordRecordsSaved(ctx, written)
	g.metrics.RecordStoreOperation(ctx, instrumentation.StoreOpInsert, instrumentation.StatusOf(err), time.Since(start))

	if err != nil {
		g.logger.Error("saving records failed",
			logging.RecordCount(written),
			slog.Int("requested", len(recs)),
			logging.Err(err))
		return written, err
	}
	g.logger.Info("records saved", logging.RecordCount(written))
	return written, nil
}

// LoadAll returns every stored record in insertion order.
func (g *Gateway) LoadAll(ctx context.Context) ([]StoredRecord, error) {
	ctx, span := instrumentation.StartStoreSpan(ctx, g.store.Backend(), instrumentation.StoreOpFind, 0)
	start := time.Now()

	recs, err := g.store.FindAll(ctx)
	if err != nil {
		err = &StorageError{Op: OpFind, Err: err}
	}

	instrumentation.EndSpan(span, err)
	g.metrics.RecordStoreOperation(ctx, instrumentation.StoreOpFind, instrumentation.StatusOf(err), time.Since(start))

	if err != nil {
		g.logger.Error("loading records failed", logging.Err(err))
		return nil, err
	}
	g.logger.Debug("records loaded", logging.RecordCount(len(recs)))
	return recs, nil
}
