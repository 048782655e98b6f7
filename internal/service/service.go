// Package service runs the dashboard pipeline: it obtains a token, reads
// the configured ranges in one batch, reshapes them and, for saves, hands
// the resulting records to the record gateway.
package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/teemow/sheetdash/internal/dashboard"
	"github.com/teemow/sheetdash/internal/logging"
	"github.com/teemow/sheetdash/internal/records"
	"github.com/teemow/sheetdash/internal/sheets"
)

// ErrInsufficientData is returned by Save when the save range holds no data
// rows. Nothing is written in that case.
var ErrInsufficientData = errors.New("not enough data to save")

// Authorizer yields a token source, authorizing first if needed.
type Authorizer interface {
	EnsureAuthorized(ctx context.Context) (oauth2.TokenSource, error)
}

// RangeFetcher reads a batch of ranges.
type RangeFetcher interface {
	FetchRanges(ctx context.Context, ts oauth2.TokenSource, ranges []string) ([]sheets.RawBlock, error)
}

// RecordGateway persists and lists keyed records.
type RecordGateway interface {
	SaveAll(ctx context.Context, recs []dashboard.KeyedRecord) (int, error)
	LoadAll(ctx context.Context) ([]records.StoredRecord, error)
}

// Service is the dashboard pipeline.
type Service struct {
	auth    Authorizer
	fetcher RangeFetcher
	gateway RecordGateway
	layout  dashboard.Layout
	logger  *slog.Logger
}

// New creates a service. layout must be valid.
func New(auth Authorizer, fetcher RangeFetcher, gateway RecordGateway, layout dashboard.Layout, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		auth:    auth,
		fetcher: fetcher,
		gateway: gateway,
		layout:  layout,
		logger:  logging.WithComponent(logger, "service"),
	}
}

// Layout returns the ranges the service reads.
func (s *Service) Layout() dashboard.Layout {
	return s.layout
}

// Dashboard reads the six dashboard ranges and returns them structured.
func (s *Service) Dashboard(ctx context.Context) (*dashboard.Dashboard, error) {
	blocks, err := s.fetch(ctx, s.layout.Ranges())
	if err != nil {
		return nil, err
	}

	return dashboard.ToDashboard(blocks)
}

// Save reads the save range and appends one record per data row. It
// returns the number of records written. A partial failure returns the
// count written before the fault together with the error.
func (s *Service) Save(ctx context.Context) (int, error) {
	blocks, err := s.fetch(ctx, []string{s.layout.Save})
	if err != nil {
		return 0, err
	}
	if len(blocks) == 0 || len(blocks[0]) < 2 {
		s.logger.Info("save skipped, no data rows", slog.String("range", s.layout.Save))
		return 0, ErrInsufficientData
	}

	return s.gateway.SaveAll(ctx, dashboard.ToKeyedRecords(blocks[0]))
}

// All returns every stored record. It does not need authorization.
func (s *Service) All(ctx context.Context) ([]records.StoredRecord, error) {
	return s.gateway.LoadAll(ctx)
}

func (s *Service) fetch(ctx context.Context, ranges []string) ([]sheets.RawBlock, error) {
	ts, err := s.auth.EnsureAuthorized(ctx)
	if err != nil {
		return nil, err
	}
	return s.fetcher.FetchRanges(ctx, ts, ranges)
}
