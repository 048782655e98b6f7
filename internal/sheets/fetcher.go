package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/teemow/sheetdash/internal/instrumentation"
	"github.com/teemow/sheetdash/internal/logging"
)

// RawBlock is the cell grid of one range, row-major. Rows may differ in length.
type RawBlock [][]string

// Value render options accepted by the API.
const (
	RenderFormatted   = "FORMATTED_VALUE"
	RenderUnformatted = "UNFORMATTED_VALUE"
	RenderFormula     = "FORMULA"
)

// DefaultTimeout bounds a single FetchRanges call.
const DefaultTimeout = 30 * time.Second

// Fetcher reads ranges from one spreadsheet.
type Fetcher struct {
	spreadsheetID string
	endpoint      string
	transport     http.RoundTripper
	limiter       *RateLimiter
	timeout       time.Duration
	renderOption  string
	metrics       *instrumentation.Metrics
	logger        *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithEndpoint overrides the Sheets API base URL.
func WithEndpoint(endpoint string) Option {
	return func(f *Fetcher) { f.endpoint = endpoint }
}

// WithTransport sets the base transport beneath the OAuth2 transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) { f.transport = rt }
}

// WithTimeout bounds each FetchRanges call.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithRateLimiter replaces the default client-side limiter.
func WithRateLimiter(l *RateLimiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithValueRenderOption selects how cell values are rendered.
func WithValueRenderOption(option string) Option {
	return func(f *Fetcher) {
		if option != "" {
			f.renderOption = option
		}
	}
}

// WithMetrics records Sheets API call outcomes.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// NewFetcher creates a fetcher for the given spreadsheet.
func NewFetcher(spreadsheetID string, opts ...Option) *Fetcher {
	f := &Fetcher{
		spreadsheetID: spreadsheetID,
		timeout:       DefaultTimeout,
		renderOption:  RenderFormatted,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.limiter == nil {
		f.limiter = NewRateLimiter(DefaultRequestsPerSecond, DefaultBurst)
	}
	if f.transport == nil {
		// Force HTTP/1.1 by disabling HTTP/2
		base := http.DefaultTransport.(*http.Transport).Clone()
		base.ForceAttemptHTTP2 = false
		f.transport = base
	}
	f.logger = logging.WithComponent(f.logger, "sheets")
	return f
}

// SpreadsheetID returns the spreadsheet the fetcher reads from.
func (f *Fetcher) SpreadsheetID() string {
	return f.spreadsheetID
}

// FetchRanges reads all ranges in a single batched call and returns one
// block per returned value range, in request order. It does not verify that
// the API returned as many ranges as were requested.
func (f *Fetcher) FetchRanges(ctx context.Context, ts oauth2.TokenSource, ranges []string) ([]RawBlock, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	ctx, span := instrumentation.StartSheetsSpan(ctx, instrumentation.SheetsOpBatchGet, f.spreadsheetID, len(ranges))
	start := time.Now()

	blocks, err := f.batchGet(ctx, ts, ranges)

	instrumentation.EndSpan(span, err)
	f.metrics.RecordSheetsOperation(ctx, instrumentation.SheetsOpBatchGet, instrumentation.StatusOf(err), time.Since(start))

	logger := f.logger.With(
		logging.Operation(instrumentation.SheetsOpBatchGet),
		logging.Spreadsheet(f.spreadsheetID),
		logging.RangeCount(len(ranges)),
		slog.Duration(logging.KeyDuration, time.Since(start)),
	)
	if err != nil {
		logger.Error("batch read failed", logging.Status(logging.StatusError), logging.Err(err))
		return nil, err
	}
	logger.Debug("batch read complete", logging.Status(logging.StatusSuccess))
	return blocks, nil
}

func (f *Fetcher) batchGet(ctx context.Context, ts oauth2.TokenSource, ranges []string) ([]RawBlock, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Kind: KindTimeout, Err: fmt.Errorf("waiting for rate limiter: %w", err)}
	}

	client := &http.Client{Transport: &oauth2.Transport{Source: ts, Base: f.transport}}
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if f.endpoint != "" {
		opts = append(opts, option.WithEndpoint(f.endpoint))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: fmt.Errorf("failed to create Sheets service: %w", err)}
	}

	resp, err := svc.Spreadsheets.Values.BatchGet(f.spreadsheetID).
		Ranges(ranges...).
		ValueRenderOption(f.renderOption).
		Context(ctx).
		Do()
	if err != nil {
		fe := classify(ctx, err)
		if fe.Kind == KindRateLimited {
			f.limiter.Backoff(retryAfter(err))
		}
		return nil, fe
	}
	if resp == nil {
		return nil, &FetchError{Kind: KindMalformed, Err: errors.New("empty batchGet response")}
	}

	blocks := make([]RawBlock, 0, len(resp.ValueRanges))
	for _, vr := range resp.ValueRanges {
		if vr == nil {
			blocks = append(blocks, RawBlock{})
			continue
		}
		blocks = append(blocks, toBlock(vr.Values))
	}
	return blocks, nil
}

func toBlock(values [][]interface{}) RawBlock {
	block := make(RawBlock, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		block[i] = cells
	}
	return block
}

// cellString renders a decoded JSON cell value as text.
func cellString(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func retryAfter(err error) time.Duration {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	secs, convErr := strconv.Atoi(gerr.Header.Get("Retry-After"))
	if convErr != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}
