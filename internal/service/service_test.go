package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/sheetdash/internal/dashboard"
	"github.com/teemow/sheetdash/internal/records"
	"github.com/teemow/sheetdash/internal/sheets"
)

type fakeAuth struct {
	calls int
	err   error
}

func (a *fakeAuth) EnsureAuthorized(context.Context) (oauth2.TokenSource, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"}), nil
}

type fakeFetcher struct {
	blocks []sheets.RawBlock
	err    error
	ranges [][]string
}

func (f *fakeFetcher) FetchRanges(_ context.Context, _ oauth2.TokenSource, ranges []string) ([]sheets.RawBlock, error) {
	f.ranges = append(f.ranges, ranges)
	return f.blocks, f.err
}

func newTestService(auth *fakeAuth, fetcher *fakeFetcher) (*Service, *records.MemoryStore) {
	store := records.NewMemoryStore()
	return New(auth, fetcher, records.NewGateway(store), dashboard.DefaultLayout(), nil), store
}

func sixBlocks() []sheets.RawBlock {
	blocks := make([]sheets.RawBlock, dashboard.BlockCount)
	for i := range blocks {
		blocks[i] = sheets.RawBlock{{"H"}, {string(rune('a' + i))}}
	}
	return blocks
}

func TestService_Dashboard(t *testing.T) {
	auth := &fakeAuth{}
	fetcher := &fakeFetcher{blocks: sixBlocks()}
	s, _ := newTestService(auth, fetcher)

	d, err := s.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, auth.calls)
	require.Len(t, fetcher.ranges, 1)
	assert.Equal(t, dashboard.DefaultLayout().Ranges(), fetcher.ranges[0])
	assert.Equal(t, sheets.RawBlock{{"H"}, {"a"}}, d.Overall.DistrictData)
	assert.Equal(t, sheets.RawBlock{{"H"}, {"f"}}, d.PaperSeminars.NationalStats)
}

func TestService_Dashboard_MissingRanges(t *testing.T) {
	s, _ := newTestService(&fakeAuth{}, &fakeFetcher{blocks: sixBlocks()[:5]})

	_, err := s.Dashboard(context.Background())

	var shapeErr *dashboard.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.EqualError(t, err, "failed to fetch all required ranges: want 6 blocks, got 5")
}

func TestService_Dashboard_AuthFailureSkipsFetch(t *testing.T) {
	authErr := errors.New("consent timed out")
	fetcher := &fakeFetcher{blocks: sixBlocks()}
	s, _ := newTestService(&fakeAuth{err: authErr}, fetcher)

	_, err := s.Dashboard(context.Background())
	assert.ErrorIs(t, err, authErr)
	assert.Empty(t, fetcher.ranges)
}

func TestService_Save(t *testing.T) {
	fetcher := &fakeFetcher{blocks: []sheets.RawBlock{
		{{"District", "Score"}, {"North", "1"}, {"South"}},
	}}
	s, store := newTestService(&fakeAuth{}, fetcher)

	n, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, [][]string{{dashboard.DefaultLayout().Save}}, fetcher.ranges)

	stored, err := store.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, map[string]any{"District": "South", "Score": nil}, stored[1].Fields)
}

func TestService_Save_InsufficientData(t *testing.T) {
	tests := []struct {
		name   string
		blocks []sheets.RawBlock
	}{
		{"no blocks", nil},
		{"empty block", []sheets.RawBlock{{}}},
		{"header only", []sheets.RawBlock{{{"District", "Score"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store := newTestService(&fakeAuth{}, &fakeFetcher{blocks: tt.blocks})

			n, err := s.Save(context.Background())
			assert.ErrorIs(t, err, ErrInsufficientData)
			assert.Zero(t, n)

			stored, err := store.FindAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, stored)
		})
	}
}

func TestService_Save_FetchError(t *testing.T) {
	fetchErr := &sheets.FetchError{Kind: sheets.KindTransport, Err: errors.New("connection refused")}
	s, _ := newTestService(&fakeAuth{}, &fakeFetcher{err: fetchErr})

	_, err := s.Save(context.Background())
	var got *sheets.FetchError
	require.ErrorAs(t, err, &got)
	assert.NotErrorIs(t, err, ErrInsufficientData)
}

func TestService_AllSkipsAuthorization(t *testing.T) {
	auth := &fakeAuth{err: errors.New("should not be called")}
	s, store := newTestService(auth, &fakeFetcher{})
	_, err := records.NewGateway(store).SaveAll(context.Background(), []dashboard.KeyedRecord{{"District": "North"}})
	require.NoError(t, err)

	all, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Zero(t, auth.calls)
}
