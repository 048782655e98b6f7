package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func staticToken() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token", TokenType: "Bearer"})
}

func newSheetsServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, chan *http.Request) {
	t.Helper()
	var calls atomic.Int32
	requests := make(chan *http.Request, 10)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		requests <- r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, requests
}

func newTestFetcher(endpoint string, opts ...Option) *Fetcher {
	opts = append([]Option{
		WithEndpoint(endpoint + "/"),
		WithRateLimiter(NewRateLimiter(1000, 1000)),
	}, opts...)
	return NewFetcher("sheet-123", opts...)
}

func TestFetchRanges_SingleBatchedCall(t *testing.T) {
	body := `{
		"spreadsheetId": "sheet-123",
		"valueRanges": [
			{"range": "Dashboard!K9:R36", "values": [["District", "Score"], ["North", 12.5], ["South"]]},
			{"range": "Dashboard!B6:I18"},
			{"range": "Dashboard!K53:R80", "values": [["Flag", "Count"], [true, 3]]}
		]
	}`
	srv, calls, requests := newSheetsServer(t, http.StatusOK, body)
	f := newTestFetcher(srv.URL)

	ranges := []string{"Dashboard!K9:R36", "Dashboard!B6:I18", "Dashboard!K53:R80"}
	blocks, err := f.FetchRanges(context.Background(), staticToken(), ranges)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, blocks, 3)
	assert.Equal(t, RawBlock{{"District", "Score"}, {"North", "12.5"}, {"South"}}, blocks[0])
	assert.Empty(t, blocks[1])
	assert.Equal(t, RawBlock{{"Flag", "Count"}, {"true", "3"}}, blocks[2])

	req := <-requests
	assert.True(t, strings.HasSuffix(req.URL.Path, "/spreadsheets/sheet-123/values:batchGet"), req.URL.Path)
	assert.Equal(t, ranges, req.URL.Query()["ranges"])
	assert.Equal(t, RenderFormatted, req.URL.Query().Get("valueRenderOption"))
	assert.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))
}

func TestFetchRanges_CountNotChecked(t *testing.T) {
	srv, _, _ := newSheetsServer(t, http.StatusOK, `{"valueRanges": [{"values": [["a"]]}]}`)
	f := newTestFetcher(srv.URL)

	blocks, err := f.FetchRanges(context.Background(), staticToken(), []string{"A1:A1", "B1:B1"})
	require.NoError(t, err)
	assert.Len(t, blocks, 1)
}

func TestFetchRanges_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"code":401,"message":"invalid credentials"}}`, KindUnauthorized},
		{"forbidden", http.StatusForbidden, `{"error":{"code":403,"message":"caller does not have permission"}}`, KindUnauthorized},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota"}}`, KindRateLimited},
		{"server error", http.StatusInternalServerError, `{"error":{"code":500,"message":"backend"}}`, KindTransport},
		{"malformed", http.StatusOK, `{"valueRanges": [`, KindMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newSheetsServer(t, tt.status, tt.body)
			f := newTestFetcher(srv.URL)

			_, err := f.FetchRanges(context.Background(), staticToken(), []string{"A1:B2"})

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.wantKind, fe.Kind)
		})
	}
}

func TestFetchRanges_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := newTestFetcher(srv.URL, WithTimeout(50*time.Millisecond))

	_, err := f.FetchRanges(context.Background(), staticToken(), []string{"A1:B2"})

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindTimeout, fe.Kind)
}

func TestFetchRanges_TokenSourceFailure(t *testing.T) {
	srv, calls, _ := newSheetsServer(t, http.StatusOK, `{}`)
	f := newTestFetcher(srv.URL)

	ts := oauth2.ReuseTokenSource(nil, failingSource{})
	_, err := f.FetchRanges(context.Background(), ts, []string{"A1:B2"})

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindUnauthorized, fe.Kind)
	assert.Equal(t, int32(0), calls.Load())
}

type failingSource struct{}

func (failingSource) Token() (*oauth2.Token, error) {
	return nil, &oauth2.RetrieveError{ErrorCode: "invalid_grant"}
}

func TestFetchRanges_UnformattedOption(t *testing.T) {
	srv, _, requests := newSheetsServer(t, http.StatusOK, `{"valueRanges": []}`)
	f := newTestFetcher(srv.URL, WithValueRenderOption(RenderUnformatted))

	_, err := f.FetchRanges(context.Background(), staticToken(), []string{"A1:B2"})
	require.NoError(t, err)

	req := <-requests
	assert.Equal(t, RenderUnformatted, req.URL.Query().Get("valueRenderOption"))
}

func TestCellString(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{float64(3), "3"},
		{0.25, "0.25"},
		{false, "false"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cellString(tt.in))
	}
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsUnauthorized(&FetchError{Kind: KindUnauthorized}))
	assert.False(t, IsUnauthorized(&FetchError{Kind: KindTransport}))
	assert.True(t, IsRateLimited(&FetchError{Kind: KindRateLimited}))
	assert.False(t, IsRateLimited(nil))
}
