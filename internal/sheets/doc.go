// Package sheets reads cell ranges from a Google Sheets spreadsheet.
//
// A Fetcher issues exactly one spreadsheets.values.batchGet call per
// FetchRanges invocation and returns one RawBlock per returned value range,
// in request order. Cells are returned as strings; rows may be ragged since
// the API omits trailing empty cells.
//
// Example usage:
//
//	fetcher := sheets.NewFetcher(spreadsheetID, sheets.WithTimeout(30*time.Second))
//	blocks, err := fetcher.FetchRanges(ctx, tokenSource, []string{"Dashboard!K9:R36"})
//	if err != nil {
//		var fetchErr *sheets.FetchError
//		if errors.As(err, &fetchErr) && fetchErr.Kind == sheets.KindUnauthorized {
//			// re-authorize
//		}
//	}
package sheets
