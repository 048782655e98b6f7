// Package dashboard reshapes raw sheet ranges into keyed records and into
// the three-section dashboard served by the API.
package dashboard

import (
	"fmt"

	"github.com/teemow/sheetdash/internal/sheets"
)

// BlockCount is the number of ranges a dashboard is built from.
const BlockCount = 6

// KeyedRecord maps a header cell to the cell below it. Missing and empty
// cells map to nil.
type KeyedRecord map[string]any

// Section pairs a district table with the national statistics beside it.
type Section struct {
	DistrictData  sheets.RawBlock `json:"districtData"`
	NationalStats sheets.RawBlock `json:"nationalStats"`
}

// Dashboard is the structured view of the six dashboard ranges.
type Dashboard struct {
	Overall          Section `json:"overall"`
	RemedialTeaching Section `json:"remedialTeaching"`
	PaperSeminars    Section `json:"paperSeminars"`
}

// ShapeError reports a block count other than the one a dashboard needs.
type ShapeError struct {
	Want int
	Got  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("failed to fetch all required ranges: want %d blocks, got %d", e.Want, e.Got)
}

// ToKeyedRecords treats the first row as headers and turns every later row
// into one record. Empty cells and the trailing headers of short rows are
// nil, and cells past the last header are dropped. A block with fewer
// than two rows yields no records. When a header repeats, the rightmost column wins.
func ToKeyedRecords(block sheets.RawBlock) []KeyedRecord {
	if len(block) < 2 {
		return []KeyedRecord{}
	}

	headers := block[0]
	records := make([]KeyedRecord, 0, len(block)-1)
	for _, row := range block[1:] {
		record := make(KeyedRecord, len(headers))
		for i, header := range headers {
			var value any
			if i < len(row) && row[i] != "" {
				value = row[i]
			}
			record[header] = value
		}
		records = append(records, record)
	}
	return records
}

// ToDashboard assigns six blocks to the dashboard positionally: overall,
// remedial teaching and paper seminars, each as district then national.
func ToDashboard(blocks []sheets.RawBlock) (*Dashboard, error) {
	if len(blocks) != BlockCount {
		return nil, &ShapeError{Want: BlockCount, Got: len(blocks)}
	}

	b := make([]sheets.RawBlock, BlockCount)
	for i, block := range blocks {
		if block == nil {
			block = sheets.RawBlock{}
		}
		b[i] = block
	}

	return &Dashboard{
		Overall:          Section{DistrictData: b[0], NationalStats: b[1]},
		RemedialTeaching: Section{DistrictData: b[2], NationalStats: b[3]},
		PaperSeminars:    Section{DistrictData: b[4], NationalStats: b[5]},
	}, nil
}
