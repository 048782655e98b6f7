package dashboard

import (
	"errors"
	"fmt"
)

// SectionRanges names the A1 ranges of one dashboard section.
type SectionRanges struct {
	District string `toml:"district"`
	National string `toml:"national"`
}

// Layout locates the dashboard within the spreadsheet.
type Layout struct {
	Overall          SectionRanges `toml:"overall"`
	RemedialTeaching SectionRanges `toml:"remedial_teaching"`
	PaperSeminars    SectionRanges `toml:"paper_seminars"`

	// Save is the range whose rows are persisted by the save operation.
	Save string `toml:"save"`
}

// DefaultLayout returns the ranges of the standard dashboard sheet.
func DefaultLayout() Layout {
	return Layout{
		Overall:          SectionRanges{District: "Dashboard!K9:R36", National: "Dashboard!B6:I18"},
		RemedialTeaching: SectionRanges{District: "Dashboard!K53:R80", National: "Dashboard!B50:I61"},
		PaperSeminars:    SectionRanges{District: "Dashboard!K99:R126", National: "Dashboard!B96:I107"},
		Save:             "Dashboard!K9:R36",
	}
}

// Ranges returns the six ranges in the order ToDashboard expects them.
func (l Layout) Ranges() []string {
	return []string{
		l.Overall.District, l.Overall.National,
		l.RemedialTeaching.District, l.RemedialTeaching.National,
		l.PaperSeminars.District, l.PaperSeminars.National,
	}
}

// Validate checks that every range is set.
func (l Layout) Validate() error {
	var errs []error
	for i, r := range l.Ranges() {
		if r == "" {
			errs = append(errs, fmt.Errorf("dashboard range %d is empty", i))
		}
	}
	if l.Save == "" {
		errs = append(errs, errors.New("save range is empty"))
	}
	return errors.Join(errs...)
}

// Merge fills empty ranges in l from def.
func (l Layout) Merge(def Layout) Layout {
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return Layout{
		Overall: SectionRanges{
			District: pick(l.Overall.District, def.Overall.District),
			National: pick(l.Overall.National, def.Overall.National),
		},
		RemedialTeaching: SectionRanges{
			District: pick(l.RemedialTeaching.District, def.RemedialTeaching.District),
			National: pick(l.RemedialTeaching.National, def.RemedialTeaching.National),
		},
		PaperSeminars: SectionRanges{
			District: pick(l.PaperSeminars.District, def.PaperSeminars.District),
			National: pick(l.PaperSeminars.National, def.PaperSeminars.National),
		},
		Save: pick(l.Save, def.Save),
	}
}
