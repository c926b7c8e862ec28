package attendance

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// DAY SUMMARY - Headline numbers for one day's records
// =============================================================================

// DaySummary totals one day's records. Rate is present/total rounded to
// four places, zero when the day has no records.
type DaySummary struct {
	Day     Day
	Total   int
	Present int
	Absent  int
	Rate    decimal.Decimal
}

// Summarize computes the summary for day; records of other dates are ignored.
func Summarize(records AttendanceSet, day Day) DaySummary {
	s := DaySummary{Day: day, Rate: decimal.Zero}
	for _, r := range records {
		if !r.Date.Equal(day) {
			continue
		}
		s.Total++
		if r.Present {
			s.Present++
		}
	}
	s.Absent = s.Total - s.Present
	if s.Total > 0 {
		s.Rate = decimal.NewFromInt(int64(s.Present)).
			Div(decimal.NewFromInt(int64(s.Total))).
			Round(4)
	}
	return s
}
