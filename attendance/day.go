package attendance

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// DAY - Calendar-day abstraction (attendance is keyed by whole days)
// =============================================================================

type Day struct {
	Time time.Time
}

const dayLayout = "2006-01-02"

// Constructors
func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

func Today() Day {
	return DayOf(time.Now())
}

// ParseDay parses an ISO day string such as "2024-06-01".
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// Comparison
func (d Day) Before(other Day) bool { return d.normalize().Before(other.normalize()) }
func (d Day) Equal(other Day) bool  { return d.normalize().Equal(other.normalize()) }
func (d Day) After(other Day) bool  { return d.normalize().After(other.normalize()) }

func (d Day) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Day) AddDays(n int) Day { return DayOf(d.Time.AddDate(0, 0, n)) }

// Properties
func (d Day) IsZero() bool { return d.Time.IsZero() }

func (d Day) String() string { return d.normalize().Format(dayLayout) }

// Days travel as ISO strings in the API and the store.
func (d Day) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
