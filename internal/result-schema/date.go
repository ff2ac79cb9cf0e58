package schema

import (
	"encoding/json"
	"time"

	pm "github.com/horizonfoods/planner-core/internal/planning-model"
)

// Date serializes as "YYYY-MM-DD" everywhere in the result record, never as
// time.Time's default RFC3339 (spec §6.2: "Dates serialize as ISO-8601
// YYYY-MM-DD").
type Date time.Time

// NewDate truncates t to a calendar date.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date(time.Date(y, m, d, 0, 0, 0, 0, t.Location()))
}

func (d Date) Time() time.Time { return time.Time(d) }

func (d Date) String() string { return pm.DateKey(time.Time(d)) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(pm.DateKey(time.Time(d)))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	*d = Date(t)
	return nil
}
