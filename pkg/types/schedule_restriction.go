package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ScheduleRestriction limits a price override to certain weekdays and/or a
// daily time band. Times are "HH:MM" in Location (UTC when empty). A band
// whose end is before its start wraps past midnight.
type ScheduleRestriction struct {
	Weekdays  []time.Weekday `json:"weekdays,omitempty"`
	StartTime string         `json:"start_time,omitempty"`
	EndTime   string         `json:"end_time,omitempty"`
	Location  string         `json:"location,omitempty"`
}

// Validate checks the time band and location.
func (s ScheduleRestriction) Validate() error {
	for _, day := range s.Weekdays {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("schedule: invalid weekday %d", day)
		}
	}
	if (s.StartTime == "") != (s.EndTime == "") {
		return fmt.Errorf("schedule: start_time and end_time must be set together")
	}
	if s.StartTime != "" {
		if _, err := parseClock(s.StartTime); err != nil {
			return err
		}
		if _, err := parseClock(s.EndTime); err != nil {
			return err
		}
	}
	if _, err := s.location(); err != nil {
		return err
	}
	return nil
}

// Matches reports whether at falls inside the restriction.
func (s ScheduleRestriction) Matches(at time.Time) bool {
	loc, err := s.location()
	if err != nil {
		return false
	}
	local := at.In(loc)

	if len(s.Weekdays) > 0 {
		found := false
		for _, day := range s.Weekdays {
			if day == local.Weekday() {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if s.StartTime == "" {
		return true
	}
	start, err := parseClock(s.StartTime)
	if err != nil {
		return false
	}
	end, err := parseClock(s.EndTime)
	if err != nil {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	if start <= end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

func (s ScheduleRestriction) location() (*time.Location, error) {
	if s.Location == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Location)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid location %q", s.Location)
	}
	return loc, nil
}

func parseClock(raw string) (int, error) {
	parsed, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("schedule: invalid time %q", raw)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// Value serializes the restriction to JSON.
func (s ScheduleRestriction) Value() (driver.Value, error) {
	return jsonValue(s)
}

// Scan decodes JSONB into the restriction.
func (s *ScheduleRestriction) Scan(value interface{}) error {
	if value == nil {
		*s = ScheduleRestriction{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, s)
}
