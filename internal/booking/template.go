package booking

import (
	"fmt"
	"time"
)

// WeeklyTemplate is a clinic's recurring availability: an ordered list of
// day entries, each mapping a weekday code (mon..sun) to the slot labels
// offered on that weekday. Labels are opaque strings; the engine assumes
// nothing about them beyond uniqueness within a day. The template is always
// replaced wholesale, never patched.
type WeeklyTemplate []DayEntry

// DayEntry matches the stored JSON shape: an object keyed by weekday code.
type DayEntry map[string][]string

var weekdayCodes = map[time.Weekday]string{
	time.Sunday:    "sun",
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
}

var validWeekdayCodes = map[string]bool{
	"mon": true, "tue": true, "wed": true, "thu": true,
	"fri": true, "sat": true, "sun": true,
}

// WeekdayCode returns the three-letter lowercase code for a date's weekday.
func WeekdayCode(date time.Time) string {
	return weekdayCodes[date.Weekday()]
}

// Validate rejects unknown weekday codes and templates that list the same
// weekday more than once. A duplicated weekday would make materialization
// depend silently on entry order, so it is refused at set time.
func (t WeeklyTemplate) Validate() error {
	seen := make(map[string]bool)
	for _, entry := range t {
		for code := range entry {
			if !validWeekdayCodes[code] {
				return fmt.Errorf("%w: %q", ErrUnknownWeekday, code)
			}
			if seen[code] {
				return fmt.Errorf("%w: %q", ErrDuplicateWeekday, code)
			}
			seen[code] = true
		}
	}
	return nil
}

// SlotsFor returns the slot labels for a weekday code, or nil when the
// template has no entry for that weekday. A missing weekday is not an
// error: the materialized inventory for such a date is simply empty.
func (t WeeklyTemplate) SlotsFor(code string) []string {
	for _, entry := range t {
		if slots, ok := entry[code]; ok {
			return slots
		}
	}
	return nil
}
