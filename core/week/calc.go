package week

import (
	"fmt"
	"time"

	"github.com/trezcool/parokia/core/clock"
)

// StartMonday returns local midnight of the Monday at or before local's date, in local's location.
func StartMonday(local time.Time) time.Time {
	y, m, d := local.Date()
	offset := (int(local.Weekday()) + 6) % 7 // days since Monday
	return time.Date(y, m, d-offset, 0, 0, 0, 0, local.Location())
}

// End returns the exclusive end of the week starting at start: seven calendar days later,
// which is not always 168h when the week crosses a DST change.
func End(start time.Time) time.Time {
	return start.AddDate(0, 0, 7)
}

// Label returns the ISO-8601 week key of start, e.g. "2024-W36".
func Label(start time.Time) string {
	year, wk := start.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, wk)
}

// Bounds returns the local start and end of the week containing now.
func Bounds(now time.Time, loc *time.Location) (start, end time.Time) {
	start = StartMonday(clock.InParishTime(now, loc))
	return start, End(start)
}
