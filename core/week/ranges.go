package week

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/clock"
)

var errInvalidRange = errors.New("range end must be after its start")

// Range is a half-open [Start, End) interval of UTC instants.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewRange(start, end time.Time) (Range, error) {
	rng := Range{Start: start.UTC(), End: end.UTC()}
	return rng, rng.Validate()
}

func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() || !r.End.After(r.Start) {
		return core.NewValidationError(errInvalidRange, core.FieldError{Field: "to", Error: errInvalidRange.Error()})
	}
	return nil
}

// Contains reports whether t lies in [Start, End).
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Overlaps reports whether [start, end) intersects the range.
// Zero-length items overlap when their instant is contained.
func (r Range) Overlaps(start, end time.Time) bool {
	if !end.After(start) {
		return r.Contains(start)
	}
	return start.Before(r.End) && end.After(r.Start)
}

// In returns the range bounds as wall clocks of loc.
func (r Range) In(loc *time.Location) (time.Time, time.Time) {
	return r.Start.In(loc), r.End.In(loc)
}

// WeekRange returns the UTC bounds of the parish week containing now.
func WeekRange(now time.Time, loc *time.Location) Range {
	start, end := Bounds(now, loc)
	return Range{Start: start.UTC(), End: end.UTC()}
}

// MonthRange returns the UTC bounds of the parish month containing now.
func MonthRange(now time.Time, loc *time.Location) Range {
	local := clock.InParishTime(now, loc)
	y, m, _ := local.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, local.Location())
	return Range{Start: start.UTC(), End: start.AddDate(0, 1, 0).UTC()}
}
