// Package recurrence expands repeating schedules into concrete occurrences.
package recurrence

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	"github.com/trezcool/parokia/core"
)

type Frequency string

const (
	None    Frequency = "NONE"
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
)

var (
	Frequencies = []Frequency{None, Daily, Weekly, Monthly}

	rruleFrequencies = map[Frequency]rrule.Frequency{
		Daily:   rrule.DAILY,
		Weekly:  rrule.WEEKLY,
		Monthly: rrule.MONTHLY,
	}

	// indexed like time.Weekday: 0 is Sunday
	rruleWeekdays = []rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}
)

func (f Frequency) Valid() bool {
	_, ok := rruleFrequencies[f]
	return ok || f == None
}

// Rule is the repeat pattern embedded on an event.
type Rule struct {
	Frequency Frequency  `json:"frequency" validate:"frequency"`
	Interval  int        `json:"interval" validate:"gte=0"`
	ByWeekday []int      `json:"by_weekday" validate:"dive,weekday"` // 0 (Sunday) to 6 (Saturday)
	Until     *time.Time `json:"until"`                              // inclusive
}

func (r Rule) Recurring() bool {
	return r.Frequency != "" && r.Frequency != None
}

// Normalize fills defaults and sorts weekdays. It does not validate.
func (r Rule) Normalize() Rule {
	if r.Frequency == "" {
		r.Frequency = None
	}
	if !r.Recurring() {
		return Rule{Frequency: None}
	}
	if r.Interval == 0 {
		r.Interval = 1
	}
	if len(r.ByWeekday) > 0 {
		days := make([]int, 0, len(r.ByWeekday))
		seen := make(map[int]bool, len(r.ByWeekday))
		for _, d := range r.ByWeekday {
			if !seen[d] {
				seen[d] = true
				days = append(days, d)
			}
		}
		sort.Ints(days)
		r.ByWeekday = days
	} else {
		r.ByWeekday = nil
	}
	if r.Until != nil {
		until := r.Until.UTC()
		r.Until = &until
	}
	return r
}

// Validate checks the rule of an event starting at start. Rules are validated when written
// so that expansion never meets a malformed one.
func (r Rule) Validate(start time.Time) error {
	var flds []core.FieldError
	addErr := func(field, msg string) {
		flds = append(flds, core.FieldError{Field: field, Error: msg})
	}

	// an omitted frequency is NONE and an omitted interval is 1, as in Normalize
	if r.Frequency != "" && !r.Frequency.Valid() {
		addErr("frequency", fmt.Sprintf("unknown frequency %q", r.Frequency))
	}
	if r.Recurring() {
		if r.Interval < 0 {
			addErr("interval", "interval must be a positive integer")
		}
		for _, d := range r.ByWeekday {
			if d < 0 || d > 6 {
				addErr("by_weekday", fmt.Sprintf("weekday %d is outside 0-6", d))
				break
			}
		}
		if r.Until != nil && r.Until.Before(start) {
			addErr("until", "until must not be before the event start")
		}
	} else if len(r.ByWeekday) > 0 || r.Until != nil {
		addErr("frequency", "a non recurring event cannot have weekdays or an end date")
	}

	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid recurrence rule"), flds...)
	}
	return nil
}

// RRule builds the rrule-go rule for an event starting at dtstart.
// Occurrences are computed in dtstart's location so that wall clock times survive DST changes.
func (r Rule) RRule(dtstart time.Time) (*rrule.RRule, error) {
	freq, ok := rruleFrequencies[r.Frequency]
	if !ok {
		return nil, errors.Errorf("frequency %q does not repeat", r.Frequency)
	}
	opt := rrule.ROption{
		Freq:     freq,
		Interval: r.Interval,
		Dtstart:  dtstart,
		Wkst:     rrule.MO,
	}
	// monthly rules repeat on the start's day of month and ignore weekdays
	if r.Frequency == Weekly || r.Frequency == Daily {
		for _, d := range r.ByWeekday {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	}
	if r.Until != nil {
		opt.Until = r.Until.In(dtstart.Location())
	}
	rule, err := rrule.NewRRule(opt)
	return rule, errors.Wrap(err, "building rrule")
}

// String renders the rule as an RFC 5545 RRULE value, empty for non recurring rules.
func (r Rule) String() string {
	if !r.Recurring() {
		return ""
	}
	rule, err := r.RRule(time.Unix(0, 0).UTC())
	if err != nil {
		return ""
	}
	return rule.OrigOptions.RRuleString()
}
