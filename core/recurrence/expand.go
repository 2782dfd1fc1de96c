package recurrence

import (
	"fmt"
	"time"

	"github.com/trezcool/parokia/core/week"
)

// DefaultMaxOccurrences bounds a single expansion when no limit is configured.
const DefaultMaxOccurrences = 5000

type (
	// Schedule is the temporal part of a base event.
	Schedule struct {
		ID       string
		StartsAt time.Time
		EndsAt   time.Time
		Rule     Rule
		Location *time.Location // wall clock used to step occurrences; UTC when nil
	}

	Occurrence struct {
		InstanceID    string
		BaseID        string
		OriginalStart time.Time // computed start, the key of any override
		StartsAt      time.Time
		EndsAt        time.Time
		Overridden    bool
	}

	Expansion struct {
		Occurrences []Occurrence
		Truncated   bool // the occurrence cap was reached
	}

	// Override replaces one computed occurrence. Zero times keep the computed ones.
	Override struct {
		StartsAt  time.Time
		EndsAt    time.Time
		Cancelled bool
	}

	// Overrides is a sparse sidecar keyed by base id then original start (unix millis).
	Overrides map[string]map[int64]Override
)

// InstanceID is the stable key of the occurrence of baseID starting at start.
func InstanceID(baseID string, start time.Time) string {
	return fmt.Sprintf("%s-%d", baseID, start.UnixMilli())
}

func (o Overrides) Set(baseID string, originalStart time.Time, ov Override) {
	byStart, ok := o[baseID]
	if !ok {
		byStart = make(map[int64]Override)
		o[baseID] = byStart
	}
	byStart[originalStart.UnixMilli()] = ov
}

func (o Overrides) Lookup(baseID string, originalStart time.Time) (Override, bool) {
	ov, ok := o[baseID][originalStart.UnixMilli()]
	return ov, ok
}

// latest returns the last overridden original start of baseID.
func (o Overrides) latest(baseID string) (time.Time, bool) {
	var max int64
	var found bool
	for ms := range o[baseID] {
		if !found || ms > max {
			max, found = ms, true
		}
	}
	return time.UnixMilli(max).UTC(), found
}

// earliest returns the first overridden original start of baseID.
func (o Overrides) earliest(baseID string) (time.Time, bool) {
	var min int64
	var found bool
	for ms := range o[baseID] {
		if !found || ms < min {
			min, found = ms, true
		}
	}
	return time.UnixMilli(min).UTC(), found
}

// fastForward moves dtstart by whole periods of r, keeping its wall clock, to the last
// period start not after from. Daily and weekly periods have a fixed number of days;
// other rules are returned unchanged.
func fastForward(r Rule, dtstart, from time.Time) time.Time {
	var days int
	switch r.Frequency {
	case Daily:
		days = r.Interval
	case Weekly:
		days = 7 * r.Interval
	}
	if days <= 0 || !from.After(dtstart) {
		return dtstart
	}
	// one period less, so that a DST hour never pushes the result past from
	n := int(from.Sub(dtstart).Hours()/24)/days - 1
	if n <= 0 {
		return dtstart
	}
	return dtstart.AddDate(0, 0, n*days)
}

func (s Schedule) duration() time.Duration {
	if s.EndsAt.Before(s.StartsAt) {
		return 0
	}
	return s.EndsAt.Sub(s.StartsAt)
}

// Expand returns the occurrences of s overlapping rng, at most max of them
// (DefaultMaxOccurrences when max <= 0). Hitting the cap truncates the result.
// The base rule is assumed valid: an invalid one expands to nothing.
func Expand(s Schedule, rng week.Range, overrides Overrides, max int) Expansion {
	if max <= 0 {
		max = DefaultMaxOccurrences
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	dur := s.duration()

	var exp Expansion
	// emit reports whether expansion may continue
	emit := func(orig time.Time) bool {
		occ := Occurrence{
			InstanceID:    InstanceID(s.ID, orig),
			BaseID:        s.ID,
			OriginalStart: orig.UTC(),
			StartsAt:      orig.UTC(),
			EndsAt:        orig.Add(dur).UTC(),
		}
		if ov, ok := overrides.Lookup(s.ID, orig); ok {
			if ov.Cancelled {
				return true
			}
			if !ov.StartsAt.IsZero() {
				occ.StartsAt = ov.StartsAt.UTC()
				occ.EndsAt = ov.StartsAt.Add(dur).UTC()
			}
			if !ov.EndsAt.IsZero() {
				occ.EndsAt = ov.EndsAt.UTC()
			}
			occ.Overridden = true
		}
		if !rng.Overlaps(occ.StartsAt, occ.EndsAt) {
			return true
		}
		if len(exp.Occurrences) >= max {
			exp.Truncated = true
			return false
		}
		exp.Occurrences = append(exp.Occurrences, occ)
		return true
	}

	if !s.Rule.Recurring() {
		emit(s.StartsAt)
		return exp
	}

	// an override may move an earlier occurrence into the range
	from := rng.Start.Add(-dur)
	if first, ok := overrides.earliest(s.ID); ok && first.Before(from) {
		from = first
	}
	norm := s.Rule.Normalize()
	rule, err := norm.RRule(fastForward(norm, s.StartsAt.In(loc), from))
	if err != nil {
		return exp
	}

	// or a later one
	stop := rng.End
	if last, ok := overrides.latest(s.ID); ok && last.After(stop) {
		stop = last
	}

	// iterations count against the cap too, so that old monthly series stay bounded
	next := rule.Iterator()
	for steps := 0; ; steps++ {
		start, ok := next()
		if !ok || start.After(stop) {
			break
		}
		if steps >= max {
			exp.Truncated = true
			break
		}
		if !emit(start) {
			break
		}
	}
	return exp
}

// IsOccurrence reports whether start is an occurrence computed from s, ignoring overrides.
func IsOccurrence(s Schedule, start time.Time) bool {
	if !s.Rule.Recurring() {
		return start.Equal(s.StartsAt)
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	norm := s.Rule.Normalize()
	rule, err := norm.RRule(fastForward(norm, s.StartsAt.In(loc), start))
	if err != nil {
		return false
	}
	found := rule.After(start.Add(-time.Millisecond), false)
	return !found.IsZero() && found.UnixMilli() == start.UnixMilli()
}
