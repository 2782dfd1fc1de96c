package event

import (
	"time"

	ics "github.com/arran4/golang-ical"
)

// ICalendar serializes instances as an RFC 5545 calendar. Every instance becomes a standalone
// VEVENT; recurrence is already expanded so clients need no RRULE support.
func ICalendar(name string, instances []Instance, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Parokia//Parish Calendar//EN")
	if name != "" {
		cal.SetXWRCalName(name)
	}
	for _, in := range instances {
		ev := cal.AddEvent(in.InstanceID + "@parokia")
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(in.StartsAt.UTC())
		ev.SetEndAt(in.EndsAt.UTC())
		ev.SetSummary(in.Title)
		if in.Location != "" {
			ev.SetLocation(in.Location)
		}
		if in.Description != "" {
			ev.SetDescription(in.Description)
		}
	}
	return cal.Serialize()
}
