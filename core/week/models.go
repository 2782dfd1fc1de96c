package week

import (
	"time"
)

// Selection names a week relative to now.
type Selection string

const (
	SelectCurrent Selection = "current"
	SelectNext    Selection = "next"
)

func (s Selection) Valid() bool {
	return s == SelectCurrent || s == SelectNext
}

// Week is one Monday-to-Monday period of a parish. Rows are created lazily and never change.
type Week struct {
	ID        string    `json:"id"`
	ParishID  string    `json:"parish_id"`
	StartsOn  time.Time `json:"starts_on"` // UTC instant of local Monday midnight
	EndsOn    time.Time `json:"ends_on"`   // exclusive
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// New builds the Week starting at localStart (local Monday midnight).
func New(parishID string, localStart time.Time) Week {
	return Week{
		ParishID: parishID,
		StartsOn: localStart.UTC(),
		EndsOn:   End(localStart).UTC(),
		Label:    Label(localStart),
	}
}

func (w Week) Range() Range {
	return Range{Start: w.StartsOn, End: w.EndsOn}
}

type GetFilter struct {
	ID       string
	ParishID string
	StartsOn time.Time
}

type QueryFilter struct {
	ParishID string
	From     time.Time // StartsOn >= From when set
	To       time.Time // StartsOn < To when set
}
