package event

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/recurrence"
)

// Edit scopes
const (
	ScopeOccurrence = "occurrence" // this event only
	ScopeSeries     = "series"     // this and every occurrence
)

// Event is a base calendar entry; recurring events are expanded into Instances on read.
type Event struct {
	ID          string          `json:"id"`
	ParishID    string          `json:"parish_id"`
	GroupID     string          `json:"group_id,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Location    string          `json:"location,omitempty"`
	StartsAt    time.Time       `json:"starts_at"`
	EndsAt      time.Time       `json:"ends_at"`
	Visibility  access.Scope    `json:"visibility"`
	Recurrence  recurrence.Rule `json:"recurrence"`
	CreatedByID string          `json:"created_by_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (e Event) AccessRules() access.Rules {
	return access.Rules{
		ParishID: e.ParishID,
		Authors:  []string{e.CreatedByID},
		Owners:   []string{e.CreatedByID},
		Scope:    e.Visibility,
		GroupID:  e.GroupID,
	}
}

func (e Event) Schedule(loc *time.Location) recurrence.Schedule {
	return recurrence.Schedule{
		ID:       e.ID,
		StartsAt: e.StartsAt,
		EndsAt:   e.EndsAt,
		Rule:     e.Recurrence,
		Location: loc,
	}
}

// Exception overrides one occurrence of a recurring event, keyed by (EventID, OriginalStart).
// Nil fields keep the base event's values.
type Exception struct {
	ID            string     `json:"id"`
	EventID       string     `json:"event_id"`
	OriginalStart time.Time  `json:"original_start"`
	StartsAt      *time.Time `json:"starts_at,omitempty"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Location      *string    `json:"location,omitempty"`
	Cancelled     bool       `json:"cancelled"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (ex Exception) Override() recurrence.Override {
	var ov recurrence.Override
	if ex.StartsAt != nil {
		ov.StartsAt = *ex.StartsAt
	}
	if ex.EndsAt != nil {
		ov.EndsAt = *ex.EndsAt
	}
	ov.Cancelled = ex.Cancelled
	return ov
}

// Instance is one occurrence of an Event. It is never stored.
type Instance struct {
	InstanceID    string       `json:"instance_id"`
	EventID       string       `json:"event_id"`
	ParishID      string       `json:"parish_id"`
	GroupID       string       `json:"group_id,omitempty"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	Location      string       `json:"location,omitempty"`
	Visibility    access.Scope `json:"visibility"`
	OriginalStart time.Time    `json:"original_start"`
	StartsAt      time.Time    `json:"starts_at"`
	EndsAt        time.Time    `json:"ends_at"`
	Recurring     bool         `json:"recurring"`
	Overridden    bool         `json:"overridden"`
	CreatedByID   string       `json:"created_by_id"`
}

// newInstance projects e onto occ, applying the text overrides of ex when present.
func newInstance(e Event, occ recurrence.Occurrence, ex *Exception) Instance {
	in := Instance{
		InstanceID:    occ.InstanceID,
		EventID:       e.ID,
		ParishID:      e.ParishID,
		GroupID:       e.GroupID,
		Title:         e.Title,
		Description:   e.Description,
		Location:      e.Location,
		Visibility:    e.Visibility,
		OriginalStart: occ.OriginalStart,
		StartsAt:      occ.StartsAt,
		EndsAt:        occ.EndsAt,
		Recurring:     e.Recurrence.Recurring(),
		Overridden:    occ.Overridden,
		CreatedByID:   e.CreatedByID,
	}
	if ex != nil {
		if ex.Title != nil {
			in.Title = *ex.Title
		}
		if ex.Description != nil {
			in.Description = *ex.Description
		}
		if ex.Location != nil {
			in.Location = *ex.Location
		}
		in.Overridden = true
	}
	return in
}

func (in Instance) AccessRules() access.Rules {
	return access.Rules{
		ParishID: in.ParishID,
		Authors:  []string{in.CreatedByID},
		Owners:   []string{in.CreatedByID},
		Scope:    in.Visibility,
		GroupID:  in.GroupID,
	}
}

// NewEvent contains information needed to create a new Event.
type NewEvent struct {
	GroupID     string          `json:"group_id" validate:"required_if=Visibility GROUP"`
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=4000"`
	Location    string          `json:"location" validate:"max=200"`
	StartsAt    time.Time       `json:"starts_at" validate:"required"`
	EndsAt      time.Time       `json:"ends_at" validate:"required,gtefield=StartsAt"`
	Visibility  access.Scope    `json:"visibility" validate:"required,scope,oneof=PUBLIC PRIVATE GROUP"`
	Recurrence  recurrence.Rule `json:"recurrence"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.Location = core.CleanString(ne.Location)
	if err := validate.Struct(ne); err != nil {
		return err
	}
	return ne.Recurrence.Validate(ne.StartsAt)
}

// UpdateEvent defines what may change on a whole series. Nil fields are kept.
type UpdateEvent struct {
	Title         *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description   *string          `json:"description" validate:"omitempty,max=4000"`
	Location      *string          `json:"location" validate:"omitempty,max=200"`
	StartsAt      *time.Time       `json:"starts_at"`
	EndsAt        *time.Time       `json:"ends_at"`
	Recurrence    *recurrence.Rule `json:"recurrence"`
	EffectiveFrom time.Time        `json:"effective_from"` // exceptions from here on are dropped when the schedule changes
}

func (ue *UpdateEvent) Validate(validate *validator.Validate) error {
	if ue.Title != nil {
		title := core.CleanString(*ue.Title)
		ue.Title = &title
	}
	return validate.Struct(ue)
}

// apply returns e with ue applied and whether its schedule changed.
func (ue UpdateEvent) apply(e Event) (Event, bool) {
	before := e.Schedule(nil)
	if ue.Title != nil {
		e.Title = *ue.Title
	}
	if ue.Description != nil {
		e.Description = core.CleanString(*ue.Description)
	}
	if ue.Location != nil {
		e.Location = core.CleanString(*ue.Location)
	}
	if ue.StartsAt != nil {
		e.StartsAt = ue.StartsAt.UTC()
	}
	if ue.EndsAt != nil {
		e.EndsAt = ue.EndsAt.UTC()
	}
	if ue.Recurrence != nil {
		e.Recurrence = ue.Recurrence.Normalize()
	}
	after := e.Schedule(nil)
	changed := !before.StartsAt.Equal(after.StartsAt) ||
		!before.EndsAt.Equal(after.EndsAt) ||
		before.Rule.String() != after.Rule.String()
	return e, changed
}

// EditOccurrence changes a single occurrence ("this event only").
type EditOccurrence struct {
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=4000"`
	Location    *string    `json:"location" validate:"omitempty,max=200"`
	Cancelled   bool       `json:"cancelled"`
}

func (eo *EditOccurrence) Validate(validate *validator.Validate) error {
	if err := validate.Struct(eo); err != nil {
		return err
	}
	if eo.StartsAt != nil && eo.EndsAt != nil && eo.EndsAt.Before(*eo.StartsAt) {
		return core.NewValidationError(nil, core.FieldError{Field: "ends_at", Error: "ends_at must not be before starts_at"})
	}
	return nil
}

type QueryFilter struct {
	ParishID string
	GroupID  string
	From     time.Time // candidates that may have an occurrence at or after From
	To       time.Time // candidates starting before To
}
