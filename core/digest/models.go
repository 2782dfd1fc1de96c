// Package digest composes week summaries and manages the weekly digest lifecycle.
package digest

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/announcement"
	"github.com/trezcool/parokia/core/event"
	"github.com/trezcool/parokia/core/task"
	"github.com/trezcool/parokia/core/week"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// AssertTransition fails when a digest may not move from one status to another.
// A published digest never goes back to draft.
func AssertTransition(from, to Status) error {
	if !from.Valid() || !to.Valid() {
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "unknown digest status"})
	}
	if from == StatusPublished && to == StatusDraft {
		return core.NewTransitionError("digest", string(from), string(to))
	}
	return nil
}

// Digest is the weekly newsletter of a parish. (ParishID, WeekID) is unique.
type Digest struct {
	ID          string     `json:"id"`
	ParishID    string     `json:"parish_id"`
	WeekID      string     `json:"week_id"`
	Status      Status     `json:"status"`
	Content     string     `json:"content"` // markdown
	AuthorID    string     `json:"author_id"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (d Digest) IsPublished() bool {
	return d.Status == StatusPublished
}

// UpdateDigest defines what may change on a digest. Nil fields are kept.
type UpdateDigest struct {
	Content *string `json:"content" validate:"omitempty,max=50000"`
	Status  *Status `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED"`
}

func (ud *UpdateDigest) Validate(validate *validator.Validate) error {
	return validate.Struct(ud)
}

type GetFilter struct {
	ID       string
	ParishID string
	WeekID   string
}

// WeekSummary is what a viewer sees of one parish week.
type WeekSummary struct {
	ParishID      string                      `json:"parish_id"`
	Week          week.Week                   `json:"week"`
	Tasks         []task.Task                 `json:"tasks"`
	Events        []event.Instance            `json:"events"`
	Announcements []announcement.Announcement `json:"announcements"`
	TasksDone     int                         `json:"tasks_done"`
	TasksTotal    int                         `json:"tasks_total"`
	CompletionPct int                         `json:"completion_pct"`
	Truncated     bool                        `json:"truncated,omitempty"` // event expansion hit its cap
}

// CompletionPct is round(100*done/total), 0 when there is nothing to do.
func CompletionPct(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}
