package task

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
)

type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Task is a unit of service ("Serve") planned for one parish week.
type Task struct {
	ID             string          `json:"id"`
	ParishID       string          `json:"parish_id"`
	WeekID         string          `json:"week_id"`
	GroupID        string          `json:"group_id,omitempty"`
	Title          string          `json:"title"`
	Notes          string          `json:"notes,omitempty"`
	Visibility     access.Scope    `json:"visibility"`
	ApprovalStatus access.Approval `json:"approval_status"`
	Status         Status          `json:"status"`
	OwnerID        string          `json:"owner_id,omitempty"`
	CreatedByID    string          `json:"created_by_id"`
	EstimatedHours float64         `json:"estimated_hours,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (t Task) IsDone() bool {
	return t.Status == StatusDone
}

// AccessRules: the owner and the creator always see the task; everyone else needs
// it to be approved and in scope.
func (t Task) AccessRules() access.Rules {
	return access.Rules{
		ParishID:         t.ParishID,
		Authors:          []string{t.OwnerID, t.CreatedByID},
		Owners:           []string{t.OwnerID},
		Scope:            t.Visibility,
		RequiresApproval: t.Visibility != access.ScopePrivate,
		Approval:         t.ApprovalStatus,
		GroupID:          t.GroupID,
	}
}

// NewTask contains information needed to create a new Task.
type NewTask struct {
	WeekID         string       `json:"week_id" validate:"required"`
	GroupID        string       `json:"group_id" validate:"required_if=Visibility GROUP"`
	Title          string       `json:"title" validate:"required,max=200"`
	Notes          string       `json:"notes" validate:"max=4000"`
	Visibility     access.Scope `json:"visibility" validate:"required,scope,oneof=PUBLIC PRIVATE GROUP"`
	OwnerID        string       `json:"owner_id"`
	EstimatedHours float64      `json:"estimated_hours" validate:"gte=0,lte=168"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Notes = core.CleanString(nt.Notes)
	nt.Visibility = access.Scope(core.CleanString(string(nt.Visibility)))
	return validate.Struct(nt)
}

type QueryFilter struct {
	ParishID string
	WeekID   string
	GroupID  string
	OwnerID  string
	Status   Status
}
