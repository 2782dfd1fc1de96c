// Package request holds pastoral requests: prayer, confession, visits and the like.
package request

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
	StatusClosed     Status = "CLOSED"
)

type Request struct {
	ID          string       `json:"id"`
	ParishID    string       `json:"parish_id"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Scope       access.Scope `json:"scope"` // CLERGY_ONLY, ADMIN_ALL or ADMIN_SPECIFIC
	Status      Status       `json:"status"`
	RequesterID string       `json:"requester_id"`
	AssigneeIDs []string     `json:"assignee_ids"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// AccessRules: the requester always sees the request; assignees manage it.
func (r Request) AccessRules() access.Rules {
	return access.Rules{
		ParishID:  r.ParishID,
		Authors:   []string{r.RequesterID},
		Owners:    r.AssigneeIDs,
		Scope:     r.Scope,
		Assignees: r.AssigneeIDs,
	}
}

// NewRequest contains information needed to file a Request.
type NewRequest struct {
	Subject     string       `json:"subject" validate:"required,max=200"`
	Body        string       `json:"body" validate:"max=10000"`
	Scope       access.Scope `json:"scope" validate:"required,scope,oneof=CLERGY_ONLY ADMIN_ALL ADMIN_SPECIFIC"`
	AssigneeIDs []string     `json:"assignee_ids" validate:"required_if=Scope ADMIN_SPECIFIC"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.Subject = core.CleanString(nr.Subject)
	nr.Body = core.CleanString(nr.Body)
	return validate.Struct(nr)
}

type QueryFilter struct {
	ParishID    string
	RequesterID string
	Status      Status
}
