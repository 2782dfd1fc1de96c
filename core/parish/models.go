package parish

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
)

type Parish struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Timezone  string    `json:"timezone"` // IANA name, empty for the configured default
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership links a user to a parish. (ParishID, UserID) is unique.
type Membership struct {
	ParishID  string            `json:"parish_id"`
	UserID    string            `json:"user_id"`
	Role      access.ParishRole `json:"role"`
	CreatedAt time.Time         `json:"created_at"`
}

// Group is a ministry or team inside a parish.
type Group struct {
	ID        string    `json:"id"`
	ParishID  string    `json:"parish_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupMember links a user to a group. (GroupID, UserID) is unique.
type GroupMember struct {
	GroupID   string                  `json:"group_id"`
	UserID    string                  `json:"user_id"`
	Role      access.GroupRole        `json:"role"`
	Status    access.MembershipStatus `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
}

// NewParish contains information needed to create a new Parish.
type NewParish struct {
	Name     string `json:"name" validate:"required,max=120"`
	Slug     string `json:"slug" validate:"required,max=60,slug"`
	Timezone string `json:"timezone" validate:"iana_tz"`
}

func (np *NewParish) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	np.Slug = core.CleanString(np.Slug, true /* lower */)
	np.Timezone = core.CleanString(np.Timezone)
	return validate.Struct(np)
}

type NewGroup struct {
	Name string `json:"name" validate:"required,max=120"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	return validate.Struct(ng)
}
