package announcement

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
)

type Announcement struct {
	ID          string          `json:"id"`
	ParishID    string          `json:"parish_id"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	Scope       access.Scope    `json:"scope"` // PARISH or CHAT
	Channel     *access.Channel `json:"channel,omitempty"`
	Status      Status          `json:"status"`
	AuthorID    string          `json:"author_id"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (a Announcement) IsPublished() bool {
	return a.Status == StatusPublished
}

func (a Announcement) AccessRules() access.Rules {
	return access.Rules{
		ParishID: a.ParishID,
		Authors:  []string{a.AuthorID},
		Owners:   []string{a.AuthorID},
		Scope:    a.Scope,
		Draft:    a.Status != StatusPublished,
		Channel:  a.Channel,
	}
}

// NewAnnouncement contains information needed to create a draft Announcement.
type NewAnnouncement struct {
	Title   string          `json:"title" validate:"required,max=200"`
	Body    string          `json:"body" validate:"required,max=10000"`
	Scope   access.Scope    `json:"scope" validate:"required,scope,oneof=PARISH CHAT"`
	Channel *access.Channel `json:"channel" validate:"required_if=Scope CHAT"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Body = core.CleanString(na.Body)
	if err := validate.Struct(na); err != nil {
		return err
	}
	if na.Channel != nil && na.Channel.Type == access.ChannelGroup && na.Channel.GroupID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "channel", Error: "group channels need a group_id"})
	}
	return nil
}

type QueryFilter struct {
	ParishID       string
	Status         Status
	PublishedFrom  time.Time // PublishedAt >= PublishedFrom when set
	PublishedUntil time.Time // PublishedAt < PublishedUntil when set
}
