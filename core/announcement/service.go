package announcement

import (
	"context"

	"github.com/google/uuid"
	"github.com/kat-co/vala"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/clock"
	"github.com/trezcool/parokia/core/week"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("announcement")
)

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, a Announcement, exec ...core.DBExecutor) (Announcement, error)
		GetAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) (Announcement, error)
		QueryAnnouncements(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Announcement, error)
		UpdateAnnouncement(ctx context.Context, a Announcement, exec ...core.DBExecutor) (Announcement, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	vala.BeginValidation().Validate(
		core.IsProvided(repo, "repo"),
	).CheckAndPanic()
	return &Service{repo: repo}
}

// Create stores a draft. Only members may announce.
func (svc *Service) Create(ctx context.Context, parishID string, na NewAnnouncement, author access.Viewer) (Announcement, error) {
	if !author.IsMember() {
		return Announcement{}, core.ErrForbidden
	}
	now := clock.Now()
	a := Announcement{
		ID:        uuid.New().String(),
		ParishID:  parishID,
		Title:     na.Title,
		Body:      na.Body,
		Scope:     na.Scope,
		Channel:   na.Channel,
		Status:    StatusDraft,
		AuthorID:  author.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if a.Scope != access.ScopeChat {
		a.Channel = nil
	}
	return svc.repo.CreateAnnouncement(ctx, a)
}

func (svc *Service) GetByID(ctx context.Context, parishID, id string, viewer access.Viewer) (Announcement, error) {
	a, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	if a.ParishID != parishID || !access.CanView(a, viewer) {
		return Announcement{}, ErrNotFound
	}
	return a, nil
}

// Publish makes a draft visible. Publishing twice keeps the first publish time.
func (svc *Service) Publish(ctx context.Context, parishID, id string, viewer access.Viewer) (Announcement, error) {
	a, err := svc.GetByID(ctx, parishID, id, viewer)
	if err != nil {
		return Announcement{}, err
	}
	if !access.CanManage(a, viewer) {
		return Announcement{}, core.ErrForbidden
	}
	if a.IsPublished() {
		return a, nil
	}
	now := clock.Now()
	a.Status = StatusPublished
	a.PublishedAt = &now
	a.UpdatedAt = now
	return svc.repo.UpdateAnnouncement(ctx, a)
}

// QueryPublished returns the announcements published during rng, unfiltered.
func (svc *Service) QueryPublished(ctx context.Context, parishID string, rng week.Range) ([]Announcement, error) {
	return svc.repo.QueryAnnouncements(ctx, QueryFilter{
		ParishID:       parishID,
		Status:         StatusPublished,
		PublishedFrom:  rng.Start,
		PublishedUntil: rng.End,
	})
}

// QueryVisible returns the announcements of a parish the viewer may see, drafts included.
func (svc *Service) QueryVisible(ctx context.Context, parishID string, viewer access.Viewer) ([]Announcement, error) {
	all, err := svc.repo.QueryAnnouncements(ctx, QueryFilter{ParishID: parishID})
	if err != nil {
		return nil, err
	}
	return access.Filter(all, viewer), nil
}
