package request

import (
	"context"

	"github.com/google/uuid"
	"github.com/kat-co/vala"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/clock"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("request")
)

type (
	Repository interface {
		CreateRequest(ctx context.Context, r Request, exec ...core.DBExecutor) (Request, error)
		GetRequest(ctx context.Context, id string, exec ...core.DBExecutor) (Request, error)
		QueryRequests(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Request, error)
		UpdateRequest(ctx context.Context, r Request, exec ...core.DBExecutor) (Request, error)
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

func (svc *Service) Create(ctx context.Context, parishID string, nr NewRequest, requester access.Viewer) (Request, error) {
	if !requester.IsMember() {
		return Request{}, core.ErrForbidden
	}
	now := clock.Now()
	r := Request{
		ID:          uuid.New().String(),
		ParishID:    parishID,
		Subject:     nr.Subject,
		Body:        nr.Body,
		Scope:       nr.Scope,
		Status:      StatusOpen,
		RequesterID: requester.UserID,
		AssigneeIDs: dedupe(nr.AssigneeIDs),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateRequest(ctx, r)
}

// Get returns a request the viewer may see. Hidden requests read as missing.
func (svc *Service) Get(ctx context.Context, parishID, id string, viewer access.Viewer) (Request, error) {
	r, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if r.ParishID != parishID || !access.CanView(r, viewer) {
		return Request{}, ErrNotFound
	}
	return r, nil
}

// QueryVisible returns the requests of a parish the viewer may see.
func (svc *Service) QueryVisible(ctx context.Context, parishID string, viewer access.Viewer) ([]Request, error) {
	all, err := svc.repo.QueryRequests(ctx, QueryFilter{ParishID: parishID})
	if err != nil {
		return nil, err
	}
	return access.Filter(all, viewer), nil
}

// Assign replaces the assignees of a request; only parish leaders may do it.
// Assigning narrows the scope to ADMIN_SPECIFIC.
func (svc *Service) Assign(ctx context.Context, parishID, id string, assigneeIDs []string, viewer access.Viewer) (Request, error) {
	r, err := svc.Get(ctx, parishID, id, viewer)
	if err != nil {
		return Request{}, err
	}
	if !viewer.IsLeader() {
		return Request{}, core.ErrForbidden
	}
	ids := dedupe(assigneeIDs)
	if len(ids) == 0 {
		return Request{}, core.NewValidationError(nil, core.FieldError{Field: "assignee_ids", Error: "at least one assignee is required"})
	}
	r.AssigneeIDs = ids
	r.Scope = access.ScopeAdminSpecific
	if r.Status == StatusOpen {
		r.Status = StatusInProgress
	}
	r.UpdatedAt = clock.Now()
	return svc.repo.UpdateRequest(ctx, r)
}

// Close marks a request handled.
func (svc *Service) Close(ctx context.Context, parishID, id string, viewer access.Viewer) (Request, error) {
	r, err := svc.Get(ctx, parishID, id, viewer)
	if err != nil {
		return Request{}, err
	}
	if !access.CanManage(r, viewer) {
		return Request{}, core.ErrForbidden
	}
	r.Status = StatusClosed
	r.UpdatedAt = clock.Now()
	return svc.repo.UpdateRequest(ctx, r)
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = core.CleanString(id)
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
