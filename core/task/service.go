package task

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/clock"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("task")
)

type (
	Repository interface {
		CreateTask(ctx context.Context, t Task, exec ...core.DBExecutor) (Task, error)
		GetTask(ctx context.Context, id string, exec ...core.DBExecutor) (Task, error)
		QueryTasks(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Task, error)
		UpdateTask(ctx context.Context, t Task, exec ...core.DBExecutor) (Task, error)
	}

	// WeekChecker confirms a week belongs to a parish.
	WeekChecker interface {
		Exists(ctx context.Context, parishID, weekID string) (bool, error)
	}

	Service struct {
		repo  Repository
		weeks WeekChecker
	}
)

func NewService(repo Repository, weeks WeekChecker) *Service {
	vala.BeginValidation().Validate(
		core.IsProvided(repo, "repo"),
		core.IsProvided(weeks, "weeks"),
	).CheckAndPanic()
	return &Service{repo: repo, weeks: weeks}
}

// Create adds a task to a week. Tasks created by leaders are approved right away.
func (svc *Service) Create(ctx context.Context, parishID string, nt NewTask, creator access.Viewer) (Task, error) {
	if !creator.IsMember() || creator.ParishID != parishID {
		return Task{}, core.ErrForbidden
	}
	ok, err := svc.weeks.Exists(ctx, parishID, nt.WeekID)
	if err != nil {
		return Task{}, errors.Wrap(err, "checking week")
	}
	if !ok {
		return Task{}, core.NewValidationError(nil, core.FieldError{Field: "week_id", Error: "unknown week"})
	}

	approval := access.ApprovalPending
	if creator.IsLeader() || nt.Visibility == access.ScopePrivate {
		approval = access.ApprovalApproved
	}
	owner := nt.OwnerID
	if owner == "" {
		owner = creator.UserID
	}

	now := clock.Now()
	t := Task{
		ID:             uuid.New().String(),
		ParishID:       parishID,
		WeekID:         nt.WeekID,
		GroupID:        nt.GroupID,
		Title:          nt.Title,
		Notes:          nt.Notes,
		Visibility:     nt.Visibility,
		ApprovalStatus: approval,
		Status:         StatusOpen,
		OwnerID:        owner,
		CreatedByID:    creator.UserID,
		EstimatedHours: nt.EstimatedHours,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateTask(ctx, t)
}

func (svc *Service) GetByID(ctx context.Context, parishID, id string) (Task, error) {
	t, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if t.ParishID != parishID {
		return Task{}, ErrNotFound
	}
	return t, nil
}

// QueryForWeek returns the tasks of a week, unfiltered. Callers apply visibility.
func (svc *Service) QueryForWeek(ctx context.Context, parishID, weekID string) ([]Task, error) {
	return svc.repo.QueryTasks(ctx, QueryFilter{ParishID: parishID, WeekID: weekID})
}

// QueryVisible returns the tasks of a week the viewer may see.
func (svc *Service) QueryVisible(ctx context.Context, parishID, weekID string, viewer access.Viewer) ([]Task, error) {
	tasks, err := svc.QueryForWeek(ctx, parishID, weekID)
	if err != nil {
		return nil, err
	}
	return access.Filter(tasks, viewer), nil
}

func (svc *Service) manage(ctx context.Context, parishID, id string, viewer access.Viewer, fn func(t *Task)) (Task, error) {
	t, err := svc.GetByID(ctx, parishID, id)
	if err != nil {
		return Task{}, err
	}
	if !access.CanManage(t, viewer) {
		return Task{}, core.ErrForbidden
	}
	fn(&t)
	t.UpdatedAt = clock.Now()
	return svc.repo.UpdateTask(ctx, t)
}

func (svc *Service) Complete(ctx context.Context, parishID, id string, viewer access.Viewer) (Task, error) {
	return svc.manage(ctx, parishID, id, viewer, func(t *Task) {
		if t.Status != StatusDone {
			now := clock.Now()
			t.Status = StatusDone
			t.CompletedAt = &now
		}
	})
}

func (svc *Service) Reopen(ctx context.Context, parishID, id string, viewer access.Viewer) (Task, error) {
	return svc.manage(ctx, parishID, id, viewer, func(t *Task) {
		t.Status = StatusOpen
		t.CompletedAt = nil
	})
}

// Review approves or rejects a task. Only parish or group leaders review; owners cannot approve their own.
func (svc *Service) Review(ctx context.Context, parishID, id string, approval access.Approval, viewer access.Viewer) (Task, error) {
	if approval != access.ApprovalApproved && approval != access.ApprovalRejected {
		return Task{}, core.NewValidationError(nil, core.FieldError{Field: "approval_status", Error: "must be APPROVED or REJECTED"})
	}
	t, err := svc.GetByID(ctx, parishID, id)
	if err != nil {
		return Task{}, err
	}
	if !viewer.IsLeader() && !(t.GroupID != "" && viewer.LeadsGroup(t.GroupID)) {
		return Task{}, core.ErrForbidden
	}
	t.ApprovalStatus = approval
	t.UpdatedAt = clock.Now()
	return svc.repo.UpdateTask(ctx, t)
}

// HoursServed sums the estimated hours of the tasks userID completed since from.
func (svc *Service) HoursServed(ctx context.Context, parishID, userID string, from time.Time) (float64, error) {
	tasks, err := svc.repo.QueryTasks(ctx, QueryFilter{ParishID: parishID, OwnerID: userID, Status: StatusDone})
	if err != nil {
		return 0, errors.Wrap(err, "querying done tasks")
	}
	var hours float64
	for _, t := range tasks {
		if t.CompletedAt != nil && !t.CompletedAt.Before(from) {
			hours += t.EstimatedHours
		}
	}
	return hours, nil
}
