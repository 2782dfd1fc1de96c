package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/task"
)

type taskRow struct {
	ID             string      `db:"id"`
	ParishID       string      `db:"parish_id"`
	WeekID         string      `db:"week_id"`
	GroupID        null.String `db:"group_id"`
	Title          string      `db:"title"`
	Notes          string      `db:"notes"`
	Visibility     string      `db:"visibility"`
	ApprovalStatus string      `db:"approval_status"`
	Status         string      `db:"status"`
	OwnerID        null.String `db:"owner_id"`
	CreatedByID    string      `db:"created_by_id"`
	EstimatedHours float64     `db:"estimated_hours"`
	CompletedAt    null.Time   `db:"completed_at"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func toTaskRow(t task.Task) taskRow {
	return taskRow{
		ID:             t.ID,
		ParishID:       t.ParishID,
		WeekID:         t.WeekID,
		GroupID:        null.NewString(t.GroupID, t.GroupID != ""),
		Title:          t.Title,
		Notes:          t.Notes,
		Visibility:     string(t.Visibility),
		ApprovalStatus: string(t.ApprovalStatus),
		Status:         string(t.Status),
		OwnerID:        null.NewString(t.OwnerID, t.OwnerID != ""),
		CreatedByID:    t.CreatedByID,
		EstimatedHours: t.EstimatedHours,
		CompletedAt:    null.TimeFromPtr(t.CompletedAt),
		CreatedAt:      t.CreatedAt.UTC(),
		UpdatedAt:      t.UpdatedAt.UTC(),
	}
}

func (r taskRow) task() task.Task {
	return task.Task{
		ID:             r.ID,
		ParishID:       r.ParishID,
		WeekID:         r.WeekID,
		GroupID:        r.GroupID.String,
		Title:          r.Title,
		Notes:          r.Notes,
		Visibility:     access.Scope(r.Visibility),
		ApprovalStatus: access.Approval(r.ApprovalStatus),
		Status:         task.Status(r.Status),
		OwnerID:        r.OwnerID.String,
		CreatedByID:    r.CreatedByID,
		EstimatedHours: r.EstimatedHours,
		CompletedAt:    utcPtr(r.CompletedAt),
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

const taskColumns = `id, parish_id, week_id, group_id, title, notes, visibility, approval_status, status, owner_id,
	created_by_id, estimated_hours, completed_at, created_at, updated_at`

type taskRepository struct {
	exec core.DBExecutor
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(exec core.DBExecutor) *taskRepository {
	return &taskRepository{exec: exec}
}

func (repo taskRepository) CreateTask(ctx context.Context, t task.Task, exec ...core.DBExecutor) (task.Task, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	q := `INSERT INTO task (` + taskColumns + `) VALUES (:id, :parish_id, :week_id, :group_id, :title, :notes, :visibility,
		:approval_status, :status, :owner_id, :created_by_id, :estimated_hours, :completed_at, :created_at, :updated_at)`
	if _, err := namedExec(ctx, core.GetExec(repo.exec, exec), "task.create", q, toTaskRow(t)); err != nil {
		return task.Task{}, errors.Wrap(err, "inserting task")
	}
	return t, nil
}

func (repo taskRepository) GetTask(ctx context.Context, id string, exec ...core.DBExecutor) (task.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return task.Task{}, task.ErrNotFound
	}
	row, err := getx[taskRow](ctx, core.GetExec(repo.exec, exec), "task.get", `SELECT `+taskColumns+` FROM task WHERE id = $1`, id)
	if err != nil {
		return task.Task{}, trapNoRows(err, task.ErrNotFound, "finding task")
	}
	return row.task(), nil
}

func (repo taskRepository) QueryTasks(ctx context.Context, filter task.QueryFilter, exec ...core.DBExecutor) ([]task.Task, error) {
	var w where
	if filter.ParishID != "" {
		w.add("parish_id = ?", filter.ParishID)
	}
	if filter.WeekID != "" {
		w.add("week_id = ?", filter.WeekID)
	}
	if filter.GroupID != "" {
		w.add("group_id = ?", filter.GroupID)
	}
	if filter.OwnerID != "" {
		w.add("owner_id = ?", filter.OwnerID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	q := `SELECT ` + taskColumns + ` FROM task` + w.String() + ` ORDER BY lower(title), id`

	var rows []taskRow
	if err := selectx(ctx, core.GetExec(repo.exec, exec), "task.query", &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]task.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.task())
	}
	return tasks, nil
}

func (repo taskRepository) UpdateTask(ctx context.Context, t task.Task, exec ...core.DBExecutor) (task.Task, error) {
	q := `UPDATE task SET group_id = :group_id, title = :title, notes = :notes, visibility = :visibility,
		approval_status = :approval_status, status = :status, owner_id = :owner_id, estimated_hours = :estimated_hours,
		completed_at = :completed_at, updated_at = :updated_at
		WHERE id = :id`
	res, err := namedExec(ctx, core.GetExec(repo.exec, exec), "task.update", q, toTaskRow(t))
	if err != nil {
		return task.Task{}, errors.Wrap(err, "updating task")
	}
	if err = affected(res, task.ErrNotFound); err != nil {
		return task.Task{}, err
	}
	return t, nil
}
