package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/request"
)

type requestRow struct {
	ID          string         `db:"id"`
	ParishID    string         `db:"parish_id"`
	Subject     string         `db:"subject"`
	Body        string         `db:"body"`
	Scope       string         `db:"scope"`
	Status      string         `db:"status"`
	RequesterID string         `db:"requester_id"`
	AssigneeIDs pq.StringArray `db:"assignee_ids"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func toRequestRow(r request.Request) requestRow {
	ids := pq.StringArray(r.AssigneeIDs)
	if ids == nil {
		ids = pq.StringArray{}
	}
	return requestRow{
		ID:          r.ID,
		ParishID:    r.ParishID,
		Subject:     r.Subject,
		Body:        r.Body,
		Scope:       string(r.Scope),
		Status:      string(r.Status),
		RequesterID: r.RequesterID,
		AssigneeIDs: ids,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (r requestRow) request() request.Request {
	return request.Request{
		ID:          r.ID,
		ParishID:    r.ParishID,
		Subject:     r.Subject,
		Body:        r.Body,
		Scope:       access.Scope(r.Scope),
		Status:      request.Status(r.Status),
		RequesterID: r.RequesterID,
		AssigneeIDs: []string(r.AssigneeIDs),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

const requestColumns = `id, parish_id, subject, body, scope, status, requester_id, assignee_ids, created_at, updated_at`

type requestRepository struct {
	exec core.DBExecutor
}

var _ request.Repository = (*requestRepository)(nil) // interface compliance check

func NewRequestRepository(exec core.DBExecutor) *requestRepository {
	return &requestRepository{exec: exec}
}

func (repo requestRepository) CreateRequest(ctx context.Context, r request.Request, exec ...core.DBExecutor) (request.Request, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	q := `INSERT INTO request (` + requestColumns + `) VALUES (:id, :parish_id, :subject, :body, :scope, :status,
		:requester_id, :assignee_ids, :created_at, :updated_at)`
	if _, err := namedExec(ctx, core.GetExec(repo.exec, exec), "request.create", q, toRequestRow(r)); err != nil {
		return request.Request{}, errors.Wrap(err, "inserting request")
	}
	return r, nil
}

func (repo requestRepository) GetRequest(ctx context.Context, id string, exec ...core.DBExecutor) (request.Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return request.Request{}, request.ErrNotFound
	}
	row, err := getx[requestRow](ctx, core.GetExec(repo.exec, exec), "request.get", `SELECT `+requestColumns+` FROM request WHERE id = $1`, id)
	if err != nil {
		return request.Request{}, trapNoRows(err, request.ErrNotFound, "finding request")
	}
	return row.request(), nil
}

func (repo requestRepository) QueryRequests(ctx context.Context, filter request.QueryFilter, exec ...core.DBExecutor) ([]request.Request, error) {
	var w where
	if filter.ParishID != "" {
		w.add("parish_id = ?", filter.ParishID)
	}
	if filter.RequesterID != "" {
		w.add("requester_id = ?", filter.RequesterID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	q := `SELECT ` + requestColumns + ` FROM request` + w.String() + ` ORDER BY created_at DESC, id`

	var rows []requestRow
	if err := selectx(ctx, core.GetExec(repo.exec, exec), "request.query", &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying requests")
	}
	reqs := make([]request.Request, 0, len(rows))
	for _, r := range rows {
		reqs = append(reqs, r.request())
	}
	return reqs, nil
}

func (repo requestRepository) UpdateRequest(ctx context.Context, r request.Request, exec ...core.DBExecutor) (request.Request, error) {
	q := `UPDATE request SET subject = :subject, body = :body, scope = :scope, status = :status,
		assignee_ids = :assignee_ids, updated_at = :updated_at
		WHERE id = :id`
	res, err := namedExec(ctx, core.GetExec(repo.exec, exec), "request.update", q, toRequestRow(r))
	if err != nil {
		return request.Request{}, errors.Wrap(err, "updating request")
	}
	if err = affected(res, request.ErrNotFound); err != nil {
		return request.Request{}, err
	}
	return r, nil
}
