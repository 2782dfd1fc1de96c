package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/digest"
)

type digestRow struct {
	ID          string      `db:"id"`
	ParishID    string      `db:"parish_id"`
	WeekID      string      `db:"week_id"`
	Status      string      `db:"status"`
	Content     string      `db:"content"`
	AuthorID    null.String `db:"author_id"`
	PublishedAt null.Time   `db:"published_at"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func toDigestRow(d digest.Digest) digestRow {
	return digestRow{
		ID:          d.ID,
		ParishID:    d.ParishID,
		WeekID:      d.WeekID,
		Status:      string(d.Status),
		Content:     d.Content,
		AuthorID:    null.NewString(d.AuthorID, d.AuthorID != ""),
		PublishedAt: null.TimeFromPtr(d.PublishedAt),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func (r digestRow) digest() digest.Digest {
	return digest.Digest{
		ID:          r.ID,
		ParishID:    r.ParishID,
		WeekID:      r.WeekID,
		Status:      digest.Status(r.Status),
		Content:     r.Content,
		AuthorID:    r.AuthorID.String,
		PublishedAt: utcPtr(r.PublishedAt),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

const digestColumns = `id, parish_id, week_id, status, content, author_id, published_at, created_at, updated_at`

type digestRepository struct {
	exec core.DBExecutor
}

var _ digest.Repository = (*digestRepository)(nil) // interface compliance check

func NewDigestRepository(exec core.DBExecutor) *digestRepository {
	return &digestRepository{exec: exec}
}

func (repo digestRepository) CreateDigest(ctx context.Context, d digest.Digest, exec ...core.DBExecutor) (digest.Digest, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	q := `INSERT INTO digest (` + digestColumns + `) VALUES (:id, :parish_id, :week_id, :status, :content, :author_id,
		:published_at, :created_at, :updated_at)`
	if _, err := namedExec(ctx, core.GetExec(repo.exec, exec), "digest.create", q, toDigestRow(d)); err != nil {
		if isUniqueViolation(err) {
			return digest.Digest{}, digest.ErrExists
		}
		return digest.Digest{}, errors.Wrap(err, "inserting digest")
	}
	return d, nil
}

func (repo digestRepository) GetDigest(ctx context.Context, filter digest.GetFilter, exec ...core.DBExecutor) (digest.Digest, error) {
	var (
		row digestRow
		err error
	)
	exe := core.GetExec(repo.exec, exec)
	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return digest.Digest{}, digest.ErrNotFound
		}
		row, err = getx[digestRow](ctx, exe, "digest.get", `SELECT `+digestColumns+` FROM digest WHERE id = $1`, filter.ID)
	case filter.ParishID != "" && filter.WeekID != "":
		row, err = getx[digestRow](ctx, exe, "digest.get",
			`SELECT `+digestColumns+` FROM digest WHERE parish_id = $1 AND week_id = $2`, filter.ParishID, filter.WeekID)
	default:
		return digest.Digest{}, digest.ErrNotFound
	}
	if err != nil {
		return digest.Digest{}, trapNoRows(err, digest.ErrNotFound, "finding digest")
	}
	return row.digest(), nil
}

func (repo digestRepository) GetDigestForUpdate(ctx context.Context, id string, exec core.DBExecutor) (digest.Digest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return digest.Digest{}, digest.ErrNotFound
	}
	row, err := getx[digestRow](ctx, exec, "digest.get_for_update", `SELECT `+digestColumns+` FROM digest WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return digest.Digest{}, trapNoRows(err, digest.ErrNotFound, "locking digest")
	}
	return row.digest(), nil
}

func (repo digestRepository) UpdateDigest(ctx context.Context, d digest.Digest, exec ...core.DBExecutor) (digest.Digest, error) {
	q := `UPDATE digest SET status = :status, content = :content, published_at = :published_at, updated_at = :updated_at
		WHERE id = :id`
	res, err := namedExec(ctx, core.GetExec(repo.exec, exec), "digest.update", q, toDigestRow(d))
	if err != nil {
		return digest.Digest{}, errors.Wrap(err, "updating digest")
	}
	if err = affected(res, digest.ErrNotFound); err != nil {
		return digest.Digest{}, err
	}
	return d, nil
}
