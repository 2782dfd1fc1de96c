package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/week"
)

type weekRow struct {
	ID        string    `db:"id"`
	ParishID  string    `db:"parish_id"`
	StartsOn  time.Time `db:"starts_on"`
	EndsOn    time.Time `db:"ends_on"`
	Label     string    `db:"label"`
	CreatedAt time.Time `db:"created_at"`
}

func (r weekRow) week() week.Week {
	return week.Week{
		ID:        r.ID,
		ParishID:  r.ParishID,
		StartsOn:  r.StartsOn.UTC(),
		EndsOn:    r.EndsOn.UTC(),
		Label:     r.Label,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

const weekColumns = `id, parish_id, starts_on, ends_on, label, created_at`

type weekRepository struct {
	exec core.DBExecutor
}

var _ week.Repository = (*weekRepository)(nil) // interface compliance check

func NewWeekRepository(exec core.DBExecutor) *weekRepository {
	return &weekRepository{exec: exec}
}

// InsertWeek relies on the (parish_id, starts_on) unique key: a conflicting insert returns no row.
func (repo weekRepository) InsertWeek(ctx context.Context, wk week.Week, exec ...core.DBExecutor) (week.Week, error) {
	if wk.ID == "" {
		wk.ID = uuid.New().String()
	}
	if wk.CreatedAt.IsZero() {
		wk.CreatedAt = time.Now()
	}
	row := weekRow{ID: wk.ID, ParishID: wk.ParishID, StartsOn: wk.StartsOn.UTC(), EndsOn: wk.EndsOn.UTC(), Label: wk.Label, CreatedAt: wk.CreatedAt.UTC()}
	q := `INSERT INTO week (` + weekColumns + `) VALUES (:id, :parish_id, :starts_on, :ends_on, :label, :created_at)
		ON CONFLICT (parish_id, starts_on) DO NOTHING RETURNING ` + weekColumns
	inserted, err := namedGet[weekRow](ctx, core.GetExec(repo.exec, exec), "week.insert", q, row)
	if err != nil {
		return week.Week{}, trapNoRows(err, week.ErrExists, "inserting week")
	}
	return inserted.week(), nil
}

func (repo weekRepository) GetWeek(ctx context.Context, filter week.GetFilter, exec ...core.DBExecutor) (week.Week, error) {
	var (
		row weekRow
		err error
	)
	exe := core.GetExec(repo.exec, exec)
	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return week.Week{}, week.ErrNotFound
		}
		row, err = getx[weekRow](ctx, exe, "week.get", `SELECT `+weekColumns+` FROM week WHERE id = $1`, filter.ID)
	case filter.ParishID != "" && !filter.StartsOn.IsZero():
		row, err = getx[weekRow](ctx, exe, "week.get",
			`SELECT `+weekColumns+` FROM week WHERE parish_id = $1 AND starts_on = $2`, filter.ParishID, filter.StartsOn.UTC())
	default:
		return week.Week{}, week.ErrNotFound
	}
	if err != nil {
		return week.Week{}, trapNoRows(err, week.ErrNotFound, "finding week")
	}
	return row.week(), nil
}

func (repo weekRepository) QueryWeeks(ctx context.Context, filter week.QueryFilter, exec ...core.DBExecutor) ([]week.Week, error) {
	var w where
	if filter.ParishID != "" {
		w.add("parish_id = ?", filter.ParishID)
	}
	if !filter.From.IsZero() {
		w.add("starts_on >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		w.add("starts_on < ?", filter.To.UTC())
	}
	q := `SELECT ` + weekColumns + ` FROM week` + w.String() + ` ORDER BY starts_on`

	var rows []weekRow
	if err := selectx(ctx, core.GetExec(repo.exec, exec), "week.query", &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying weeks")
	}
	weeks := make([]week.Week, 0, len(rows))
	for _, r := range rows {
		weeks = append(weeks, r.week())
	}
	return weeks, nil
}
