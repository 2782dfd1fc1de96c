package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/event"
	"github.com/trezcool/parokia/core/recurrence"
)

type eventRow struct {
	ID                  string        `db:"id"`
	ParishID            string        `db:"parish_id"`
	GroupID             null.String   `db:"group_id"`
	Title               string        `db:"title"`
	Description         string        `db:"description"`
	Location            string        `db:"location"`
	StartsAt            time.Time     `db:"starts_at"`
	EndsAt              time.Time     `db:"ends_at"`
	Visibility          string        `db:"visibility"`
	RecurrenceFrequency string        `db:"recurrence_frequency"`
	RecurrenceInterval  int           `db:"recurrence_interval"`
	RecurrenceByWeekday pq.Int64Array `db:"recurrence_by_weekday"`
	RecurrenceUntil     null.Time     `db:"recurrence_until"`
	CreatedByID         string        `db:"created_by_id"`
	CreatedAt           time.Time     `db:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at"`
}

func toEventRow(e event.Event) eventRow {
	rule := e.Recurrence.Normalize()
	row := eventRow{
		ID:                  e.ID,
		ParishID:            e.ParishID,
		GroupID:             null.NewString(e.GroupID, e.GroupID != ""),
		Title:               e.Title,
		Description:         e.Description,
		Location:            e.Location,
		StartsAt:            e.StartsAt.UTC(),
		EndsAt:              e.EndsAt.UTC(),
		Visibility:          string(e.Visibility),
		RecurrenceFrequency: string(rule.Frequency),
		RecurrenceInterval:  rule.Interval,
		RecurrenceUntil:     null.TimeFromPtr(rule.Until),
		CreatedByID:         e.CreatedByID,
		CreatedAt:           e.CreatedAt.UTC(),
		UpdatedAt:           e.UpdatedAt.UTC(),
	}
	for _, d := range rule.ByWeekday {
		row.RecurrenceByWeekday = append(row.RecurrenceByWeekday, int64(d))
	}
	return row
}

func (r eventRow) event() event.Event {
	rule := recurrence.Rule{
		Frequency: recurrence.Frequency(r.RecurrenceFrequency),
		Interval:  r.RecurrenceInterval,
	}
	for _, d := range r.RecurrenceByWeekday {
		rule.ByWeekday = append(rule.ByWeekday, int(d))
	}
	if r.RecurrenceUntil.Valid {
		until := r.RecurrenceUntil.Time.UTC()
		rule.Until = &until
	}
	return event.Event{
		ID:          r.ID,
		ParishID:    r.ParishID,
		GroupID:     r.GroupID.String,
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		StartsAt:    r.StartsAt.UTC(),
		EndsAt:      r.EndsAt.UTC(),
		Visibility:  access.Scope(r.Visibility),
		Recurrence:  rule.Normalize(),
		CreatedByID: r.CreatedByID,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type exceptionRow struct {
	ID            string      `db:"id"`
	EventID       string      `db:"event_id"`
	OriginalStart time.Time   `db:"original_start"`
	StartsAt      null.Time   `db:"starts_at"`
	EndsAt        null.Time   `db:"ends_at"`
	Title         null.String `db:"title"`
	Description   null.String `db:"description"`
	Location      null.String `db:"location"`
	Cancelled     bool        `db:"cancelled"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func toExceptionRow(ex event.Exception) exceptionRow {
	return exceptionRow{
		ID:            ex.ID,
		EventID:       ex.EventID,
		OriginalStart: ex.OriginalStart.UTC(),
		StartsAt:      null.TimeFromPtr(ex.StartsAt),
		EndsAt:        null.TimeFromPtr(ex.EndsAt),
		Title:         null.StringFromPtr(ex.Title),
		Description:   null.StringFromPtr(ex.Description),
		Location:      null.StringFromPtr(ex.Location),
		Cancelled:     ex.Cancelled,
		CreatedAt:     ex.CreatedAt.UTC(),
		UpdatedAt:     ex.UpdatedAt.UTC(),
	}
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}

func (r exceptionRow) exception() event.Exception {
	return event.Exception{
		ID:            r.ID,
		EventID:       r.EventID,
		OriginalStart: r.OriginalStart.UTC(),
		StartsAt:      utcPtr(r.StartsAt),
		EndsAt:        utcPtr(r.EndsAt),
		Title:         r.Title.Ptr(),
		Description:   r.Description.Ptr(),
		Location:      r.Location.Ptr(),
		Cancelled:     r.Cancelled,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

const (
	eventColumns = `id, parish_id, group_id, title, description, location, starts_at, ends_at, visibility,
		recurrence_frequency, recurrence_interval, recurrence_by_weekday, recurrence_until, created_by_id, created_at, updated_at`
	exceptionColumns = `id, event_id, original_start, starts_at, ends_at, title, description, location, cancelled, created_at, updated_at`
)

type eventRepository struct {
	exec core.DBExecutor
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(exec core.DBExecutor) *eventRepository {
	return &eventRepository{exec: exec}
}

func (repo eventRepository) CreateEvent(ctx context.Context, e event.Event, exec ...core.DBExecutor) (event.Event, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	q := `INSERT INTO event (` + eventColumns + `) VALUES (:id, :parish_id, :group_id, :title, :description, :location,
		:starts_at, :ends_at, :visibility, :recurrence_frequency, :recurrence_interval, :recurrence_by_weekday,
		:recurrence_until, :created_by_id, :created_at, :updated_at)`
	if _, err := namedExec(ctx, core.GetExec(repo.exec, exec), "event.create", q, toEventRow(e)); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return e, nil
}

func (repo eventRepository) GetEvent(ctx context.Context, id string, exec ...core.DBExecutor) (event.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Event{}, event.ErrNotFound
	}
	row, err := getx[eventRow](ctx, core.GetExec(repo.exec, exec), "event.get", `SELECT `+eventColumns+` FROM event WHERE id = $1`, id)
	if err != nil {
		return event.Event{}, trapNoRows(err, event.ErrNotFound, "finding event")
	}
	return row.event(), nil
}

// QueryEvents keeps events starting before To that either recur without ending before From,
// or end after From. With both bounds set, events with an exception moving an occurrence
// into [From, To) are kept too.
func (repo eventRepository) QueryEvents(ctx context.Context, filter event.QueryFilter, exec ...core.DBExecutor) ([]event.Event, error) {
	var w where
	w.add("parish_id = ?", filter.ParishID)
	if filter.GroupID != "" {
		w.add("group_id = ?", filter.GroupID)
	}

	var span []string
	var from, to string
	if !filter.To.IsZero() {
		to = w.bind(filter.To.UTC())
		span = append(span, "starts_at < "+to)
	}
	if !filter.From.IsZero() {
		from = w.bind(filter.From.UTC())
		span = append(span, `(ends_at >= `+from+` OR (recurrence_frequency <> 'NONE' AND (recurrence_until IS NULL OR recurrence_until + (ends_at - starts_at) >= `+from+`)))`)
	}
	if len(span) > 0 {
		cond := strings.Join(span, " AND ")
		if from != "" && to != "" {
			cond = `((` + cond + `) OR EXISTS (
				SELECT 1 FROM event_exception x
				WHERE x.event_id = event.id AND NOT x.cancelled AND (x.starts_at IS NOT NULL OR x.ends_at IS NOT NULL)
					AND COALESCE(x.starts_at, x.original_start) < ` + to + `
					AND COALESCE(x.ends_at, COALESCE(x.starts_at, x.original_start) + (event.ends_at - event.starts_at)) >= ` + from + `))`
		}
		w.addCond(cond)
	}
	q := `SELECT ` + eventColumns + ` FROM event` + w.String() + ` ORDER BY starts_at, id`

	var rows []eventRow
	if err := selectx(ctx, core.GetExec(repo.exec, exec), "event.query", &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.event())
	}
	return events, nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, e event.Event, exec ...core.DBExecutor) (event.Event, error) {
	q := `UPDATE event SET group_id = :group_id, title = :title, description = :description, location = :location,
		starts_at = :starts_at, ends_at = :ends_at, visibility = :visibility, recurrence_frequency = :recurrence_frequency,
		recurrence_interval = :recurrence_interval, recurrence_by_weekday = :recurrence_by_weekday,
		recurrence_until = :recurrence_until, updated_at = :updated_at
		WHERE id = :id`
	res, err := namedExec(ctx, core.GetExec(repo.exec, exec), "event.update", q, toEventRow(e))
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if err = affected(res, event.ErrNotFound); err != nil {
		return event.Event{}, err
	}
	return e, nil
}

func (repo eventRepository) DeleteEvent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := core.GetExec(repo.exec, exec).ExecContext(ctx, `DELETE FROM event WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return affected(res, event.ErrNotFound)
}

func (repo eventRepository) UpsertException(ctx context.Context, ex event.Exception, exec ...core.DBExecutor) (event.Exception, error) {
	if ex.ID == "" {
		ex.ID = uuid.New().String()
	}
	q := `INSERT INTO event_exception (` + exceptionColumns + `) VALUES (:id, :event_id, :original_start, :starts_at, :ends_at,
		:title, :description, :location, :cancelled, :created_at, :updated_at)
		ON CONFLICT (event_id, original_start) DO UPDATE SET starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at,
		title = EXCLUDED.title, description = EXCLUDED.description, location = EXCLUDED.location,
		cancelled = EXCLUDED.cancelled, updated_at = EXCLUDED.updated_at
		RETURNING ` + exceptionColumns
	row, err := namedGet[exceptionRow](ctx, core.GetExec(repo.exec, exec), "event.upsert_exception", q, toExceptionRow(ex))
	if err != nil {
		return event.Exception{}, errors.Wrap(err, "upserting exception")
	}
	return row.exception(), nil
}

func (repo eventRepository) QueryExceptions(ctx context.Context, eventIDs []string, exec ...core.DBExecutor) ([]event.Exception, error) {
	var rows []exceptionRow
	q := `SELECT ` + exceptionColumns + ` FROM event_exception WHERE event_id::text = ANY($1) ORDER BY event_id, original_start`
	if err := selectx(ctx, core.GetExec(repo.exec, exec), "event.query_exceptions", &rows, q, pq.Array(eventIDs)); err != nil {
		return nil, errors.Wrap(err, "querying exceptions")
	}
	exceptions := make([]event.Exception, 0, len(rows))
	for _, r := range rows {
		exceptions = append(exceptions, r.exception())
	}
	return exceptions, nil
}

func (repo eventRepository) DeleteExceptions(ctx context.Context, eventID string, from time.Time, exec ...core.DBExecutor) error {
	_, err := core.GetExec(repo.exec, exec).ExecContext(ctx,
		`DELETE FROM event_exception WHERE event_id = $1 AND original_start >= $2`, eventID, from.UTC())
	return errors.Wrap(err, "deleting exceptions")
}
