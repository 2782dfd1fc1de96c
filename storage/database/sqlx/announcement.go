package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/announcement"
)

type announcementRow struct {
	ID             string      `db:"id"`
	ParishID       string      `db:"parish_id"`
	Title          string      `db:"title"`
	Body           string      `db:"body"`
	Scope          string      `db:"scope"`
	ChannelID      null.String `db:"channel_id"`
	ChannelType    null.String `db:"channel_type"`
	ChannelGroupID null.String `db:"channel_group_id"`
	Status         string      `db:"status"`
	AuthorID       string      `db:"author_id"`
	PublishedAt    null.Time   `db:"published_at"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func toAnnouncementRow(a announcement.Announcement) announcementRow {
	row := announcementRow{
		ID:          a.ID,
		ParishID:    a.ParishID,
		Title:       a.Title,
		Body:        a.Body,
		Scope:       string(a.Scope),
		Status:      string(a.Status),
		AuthorID:    a.AuthorID,
		PublishedAt: null.TimeFromPtr(a.PublishedAt),
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
	if ch := a.Channel; ch != nil {
		row.ChannelID = null.StringFrom(ch.ID)
		row.ChannelType = null.StringFrom(string(ch.Type))
		row.ChannelGroupID = null.NewString(ch.GroupID, ch.GroupID != "")
	}
	return row
}

func (r announcementRow) announcement() announcement.Announcement {
	a := announcement.Announcement{
		ID:          r.ID,
		ParishID:    r.ParishID,
		Title:       r.Title,
		Body:        r.Body,
		Scope:       access.Scope(r.Scope),
		Status:      announcement.Status(r.Status),
		AuthorID:    r.AuthorID,
		PublishedAt: utcPtr(r.PublishedAt),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.ChannelID.Valid {
		a.Channel = &access.Channel{
			ID:      r.ChannelID.String,
			Type:    access.ChannelType(r.ChannelType.String),
			GroupID: r.ChannelGroupID.String,
		}
	}
	return a
}

const announcementColumns = `id, parish_id, title, body, scope, channel_id, channel_type, channel_group_id, status,
	author_id, published_at, created_at, updated_at`

type announcementRepository struct {
	exec core.DBExecutor
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(exec core.DBExecutor) *announcementRepository {
	return &announcementRepository{exec: exec}
}

func (repo announcementRepository) CreateAnnouncement(ctx context.Context, a announcement.Announcement, exec ...core.DBExecutor) (announcement.Announcement, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	q := `INSERT INTO announcement (` + announcementColumns + `) VALUES (:id, :parish_id, :title, :body, :scope, :channel_id,
		:channel_type, :channel_group_id, :status, :author_id, :published_at, :created_at, :updated_at)`
	if _, err := namedExec(ctx, core.GetExec(repo.exec, exec), "announcement.create", q, toAnnouncementRow(a)); err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return a, nil
}

func (repo announcementRepository) GetAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) (announcement.Announcement, error) {
	if _, err := uuid.Parse(id); err != nil {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	row, err := getx[announcementRow](ctx, core.GetExec(repo.exec, exec), "announcement.get",
		`SELECT `+announcementColumns+` FROM announcement WHERE id = $1`, id)
	if err != nil {
		return announcement.Announcement{}, trapNoRows(err, announcement.ErrNotFound, "finding announcement")
	}
	return row.announcement(), nil
}

func (repo announcementRepository) QueryAnnouncements(ctx context.Context, filter announcement.QueryFilter, exec ...core.DBExecutor) ([]announcement.Announcement, error) {
	var w where
	if filter.ParishID != "" {
		w.add("parish_id = ?", filter.ParishID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	if !filter.PublishedFrom.IsZero() {
		w.add("published_at >= ?", filter.PublishedFrom.UTC())
	}
	if !filter.PublishedUntil.IsZero() {
		w.add("published_at < ?", filter.PublishedUntil.UTC())
	}
	q := `SELECT ` + announcementColumns + ` FROM announcement` + w.String() + ` ORDER BY coalesce(published_at, created_at), title, id`

	var rows []announcementRow
	if err := selectx(ctx, core.GetExec(repo.exec, exec), "announcement.query", &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	anns := make([]announcement.Announcement, 0, len(rows))
	for _, r := range rows {
		anns = append(anns, r.announcement())
	}
	return anns, nil
}

func (repo announcementRepository) UpdateAnnouncement(ctx context.Context, a announcement.Announcement, exec ...core.DBExecutor) (announcement.Announcement, error) {
	q := `UPDATE announcement SET title = :title, body = :body, scope = :scope, channel_id = :channel_id,
		channel_type = :channel_type, channel_group_id = :channel_group_id, status = :status,
		published_at = :published_at, updated_at = :updated_at
		WHERE id = :id`
	res, err := namedExec(ctx, core.GetExec(repo.exec, exec), "announcement.update", q, toAnnouncementRow(a))
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "updating announcement")
	}
	if err = affected(res, announcement.ErrNotFound); err != nil {
		return announcement.Announcement{}, err
	}
	return a, nil
}
