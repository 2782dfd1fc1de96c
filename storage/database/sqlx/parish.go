package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/parish"
)

var errMembershipNotFound = core.NewNotFoundError("membership")

type parishRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Slug      string    `db:"slug"`
	Timezone  string    `db:"timezone"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r parishRow) parish() parish.Parish {
	return parish.Parish{
		ID:        r.ID,
		Name:      r.Name,
		Slug:      r.Slug,
		Timezone:  r.Timezone,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type membershipRow struct {
	ParishID  string    `db:"parish_id"`
	UserID    string    `db:"user_id"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

func (r membershipRow) membership() parish.Membership {
	return parish.Membership{ParishID: r.ParishID, UserID: r.UserID, Role: access.ParishRole(r.Role), CreatedAt: r.CreatedAt.UTC()}
}

type groupRow struct {
	ID        string    `db:"id"`
	ParishID  string    `db:"parish_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

type groupMemberRow struct {
	GroupID   string    `db:"group_id"`
	UserID    string    `db:"user_id"`
	Role      string    `db:"role"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

func (r groupMemberRow) member() parish.GroupMember {
	return parish.GroupMember{
		GroupID:   r.GroupID,
		UserID:    r.UserID,
		Role:      access.GroupRole(r.Role),
		Status:    access.MembershipStatus(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type parishRepository struct {
	exec core.DBExecutor
}

var _ parish.Repository = (*parishRepository)(nil) // interface compliance check

func NewParishRepository(exec core.DBExecutor) *parishRepository {
	return &parishRepository{exec: exec}
}

func (repo parishRepository) CreateParish(ctx context.Context, p parish.Parish, exec ...core.DBExecutor) (parish.Parish, error) {
	row := parishRow{ID: p.ID, Name: p.Name, Slug: p.Slug, Timezone: p.Timezone, CreatedAt: p.CreatedAt.UTC(), UpdatedAt: p.UpdatedAt.UTC()}
	q := `INSERT INTO parish (id, name, slug, timezone, created_at, updated_at)
		VALUES (:id, :name, :slug, :timezone, :created_at, :updated_at)`
	if _, err := namedExec(ctx, core.GetExec(repo.exec, exec), "parish.create", q, row); err != nil {
		if isUniqueViolation(err) {
			return parish.Parish{}, parish.ErrSlugExists
		}
		return parish.Parish{}, errors.Wrap(err, "inserting parish")
	}
	return p, nil
}

func (repo parishRepository) GetParish(ctx context.Context, id string, exec ...core.DBExecutor) (parish.Parish, error) {
	if _, err := uuid.Parse(id); err != nil {
		return parish.Parish{}, parish.ErrNotFound
	}
	row, err := getx[parishRow](ctx, core.GetExec(repo.exec, exec), "parish.get",
		`SELECT id, name, slug, timezone, created_at, updated_at FROM parish WHERE id = $1`, id)
	if err != nil {
		return parish.Parish{}, trapNoRows(err, parish.ErrNotFound, "finding parish")
	}
	return row.parish(), nil
}

func (repo parishRepository) QueryParishes(ctx context.Context, exec ...core.DBExecutor) ([]parish.Parish, error) {
	var rows []parishRow
	err := selectx(ctx, core.GetExec(repo.exec, exec), "parish.query", &rows,
		`SELECT id, name, slug, timezone, created_at, updated_at FROM parish ORDER BY name, id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying parishes")
	}
	parishes := make([]parish.Parish, 0, len(rows))
	for _, r := range rows {
		parishes = append(parishes, r.parish())
	}
	return parishes, nil
}

func (repo parishRepository) AddMember(ctx context.Context, m parish.Membership, exec ...core.DBExecutor) (parish.Membership, error) {
	row := membershipRow{ParishID: m.ParishID, UserID: m.UserID, Role: string(m.Role), CreatedAt: m.CreatedAt.UTC()}
	q := `INSERT INTO parish_membership (parish_id, user_id, role, created_at) VALUES (:parish_id, :user_id, :role, :created_at)`
	if _, err := namedExec(ctx, core.GetExec(repo.exec, exec), "parish.add_member", q, row); err != nil {
		if isUniqueViolation(err) {
			return parish.Membership{}, parish.ErrMemberExists
		}
		return parish.Membership{}, errors.Wrap(err, "inserting membership")
	}
	return m, nil
}

func (repo parishRepository) GetMembership(ctx context.Context, parishID, userID string, exec ...core.DBExecutor) (parish.Membership, error) {
	row, err := getx[membershipRow](ctx, core.GetExec(repo.exec, exec), "parish.get_member",
		`SELECT parish_id, user_id, role, created_at FROM parish_membership WHERE parish_id = $1 AND user_id = $2`, parishID, userID)
	if err != nil {
		return parish.Membership{}, trapNoRows(err, errMembershipNotFound, "finding membership")
	}
	return row.membership(), nil
}

func (repo parishRepository) QueryMembers(ctx context.Context, parishID string, exec ...core.DBExecutor) ([]parish.Membership, error) {
	var rows []membershipRow
	err := selectx(ctx, core.GetExec(repo.exec, exec), "parish.query_members", &rows,
		`SELECT parish_id, user_id, role, created_at FROM parish_membership WHERE parish_id = $1 ORDER BY created_at, user_id`, parishID)
	if err != nil {
		return nil, errors.Wrap(err, "querying members")
	}
	members := make([]parish.Membership, 0, len(rows))
	for _, r := range rows {
		members = append(members, r.membership())
	}
	return members, nil
}

func (repo parishRepository) CreateGroup(ctx context.Context, g parish.Group, exec ...core.DBExecutor) (parish.Group, error) {
	row := groupRow{ID: g.ID, ParishID: g.ParishID, Name: g.Name, CreatedAt: g.CreatedAt.UTC()}
	q := `INSERT INTO parish_group (id, parish_id, name, created_at) VALUES (:id, :parish_id, :name, :created_at)`
	if _, err := namedExec(ctx, core.GetExec(repo.exec, exec), "parish.create_group", q, row); err != nil {
		return parish.Group{}, errors.Wrap(err, "inserting group")
	}
	return g, nil
}

func (repo parishRepository) GetGroup(ctx context.Context, id string, exec ...core.DBExecutor) (parish.Group, error) {
	if _, err := uuid.Parse(id); err != nil {
		return parish.Group{}, parish.ErrGroupNotFound
	}
	row, err := getx[groupRow](ctx, core.GetExec(repo.exec, exec), "parish.get_group",
		`SELECT id, parish_id, name, created_at FROM parish_group WHERE id = $1`, id)
	if err != nil {
		return parish.Group{}, trapNoRows(err, parish.ErrGroupNotFound, "finding group")
	}
	return parish.Group{ID: row.ID, ParishID: row.ParishID, Name: row.Name, CreatedAt: row.CreatedAt.UTC()}, nil
}

func (repo parishRepository) AddGroupMember(ctx context.Context, gm parish.GroupMember, exec ...core.DBExecutor) (parish.GroupMember, error) {
	row := groupMemberRow{GroupID: gm.GroupID, UserID: gm.UserID, Role: string(gm.Role), Status: string(gm.Status), CreatedAt: gm.CreatedAt.UTC()}
	q := `INSERT INTO group_membership (group_id, user_id, role, status, created_at)
		VALUES (:group_id, :user_id, :role, :status, :created_at)`
	if _, err := namedExec(ctx, core.GetExec(repo.exec, exec), "parish.add_group_member", q, row); err != nil {
		if isUniqueViolation(err) {
			return parish.GroupMember{}, parish.ErrMemberExists
		}
		return parish.GroupMember{}, errors.Wrap(err, "inserting group membership")
	}
	return gm, nil
}

func (repo parishRepository) QueryGroupMemberships(ctx context.Context, parishID, userID string, exec ...core.DBExecutor) ([]parish.GroupMember, error) {
	var rows []groupMemberRow
	q := `SELECT gm.group_id, gm.user_id, gm.role, gm.status, gm.created_at
		FROM group_membership gm JOIN parish_group g ON g.id = gm.group_id
		WHERE g.parish_id = $1 AND gm.user_id = $2`
	if err := selectx(ctx, core.GetExec(repo.exec, exec), "parish.query_group_members", &rows, q, parishID, userID); err != nil {
		return nil, errors.Wrap(err, "querying group memberships")
	}
	members := make([]parish.GroupMember, 0, len(rows))
	for _, r := range rows {
		members = append(members, r.member())
	}
	return members, nil
}

func (repo parishRepository) ExcludeFromChannel(ctx context.Context, parishID, channelID, userID string, exec ...core.DBExecutor) error {
	_, err := core.GetExec(repo.exec, exec).ExecContext(ctx,
		`INSERT INTO channel_exclusion (parish_id, channel_id, user_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		parishID, channelID, userID)
	return errors.Wrap(err, "excluding from channel")
}

func (repo parishRepository) QueryChannelExclusions(ctx context.Context, parishID, userID string, exec ...core.DBExecutor) ([]string, error) {
	var rows []struct {
		ChannelID string `db:"channel_id"`
	}
	err := selectx(ctx, core.GetExec(repo.exec, exec), "parish.query_exclusions", &rows,
		`SELECT channel_id FROM channel_exclusion WHERE parish_id = $1 AND user_id = $2`, parishID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying channel exclusions")
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ChannelID)
	}
	return ids, nil
}
