package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/user"
)

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	IsActive     bool      `db:"is_active"`
	IsSuperAdmin bool      `db:"is_superadmin"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    null.Time `db:"created_at"`
	UpdatedAt    null.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		IsActive:     usr.IsActive,
		IsSuperAdmin: usr.IsSuperAdmin,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    null.TimeFrom(usr.CreatedAt.UTC()),
		UpdatedAt:    null.TimeFrom(usr.UpdatedAt.UTC()),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		IsActive:     r.IsActive,
		IsSuperAdmin: r.IsSuperAdmin,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.Time.UTC(),
		UpdatedAt:    r.UpdatedAt.Time.UTC(),
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	return usr
}

const userColumns = `id, name, email, is_active, is_superadmin, password_hash, created_at, updated_at, last_login`

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	q := `INSERT INTO "user" (` + userColumns + `)
		VALUES (:id, :name, :email, :is_active, :is_superadmin, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := namedExec(ctx, core.GetExec(repo.exec, exec), "user.create", q, toUserRow(usr)); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var (
		row userRow
		err error
	)
	exe := core.GetExec(repo.exec, exec)
	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		row, err = getx[userRow](ctx, exe, "user.get", `SELECT `+userColumns+` FROM "user" WHERE id = $1`, filter.ID)
	case filter.Email != "":
		row, err = getx[userRow](ctx, exe, "user.get", `SELECT `+userColumns+` FROM "user" WHERE email = $1`, filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "finding user")
	}
	return row.user(), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, exec ...core.DBExecutor) ([]user.User, error) {
	q := `SELECT ` + userColumns + ` FROM "user" WHERE ($1::text[] IS NULL OR id::text = ANY($1)) AND ($2::boolean IS NULL OR is_active = $2) ORDER BY name, id`
	var ids interface{}
	if filter.IDs != nil {
		ids = pq.Array(filter.IDs)
	}
	var rows []userRow
	if err := selectx(ctx, core.GetExec(repo.exec, exec), "user.query", &rows, q, ids, null.BoolFromPtr(filter.IsActive)); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `UPDATE "user" SET name = :name, email = :email, is_active = :is_active, is_superadmin = :is_superadmin,
		password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login WHERE id = :id`
	res, err := namedExec(ctx, core.GetExec(repo.exec, exec), "user.update", q, toUserRow(usr))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err = affected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return usr, nil
}
