package user

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/clock"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type (
	Repository interface {
		// CreateUser returns ErrEmailExists when the email is taken.
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		QueryUsers(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
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

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := clock.Now()
	usr := User{
		Name:         nu.Name,
		Email:        core.CleanString(nu.Email, true /* lower */),
		IsActive:     true,
		IsSuperAdmin: nu.IsSuperAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if errors.Cause(err) == ErrEmailExists {
		return User{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
	}
	return usr, err
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

// QueryByIDs returns the active users among ids.
func (svc *Service) QueryByIDs(ctx context.Context, ids []string) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}
	active := true
	return svc.repo.QueryUsers(ctx, QueryFilter{IDs: ids, IsActive: &active})
}

// Authenticate checks the credentials of an active user.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if !usr.IsActive || usr.CheckPassword(pwd) != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = clock.Now()
	return svc.repo.UpdateUser(ctx, usr)
}
