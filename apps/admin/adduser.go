package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/clock"
	"github.com/trezcool/parokia/core/parish"
	"github.com/trezcool/parokia/core/user"
)

type addUserArgs struct {
	name       string
	email      string
	password   string
	superAdmin bool
	parishID   string
	role       string
}

// addUser updates or creates a user.User, then adds them to a parish when one is given.
func (cli *commandLine) addUser(a addUserArgs) (user.User, error) {
	ctx := context.Background()
	nu := user.NewUser{
		Name:            a.name,
		Email:           a.email,
		Password:        a.password,
		PasswordConfirm: a.password,
		IsSuperAdmin:    a.superAdmin,
	}
	if err := nu.Validate(cli.validate); err != nil {
		return user.User{}, err
	}

	usr, err := cli.usrSvc.GetByEmail(ctx, nu.Email)
	switch {
	case core.IsNotFound(err):
		if usr, err = cli.usrSvc.Create(ctx, nu); err != nil {
			return user.User{}, errors.Wrap(err, "creating user")
		}
		cli.printf("created user %s\n", usr.Email)
	case err != nil:
		return user.User{}, errors.Wrap(err, "getting user")
	default:
		usr.Name = nu.Name
		usr.IsActive = true
		usr.IsSuperAdmin = usr.IsSuperAdmin || nu.IsSuperAdmin
		usr.UpdatedAt = clock.Now()
		if err = usr.SetPassword(nu.Password); err != nil {
			return user.User{}, errors.Wrap(err, "hashing password")
		}
		if usr, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
			return user.User{}, errors.Wrap(err, "updating user")
		}
		cli.printf("updated user %s\n", usr.Email)
	}

	if a.parishID == "" {
		return usr, nil
	}
	_, err = cli.parishes.AddMember(ctx, a.parishID, usr.ID, access.ParishRole(a.role))
	if err != nil && errors.Cause(err) != parish.ErrMemberExists {
		return user.User{}, errors.Wrap(err, "adding member")
	}
	return usr, nil
}
