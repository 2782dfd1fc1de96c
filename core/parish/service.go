package parish

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/clock"
	"github.com/trezcool/parokia/core/user"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("parish")
	ErrGroupNotFound = core.NewNotFoundError("group")
	ErrSlugExists    = errors.New("a parish with this slug already exists")
	ErrMemberExists  = errors.New("user is already a member")
)

type (
	Repository interface {
		// CreateParish returns ErrSlugExists when the slug is taken.
		CreateParish(ctx context.Context, p Parish, exec ...core.DBExecutor) (Parish, error)
		GetParish(ctx context.Context, id string, exec ...core.DBExecutor) (Parish, error)
		QueryParishes(ctx context.Context, exec ...core.DBExecutor) ([]Parish, error)

		// AddMember returns ErrMemberExists when (ParishID, UserID) is taken.
		AddMember(ctx context.Context, m Membership, exec ...core.DBExecutor) (Membership, error)
		// GetMembership returns core.NotFoundError when the user is not a member.
		GetMembership(ctx context.Context, parishID, userID string, exec ...core.DBExecutor) (Membership, error)
		QueryMembers(ctx context.Context, parishID string, exec ...core.DBExecutor) ([]Membership, error)

		CreateGroup(ctx context.Context, g Group, exec ...core.DBExecutor) (Group, error)
		GetGroup(ctx context.Context, id string, exec ...core.DBExecutor) (Group, error)
		// AddGroupMember returns ErrMemberExists when (GroupID, UserID) is taken.
		AddGroupMember(ctx context.Context, gm GroupMember, exec ...core.DBExecutor) (GroupMember, error)
		// QueryGroupMemberships returns the memberships of userID in the groups of parishID.
		QueryGroupMemberships(ctx context.Context, parishID, userID string, exec ...core.DBExecutor) ([]GroupMember, error)

		ExcludeFromChannel(ctx context.Context, parishID, channelID, userID string, exec ...core.DBExecutor) error
		QueryChannelExclusions(ctx context.Context, parishID, userID string, exec ...core.DBExecutor) ([]string, error)
	}

	// UserDirectory looks users up for member listings.
	UserDirectory interface {
		QueryByIDs(ctx context.Context, ids []string) ([]user.User, error)
	}

	Service struct {
		repo     Repository
		users    UserDirectory
		resolver *clock.Resolver
	}
)

func NewService(repo Repository, users UserDirectory, resolver *clock.Resolver) *Service {
	vala.BeginValidation().Validate(
		core.IsProvided(repo, "repo"),
		core.IsProvided(users, "users"),
		vala.IsNotNil(resolver, "resolver"),
	).CheckAndPanic()
	return &Service{repo: repo, users: users, resolver: resolver}
}

func (svc *Service) Create(ctx context.Context, np NewParish) (Parish, error) {
	now := clock.Now()
	p := Parish{
		ID:        uuid.New().String(),
		Name:      np.Name,
		Slug:      np.Slug,
		Timezone:  np.Timezone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p, err := svc.repo.CreateParish(ctx, p)
	if errors.Cause(err) == ErrSlugExists {
		return Parish{}, core.NewValidationError(err, core.FieldError{Field: "slug", Error: err.Error()})
	}
	return p, err
}

func (svc *Service) GetByID(ctx context.Context, id string) (Parish, error) {
	return svc.repo.GetParish(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Parish, error) {
	return svc.repo.QueryParishes(ctx)
}

// Location resolves the time zone of a parish.
func (svc *Service) Location(ctx context.Context, parishID string) (*time.Location, error) {
	p, err := svc.repo.GetParish(ctx, parishID)
	if err != nil {
		return nil, err
	}
	return svc.resolver.Location(p.Timezone)
}

// Viewer gathers what the visibility rules need to know about usr in a parish.
// Non members get a viewer without a role; they only see what they authored.
func (svc *Service) Viewer(ctx context.Context, parishID string, usr user.User) (access.Viewer, error) {
	v := access.Viewer{
		UserID:           usr.ID,
		ParishID:         parishID,
		IsSuperAdmin:     usr.IsSuperAdmin,
		Groups:           make(map[string]access.GroupMembership),
		ExcludedChannels: make(map[string]bool),
	}

	m, err := svc.repo.GetMembership(ctx, parishID, usr.ID)
	switch {
	case err == nil:
		v.Role = m.Role
	case core.IsNotFound(err):
		return v, nil
	default:
		return access.Viewer{}, errors.Wrap(err, "getting membership")
	}

	groups, err := svc.repo.QueryGroupMemberships(ctx, parishID, usr.ID)
	if err != nil {
		return access.Viewer{}, errors.Wrap(err, "querying group memberships")
	}
	for _, gm := range groups {
		v.Groups[gm.GroupID] = access.GroupMembership{Role: gm.Role, Status: gm.Status}
	}

	excluded, err := svc.repo.QueryChannelExclusions(ctx, parishID, usr.ID)
	if err != nil {
		return access.Viewer{}, errors.Wrap(err, "querying channel exclusions")
	}
	for _, id := range excluded {
		v.ExcludedChannels[id] = true
	}
	return v, nil
}

func (svc *Service) AddMember(ctx context.Context, parishID, userID string, role access.ParishRole) (Membership, error) {
	if !role.Valid() {
		return Membership{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: "unknown parish role"})
	}
	if _, err := svc.repo.GetParish(ctx, parishID); err != nil {
		return Membership{}, err
	}
	return svc.repo.AddMember(ctx, Membership{ParishID: parishID, UserID: userID, Role: role, CreatedAt: clock.Now()})
}

func (svc *Service) CreateGroup(ctx context.Context, parishID string, ng NewGroup) (Group, error) {
	if _, err := svc.repo.GetParish(ctx, parishID); err != nil {
		return Group{}, err
	}
	g := Group{ID: uuid.New().String(), ParishID: parishID, Name: ng.Name, CreatedAt: clock.Now()}
	return svc.repo.CreateGroup(ctx, g)
}

func (svc *Service) AddGroupMember(ctx context.Context, groupID, userID string, role access.GroupRole, status access.MembershipStatus) (GroupMember, error) {
	if !role.Valid() {
		return GroupMember{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: "unknown group role"})
	}
	if status == "" {
		status = access.StatusActive
	}
	if _, err := svc.repo.GetGroup(ctx, groupID); err != nil {
		return GroupMember{}, err
	}
	gm := GroupMember{GroupID: groupID, UserID: userID, Role: role, Status: status, CreatedAt: clock.Now()}
	return svc.repo.AddGroupMember(ctx, gm)
}

// ExcludeFromChannel removes userID from a parish or announcement channel.
func (svc *Service) ExcludeFromChannel(ctx context.Context, parishID, channelID, userID string) error {
	return svc.repo.ExcludeFromChannel(ctx, parishID, channelID, userID)
}

// MemberEmails returns the addresses of the active members of a parish.
func (svc *Service) MemberEmails(ctx context.Context, parishID string) ([]string, error) {
	members, err := svc.repo.QueryMembers(ctx, parishID)
	if err != nil {
		return nil, errors.Wrap(err, "querying members")
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	users, err := svc.users.QueryByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	emails := make([]string, 0, len(users))
	for _, u := range users {
		if u.Email != "" {
			emails = append(emails, u.Email)
		}
	}
	return emails, nil
}
