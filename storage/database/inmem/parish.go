package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/parish"
)

var errMembershipNotFound = core.NewNotFoundError("membership")

type parishRepository struct {
	db *DB
}

var _ parish.Repository = (*parishRepository)(nil) // interface compliance check

func NewParishRepository(db *DB) *parishRepository {
	return &parishRepository{db: db}
}

func (repo *parishRepository) CreateParish(_ context.Context, p parish.Parish, _ ...core.DBExecutor) (parish.Parish, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.parishes {
		if existing.Slug == p.Slug {
			return parish.Parish{}, parish.ErrSlugExists
		}
	}
	repo.db.parishes[p.ID] = p
	return p, nil
}

func (repo *parishRepository) GetParish(_ context.Context, id string, _ ...core.DBExecutor) (parish.Parish, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.parishes[id]; ok {
		return p, nil
	}
	return parish.Parish{}, parish.ErrNotFound
}

func (repo *parishRepository) QueryParishes(_ context.Context, _ ...core.DBExecutor) ([]parish.Parish, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	parishes := make([]parish.Parish, 0, len(repo.db.parishes))
	for _, p := range repo.db.parishes {
		parishes = append(parishes, p)
	}
	sort.Slice(parishes, func(i, j int) bool {
		if parishes[i].Name != parishes[j].Name {
			return parishes[i].Name < parishes[j].Name
		}
		return parishes[i].ID < parishes[j].ID
	})
	return parishes, nil
}

func (repo *parishRepository) AddMember(_ context.Context, m parish.Membership, _ ...core.DBExecutor) (parish.Membership, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	k := key(m.ParishID, m.UserID)
	if _, ok := repo.db.memberships[k]; ok {
		return parish.Membership{}, parish.ErrMemberExists
	}
	repo.db.memberships[k] = m
	return m, nil
}

func (repo *parishRepository) GetMembership(_ context.Context, parishID, userID string, _ ...core.DBExecutor) (parish.Membership, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.memberships[key(parishID, userID)]; ok {
		return m, nil
	}
	return parish.Membership{}, errMembershipNotFound
}

func (repo *parishRepository) QueryMembers(_ context.Context, parishID string, _ ...core.DBExecutor) ([]parish.Membership, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	members := make([]parish.Membership, 0)
	for _, m := range repo.db.memberships {
		if m.ParishID == parishID {
			members = append(members, m)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

func (repo *parishRepository) CreateGroup(_ context.Context, g parish.Group, _ ...core.DBExecutor) (parish.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.groups[g.ID] = g
	return g, nil
}

func (repo *parishRepository) GetGroup(_ context.Context, id string, _ ...core.DBExecutor) (parish.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if g, ok := repo.db.groups[id]; ok {
		return g, nil
	}
	return parish.Group{}, parish.ErrGroupNotFound
}

func (repo *parishRepository) AddGroupMember(_ context.Context, gm parish.GroupMember, _ ...core.DBExecutor) (parish.GroupMember, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	k := key(gm.GroupID, gm.UserID)
	if _, ok := repo.db.groupMembers[k]; ok {
		return parish.GroupMember{}, parish.ErrMemberExists
	}
	repo.db.groupMembers[k] = gm
	return gm, nil
}

func (repo *parishRepository) QueryGroupMemberships(_ context.Context, parishID, userID string, _ ...core.DBExecutor) ([]parish.GroupMember, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	members := make([]parish.GroupMember, 0)
	for _, gm := range repo.db.groupMembers {
		if gm.UserID == userID && repo.db.groups[gm.GroupID].ParishID == parishID {
			members = append(members, gm)
		}
	}
	return members, nil
}

func (repo *parishRepository) ExcludeFromChannel(_ context.Context, parishID, channelID, userID string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.exclusions[exclusion{parishID: parishID, channelID: channelID, userID: userID}] = true
	return nil
}

func (repo *parishRepository) QueryChannelExclusions(_ context.Context, parishID, userID string, _ ...core.DBExecutor) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make([]string, 0)
	for ex := range repo.db.exclusions {
		if ex.parishID == parishID && ex.userID == userID {
			ids = append(ids, ex.channelID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
