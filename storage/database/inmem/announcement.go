package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/announcement"
)

type announcementRepository struct {
	db *DB
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *DB) *announcementRepository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) CreateAnnouncement(_ context.Context, a announcement.Announcement, _ ...core.DBExecutor) (announcement.Announcement, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	repo.db.announcements[a.ID] = a
	return a, nil
}

func (repo *announcementRepository) GetAnnouncement(_ context.Context, id string, _ ...core.DBExecutor) (announcement.Announcement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.announcements[id]; ok {
		return a, nil
	}
	return announcement.Announcement{}, announcement.ErrNotFound
}

func (repo *announcementRepository) QueryAnnouncements(_ context.Context, filter announcement.QueryFilter, _ ...core.DBExecutor) ([]announcement.Announcement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	anns := make([]announcement.Announcement, 0)
	for _, a := range repo.db.announcements {
		if filter.ParishID != "" && a.ParishID != filter.ParishID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if !filter.PublishedFrom.IsZero() && (a.PublishedAt == nil || a.PublishedAt.Before(filter.PublishedFrom)) {
			continue
		}
		if !filter.PublishedUntil.IsZero() && (a.PublishedAt == nil || !a.PublishedAt.Before(filter.PublishedUntil)) {
			continue
		}
		anns = append(anns, a)
	}
	sort.Slice(anns, func(i, j int) bool {
		if !anns[i].CreatedAt.Equal(anns[j].CreatedAt) {
			return anns[i].CreatedAt.Before(anns[j].CreatedAt)
		}
		return anns[i].ID < anns[j].ID
	})
	return anns, nil
}

func (repo *announcementRepository) UpdateAnnouncement(_ context.Context, a announcement.Announcement, _ ...core.DBExecutor) (announcement.Announcement, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.announcements[a.ID]; !ok {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	repo.db.announcements[a.ID] = a
	return a, nil
}
