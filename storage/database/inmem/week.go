package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/week"
)

type weekRepository struct {
	db *DB
}

var _ week.Repository = (*weekRepository)(nil) // interface compliance check

func NewWeekRepository(db *DB) *weekRepository {
	return &weekRepository{db: db}
}

func (repo *weekRepository) InsertWeek(_ context.Context, wk week.Week, _ ...core.DBExecutor) (week.Week, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.weeks {
		if existing.ParishID == wk.ParishID && existing.StartsOn.Equal(wk.StartsOn) {
			return week.Week{}, week.ErrExists
		}
	}
	if wk.ID == "" {
		wk.ID = uuid.New().String()
	}
	if wk.CreatedAt.IsZero() {
		wk.CreatedAt = time.Now().UTC()
	}
	repo.db.weeks[wk.ID] = wk
	return wk, nil
}

func (repo *weekRepository) GetWeek(_ context.Context, filter week.GetFilter, _ ...core.DBExecutor) (week.Week, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if wk, ok := repo.db.weeks[filter.ID]; ok {
			return wk, nil
		}
		return week.Week{}, week.ErrNotFound
	}
	for _, wk := range repo.db.weeks {
		if wk.ParishID == filter.ParishID && wk.StartsOn.Equal(filter.StartsOn) {
			return wk, nil
		}
	}
	return week.Week{}, week.ErrNotFound
}

func (repo *weekRepository) QueryWeeks(_ context.Context, filter week.QueryFilter, _ ...core.DBExecutor) ([]week.Week, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	weeks := make([]week.Week, 0)
	for _, wk := range repo.db.weeks {
		if filter.ParishID != "" && wk.ParishID != filter.ParishID {
			continue
		}
		if !filter.From.IsZero() && wk.StartsOn.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !wk.StartsOn.Before(filter.To) {
			continue
		}
		weeks = append(weeks, wk)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].StartsOn.Before(weeks[j].StartsOn) })
	return weeks, nil
}

// Count returns the number of stored weeks.
func (repo *weekRepository) Count() int {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.weeks)
}
