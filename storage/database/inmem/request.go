package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/request"
)

type requestRepository struct {
	db *DB
}

var _ request.Repository = (*requestRepository)(nil) // interface compliance check

func NewRequestRepository(db *DB) *requestRepository {
	return &requestRepository{db: db}
}

func (repo *requestRepository) CreateRequest(_ context.Context, r request.Request, _ ...core.DBExecutor) (request.Request, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	repo.db.requests[r.ID] = r
	return r, nil
}

func (repo *requestRepository) GetRequest(_ context.Context, id string, _ ...core.DBExecutor) (request.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.requests[id]; ok {
		return r, nil
	}
	return request.Request{}, request.ErrNotFound
}

func (repo *requestRepository) QueryRequests(_ context.Context, filter request.QueryFilter, _ ...core.DBExecutor) ([]request.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reqs := make([]request.Request, 0)
	for _, r := range repo.db.requests {
		if (filter.ParishID != "" && r.ParishID != filter.ParishID) ||
			(filter.RequesterID != "" && r.RequesterID != filter.RequesterID) ||
			(filter.Status != "" && r.Status != filter.Status) {
			continue
		}
		reqs = append(reqs, r)
	}
	sort.Slice(reqs, func(i, j int) bool {
		if !reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
		}
		return reqs[i].ID < reqs[j].ID
	})
	return reqs, nil
}

func (repo *requestRepository) UpdateRequest(_ context.Context, r request.Request, _ ...core.DBExecutor) (request.Request, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.requests[r.ID]; !ok {
		return request.Request{}, request.ErrNotFound
	}
	repo.db.requests[r.ID] = r
	return r, nil
}
