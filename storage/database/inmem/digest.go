package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/digest"
)

type digestRepository struct {
	db *DB
}

var _ digest.Repository = (*digestRepository)(nil) // interface compliance check

func NewDigestRepository(db *DB) *digestRepository {
	return &digestRepository{db: db}
}

func (repo *digestRepository) CreateDigest(_ context.Context, d digest.Digest, _ ...core.DBExecutor) (digest.Digest, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.digests {
		if existing.ParishID == d.ParishID && existing.WeekID == d.WeekID {
			return digest.Digest{}, digest.ErrExists
		}
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	repo.db.digests[d.ID] = d
	return d, nil
}

func (repo *digestRepository) GetDigest(_ context.Context, filter digest.GetFilter, _ ...core.DBExecutor) (digest.Digest, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if d, ok := repo.db.digests[filter.ID]; ok {
			return d, nil
		}
		return digest.Digest{}, digest.ErrNotFound
	}
	for _, d := range repo.db.digests {
		if d.ParishID == filter.ParishID && d.WeekID == filter.WeekID {
			return d, nil
		}
	}
	return digest.Digest{}, digest.ErrNotFound
}

// GetDigestForUpdate relies on TxRunner serializing transactions.
func (repo *digestRepository) GetDigestForUpdate(ctx context.Context, id string, _ core.DBExecutor) (digest.Digest, error) {
	return repo.GetDigest(ctx, digest.GetFilter{ID: id})
}

func (repo *digestRepository) UpdateDigest(_ context.Context, d digest.Digest, _ ...core.DBExecutor) (digest.Digest, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.digests[d.ID]; !ok {
		return digest.Digest{}, digest.ErrNotFound
	}
	repo.db.digests[d.ID] = d
	return d, nil
}
