package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/event"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) *eventRepository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(_ context.Context, e event.Event, _ ...core.DBExecutor) (event.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	repo.db.events[e.ID] = e
	return e, nil
}

func (repo *eventRepository) GetEvent(_ context.Context, id string, _ ...core.DBExecutor) (event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e, ok := repo.db.events[id]; ok {
		return e, nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) QueryEvents(_ context.Context, filter event.QueryFilter, _ ...core.DBExecutor) ([]event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	events := make([]event.Event, 0)
	for _, e := range repo.db.events {
		if e.ParishID != filter.ParishID {
			continue
		}
		if filter.GroupID != "" && e.GroupID != filter.GroupID {
			continue
		}
		inSpan := (filter.To.IsZero() || e.StartsAt.Before(filter.To)) &&
			(filter.From.IsZero() || !e.EndsAt.Before(filter.From) || mayRecurInto(e, filter.From))
		if !inSpan && !repo.movedInto(e, filter.From, filter.To) {
			continue
		}
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartsAt.Equal(events[j].StartsAt) {
			return events[i].StartsAt.Before(events[j].StartsAt)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

// movedInto reports whether an exception of e moves one of its occurrences into [from, to).
// Callers hold the lock.
func (repo *eventRepository) movedInto(e event.Event, from, to time.Time) bool {
	if from.IsZero() || to.IsZero() {
		return false
	}
	dur := e.EndsAt.Sub(e.StartsAt)
	for _, ex := range repo.db.exceptions {
		if ex.EventID != e.ID || ex.Cancelled || (ex.StartsAt == nil && ex.EndsAt == nil) {
			continue
		}
		start := ex.OriginalStart
		if ex.StartsAt != nil {
			start = *ex.StartsAt
		}
		end := start.Add(dur)
		if ex.EndsAt != nil {
			end = *ex.EndsAt
		}
		if start.Before(to) && !end.Before(from) {
			return true
		}
	}
	return false
}

func mayRecurInto(e event.Event, from time.Time) bool {
	if !e.Recurrence.Recurring() {
		return false
	}
	if e.Recurrence.Until == nil {
		return true
	}
	return !e.Recurrence.Until.Add(e.EndsAt.Sub(e.StartsAt)).Before(from)
}

func (repo *eventRepository) UpdateEvent(_ context.Context, e event.Event, _ ...core.DBExecutor) (event.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.events[e.ID]; !ok {
		return event.Event{}, event.ErrNotFound
	}
	repo.db.events[e.ID] = e
	return e, nil
}

func (repo *eventRepository) DeleteEvent(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.events[id]; !ok {
		return event.ErrNotFound
	}
	delete(repo.db.events, id)
	for k, ex := range repo.db.exceptions {
		if ex.EventID == id {
			delete(repo.db.exceptions, k)
		}
	}
	return nil
}

func (repo *eventRepository) UpsertException(_ context.Context, ex event.Exception, _ ...core.DBExecutor) (event.Exception, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	k := key(ex.EventID, timeKey(ex.OriginalStart))
	if existing, ok := repo.db.exceptions[k]; ok {
		ex.ID = existing.ID
		ex.CreatedAt = existing.CreatedAt
	} else if ex.ID == "" {
		ex.ID = uuid.New().String()
	}
	repo.db.exceptions[k] = ex
	return ex, nil
}

func (repo *eventRepository) QueryExceptions(_ context.Context, eventIDs []string, _ ...core.DBExecutor) ([]event.Exception, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		ids[id] = true
	}
	exceptions := make([]event.Exception, 0)
	for _, ex := range repo.db.exceptions {
		if ids[ex.EventID] {
			exceptions = append(exceptions, ex)
		}
	}
	sort.Slice(exceptions, func(i, j int) bool {
		if exceptions[i].EventID != exceptions[j].EventID {
			return exceptions[i].EventID < exceptions[j].EventID
		}
		return exceptions[i].OriginalStart.Before(exceptions[j].OriginalStart)
	})
	return exceptions, nil
}

func (repo *eventRepository) DeleteExceptions(_ context.Context, eventID string, from time.Time, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for k, ex := range repo.db.exceptions {
		if ex.EventID == eventID && !ex.OriginalStart.Before(from) {
			delete(repo.db.exceptions, k)
		}
	}
	return nil
}
