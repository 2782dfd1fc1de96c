package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/task"
)

type taskRepository struct {
	db *DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) *taskRepository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) CreateTask(_ context.Context, t task.Task, _ ...core.DBExecutor) (task.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	repo.db.tasks[t.ID] = t
	return t, nil
}

func (repo *taskRepository) GetTask(_ context.Context, id string, _ ...core.DBExecutor) (task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.tasks[id]; ok {
		return t, nil
	}
	return task.Task{}, task.ErrNotFound
}

func (repo *taskRepository) QueryTasks(_ context.Context, filter task.QueryFilter, _ ...core.DBExecutor) ([]task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tasks := make([]task.Task, 0)
	for _, t := range repo.db.tasks {
		if (filter.ParishID != "" && t.ParishID != filter.ParishID) ||
			(filter.WeekID != "" && t.WeekID != filter.WeekID) ||
			(filter.GroupID != "" && t.GroupID != filter.GroupID) ||
			(filter.OwnerID != "" && t.OwnerID != filter.OwnerID) ||
			(filter.Status != "" && t.Status != filter.Status) {
			continue
		}
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		a, b := strings.ToLower(tasks[i].Title), strings.ToLower(tasks[j].Title)
		if a != b {
			return a < b
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

func (repo *taskRepository) UpdateTask(_ context.Context, t task.Task, _ ...core.DBExecutor) (task.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tasks[t.ID]; !ok {
		return task.Task{}, task.ErrNotFound
	}
	repo.db.tasks[t.ID] = t
	return t, nil
}
