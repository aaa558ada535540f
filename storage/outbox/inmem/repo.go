package inmemoutbox

import (
	"context"
	"sort"
	"sync"

	"github.com/protextify/edge/core/outbox"
)

// Repository is the best-effort, session-scoped queue used when durable
// storage is unavailable. Queued items do not survive a restart.
type Repository struct {
	mu    sync.RWMutex
	items map[string]outbox.Item
}

var _ outbox.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{items: make(map[string]outbox.Item)}
}

func (repo *Repository) Save(ctx context.Context, item outbox.Item) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.items[item.ID] = item
	return nil
}

func (repo *Repository) All(ctx context.Context) ([]outbox.Item, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	items := make([]outbox.Item, 0, len(repo.items))
	for _, item := range repo.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].EnqueuedAt.Before(items[j].EnqueuedAt) })
	return items, nil
}

func (repo *Repository) Delete(ctx context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.items[id]; !ok {
		return outbox.ErrNotFound
	}
	delete(repo.items, id)
	return nil
}
