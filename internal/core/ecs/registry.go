package ecs

import (
	"slices"
	"sync"
)

// registry tracks every component repository of a system, in creation order,
// so entity removal and compaction can visit all of them.
//
// Repositories are created lazily, possibly by jobs that only hold the
// system read lock, so the maps themselves are guarded by mu.
type registry struct {
	mu     sync.RWMutex
	byType map[*ComponentType]*ComponentRepository
	repos  []*ComponentRepository
}

func newRegistry() *registry {
	return &registry{
		byType: make(map[*ComponentType]*ComponentRepository, 16),
		repos:  make([]*ComponentRepository, 0, 16),
	}
}

func (r *registry) get(t *ComponentType) (*ComponentRepository, bool) {
	r.mu.RLock()
	repo, ok := r.byType[t]
	r.mu.RUnlock()
	return repo, ok
}

// getOrCreate returns the repository for t, calling create at most once per
// type even when racing with another caller.
func (r *registry) getOrCreate(t *ComponentType, create func() *ComponentRepository) *ComponentRepository {
	if repo, ok := r.get(t); ok {
		return repo
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if repo, ok := r.byType[t]; ok {
		return repo
	}
	repo := create()
	r.byType[t] = repo
	r.repos = append(r.repos, repo)
	return repo
}

// all returns the repositories in creation order. The slice is shared
// read-only; appends never touch the elements it covers.
func (r *registry) all() []*ComponentRepository {
	r.mu.RLock()
	repos := r.repos[:len(r.repos):len(r.repos)]
	r.mu.RUnlock()
	return repos
}

// types returns the registered component types in lock order.
func (r *registry) types() []*ComponentType {
	repos := r.all()
	out := make([]*ComponentType, 0, len(repos))
	for _, repo := range repos {
		out = append(out, repo.typ)
	}
	slices.SortFunc(out, (*ComponentType).Compare)
	return out
}

// removeAll detaches every component of entityIndex and returns ownership
// refs for the removed components.
func (r *registry) removeAll(entityIndex uint32, entityID uint64) []ref {
	var removed []ref
	for _, repo := range r.all() {
		slot := repo.componentAt(entityIndex)
		if slot == 0 {
			continue
		}
		cref := ref{typ: repo.typ, entity: entityID, id: repo.ids[slot]}
		repo.removeComponent(entityIndex)
		removed = append(removed, cref)
	}
	return removed
}
