package blog

import (
	"context"
	"maps"
	"slices"
	"sync"
)

//go:generate mockgen -source=$GOFILE -destination=store_mocks_test.go -package=blog

// Store is an ordered map of blogs keyed by id.
// Get returns ErrBlogNotFound for unknown ids, Values is ordered by id,
// and Remove of an unknown id is a no-op returning a nil blog.
type Store interface {
	Put(ctx context.Context, id string, blog *Blog) error
	Get(ctx context.Context, id string) (*Blog, error)
	Values(ctx context.Context) ([]*Blog, error)
	Remove(ctx context.Context, id string) (*Blog, error)
}

var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	blogs map[string]*Blog
	mutex sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blogs: make(map[string]*Blog),
	}
}

func (s *MemoryStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.blogs)
}

func (s *MemoryStore) Put(_ context.Context, id string, blog *Blog) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.blogs[id] = blog.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Blog, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	b, found := s.blogs[id]
	if !found {
		return nil, ErrBlogNotFound
	}
	return b.Clone(), nil
}

func (s *MemoryStore) Values(_ context.Context) ([]*Blog, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	blogs := make([]*Blog, 0, len(s.blogs))
	for _, id := range slices.Sorted(maps.Keys(s.blogs)) {
		blogs = append(blogs, s.blogs[id].Clone())
	}
	return blogs, nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) (*Blog, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	b, found := s.blogs[id]
	if !found {
		return nil, nil
	}
	delete(s.blogs, id)
	return b, nil
}
