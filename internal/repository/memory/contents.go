package memory

import (
	"context"
	"sync"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/service/content"
)

// Contents is an in-memory content.Repository.
type Contents struct {
	mu    sync.RWMutex
	items map[string]*domain.Content
}

func NewContents() *Contents {
	return &Contents{items: make(map[string]*domain.Content)}
}

func (r *Contents) Save(_ context.Context, c *domain.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ID] = copyContent(c)
	return nil
}

func (r *Contents) GetByID(_ context.Context, id string) (*domain.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return copyContent(c), nil
}

func (r *Contents) List(_ context.Context, f content.ListFilter) ([]*domain.Content, error) {
	r.mu.RLock()
	var out []*domain.Content
	for _, c := range r.items {
		if f.Match(c) {
			out = append(out, copyContent(c))
		}
	}
	r.mu.RUnlock()

	sortByCreated(out, func(c *domain.Content) (int64, string) { return c.CreatedAt.UnixNano(), c.ID })
	return page(out, f.Limit, f.Offset), nil
}

func copyContent(c *domain.Content) *domain.Content {
	cp := *c
	if c.PublishedAt != nil {
		at := *c.PublishedAt
		cp.PublishedAt = &at
	}
	return &cp
}
