package memory

import (
	"context"
	"sync"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/service/workflow"
)

// Workflows is an in-memory workflow.Repository.
type Workflows struct {
	mu    sync.RWMutex
	items map[string]*domain.Workflow
}

func NewWorkflows() *Workflows {
	return &Workflows{items: make(map[string]*domain.Workflow)}
}

func (r *Workflows) Save(_ context.Context, w *domain.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[w.ID] = copyWorkflow(w)
	return nil
}

func (r *Workflows) GetByID(_ context.Context, id string) (*domain.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return copyWorkflow(w), nil
}

func (r *Workflows) List(_ context.Context, f workflow.ListFilter) ([]*domain.Workflow, error) {
	r.mu.RLock()
	var out []*domain.Workflow
	for _, w := range r.items {
		if f.Match(w) {
			out = append(out, copyWorkflow(w))
		}
	}
	r.mu.RUnlock()

	sortByCreated(out, func(w *domain.Workflow) (int64, string) { return w.CreatedAt.UnixNano(), w.ID })
	return page(out, f.Limit, f.Offset), nil
}

func copyWorkflow(w *domain.Workflow) *domain.Workflow {
	cp := *w
	if w.Description != nil {
		d := *w.Description
		cp.Description = &d
	}
	if w.Config != nil {
		cp.Config = make(map[string]any, len(w.Config))
		for k, v := range w.Config {
			cp.Config[k] = v
		}
	}
	return &cp
}
