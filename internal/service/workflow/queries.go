package workflow

import (
	"context"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/service/ports"
)

// GetWorkflow reads one workflow.
type GetWorkflow struct {
	WorkflowID string
}

// GetWorkflowHandler handles GetWorkflow.
type GetWorkflowHandler struct {
	repo Repository
}

func NewGetWorkflowHandler(repo Repository) *GetWorkflowHandler {
	return &GetWorkflowHandler{repo: repo}
}

// Handle returns (nil, nil) when the workflow does not exist.
func (h *GetWorkflowHandler) Handle(ctx context.Context, q GetWorkflow) (*domain.Workflow, error) {
	w, err := h.repo.GetByID(ctx, q.WorkflowID)
	if err != nil {
		return nil, ports.Persistence("get workflow "+q.WorkflowID, err)
	}
	return w, nil
}

// ListWorkflows pages through workflows matching Filter.
type ListWorkflows struct {
	Filter ListFilter
}

// ListWorkflowsHandler handles ListWorkflows.
type ListWorkflowsHandler struct {
	repo Repository
}

func NewListWorkflowsHandler(repo Repository) *ListWorkflowsHandler {
	return &ListWorkflowsHandler{repo: repo}
}

func (h *ListWorkflowsHandler) Handle(ctx context.Context, q ListWorkflows) ([]*domain.Workflow, error) {
	items, err := h.repo.List(ctx, q.Filter)
	if err != nil {
		return nil, ports.Persistence("list workflows", err)
	}
	return items, nil
}
