package workflow

import (
	"context"
	"fmt"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/service/ports"
)

// Deps bundles the collaborators shared by the workflow handlers.
type Deps struct {
	Repo      Repository
	Users     UserLookup
	Publisher ports.EventPublisher
	Clock     ports.Clock
	IDs       ports.IDGenerator
	Locker    ports.Locker
}

// CreateWorkflow defines a new workflow for OwnerID.
type CreateWorkflow struct {
	OwnerID     string         `json:"user_id"`
	Name        string         `json:"name"`
	Description *string        `json:"description,omitempty"`
	Config      map[string]any `json:"config"`
}

// CreateWorkflowHandler handles CreateWorkflow.
type CreateWorkflowHandler struct {
	d     Deps
	rules domain.WorkflowDomainService
}

func NewCreateWorkflowHandler(d Deps) *CreateWorkflowHandler {
	return &CreateWorkflowHandler{d: d}
}

// Handle validates the config and stores the workflow as inactive.
func (h *CreateWorkflowHandler) Handle(ctx context.Context, cmd CreateWorkflow) (*domain.Workflow, error) {
	if err := h.rules.ValidateConfig(cmd.Config); err != nil {
		return nil, err
	}
	if cmd.OwnerID == "" {
		return nil, fmt.Errorf("%w: workflow owner is required", domain.ErrValidation)
	}
	owner, err := h.d.Users.GetByID(ctx, cmd.OwnerID)
	if err != nil {
		return nil, ports.Persistence("get user "+cmd.OwnerID, err)
	}
	if owner == nil {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, cmd.OwnerID)
	}

	w, err := domain.NewWorkflow(h.d.IDs.NewID(), cmd.Name, cmd.Description, cmd.Config, cmd.OwnerID, h.d.Clock.Now())
	if err != nil {
		return nil, err
	}
	if err := h.d.Repo.Save(ctx, w); err != nil {
		return nil, ports.Persistence("save workflow "+w.ID, err)
	}
	return w, nil
}

// Transition identifies a workflow status change requested by a user.
type Transition struct {
	WorkflowID   string
	ActingUserID string
}

// ActivateWorkflowHandler makes a workflow executable. Activating an
// active workflow succeeds without change.
type ActivateWorkflowHandler struct{ d Deps }

func NewActivateWorkflowHandler(d Deps) *ActivateWorkflowHandler {
	return &ActivateWorkflowHandler{d: d}
}

func (h *ActivateWorkflowHandler) Handle(ctx context.Context, cmd Transition) (*domain.Workflow, error) {
	return mutate(ctx, h.d, cmd.WorkflowID, cmd.ActingUserID, func(w *domain.Workflow) ([]domain.Event, error) {
		return nil, w.Activate(h.d.Clock.Now())
	})
}

// PauseWorkflowHandler suspends an active workflow.
type PauseWorkflowHandler struct{ d Deps }

func NewPauseWorkflowHandler(d Deps) *PauseWorkflowHandler {
	return &PauseWorkflowHandler{d: d}
}

func (h *PauseWorkflowHandler) Handle(ctx context.Context, cmd Transition) (*domain.Workflow, error) {
	return mutate(ctx, h.d, cmd.WorkflowID, cmd.ActingUserID, func(w *domain.Workflow) ([]domain.Event, error) {
		return nil, w.Pause(h.d.Clock.Now())
	})
}

// DeactivateWorkflowHandler returns a workflow to inactive.
type DeactivateWorkflowHandler struct{ d Deps }

func NewDeactivateWorkflowHandler(d Deps) *DeactivateWorkflowHandler {
	return &DeactivateWorkflowHandler{d: d}
}

func (h *DeactivateWorkflowHandler) Handle(ctx context.Context, cmd Transition) (*domain.Workflow, error) {
	return mutate(ctx, h.d, cmd.WorkflowID, cmd.ActingUserID, func(w *domain.Workflow) ([]domain.Event, error) {
		return nil, w.Deactivate(h.d.Clock.Now())
	})
}

// MarkWorkflowError records a failure reported by the automation engine.
type MarkWorkflowError struct {
	WorkflowID   string
	ActingUserID string
	Message      string
}

// MarkWorkflowErrorHandler handles MarkWorkflowError.
type MarkWorkflowErrorHandler struct{ d Deps }

func NewMarkWorkflowErrorHandler(d Deps) *MarkWorkflowErrorHandler {
	return &MarkWorkflowErrorHandler{d: d}
}

func (h *MarkWorkflowErrorHandler) Handle(ctx context.Context, cmd MarkWorkflowError) (*domain.Workflow, error) {
	return mutate(ctx, h.d, cmd.WorkflowID, cmd.ActingUserID, func(w *domain.Workflow) ([]domain.Event, error) {
		return nil, w.MarkError(cmd.Message, h.d.Clock.Now())
	})
}

// ExecuteWorkflow requests one run of an active workflow.
type ExecuteWorkflow struct {
	WorkflowID    string         `json:"workflow_id"`
	ActingUserID  string         `json:"-"`
	ExecutionData map[string]any `json:"execution_data,omitempty"`
}

// ExecutionResult acknowledges an accepted execution request.
type ExecutionResult struct {
	WorkflowID    string         `json:"workflow_id"`
	Status        string         `json:"status"`
	ExecutionData map[string]any `json:"execution_data,omitempty"`
	EventID       string         `json:"event_id"`
}

// ExecuteWorkflowHandler handles ExecuteWorkflow.
type ExecuteWorkflowHandler struct {
	d     Deps
	rules domain.WorkflowDomainService
}

func NewExecuteWorkflowHandler(d Deps) *ExecuteWorkflowHandler {
	return &ExecuteWorkflowHandler{d: d}
}

// Handle emits WorkflowExecutedEvent. The workflow itself is not saved
// because execution does not change its state. On a publish failure the
// result is returned together with an ErrPublish error.
func (h *ExecuteWorkflowHandler) Handle(ctx context.Context, cmd ExecuteWorkflow) (*ExecutionResult, error) {
	w, err := h.d.Repo.GetByID(ctx, cmd.WorkflowID)
	if err != nil {
		return nil, ports.Persistence("get workflow "+cmd.WorkflowID, err)
	}
	if w == nil {
		return nil, fmt.Errorf("%w: workflow %s", domain.ErrNotFound, cmd.WorkflowID)
	}
	if !w.IsOwnedBy(cmd.ActingUserID) {
		return nil, fmt.Errorf("%w: user %s does not own workflow %s", domain.ErrUnauthorized, cmd.ActingUserID, w.ID)
	}
	if !h.rules.CanExecute(w) {
		return nil, fmt.Errorf("%w: workflow %s is %s", domain.ErrInvalidState, w.ID, w.Status)
	}
	ev, err := w.Execute(cmd.ActingUserID, cmd.ExecutionData, h.d.Clock.Now())
	if err != nil {
		return nil, err
	}
	res := &ExecutionResult{
		WorkflowID:    w.ID,
		Status:        "executed",
		ExecutionData: ev.ExecutionData,
		EventID:       ev.EventID(),
	}
	return res, ports.PublishAfterCommit(ctx, h.d.Publisher, ev)
}

func mutate(ctx context.Context, d Deps, id, actingUserID string, apply func(*domain.Workflow) ([]domain.Event, error)) (*domain.Workflow, error) {
	unlock, err := d.Locker.Lock(ctx, ports.LockKey("workflow", id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	w, err := d.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, ports.Persistence("get workflow "+id, err)
	}
	if w == nil {
		return nil, fmt.Errorf("%w: workflow %s", domain.ErrNotFound, id)
	}
	if !w.IsOwnedBy(actingUserID) {
		return nil, fmt.Errorf("%w: user %s does not own workflow %s", domain.ErrUnauthorized, actingUserID, id)
	}

	events, err := apply(w)
	if err != nil {
		return nil, err
	}
	if err := d.Repo.Save(ctx, w); err != nil {
		return nil, ports.Persistence("save workflow "+id, err)
	}
	return w, ports.PublishAfterCommit(ctx, d.Publisher, events...)
}
