package domain

import (
	"fmt"
	"strings"
	"time"
)

// Workflow is an automation definition executed by the external engine.
type Workflow struct {
	ID          string         `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Description *string        `json:"description,omitempty" db:"description"`
	Status      WorkflowStatus `json:"status" db:"status"`
	Config      map[string]any `json:"config" db:"config"`
	UserID      string         `json:"user_id" db:"user_id"`
	LastError   string         `json:"last_error,omitempty" db:"last_error"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// NewWorkflow builds an inactive workflow. config is copied.
func NewWorkflow(id, name string, description *string, config map[string]any, userID string, now time.Time) (*Workflow, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: workflow id is required", ErrValidation)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: workflow name is required", ErrValidation)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: workflow owner is required", ErrValidation)
	}
	if config == nil {
		config = map[string]any{}
	}
	now = now.UTC()
	return &Workflow{
		ID:          id,
		Name:        name,
		Description: description,
		Status:      WorkflowInactive,
		Config:      cloneMap(config),
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Activate makes the workflow executable. Activating an active workflow
// is a no-op and does not move updated_at.
func (w *Workflow) Activate(now time.Time) error {
	if w.Status == WorkflowActive {
		return nil
	}
	w.Status = WorkflowActive
	w.LastError = ""
	w.UpdatedAt = touch(w.CreatedAt, now)
	return nil
}

// Pause suspends an active workflow.
func (w *Workflow) Pause(now time.Time) error {
	if w.Status != WorkflowActive {
		return fmt.Errorf("%w: only active workflows can be paused (status %s)", ErrInvalidState, w.Status)
	}
	w.Status = WorkflowPaused
	w.UpdatedAt = touch(w.CreatedAt, now)
	return nil
}

// Deactivate returns the workflow to inactive from any state.
func (w *Workflow) Deactivate(now time.Time) error {
	w.Status = WorkflowInactive
	w.UpdatedAt = touch(w.CreatedAt, now)
	return nil
}

// Execute records an execution request by triggeredBy. The persisted
// status is unchanged; the returned event carries the request.
func (w *Workflow) Execute(triggeredBy string, data map[string]any, now time.Time) (WorkflowExecutedEvent, error) {
	if triggeredBy == "" {
		return WorkflowExecutedEvent{}, fmt.Errorf("%w: triggering user is required", ErrValidation)
	}
	if w.Status != WorkflowActive {
		return WorkflowExecutedEvent{}, fmt.Errorf("%w: workflow must be active to execute (status %s)", ErrInvalidState, w.Status)
	}
	return NewWorkflowExecutedEvent(w.ID, triggeredBy, data, touch(w.CreatedAt, now)), nil
}

// MarkError flags the workflow as failed and keeps message for diagnostics.
func (w *Workflow) MarkError(message string, now time.Time) error {
	w.Status = WorkflowError
	w.LastError = message
	w.UpdatedAt = touch(w.CreatedAt, now)
	return nil
}

// IsOwnedBy reports whether userID owns w.
func (w *Workflow) IsOwnedBy(userID string) bool {
	return userID != "" && w.UserID == userID
}
