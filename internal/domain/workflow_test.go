package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validWorkflowConfig() map[string]any {
	return map[string]any{
		"trigger_type": "content_published",
		"actions":      []any{"post_to_twitter", "send_email"},
	}
}

func newTestWorkflow(t *testing.T) *Workflow {
	t.Helper()
	desc := "Test workflow description"
	w, err := NewWorkflow("workflow-123", "Test Workflow", &desc, validWorkflowConfig(), "user-123", t0)
	require.NoError(t, err)
	return w
}

func TestNewWorkflow(t *testing.T) {
	cfg := validWorkflowConfig()
	w, err := NewWorkflow("w1", "Auto", nil, cfg, "u1", t0)
	require.NoError(t, err)

	assert.Equal(t, WorkflowInactive, w.Status)
	assert.Nil(t, w.Description)
	assert.Equal(t, t0, w.CreatedAt)

	cfg["trigger_type"] = "mutated"
	assert.Equal(t, "content_published", w.Config["trigger_type"], "config is copied on construction")

	_, err = NewWorkflow("w1", "", nil, cfg, "u1", t0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = NewWorkflow("w1", "Auto", nil, cfg, "", t0)
	assert.ErrorIs(t, err, ErrValidation)

	empty, err := NewWorkflow("w2", "Auto", nil, nil, "u1", t0)
	require.NoError(t, err)
	assert.NotNil(t, empty.Config)
}

func TestWorkflow_ActivateIsIdempotent(t *testing.T) {
	w := newTestWorkflow(t)
	first := t0.Add(time.Minute)

	require.NoError(t, w.Activate(first))
	assert.Equal(t, WorkflowActive, w.Status)
	assert.Equal(t, first, w.UpdatedAt)

	require.NoError(t, w.Activate(first.Add(time.Minute)))
	assert.Equal(t, WorkflowActive, w.Status)
	assert.Equal(t, first, w.UpdatedAt, "no-op activation leaves updated_at alone")
}

func TestWorkflow_ActivateRecoversFromPausedAndError(t *testing.T) {
	w := newTestWorkflow(t)
	require.NoError(t, w.Activate(t0))
	require.NoError(t, w.Pause(t0))
	assert.Equal(t, WorkflowPaused, w.Status)
	require.NoError(t, w.Activate(t0))
	assert.Equal(t, WorkflowActive, w.Status)

	require.NoError(t, w.MarkError("n8n returned 500", t0))
	assert.Equal(t, WorkflowError, w.Status)
	assert.Equal(t, "n8n returned 500", w.LastError)

	require.NoError(t, w.Activate(t0))
	assert.Equal(t, WorkflowActive, w.Status)
	assert.Empty(t, w.LastError)
}

func TestWorkflow_Pause(t *testing.T) {
	w := newTestWorkflow(t)
	assert.ErrorIs(t, w.Pause(t0), ErrInvalidState)
	assert.Equal(t, WorkflowInactive, w.Status)
}

func TestWorkflow_Deactivate(t *testing.T) {
	w := newTestWorkflow(t)
	require.NoError(t, w.Activate(t0))
	require.NoError(t, w.Deactivate(t0.Add(time.Second)))
	assert.Equal(t, WorkflowInactive, w.Status)
}

func TestWorkflow_Execute(t *testing.T) {
	w := newTestWorkflow(t)

	_, err := w.Execute("user-123", nil, t0)
	assert.ErrorIs(t, err, ErrInvalidState, "inactive workflow cannot execute")

	require.NoError(t, w.Activate(t0))
	data := map[string]any{"content_id": "c1"}
	now := t0.Add(time.Hour)

	ev, err := w.Execute("user-123", data, now)
	require.NoError(t, err)
	assert.Equal(t, WorkflowActive, w.Status, "execution does not change status")
	assert.Equal(t, w.ID, ev.WorkflowID)
	assert.Equal(t, "user-123", ev.UserID)
	assert.Equal(t, "c1", ev.ExecutionData["content_id"])
	assert.Equal(t, now, ev.ExecutedAt)
	assert.Equal(t, EventWorkflowExecuted, ev.EventType())
	assert.Equal(t, w.ID, ev.AggregateID())

	data["content_id"] = "changed"
	assert.Equal(t, "c1", ev.ExecutionData["content_id"])

	_, err = w.Execute("", nil, now)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWorkflowDomainService_ValidateConfig(t *testing.T) {
	svc := WorkflowDomainService{}

	assert.NoError(t, svc.ValidateConfig(validWorkflowConfig()))
	assert.NoError(t, svc.ValidateConfig(map[string]any{
		"trigger_type": "manual",
		"actions":      []map[string]any{{"type": "webhook"}},
	}))

	for name, cfg := range map[string]map[string]any{
		"nil":             nil,
		"missing trigger": {"actions": []any{"a"}},
		"blank trigger":   {"trigger_type": " ", "actions": []any{"a"}},
		"non-string":      {"trigger_type": 3, "actions": []any{"a"}},
		"missing actions": {"trigger_type": "manual"},
		"empty actions":   {"trigger_type": "manual", "actions": []any{}},
		"actions scalar":  {"trigger_type": "manual", "actions": "a"},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, svc.ValidateConfig(cfg), ErrValidation)
		})
	}
}

func TestWorkflowDomainService_CanExecute(t *testing.T) {
	svc := WorkflowDomainService{}
	w := newTestWorkflow(t)
	assert.False(t, svc.CanExecute(w))
	require.NoError(t, w.Activate(t0))
	assert.True(t, svc.CanExecute(w))
	assert.True(t, w.IsOwnedBy("user-123"))
	assert.False(t, w.IsOwnedBy("someone-else"))
}
