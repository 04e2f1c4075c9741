package api

import (
	"fmt"
	"net/http"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/pkg/httputil"
	"github.com/ignite/contentflow/internal/service/workflow"
)

func (h *Handlers) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var cmd workflow.CreateWorkflow
	if !httputil.Decode(w, r, &cmd) {
		return
	}
	cmd.OwnerID = actingUser(r)
	wf, err := h.CreateWorkflow.Handle(r.Context(), cmd)
	respond(w, http.StatusCreated, wf, err)
}

func (h *Handlers) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	wf, err := h.GetWorkflow.Handle(r.Context(), workflow.GetWorkflow{WorkflowID: id})
	if err != nil {
		writeError(w, err)
		return
	}
	if wf == nil {
		writeError(w, fmt.Errorf("%w: workflow %s", domain.ErrNotFound, id))
		return
	}
	if !wf.IsOwnedBy(actingUser(r)) {
		writeError(w, fmt.Errorf("%w: workflow %s belongs to another user", domain.ErrUnauthorized, id))
		return
	}
	httputil.OK(w, wf)
}

func (h *Handlers) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, err)
		return
	}
	f := workflow.ListFilter{OwnerID: actingUser(r), Limit: limit, Offset: offset}
	if v := r.URL.Query().Get("status"); v != "" {
		if f.Status, err = domain.ParseWorkflowStatus(v); err != nil {
			writeError(w, err)
			return
		}
	}
	items, err := h.ListWorkflows.Handle(r.Context(), workflow.ListWorkflows{Filter: f})
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []*domain.Workflow{}
	}
	httputil.OK(w, map[string]any{"items": items, "count": len(items)})
}

func (h *Handlers) transition(r *http.Request) workflow.Transition {
	return workflow.Transition{WorkflowID: idParam(r), ActingUserID: actingUser(r)}
}

func (h *Handlers) handleActivateWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.ActivateWorkflow.Handle(r.Context(), h.transition(r))
	respond(w, http.StatusOK, wf, err)
}

func (h *Handlers) handlePauseWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.PauseWorkflow.Handle(r.Context(), h.transition(r))
	respond(w, http.StatusOK, wf, err)
}

func (h *Handlers) handleDeactivateWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.DeactivateWorkflow.Handle(r.Context(), h.transition(r))
	respond(w, http.StatusOK, wf, err)
}

func (h *Handlers) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	var cmd workflow.ExecuteWorkflow
	if r.ContentLength != 0 && !httputil.Decode(w, r, &cmd) {
		return
	}
	cmd.WorkflowID = idParam(r)
	cmd.ActingUserID = actingUser(r)
	res, err := h.ExecuteWorkflow.Handle(r.Context(), cmd)
	respond(w, http.StatusAccepted, res, err)
}

func (h *Handlers) handleMarkWorkflowError(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	wf, err := h.MarkWorkflowError.Handle(r.Context(), workflow.MarkWorkflowError{
		WorkflowID:   idParam(r),
		ActingUserID: actingUser(r),
		Message:      body.Message,
	})
	respond(w, http.StatusOK, wf, err)
}
