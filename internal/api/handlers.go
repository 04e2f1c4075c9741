package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/feedimport"
	"github.com/ignite/contentflow/internal/pkg/httputil"
	"github.com/ignite/contentflow/internal/service/content"
	"github.com/ignite/contentflow/internal/service/ports"
	"github.com/ignite/contentflow/internal/service/user"
	"github.com/ignite/contentflow/internal/service/workflow"
)

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

// Handlers holds every use case the API exposes. Generate and Import may
// be nil when the feature is not configured.
type Handlers struct {
	CreateUser     *user.CreateUserHandler
	UpdateProfile  *user.UpdateProfileHandler
	GetUser        *user.GetUserHandler
	GetUserByEmail *user.GetUserByEmailHandler

	CreateContent   *content.CreateContentHandler
	UpdateContent   *content.UpdateContentHandler
	MarkReady       *content.MarkReadyHandler
	PublishContent  *content.PublishContentHandler
	ArchiveContent  *content.ArchiveContentHandler
	GenerateContent *content.GenerateContentHandler
	GetContent      *content.GetContentHandler
	ListContents    *content.ListContentsHandler
	Import          *feedimport.Importer

	CreateWorkflow     *workflow.CreateWorkflowHandler
	ActivateWorkflow   *workflow.ActivateWorkflowHandler
	PauseWorkflow      *workflow.PauseWorkflowHandler
	DeactivateWorkflow *workflow.DeactivateWorkflowHandler
	ExecuteWorkflow    *workflow.ExecuteWorkflowHandler
	MarkWorkflowError  *workflow.MarkWorkflowErrorHandler
	GetWorkflow        *workflow.GetWorkflowHandler
	ListWorkflows      *workflow.ListWorkflowsHandler

	Health map[string]HealthCheck
}

// Services are the collaborators NewHandlers wires into every use case.
// Generator may be nil; generation then answers 503.
type Services struct {
	Users       user.Repository
	Contents    content.Repository
	Workflows   workflow.Repository
	Publisher   ports.EventPublisher
	Clock       ports.Clock
	IDs         ports.IDGenerator
	Locker      ports.Locker
	EmailPolicy domain.EmailPolicy
	Generator   content.Generator
	FeedImport  bool
	Feeds       feedimport.Options
	Health      map[string]HealthCheck
}

// NewHandlers builds every handler from s.
func NewHandlers(s Services) *Handlers {
	cd := content.Deps{Repo: s.Contents, Users: s.Users, Publisher: s.Publisher, Clock: s.Clock, IDs: s.IDs, Locker: s.Locker}
	wd := workflow.Deps{Repo: s.Workflows, Users: s.Users, Publisher: s.Publisher, Clock: s.Clock, IDs: s.IDs, Locker: s.Locker}

	h := &Handlers{
		CreateUser:     user.NewCreateUserHandler(s.Users, s.Publisher, s.Clock, s.IDs, s.EmailPolicy),
		UpdateProfile:  user.NewUpdateProfileHandler(s.Users, s.Clock, s.Locker),
		GetUser:        user.NewGetUserHandler(s.Users),
		GetUserByEmail: user.NewGetUserByEmailHandler(s.Users, s.EmailPolicy),

		CreateContent:   content.NewCreateContentHandler(cd),
		UpdateContent:   content.NewUpdateContentHandler(cd),
		MarkReady:       content.NewMarkReadyHandler(cd),
		PublishContent:  content.NewPublishContentHandler(cd),
		ArchiveContent:  content.NewArchiveContentHandler(cd),
		GenerateContent: content.NewGenerateContentHandler(cd, s.Generator),
		GetContent:      content.NewGetContentHandler(s.Contents),
		ListContents:    content.NewListContentsHandler(s.Contents),

		CreateWorkflow:     workflow.NewCreateWorkflowHandler(wd),
		ActivateWorkflow:   workflow.NewActivateWorkflowHandler(wd),
		PauseWorkflow:      workflow.NewPauseWorkflowHandler(wd),
		DeactivateWorkflow: workflow.NewDeactivateWorkflowHandler(wd),
		ExecuteWorkflow:    workflow.NewExecuteWorkflowHandler(wd),
		MarkWorkflowError:  workflow.NewMarkWorkflowErrorHandler(wd),
		GetWorkflow:        workflow.NewGetWorkflowHandler(s.Workflows),
		ListWorkflows:      workflow.NewListWorkflowsHandler(s.Workflows),

		Health: s.Health,
	}
	if s.FeedImport {
		h.Import = feedimport.NewImporter(h.CreateContent, s.Feeds)
	}
	return h
}

// HealthCheck reports the status of every registered dependency.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.Health))
	status := http.StatusOK
	for name, check := range h.Health {
		if err := check(r.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}
	httputil.JSON(w, status, map[string]any{"status": overall, "checks": checks})
}

// pagination reads limit and offset query parameters.
func pagination(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, invalidParam("limit")
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, invalidParam("offset")
		}
	}
	return limit, offset, nil
}

func invalidParam(name string) error {
	return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrValidation, name)
}

func idParam(r *http.Request) string {
	return chi.URLParam(r, "id")
}
