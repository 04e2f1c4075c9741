package api

import (
	"fmt"
	"net/http"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/feedimport"
	"github.com/ignite/contentflow/internal/pkg/httputil"
	"github.com/ignite/contentflow/internal/service/content"
)

func (h *Handlers) handleCreateContent(w http.ResponseWriter, r *http.Request) {
	var cmd content.CreateContent
	if !httputil.Decode(w, r, &cmd) {
		return
	}
	cmd.OwnerID = actingUser(r)
	c, err := h.CreateContent.Handle(r.Context(), cmd)
	respond(w, http.StatusCreated, c, err)
}

func (h *Handlers) handleGenerateContent(w http.ResponseWriter, r *http.Request) {
	var cmd content.GenerateContent
	if !httputil.Decode(w, r, &cmd) {
		return
	}
	cmd.OwnerID = actingUser(r)
	c, err := h.GenerateContent.Handle(r.Context(), cmd)
	respond(w, http.StatusCreated, c, err)
}

func (h *Handlers) handleImportFeed(w http.ResponseWriter, r *http.Request) {
	if h.Import == nil {
		httputil.ErrorCode(w, http.StatusServiceUnavailable, "UNAVAILABLE", "feed import is not enabled")
		return
	}
	var cmd feedimport.ImportFeed
	if !httputil.Decode(w, r, &cmd) {
		return
	}
	cmd.OwnerID = actingUser(r)
	res, err := h.Import.Import(r.Context(), cmd)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.Created(w, res)
}

// ownedContent loads the content at {id} and checks the acting user owns it.
func (h *Handlers) ownedContent(r *http.Request) (*domain.Content, error) {
	id := idParam(r)
	c, err := h.GetContent.Handle(r.Context(), content.GetContent{ContentID: id})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: content %s", domain.ErrNotFound, id)
	}
	if !c.IsOwnedBy(actingUser(r)) {
		return nil, fmt.Errorf("%w: content %s belongs to another user", domain.ErrUnauthorized, id)
	}
	return c, nil
}

func (h *Handlers) handleGetContent(w http.ResponseWriter, r *http.Request) {
	c, err := h.ownedContent(r)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, c)
}

func (h *Handlers) handleListContents(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, err)
		return
	}
	f := content.ListFilter{OwnerID: actingUser(r), Limit: limit, Offset: offset}
	q := r.URL.Query()
	if v := q.Get("type"); v != "" {
		if f.Type, err = domain.ParseContentType(v); err != nil {
			writeError(w, err)
			return
		}
	}
	if v := q.Get("status"); v != "" {
		if f.Status, err = domain.ParseContentStatus(v); err != nil {
			writeError(w, err)
			return
		}
	}
	items, err := h.ListContents.Handle(r.Context(), content.ListContents{Filter: f})
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []*domain.Content{}
	}
	httputil.OK(w, map[string]any{"items": items, "count": len(items)})
}

func (h *Handlers) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	var cmd content.UpdateContent
	if !httputil.Decode(w, r, &cmd) {
		return
	}
	cmd.ContentID = idParam(r)
	cmd.ActingUserID = actingUser(r)
	c, err := h.UpdateContent.Handle(r.Context(), cmd)
	respond(w, http.StatusOK, c, err)
}

func (h *Handlers) handleMarkReady(w http.ResponseWriter, r *http.Request) {
	c, err := h.MarkReady.Handle(r.Context(), content.MarkReady{ContentID: idParam(r), ActingUserID: actingUser(r)})
	respond(w, http.StatusOK, c, err)
}

func (h *Handlers) handlePublishContent(w http.ResponseWriter, r *http.Request) {
	c, err := h.PublishContent.Handle(r.Context(), content.PublishContent{ContentID: idParam(r), ActingUserID: actingUser(r)})
	respond(w, http.StatusOK, c, err)
}

func (h *Handlers) handleArchiveContent(w http.ResponseWriter, r *http.Request) {
	c, err := h.ArchiveContent.Handle(r.Context(), content.ArchiveContent{ContentID: idParam(r), ActingUserID: actingUser(r)})
	respond(w, http.StatusOK, c, err)
}
