package api

import (
	"net/http"

	"github.com/ignite/contentflow/internal/pkg/httputil"
	"github.com/ignite/contentflow/internal/service/user"
)

func (h *Handlers) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var cmd user.CreateUser
	if !httputil.Decode(w, r, &cmd) {
		return
	}
	u, err := h.CreateUser.Handle(r.Context(), cmd)
	respond(w, http.StatusCreated, u, err)
}

func (h *Handlers) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.GetUser.Handle(r.Context(), user.GetUser{UserID: idParam(r)})
	if err != nil {
		writeError(w, err)
		return
	}
	if u == nil {
		httputil.ErrorCode(w, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}
	httputil.OK(w, u)
}

func (h *Handlers) handleGetUserByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		httputil.ErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "email query parameter is required")
		return
	}
	u, err := h.GetUserByEmail.Handle(r.Context(), user.GetUserByEmail{Email: email})
	if err != nil {
		writeError(w, err)
		return
	}
	if u == nil {
		httputil.ErrorCode(w, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}
	httputil.OK(w, u)
}

func (h *Handlers) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var cmd user.UpdateProfile
	if !httputil.Decode(w, r, &cmd) {
		return
	}
	cmd.UserID = idParam(r)
	cmd.ActingUserID = actingUser(r)
	u, err := h.UpdateProfile.Handle(r.Context(), cmd)
	respond(w, http.StatusOK, u, err)
}
