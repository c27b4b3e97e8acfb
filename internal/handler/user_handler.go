package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"exam-portal/internal/model"
	"exam-portal/internal/service"
)

type UserHandler struct {
	service *service.UserService
}

func NewUserHandler(service *service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.UserList{Users: users}, nil)
}

func (h *UserHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, principal model.Principal) {
	var payload model.UpdateStatusRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, err)
		return
	}
	if payload.IsActive == nil {
		writeError(w, errMissingStatus)
		return
	}

	user, err := h.service.SetActive(r.Context(), principal, chi.URLParam(r, "id"), *payload.IsActive)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}
