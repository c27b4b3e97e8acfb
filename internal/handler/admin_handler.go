package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"exam-portal/internal/model"
	"exam-portal/internal/service"
)

type AdminHandler struct {
	service *service.AdminService
}

func NewAdminHandler(service *service.AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.AdminList{Admins: admins}, nil)
}

func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	admin, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, admin, nil)
}

func (h *AdminHandler) Invite(w http.ResponseWriter, r *http.Request, principal model.Principal) {
	var payload model.InviteAdminRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	admin, err := h.service.Invite(r.Context(), principal, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusCreated, "invitation sent", admin)
}

func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, principal model.Principal) {
	var payload model.UpdateStatusRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, err)
		return
	}
	if payload.IsActive == nil {
		writeError(w, errMissingStatus)
		return
	}

	admin, err := h.service.SetActive(r.Context(), principal, chi.URLParam(r, "id"), *payload.IsActive)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, admin, nil)
}

func (h *AdminHandler) UpdateSuperAdmin(w http.ResponseWriter, r *http.Request, principal model.Principal) {
	var payload model.UpdateSuperAdminRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, err)
		return
	}
	if payload.IsSuperAdmin == nil {
		writeError(w, errMissingSuperAdmin)
		return
	}

	admin, err := h.service.SetSuperAdmin(r.Context(), principal, chi.URLParam(r, "id"), *payload.IsSuperAdmin)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, admin, nil)
}

func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request, principal model.Principal) {
	if err := h.service.Delete(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "admin deleted", nil)
}
