package handler

import (
	"net/http"

	"exam-portal/internal/model"
	"exam-portal/internal/service"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(service *service.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	items, meta, err := h.service.Query(r.Context(), service.QueryParams{
		Action:   query.Get("action"),
		ActorID:  query.Get("actorId"),
		Status:   query.Get("status"),
		Resource: query.Get("resource"),
		From:     query.Get("from"),
		To:       query.Get("to"),
		Page:     parseIntOrDefault(query.Get("page"), 1),
		Limit:    parseIntOrDefault(query.Get("limit"), 0),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.AuditListData{Items: items}, &meta)
}
