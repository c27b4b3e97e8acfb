package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"exam-portal/internal/model"
	"exam-portal/pkg/apierror"
)

const maxBodyBytes = 1 << 20

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	writeJSON(w, status, model.APIResponse{Success: true, Data: data, Meta: meta})
}

func writeMessage(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, model.APIResponse{Success: true, Message: message, Data: data})
}

func writeJSON(w http.ResponseWriter, status int, body model.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "unexpected server error",
	}

	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "resource not found"
	case errors.Is(err, model.ErrDuplicateAccount):
		status = http.StatusConflict
		body.Code = "DUPLICATE_ACCOUNT"
		body.Message = "an account with this email already exists"
	case errors.Is(err, model.ErrUnauthorized):
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "authentication required"
	case errors.Is(err, model.ErrForbidden):
		status = http.StatusForbidden
		body.Code = "FORBIDDEN"
		body.Message = "access denied"
	case errors.Is(err, model.ErrInvalidInput):
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "invalid input"
	default:
		slog.Error("unhandled error in writeError", "error", err)
	}

	if status >= http.StatusInternalServerError && apiErr != nil {
		slog.Error("request failed", "code", body.Code, "error", err)
	}

	writeJSON(w, status, model.APIResponse{
		Success: false,
		Message: body.Message,
		Error:   body,
	})
}

// decodeJSON reads a bounded JSON body into dst. An empty body is allowed
// when optional is true.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	defer r.Body.Close()

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return nil
	}
	return apierror.Wrap(model.ErrInvalidInput, "BAD_REQUEST", "invalid JSON body", http.StatusBadRequest)
}

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}
