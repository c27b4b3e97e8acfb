package handler

import (
	"net/http"

	"exam-portal/internal/model"
	"exam-portal/pkg/apierror"
)

var (
	errMissingRefreshToken = apierror.Wrap(model.ErrInvalidToken, "INVALID_TOKEN", "refresh token is required", http.StatusUnauthorized)
	errMissingStatus       = apierror.New("BAD_REQUEST", "isActive is required", "isActive", http.StatusBadRequest)
	errMissingSuperAdmin   = apierror.New("BAD_REQUEST", "isSuperAdmin is required", "isSuperAdmin", http.StatusBadRequest)
)
