package service

import (
	"net/http"

	"exam-portal/internal/model"
	"exam-portal/pkg/apierror"
)

var (
	errInvalidCredentials = apierror.Wrap(model.ErrInvalidCredentials, "INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized)
	errAccountDeactivated = apierror.Wrap(model.ErrAccountDeactivated, "ACCOUNT_DEACTIVATED", "account is deactivated", http.StatusUnauthorized)
	errDuplicateAccount   = apierror.Wrap(model.ErrDuplicateAccount, "DUPLICATE_ACCOUNT", "an account with this email already exists", http.StatusConflict)
	errAccountGone        = apierror.Wrap(model.ErrNotFound, "ACCOUNT_NOT_FOUND", "account no longer exists", http.StatusUnauthorized)
	errTooManyAttempts    = apierror.Wrap(model.ErrTooManyAttempts, "TOO_MANY_ATTEMPTS", "too many failed login attempts, try again later", http.StatusTooManyRequests)

	errInvalidToken = apierror.Wrap(model.ErrInvalidToken, "INVALID_TOKEN", "invalid token", http.StatusUnauthorized)
	errTokenExpired = apierror.Wrap(model.ErrTokenExpired, "TOKEN_EXPIRED", "token has expired", http.StatusUnauthorized)
	errTokenRevoked = apierror.Wrap(model.ErrTokenRevoked, "TOKEN_REVOKED", "token has been revoked", http.StatusUnauthorized)

	errConfiguration = apierror.Wrap(model.ErrConfiguration, "CONFIGURATION_ERROR", "authentication is not configured", http.StatusInternalServerError)
)

func notFound(what string, id string) error {
	e := apierror.Wrap(model.ErrNotFound, "NOT_FOUND", what+" not found", http.StatusNotFound)
	e.Details = id
	return e
}

func forbidden(message string) error {
	return apierror.Wrap(model.ErrForbidden, "FORBIDDEN", message, http.StatusForbidden)
}

func badRequest(message string, details string) error {
	e := apierror.Wrap(model.ErrInvalidInput, "BAD_REQUEST", message, http.StatusBadRequest)
	e.Details = details
	return e
}
