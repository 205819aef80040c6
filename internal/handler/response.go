package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"profile-portal/internal/auth"
	"profile-portal/internal/model"
	"profile-portal/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, err error) {
	writeFailure(w, err, nil)
}

// writeFailure writes the error envelope. data, when set, is the auth state
// after the failed action.
func writeFailure(w http.ResponseWriter, err error, data any) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	var authErr *auth.Error
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.As(err, &authErr) {
		body.Message = authErr.Message
		switch {
		case authErr.Local:
			status = http.StatusBadRequest
			body.Code = "VALIDATION_ERROR"
		case authErr.Kind == auth.KindAuth:
			status = http.StatusUnauthorized
			body.Code = "AUTH_ERROR"
		default:
			status = http.StatusBadGateway
			body.Code = "OPERATION_ERROR"
		}
	} else if errors.Is(err, model.ErrBusy) {
		status = http.StatusConflict
		body.Code = "OPERATION_IN_PROGRESS"
		body.Message = "Ya hay una operación en curso"
	} else if errors.Is(err, model.ErrStaleResponse) {
		status = http.StatusConflict
		body.Code = "SESSION_CHANGED"
		body.Message = "La sesión cambió durante la operación"
	} else if errors.Is(err, model.ErrNotAuthenticated) || errors.Is(err, model.ErrNoSession) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Debes iniciar sesión"
	} else if errors.Is(err, auth.ErrClosed) {
		status = http.StatusServiceUnavailable
		body.Code = "SESSION_CLOSED"
		body.Message = "La sesión fue cerrada, intenta nuevamente"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Invalid input"
	} else {
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Data:    data,
		Error:   body,
	})
}
