// internal/transport/httpapi/respond.go
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "loanwise-engine/internal/common/errors"
)

type errorBody struct {
	Kind    apperrors.Kind `json:"kind"`
	Message string         `json:"message"`
	Details string         `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps the error taxonomy onto HTTP statuses. Validation is
// the caller's fault, domain rule violations are conflicts with the
// current stage, everything untyped is a server fault.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.NewStorageError("internal", err)
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindDomainRule:
		status = http.StatusConflict
	}

	writeJSON(w, status, errorResponse{Error: errorBody{
		Kind:    appErr.Kind,
		Message: appErr.Message,
		Details: appErr.Details,
	}})
}
