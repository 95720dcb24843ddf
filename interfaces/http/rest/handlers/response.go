package handlers

import (
	"encoding/json"
	"net/http"

	pkgerrors "studio-backend/pkg/errors"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// respondError maps an application error onto an HTTP status. Validation
// failures are 400, or 422 when the request was well-formed but violates a
// graph invariant; lookups 404, conflicts 409, everything else 500.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"
	code := pkgerrors.CodeOf(err)

	switch {
	case pkgerrors.IsValidation(err):
		status = http.StatusBadRequest
		message = err.Error()
		if code == pkgerrors.CodePortAlreadyConnected ||
			code == pkgerrors.CodeMaxOutputsReached ||
			code == pkgerrors.CodeSelfLoop {
			status = http.StatusUnprocessableEntity
		}
	case pkgerrors.IsNotFound(err):
		status = http.StatusNotFound
		message = err.Error()
	case pkgerrors.IsConflict(err):
		status = http.StatusConflict
		message = err.Error()
	}

	respondJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}
