package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ovalledev/sigex/internal/domain"
	"github.com/ovalledev/sigex/internal/response"
)

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, message string) error {
	return writeJSON(w, status, &response.ErrorResponse{Error: message})

}

func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(data)
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return err
	}

	return nil
}

// writeDomainError maps the rule-violation sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrPermissionDenied):
		writeJSONError(w, http.StatusForbidden, "permission denied")
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrVersionCapExceeded):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrUniquenessConflict),
		errors.Is(err, domain.ErrRoleChangeBlocked),
		errors.Is(err, domain.ErrConcurrentUpdate):
		writeJSONError(w, http.StatusConflict, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
