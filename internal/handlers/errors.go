package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"studyplans/internal/logger"
	"studyplans/internal/service"
	"studyplans/internal/validation"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, log *logger.Logger, status int, userMsg string, fields map[string]string, err error) {
	if err != nil && status >= http.StatusInternalServerError {
		log.Error(userMsg, "status", status, "error", err)
	} else if err != nil {
		log.Debug(userMsg, "status", status, "error", err)
	}

	respondWithJSON(w, status, errorResponse{Error: userMsg, Fields: fields})
}

// statusOf maps an error to the HTTP status its kind calls for
func statusOf(err error) int {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondWithServiceError writes err using the status and message of its kind.
// Transaction failures carry their cause; unclassified errors stay generic.
func respondWithServiceError(w http.ResponseWriter, log *logger.Logger, err error) {
	status := statusOf(err)

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		respondWithError(w, log, status, ErrInvalidRequest, verrs, err)
		return
	}

	msg := service.MessageOf(err)
	if status == http.StatusInternalServerError && !errors.Is(err, service.ErrTransaction) {
		msg = ErrInternalServerError
	}
	respondWithError(w, log, status, msg, service.FieldsOf(err), err)
}
