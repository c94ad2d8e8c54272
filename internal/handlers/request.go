package handlers

import (
	"net/http"
	"strconv"

	"studyplans/internal/logger"
	"studyplans/internal/validation"
)

// pathID parses a positive int64 path value. On failure it writes a 400 and
// returns false.
func pathID(w http.ResponseWriter, r *http.Request, log *logger.Logger, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, log, http.StatusBadRequest, ErrInvalidID, map[string]string{name: "must be a positive integer"}, err)
		return 0, false
	}
	return id, true
}

// decodeRequest decodes and validates a JSON body. On failure it writes a 400
// and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, log *logger.Logger, dst interface{}) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		respondWithError(w, log, http.StatusBadRequest, ErrInvalidJSON+": "+err.Error(), nil, err)
		return false
	}
	if err := validation.Struct(dst); err != nil {
		respondWithServiceError(w, log, err)
		return false
	}
	return true
}
