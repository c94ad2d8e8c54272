package handlers

import (
	"net/http"

	"studyplans/internal/logger"
	"studyplans/internal/position"
	"studyplans/internal/service"
)

// OrderingHandler serves explicit reorders of any positioned scope
type OrderingHandler struct {
	ordering   *service.OrderingService
	middleware *Middleware
	log        *logger.Logger
}

// NewOrderingHandler creates a new ordering handler
func NewOrderingHandler(ordering *service.OrderingService, middleware *Middleware, log *logger.Logger) *OrderingHandler {
	return &OrderingHandler{ordering: ordering, middleware: middleware, log: log}
}

// Reorder handles POST /api/reorder/{scope}
func (h *OrderingHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	scope, err := position.ParseScope(r.PathValue("scope"))
	if err != nil {
		respondWithError(w, h.log, http.StatusNotFound, err.Error(), nil, err)
		return
	}
	if scope.IsTemplate() && !h.middleware.IsAdmin(r) {
		respondWithError(w, h.log, http.StatusForbidden, ErrForbidden, nil, nil)
		return
	}

	var req reorderRequest
	if !decodeRequest(w, r, h.log, &req) {
		return
	}

	assignments, err := h.ordering.Reorder(r.Context(), scope, req.ScopeID, req.OrderedChildIDs)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toReorderResponse(scope, req.ScopeID, assignments))
}
