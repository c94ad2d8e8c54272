package handlers

import (
	"net/http"
	"strconv"

	"studyplans/internal/logger"
	"studyplans/internal/service"
)

// TemplateHandler serves the master template store
type TemplateHandler struct {
	templates *service.TemplateService
	log       *logger.Logger
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templates *service.TemplateService, log *logger.Logger) *TemplateHandler {
	return &TemplateHandler{templates: templates, log: log}
}

// CreatePlanTemplate handles POST /api/plan-templates
func (h *TemplateHandler) CreatePlanTemplate(w http.ResponseWriter, r *http.Request) {
	var req planTemplateRequest
	if !decodeRequest(w, r, h.log, &req) {
		return
	}

	pt, err := h.templates.CreatePlanTemplate(r.Context(), req.input())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toPlanTemplateResponse(*pt))
}

// ListPlanTemplates handles GET /api/plan-templates
func (h *TemplateHandler) ListPlanTemplates(w http.ResponseWriter, r *http.Request) {
	includeInactive := false
	if v := r.URL.Query().Get("includeInactive"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidRequest,
				map[string]string{"includeInactive": "must be true or false"}, err)
			return
		}
		includeInactive = parsed
	}

	pts, err := h.templates.ListPlanTemplates(r.Context(), includeInactive)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPlanTemplateListResponse(pts))
}

// GetPlanTemplate handles GET /api/plan-templates/{id}
func (h *TemplateHandler) GetPlanTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.log, "id")
	if !ok {
		return
	}

	tree, err := h.templates.GetPlanTemplate(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPlanTemplateTreeResponse(*tree))
}

// UpdatePlanTemplate handles PUT /api/plan-templates/{id}
func (h *TemplateHandler) UpdatePlanTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.log, "id")
	if !ok {
		return
	}
	var req planTemplateRequest
	if !decodeRequest(w, r, h.log, &req) {
		return
	}

	pt, err := h.templates.UpdatePlanTemplate(r.Context(), id, req.input())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPlanTemplateResponse(*pt))
}

// DeactivatePlanTemplate handles POST /api/plan-templates/{id}/deactivate
func (h *TemplateHandler) DeactivatePlanTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.log, "id")
	if !ok {
		return
	}

	pt, err := h.templates.DeactivatePlanTemplate(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPlanTemplateResponse(*pt))
}

// CreateSprintTemplate handles POST /api/sprint-templates. The sprint and its
// goals are created together.
func (h *TemplateHandler) CreateSprintTemplate(w http.ResponseWriter, r *http.Request) {
	var req sprintTemplateRequest
	if !decodeRequest(w, r, h.log, &req) {
		return
	}

	st, err := h.templates.CreateSprintTemplateWithGoals(r.Context(), req.input())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toSprintTemplateTreeResponse(*st))
}

// UpdateSprintTemplate handles PUT /api/sprint-templates/{id}
func (h *TemplateHandler) UpdateSprintTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.log, "id")
	if !ok {
		return
	}
	var req sprintTemplateUpdateRequest
	if !decodeRequest(w, r, h.log, &req) {
		return
	}

	st, err := h.templates.UpdateSprintTemplate(r.Context(), id, req.input())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toSprintTemplateResponse(*st))
}

// CreateGoalTemplate handles POST /api/goal-templates
func (h *TemplateHandler) CreateGoalTemplate(w http.ResponseWriter, r *http.Request) {
	var req goalTemplateRequest
	if !decodeRequest(w, r, h.log, &req) {
		return
	}
	if req.SprintTemplateID <= 0 {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidRequest,
			map[string]string{"sprintTemplateId": "sprintTemplateId is a required field"}, nil)
		return
	}

	gt, err := h.templates.AddGoalTemplate(r.Context(), req.input())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toGoalTemplateResponse(*gt))
}

// UpdateGoalTemplate handles PUT /api/goal-templates/{id}
func (h *TemplateHandler) UpdateGoalTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.log, "id")
	if !ok {
		return
	}
	var req goalTemplateRequest
	if !decodeRequest(w, r, h.log, &req) {
		return
	}

	gt, err := h.templates.UpdateGoalTemplate(r.Context(), id, req.input())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toGoalTemplateResponse(*gt))
}
