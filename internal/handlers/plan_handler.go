package handlers

import (
	"net/http"

	"studyplans/internal/logger"
	"studyplans/internal/service"
)

// PlanHandler serves student plans and their sprints and goals
type PlanHandler struct {
	instantiation *service.InstantiationService
	templates     *service.TemplateService
	progress      *service.ProgressService
	log           *logger.Logger
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(instantiation *service.InstantiationService, templates *service.TemplateService, progress *service.ProgressService, log *logger.Logger) *PlanHandler {
	return &PlanHandler{
		instantiation: instantiation,
		templates:     templates,
		progress:      progress,
		log:           log,
	}
}

// Instantiate handles POST /api/plans/instantiate
func (h *PlanHandler) Instantiate(w http.ResponseWriter, r *http.Request) {
	var req instantiateRequest
	if !decodeRequest(w, r, h.log, &req) {
		return
	}

	plan, err := h.instantiation.Instantiate(r.Context(), service.InstantiateParams{
		PlanTemplateID: req.PlanTemplateID,
		StudentID:      req.StudentID,
		StartDate:      req.StartDate.ptr(),
		Status:         req.Status,
		Notes:          req.Notes,
	})
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toInstantiateResponse(*plan))
}

// GetPlan handles GET /api/plans/{id}
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.log, "id")
	if !ok {
		return
	}

	tree, err := h.instantiation.GetPlan(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPlanTreeResponse(*tree))
}

// CreateSprint handles POST /api/sprints
func (h *PlanHandler) CreateSprint(w http.ResponseWriter, r *http.Request) {
	var req sprintRequest
	if !decodeRequest(w, r, h.log, &req) {
		return
	}

	sprint, err := h.templates.AddSprint(r.Context(), service.SprintInput{
		PlanID:    req.PlanID,
		Name:      req.Name,
		StartDate: req.StartDate.ptr(),
		EndDate:   req.EndDate.ptr(),
	})
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toSprintResponse(*sprint))
}

// UpdateSprint handles PATCH /api/sprints/{id}
func (h *PlanHandler) UpdateSprint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.log, "id")
	if !ok {
		return
	}
	var req sprintStatusRequest
	if !decodeRequest(w, r, h.log, &req) {
		return
	}

	sprint, err := h.progress.UpdateSprintStatus(r.Context(), id, req.Status)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toSprintResponse(*sprint))
}

// CreateGoal handles POST /api/goals
func (h *PlanHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if !decodeRequest(w, r, h.log, &req) {
		return
	}

	goal, err := h.templates.AddGoal(r.Context(), service.GoalInput{
		SprintID:     req.SprintID,
		Subject:      req.Subject,
		Type:         req.Type,
		Title:        req.Title,
		Instructions: req.Instructions,
		Link:         req.Link,
		Relevance:    req.Relevance,
	})
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toGoalResponse(*goal))
}

// UpdateGoal handles PATCH /api/goals/{id}. The goal's sprint is rolled up in
// the same transaction and returned alongside it.
func (h *PlanHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.log, "id")
	if !ok {
		return
	}
	var req goalProgressRequest
	if !decodeRequest(w, r, h.log, &req) {
		return
	}

	update, err := h.progress.UpdateGoal(r.Context(), id, service.GoalProgressPatch{
		Status:           req.Status,
		StudiedMinutes:   req.StudiedMinutes,
		Performance:      req.Performance,
		QuestionsTotal:   req.QuestionsTotal,
		QuestionsCorrect: req.QuestionsCorrect,
	})
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, goalUpdateResponse{
		Goal:   toGoalResponse(update.Goal),
		Sprint: toSprintResponse(update.Sprint),
	})
}
