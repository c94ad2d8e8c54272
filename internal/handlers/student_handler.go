package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"studyplans/internal/logger"
	"studyplans/internal/service"
)

// StudentHandler serves a student's assignments, current sprint and report
type StudentHandler struct {
	instantiation *service.InstantiationService
	progress      *service.ProgressService
	reports       *service.ReportService
	log           *logger.Logger
}

// NewStudentHandler creates a new student handler
func NewStudentHandler(instantiation *service.InstantiationService, progress *service.ProgressService, reports *service.ReportService, log *logger.Logger) *StudentHandler {
	return &StudentHandler{
		instantiation: instantiation,
		progress:      progress,
		reports:       reports,
		log:           log,
	}
}

// AssignPlan handles POST /api/students/{studentId}/plans/{planId}/assign
func (h *StudentHandler) AssignPlan(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, h.log, "studentId")
	if !ok {
		return
	}
	planID, ok := pathID(w, r, h.log, "planId")
	if !ok {
		return
	}

	var req assignRequest
	if r.ContentLength != 0 {
		if !decodeRequest(w, r, h.log, &req) {
			return
		}
	}

	a, err := h.instantiation.AssignPlan(r.Context(), studentID, planID, service.AssignParams{
		StartDate: req.StartDate.ptr(),
		Status:    req.Status,
		Notes:     req.Notes,
	})
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toAssignmentResponse(*a))
}

// ListPlans handles GET /api/students/{studentId}/plans
func (h *StudentHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, h.log, "studentId")
	if !ok {
		return
	}

	list, err := h.instantiation.ListAssignments(r.Context(), studentID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toAssignmentHistoryResponse(list))
}

// ActivePlan handles GET /api/students/{studentId}/active-plan
func (h *StudentHandler) ActivePlan(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, h.log, "studentId")
	if !ok {
		return
	}

	a, tree, err := h.instantiation.ActivePlan(r.Context(), studentID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, activePlanResponse{
		Assignment: toAssignmentResponse(*a),
		Plan:       toPlanTreeResponse(*tree),
	})
}

// CurrentSprint handles GET /api/students/{studentId}/current-sprint
func (h *StudentHandler) CurrentSprint(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, h.log, "studentId")
	if !ok {
		return
	}

	view, err := h.progress.CurrentSprint(r.Context(), studentID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toCurrentSprintResponse(*view))
}

// SetCurrentSprint handles PUT /api/students/{studentId}/current-sprint
func (h *StudentHandler) SetCurrentSprint(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, h.log, "studentId")
	if !ok {
		return
	}
	var req currentSprintRequest
	if !decodeRequest(w, r, h.log, &req) {
		return
	}

	view, err := h.progress.SetCurrentSprint(r.Context(), studentID, req.SprintID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toCurrentSprintResponse(*view))
}

// Report handles GET /api/students/{studentId}/report.pdf
func (h *StudentHandler) Report(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, h.log, "studentId")
	if !ok {
		return
	}

	// Render to a buffer so a failure can still produce a JSON error
	var buf bytes.Buffer
	if err := h.reports.RenderPlanReport(r.Context(), studentID, &buf); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=student-%d-plan.pdf", studentID))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
