package handlers

import (
	"net/http"

	"studyplans/internal/logger"
	"studyplans/internal/service"
)

// Services groups what the HTTP layer depends on
type Services struct {
	Templates     *service.TemplateService
	Ordering      *service.OrderingService
	Instantiation *service.InstantiationService
	Progress      *service.ProgressService
	Reports       *service.ReportService
}

// NewRouter registers every route and wraps the mux with request logging and
// rate limiting
func NewRouter(svc Services, db Pinger, middleware *Middleware, log *logger.Logger) http.Handler {
	healthHandler := NewHealthHandler(db, log)
	templateHandler := NewTemplateHandler(svc.Templates, log)
	planHandler := NewPlanHandler(svc.Instantiation, svc.Templates, svc.Progress, log)
	studentHandler := NewStudentHandler(svc.Instantiation, svc.Progress, svc.Reports, log)
	orderingHandler := NewOrderingHandler(svc.Ordering, middleware, log)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", healthHandler.Healthz)

	mux.HandleFunc("GET /api/plan-templates", middleware.RequireAuth(templateHandler.ListPlanTemplates))
	mux.HandleFunc("POST /api/plan-templates", middleware.RequireAdmin(templateHandler.CreatePlanTemplate))
	mux.HandleFunc("GET /api/plan-templates/{id}", middleware.RequireAuth(templateHandler.GetPlanTemplate))
	mux.HandleFunc("PUT /api/plan-templates/{id}", middleware.RequireAdmin(templateHandler.UpdatePlanTemplate))
	mux.HandleFunc("POST /api/plan-templates/{id}/deactivate", middleware.RequireAdmin(templateHandler.DeactivatePlanTemplate))
	mux.HandleFunc("POST /api/sprint-templates", middleware.RequireAdmin(templateHandler.CreateSprintTemplate))
	mux.HandleFunc("PUT /api/sprint-templates/{id}", middleware.RequireAdmin(templateHandler.UpdateSprintTemplate))
	mux.HandleFunc("POST /api/goal-templates", middleware.RequireAdmin(templateHandler.CreateGoalTemplate))
	mux.HandleFunc("PUT /api/goal-templates/{id}", middleware.RequireAdmin(templateHandler.UpdateGoalTemplate))

	mux.HandleFunc("POST /api/plans/instantiate", middleware.RequireAuth(planHandler.Instantiate))
	mux.HandleFunc("GET /api/plans/{id}", middleware.RequireAuth(planHandler.GetPlan))
	mux.HandleFunc("POST /api/sprints", middleware.RequireAuth(planHandler.CreateSprint))
	mux.HandleFunc("PATCH /api/sprints/{id}", middleware.RequireAuth(planHandler.UpdateSprint))
	mux.HandleFunc("POST /api/goals", middleware.RequireAuth(planHandler.CreateGoal))
	mux.HandleFunc("PATCH /api/goals/{id}", middleware.RequireAuth(planHandler.UpdateGoal))

	mux.HandleFunc("POST /api/students/{studentId}/plans/{planId}/assign", middleware.RequireAuth(studentHandler.AssignPlan))
	mux.HandleFunc("GET /api/students/{studentId}/plans", middleware.RequireAuth(studentHandler.ListPlans))
	mux.HandleFunc("GET /api/students/{studentId}/active-plan", middleware.RequireAuth(studentHandler.ActivePlan))
	mux.HandleFunc("GET /api/students/{studentId}/current-sprint", middleware.RequireAuth(studentHandler.CurrentSprint))
	mux.HandleFunc("PUT /api/students/{studentId}/current-sprint", middleware.RequireAuth(studentHandler.SetCurrentSprint))
	mux.HandleFunc("GET /api/students/{studentId}/report.pdf", middleware.RequireAuth(studentHandler.Report))

	mux.HandleFunc("POST /api/reorder/{scope}", middleware.RequireAuth(orderingHandler.Reorder))

	return middleware.Logging(middleware.RateLimit(mux))
}
