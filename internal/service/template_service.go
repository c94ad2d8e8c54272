package service

import (
	"context"
	"strings"
	"time"

	"studyplans/internal/database"
	"studyplans/internal/logger"
	"studyplans/internal/models"
	"studyplans/internal/position"
	"studyplans/internal/repository"
)

// TemplateService handles authoring of the master hierarchy and single-create
// of instance sprints and goals
type TemplateService struct {
	db                *database.DB
	templateRepo      *repository.TemplateRepository
	planRepo          *repository.PlanRepository
	log               *logger.Logger
	defaultSprintDays int
}

// NewTemplateService creates a new template service
func NewTemplateService(db *database.DB, templateRepo *repository.TemplateRepository, planRepo *repository.PlanRepository, log *logger.Logger, defaultSprintDays int) *TemplateService {
	if defaultSprintDays <= 0 {
		defaultSprintDays = DefaultSprintDays
	}
	return &TemplateService{
		db:                db,
		templateRepo:      templateRepo,
		planRepo:          planRepo,
		log:               log,
		defaultSprintDays: defaultSprintDays,
	}
}

// PlanTemplateInput holds the editable fields of a plan template
type PlanTemplateInput struct {
	Name           string
	Role           string
	Description    string
	DurationMonths *int
	Version        string
}

// SprintTemplateInput describes a sprint template and, for batch creation, its goals
type SprintTemplateInput struct {
	PlanTemplateID int64
	Name           string
	StartDate      *time.Time
	EndDate        *time.Time
	DurationDays   *int
	Description    string
	Goals          []GoalTemplateInput
}

// GoalTemplateInput describes a goal template
type GoalTemplateInput struct {
	SprintTemplateID         int64
	Subject                  string
	Type                     string
	Title                    string
	Instructions             string
	Link                     string
	Relevance                int
	ExpectedMinutes          int
	ExpectedPerformance      int
	ExpectedQuestionsTotal   int
	ExpectedQuestionsCorrect int
}

// SprintInput describes an instance sprint appended to a plan. Missing dates
// continue from the plan's last sprint.
type SprintInput struct {
	PlanID    int64
	Name      string
	StartDate *time.Time
	EndDate   *time.Time
}

// GoalInput describes an instance goal appended to a sprint
type GoalInput struct {
	SprintID     int64
	Subject      string
	Type         string
	Title        string
	Instructions string
	Link         string
	Relevance    int
}

func (in PlanTemplateInput) validate(op string) error {
	if strings.TrimSpace(in.Name) == "" {
		return fieldError(op, "name", "is required")
	}
	if in.DurationMonths != nil && *in.DurationMonths < 0 {
		return fieldError(op, "durationMonths", "must not be negative")
	}
	return nil
}

func (in SprintTemplateInput) validate(op string) error {
	if strings.TrimSpace(in.Name) == "" {
		return fieldError(op, "name", "is required")
	}
	if in.StartDate != nil && in.EndDate != nil && models.DateOf(*in.EndDate).Before(models.DateOf(*in.StartDate)) {
		return fieldError(op, "endDate", "must not be before startDate")
	}
	if in.DurationDays != nil && *in.DurationDays < 0 {
		return fieldError(op, "durationDays", "must not be negative")
	}
	for _, g := range in.Goals {
		if err := g.validate(op); err != nil {
			return err
		}
	}
	return nil
}

func (in GoalTemplateInput) validate(op string) error {
	if strings.TrimSpace(in.Title) == "" {
		return fieldError(op, "title", "is required")
	}
	if in.ExpectedMinutes < 0 || in.ExpectedQuestionsTotal < 0 || in.ExpectedQuestionsCorrect < 0 {
		return validationError(op, "expected values must not be negative")
	}
	if in.ExpectedPerformance < 0 || in.ExpectedPerformance > 100 {
		return fieldError(op, "expectedPerformance", "must be between 0 and 100")
	}
	if in.ExpectedQuestionsCorrect > in.ExpectedQuestionsTotal {
		return fieldError(op, "expectedQuestionsCorrect", "must not exceed expectedQuestionsTotal")
	}
	return nil
}

func (in GoalTemplateInput) model(sprintTemplateID int64, pos int) *models.GoalTemplate {
	return &models.GoalTemplate{
		SprintTemplateID:         sprintTemplateID,
		Subject:                  strings.TrimSpace(in.Subject),
		Type:                     models.ParseGoalType(in.Type),
		Title:                    strings.TrimSpace(in.Title),
		Instructions:             in.Instructions,
		Link:                     strings.TrimSpace(in.Link),
		Relevance:                models.NormalizeRelevance(in.Relevance),
		Position:                 pos,
		ExpectedMinutes:          in.ExpectedMinutes,
		ExpectedPerformance:      in.ExpectedPerformance,
		ExpectedQuestionsTotal:   in.ExpectedQuestionsTotal,
		ExpectedQuestionsCorrect: in.ExpectedQuestionsCorrect,
	}
}

// CreatePlanTemplate creates an active plan template with no sprints
func (s *TemplateService) CreatePlanTemplate(ctx context.Context, in PlanTemplateInput) (*models.PlanTemplate, error) {
	const op = "create plan template"
	if err := in.validate(op); err != nil {
		return nil, err
	}
	pt := &models.PlanTemplate{
		Name:           strings.TrimSpace(in.Name),
		Role:           strings.TrimSpace(in.Role),
		Description:    in.Description,
		DurationMonths: in.DurationMonths,
		Version:        strings.TrimSpace(in.Version),
		Active:         true,
	}
	if err := s.templateRepo.CreatePlanTemplate(ctx, pt); err != nil {
		return nil, err
	}
	s.log.Info("plan template created", "plan_template_id", pt.ID, "name", pt.Name)
	return pt, nil
}

// UpdatePlanTemplate replaces the editable fields of a plan template. Existing
// instances are not touched.
func (s *TemplateService) UpdatePlanTemplate(ctx context.Context, id int64, in PlanTemplateInput) (*models.PlanTemplate, error) {
	const op = "update plan template"
	if err := in.validate(op); err != nil {
		return nil, err
	}
	pt, err := s.templateRepo.GetPlanTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if pt == nil {
		return nil, notFoundError(op, "plan template", id)
	}
	pt.Name = strings.TrimSpace(in.Name)
	pt.Role = strings.TrimSpace(in.Role)
	pt.Description = in.Description
	pt.DurationMonths = in.DurationMonths
	pt.Version = strings.TrimSpace(in.Version)
	if err := s.templateRepo.UpdatePlanTemplate(ctx, pt); err != nil {
		return nil, err
	}
	return pt, nil
}

// DeactivatePlanTemplate hides a plan template from listings and instantiation
func (s *TemplateService) DeactivatePlanTemplate(ctx context.Context, id int64) (*models.PlanTemplate, error) {
	const op = "deactivate plan template"
	pt, err := s.templateRepo.GetPlanTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if pt == nil {
		return nil, notFoundError(op, "plan template", id)
	}
	if !pt.Active {
		return pt, nil
	}
	if err := s.templateRepo.SetPlanTemplateActive(ctx, id, false); err != nil {
		return nil, err
	}
	pt.Active = false
	s.log.Info("plan template deactivated", "plan_template_id", id)
	return pt, nil
}

// GetPlanTemplate returns the full master tree of a plan template
func (s *TemplateService) GetPlanTemplate(ctx context.Context, id int64) (*models.PlanTemplateTree, error) {
	tree, err := s.templateRepo.GetTree(ctx, id)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, notFoundError("get plan template", "plan template", id)
	}
	return tree, nil
}

// ListPlanTemplates lists plan templates, active ones only unless includeInactive
func (s *TemplateService) ListPlanTemplates(ctx context.Context, includeInactive bool) ([]models.PlanTemplate, error) {
	return s.templateRepo.ListPlanTemplates(ctx, includeInactive)
}

// CreateSprintTemplateWithGoals appends a sprint template to its plan template
// and creates its goals with positions 1..n in input order, all in one
// transaction.
func (s *TemplateService) CreateSprintTemplateWithGoals(ctx context.Context, in SprintTemplateInput) (*models.SprintTemplateWithGoals, error) {
	const op = "create sprint template"
	if in.PlanTemplateID <= 0 {
		return nil, fieldError(op, "planTemplateId", "is required")
	}
	if err := in.validate(op); err != nil {
		return nil, err
	}
	pt, err := s.templateRepo.GetPlanTemplate(ctx, in.PlanTemplateID)
	if err != nil {
		return nil, err
	}
	if pt == nil {
		return nil, notFoundError(op, "plan template", in.PlanTemplateID)
	}

	var out *models.SprintTemplateWithGoals
	err = appendChild(ctx, s.db, op, position.ScopePlanTemplate, in.PlanTemplateID, func(tx *database.Tx, pos int) error {
		tree, err := createSprintTemplateTree(ctx, s.templateRepo.WithTx(tx), in, pos)
		out = tree
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("sprint template created",
		"plan_template_id", in.PlanTemplateID, "sprint_template_id", out.ID, "position", out.Position, "goals", len(out.Goals))
	return out, nil
}

// createSprintTemplateTree inserts a sprint template at pos and its goals in
// batch order
func createSprintTemplateTree(ctx context.Context, repo *repository.TemplateRepository, in SprintTemplateInput, pos int) (*models.SprintTemplateWithGoals, error) {
	st := &models.SprintTemplate{
		PlanTemplateID: in.PlanTemplateID,
		Name:           strings.TrimSpace(in.Name),
		Position:       pos,
		StartDate:      dateOrNil(in.StartDate),
		EndDate:        dateOrNil(in.EndDate),
		DurationDays:   in.DurationDays,
		Description:    in.Description,
	}
	if err := repo.CreateSprintTemplate(ctx, st); err != nil {
		return nil, err
	}

	out := &models.SprintTemplateWithGoals{SprintTemplate: *st}
	for i, p := range position.Sequence(len(in.Goals)) {
		gt := in.Goals[i].model(st.ID, p)
		if err := repo.CreateGoalTemplate(ctx, gt); err != nil {
			return nil, err
		}
		out.Goals = append(out.Goals, *gt)
	}
	return out, nil
}

// AddGoalTemplate appends one goal template to a sprint template
func (s *TemplateService) AddGoalTemplate(ctx context.Context, in GoalTemplateInput) (*models.GoalTemplate, error) {
	const op = "add goal template"
	if in.SprintTemplateID <= 0 {
		return nil, fieldError(op, "sprintTemplateId", "is required")
	}
	if err := in.validate(op); err != nil {
		return nil, err
	}
	st, err := s.templateRepo.GetSprintTemplate(ctx, in.SprintTemplateID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, notFoundError(op, "sprint template", in.SprintTemplateID)
	}

	var gt *models.GoalTemplate
	err = appendChild(ctx, s.db, op, position.ScopeSprintTemplate, st.ID, func(tx *database.Tx, pos int) error {
		gt = in.model(st.ID, pos)
		return s.templateRepo.WithTx(tx).CreateGoalTemplate(ctx, gt)
	})
	if err != nil {
		return nil, err
	}
	return gt, nil
}

// UpdateSprintTemplate replaces the editable fields of a sprint template.
// Position and parent stay as they are.
func (s *TemplateService) UpdateSprintTemplate(ctx context.Context, id int64, in SprintTemplateInput) (*models.SprintTemplate, error) {
	const op = "update sprint template"
	in.Goals = nil
	if err := in.validate(op); err != nil {
		return nil, err
	}
	st, err := s.templateRepo.GetSprintTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, notFoundError(op, "sprint template", id)
	}
	st.Name = strings.TrimSpace(in.Name)
	st.StartDate = dateOrNil(in.StartDate)
	st.EndDate = dateOrNil(in.EndDate)
	st.DurationDays = in.DurationDays
	st.Description = in.Description
	if err := s.templateRepo.UpdateSprintTemplate(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// UpdateGoalTemplate replaces the editable fields of a goal template
func (s *TemplateService) UpdateGoalTemplate(ctx context.Context, id int64, in GoalTemplateInput) (*models.GoalTemplate, error) {
	const op = "update goal template"
	if err := in.validate(op); err != nil {
		return nil, err
	}
	gt, err := s.templateRepo.GetGoalTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if gt == nil {
		return nil, notFoundError(op, "goal template", id)
	}
	updated := in.model(gt.SprintTemplateID, gt.Position)
	updated.ID = gt.ID
	updated.CreatedAt = gt.CreatedAt
	if err := s.templateRepo.UpdateGoalTemplate(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// AddSprint appends a sprint to a student's plan
func (s *TemplateService) AddSprint(ctx context.Context, in SprintInput) (*models.Sprint, error) {
	const op = "add sprint"
	if in.PlanID <= 0 {
		return nil, fieldError(op, "planId", "is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fieldError(op, "name", "is required")
	}
	plan, err := s.planRepo.GetPlan(ctx, in.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, notFoundError(op, "plan", in.PlanID)
	}

	var sprint *models.Sprint
	err = appendChild(ctx, s.db, op, position.ScopePlan, plan.ID, func(tx *database.Tx, pos int) error {
		repo := s.planRepo.WithTx(tx)
		start, end, err := s.sprintDates(ctx, repo, plan.ID, in)
		if err != nil {
			return err
		}
		sprint = &models.Sprint{
			PlanID:    plan.ID,
			Name:      strings.TrimSpace(in.Name),
			Position:  pos,
			StartDate: start,
			EndDate:   end,
			Status:    models.StatusPending,
		}
		return repo.CreateSprint(ctx, sprint)
	})
	if err != nil {
		return nil, err
	}
	return sprint, nil
}

func (s *TemplateService) sprintDates(ctx context.Context, repo *repository.PlanRepository, planID int64, in SprintInput) (time.Time, time.Time, error) {
	var start time.Time
	last, err := repo.LastSprintEnd(ctx, planID)
	if err != nil {
		return start, start, err
	}
	switch {
	case in.StartDate != nil:
		start = models.DateOf(*in.StartDate)
		if last != nil && !start.After(models.DateOf(*last)) {
			return start, start, fieldError("add sprint", "startDate", "must be after the end of the plan's last sprint")
		}
	case last != nil:
		start = models.AddDays(*last, 1)
	default:
		start = models.DateOf(time.Now().UTC())
	}

	end := models.AddDays(start, s.defaultSprintDays)
	if in.EndDate != nil {
		end = models.DateOf(*in.EndDate)
	}
	if end.Before(start) {
		return start, end, fieldError("add sprint", "endDate", "must not be before startDate")
	}
	return start, end, nil
}

// AddGoal appends a goal to a student's sprint
func (s *TemplateService) AddGoal(ctx context.Context, in GoalInput) (*models.Goal, error) {
	const op = "add goal"
	if in.SprintID <= 0 {
		return nil, fieldError(op, "sprintId", "is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fieldError(op, "title", "is required")
	}
	sprint, err := s.planRepo.GetSprint(ctx, in.SprintID)
	if err != nil {
		return nil, err
	}
	if sprint == nil {
		return nil, notFoundError(op, "sprint", in.SprintID)
	}

	var goal *models.Goal
	err = appendChild(ctx, s.db, op, position.ScopeSprint, sprint.ID, func(tx *database.Tx, pos int) error {
		goal = &models.Goal{
			SprintID:     sprint.ID,
			Subject:      strings.TrimSpace(in.Subject),
			Type:         models.ParseGoalType(in.Type),
			Title:        strings.TrimSpace(in.Title),
			Instructions: in.Instructions,
			Link:         strings.TrimSpace(in.Link),
			Relevance:    models.NormalizeRelevance(in.Relevance),
			Position:     pos,
			Status:       models.StatusPending,
		}
		return s.planRepo.WithTx(tx).CreateGoal(ctx, goal)
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}

func dateOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := models.DateOf(*t)
	return &d
}
