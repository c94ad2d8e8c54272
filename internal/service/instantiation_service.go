package service

import (
	"context"
	"time"

	"studyplans/internal/database"
	"studyplans/internal/logger"
	"studyplans/internal/models"
	"studyplans/internal/repository"
)

// DefaultSprintDays is the sprint length used when a sprint template has
// neither explicit dates nor a duration
const DefaultSprintDays = 7

// InstantiationService clones master hierarchies into per-student plans
type InstantiationService struct {
	db                *database.DB
	templateRepo      *repository.TemplateRepository
	planRepo          *repository.PlanRepository
	assignmentRepo    *repository.AssignmentRepository
	log               *logger.Logger
	defaultSprintDays int
	now               func() time.Time
}

// NewInstantiationService creates a new instantiation service
func NewInstantiationService(
	db *database.DB,
	templateRepo *repository.TemplateRepository,
	planRepo *repository.PlanRepository,
	assignmentRepo *repository.AssignmentRepository,
	log *logger.Logger,
	defaultSprintDays int,
) *InstantiationService {
	if defaultSprintDays <= 0 {
		defaultSprintDays = DefaultSprintDays
	}
	return &InstantiationService{
		db:                db,
		templateRepo:      templateRepo,
		planRepo:          planRepo,
		assignmentRepo:    assignmentRepo,
		log:               log,
		defaultSprintDays: defaultSprintDays,
		now:               time.Now,
	}
}

// InstantiateParams selects the template and student for a new plan
type InstantiateParams struct {
	PlanTemplateID int64
	StudentID      int64
	// StartDate defaults to today
	StartDate *time.Time
	// Status is the initial assignment status, not-started when empty
	Status string
	Notes  string
}

// AssignParams holds the optional fields of a direct assignment
type AssignParams struct {
	StartDate *time.Time
	Status    string
	Notes     string
}

func (s *InstantiationService) today() time.Time {
	return models.DateOf(s.now().UTC())
}

// Instantiate deep-copies a plan template into a new plan for the student and
// makes it the student's active assignment. Either the whole tree and the
// assignment are written or nothing is.
func (s *InstantiationService) Instantiate(ctx context.Context, p InstantiateParams) (*models.Plan, error) {
	const op = "instantiate plan"
	if p.PlanTemplateID <= 0 {
		return nil, fieldError(op, "planTemplateId", "is required")
	}
	if p.StudentID <= 0 {
		return nil, fieldError(op, "studentId", "is required")
	}
	status, ok := models.ParseAssignmentStatus(p.Status)
	if !ok {
		return nil, fieldError(op, "status", "must be one of not-started, in-progress, completed, cancelled")
	}

	tree, err := s.templateRepo.GetTree(ctx, p.PlanTemplateID)
	if err != nil {
		return nil, transactionError(op, err)
	}
	if tree == nil {
		return nil, notFoundError(op, "plan template", p.PlanTemplateID)
	}
	if !tree.Active {
		return nil, validationError(op, "plan template %d is inactive", tree.ID)
	}

	start := s.today()
	if p.StartDate != nil {
		start = models.DateOf(*p.StartDate)
	}

	var plan *models.Plan
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		planRepo := s.planRepo.WithTx(tx)
		assignmentRepo := s.assignmentRepo.WithTx(tx)

		created, lastEnd, err := s.copyTree(ctx, planRepo, tree, start)
		if err != nil {
			return err
		}
		plan = created

		if _, err := assignmentRepo.DeactivateOthers(ctx, p.StudentID, plan.ID); err != nil {
			return err
		}
		return assignmentRepo.Create(ctx, &models.StudentPlanAssignment{
			StudentID:              p.StudentID,
			PlanID:                 plan.ID,
			StartDate:              start,
			ExpectedCompletionDate: expectedCompletion(start, lastEnd, tree.DurationMonths),
			Status:                 status,
			Active:                 true,
			Notes:                  p.Notes,
		})
	})
	if err != nil {
		s.log.Error("instantiation rolled back", "plan_template_id", p.PlanTemplateID, "student_id", p.StudentID, "error", err)
		return nil, transactionError(op, err)
	}

	s.log.Info("plan instantiated",
		"plan_id", plan.ID, "plan_template_id", tree.ID, "student_id", p.StudentID,
		"sprints", len(tree.Sprints), "goals", tree.GoalCount())
	return plan, nil
}

// copyTree writes the plan, sprints and goals for tree. Sprints are laid end to
// end from start; positions are copied from the templates unchanged. It
// returns the created plan and the end date of the last sprint.
func (s *InstantiationService) copyTree(ctx context.Context, repo *repository.PlanRepository, tree *models.PlanTemplateTree, start time.Time) (*models.Plan, *time.Time, error) {
	templateID := tree.ID
	plan := &models.Plan{
		Name:                 tree.Name,
		Role:                 tree.Role,
		Description:          tree.Description,
		DurationMonths:       tree.DurationMonths,
		SourcePlanTemplateID: &templateID,
	}
	if err := repo.CreatePlan(ctx, plan); err != nil {
		return nil, nil, err
	}

	var lastEnd *time.Time
	cursor := start
	for _, st := range tree.Sprints {
		sprintTemplateID := st.ID
		end := models.AddDays(cursor, st.SpanDays(s.defaultSprintDays))
		sprint := &models.Sprint{
			PlanID:                 plan.ID,
			Name:                   st.Name,
			Position:               st.Position,
			StartDate:              cursor,
			EndDate:                end,
			Status:                 models.StatusPending,
			SourceSprintTemplateID: &sprintTemplateID,
		}
		if err := repo.CreateSprint(ctx, sprint); err != nil {
			return nil, nil, err
		}

		for _, gt := range st.Goals {
			goalTemplateID := gt.ID
			goal := &models.Goal{
				SprintID:             sprint.ID,
				Subject:              gt.Subject,
				Type:                 models.ParseGoalType(string(gt.Type)),
				Title:                gt.Title,
				Instructions:         gt.Instructions,
				Link:                 gt.Link,
				Relevance:            gt.Relevance,
				Position:             gt.Position,
				Status:               models.StatusPending,
				SourceGoalTemplateID: &goalTemplateID,
			}
			if err := repo.CreateGoal(ctx, goal); err != nil {
				return nil, nil, err
			}
		}

		lastEnd = &end
		cursor = models.AddDays(end, 1)
	}
	return plan, lastEnd, nil
}

func expectedCompletion(start time.Time, lastSprintEnd *time.Time, durationMonths *int) *time.Time {
	if lastSprintEnd != nil {
		return lastSprintEnd
	}
	if durationMonths != nil && *durationMonths > 0 {
		d := start.AddDate(0, *durationMonths, 0)
		return &d
	}
	return nil
}

// AssignPlan makes an existing plan the student's active assignment
func (s *InstantiationService) AssignPlan(ctx context.Context, studentID, planID int64, p AssignParams) (*models.StudentPlanAssignment, error) {
	const op = "assign plan"
	if studentID <= 0 {
		return nil, fieldError(op, "studentId", "is required")
	}
	if planID <= 0 {
		return nil, fieldError(op, "planId", "is required")
	}
	status, ok := models.ParseAssignmentStatus(p.Status)
	if !ok {
		return nil, fieldError(op, "status", "must be one of not-started, in-progress, completed, cancelled")
	}

	plan, err := s.planRepo.GetPlan(ctx, planID)
	if err != nil {
		return nil, transactionError(op, err)
	}
	if plan == nil {
		return nil, notFoundError(op, "plan", planID)
	}

	start := s.today()
	if p.StartDate != nil {
		start = models.DateOf(*p.StartDate)
	}

	var assignment *models.StudentPlanAssignment
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		assignmentRepo := s.assignmentRepo.WithTx(tx)

		existing, err := assignmentRepo.Get(ctx, studentID, planID)
		if err != nil {
			return err
		}
		if existing != nil {
			return validationError(op, "plan %d is already assigned to student %d", planID, studentID)
		}

		lastEnd, err := s.planRepo.WithTx(tx).LastSprintEnd(ctx, planID)
		if err != nil {
			return err
		}

		if _, err := assignmentRepo.DeactivateOthers(ctx, studentID, planID); err != nil {
			return err
		}
		assignment = &models.StudentPlanAssignment{
			StudentID:              studentID,
			PlanID:                 planID,
			StartDate:              start,
			ExpectedCompletionDate: expectedCompletion(start, lastEnd, plan.DurationMonths),
			Status:                 status,
			Active:                 true,
			Notes:                  p.Notes,
		}
		return assignmentRepo.Create(ctx, assignment)
	})
	if err != nil {
		return nil, transactionError(op, err)
	}

	s.log.Info("plan assigned", "plan_id", planID, "student_id", studentID)
	return assignment, nil
}

// GetPlan returns the full instance tree of a plan
func (s *InstantiationService) GetPlan(ctx context.Context, planID int64) (*models.PlanTree, error) {
	tree, err := s.planRepo.GetTree(ctx, planID)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, notFoundError("get plan", "plan", planID)
	}
	return tree, nil
}

// ListAssignments returns a student's assignment history, newest first
func (s *InstantiationService) ListAssignments(ctx context.Context, studentID int64) ([]models.AssignmentWithPlan, error) {
	return s.assignmentRepo.ListForStudent(ctx, studentID)
}

// ActivePlan returns the student's active assignment with its plan tree
func (s *InstantiationService) ActivePlan(ctx context.Context, studentID int64) (*models.StudentPlanAssignment, *models.PlanTree, error) {
	const op = "get active plan"
	a, err := s.assignmentRepo.GetActive(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	if a == nil {
		return nil, nil, &Error{Kind: ErrNotFound, Op: op, Message: "student has no active plan"}
	}
	tree, err := s.planRepo.GetTree(ctx, a.PlanID)
	if err != nil {
		return nil, nil, err
	}
	if tree == nil {
		return nil, nil, notFoundError(op, "plan", a.PlanID)
	}
	return a, tree, nil
}
