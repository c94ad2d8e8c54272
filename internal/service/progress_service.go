package service

import (
	"context"
	"time"

	"studyplans/internal/database"
	"studyplans/internal/logger"
	"studyplans/internal/models"
	"studyplans/internal/repository"
)

// ProgressService applies goal and sprint status changes and keeps sprint,
// assignment and current-sprint state consistent with them
type ProgressService struct {
	db             *database.DB
	planRepo       *repository.PlanRepository
	assignmentRepo *repository.AssignmentRepository
	log            *logger.Logger
	now            func() time.Time
}

// NewProgressService creates a new progress service
func NewProgressService(db *database.DB, planRepo *repository.PlanRepository, assignmentRepo *repository.AssignmentRepository, log *logger.Logger) *ProgressService {
	return &ProgressService{
		db:             db,
		planRepo:       planRepo,
		assignmentRepo: assignmentRepo,
		log:            log,
		now:            time.Now,
	}
}

// GoalProgressPatch holds the fields a student may change on a goal. Nil
// fields are left alone.
type GoalProgressPatch struct {
	Status           *string
	StudiedMinutes   *int
	Performance      *int
	QuestionsTotal   *int
	QuestionsCorrect *int
}

// GoalUpdate is the result of a goal patch: the goal and its sprint after roll-up
type GoalUpdate struct {
	Goal   models.Goal
	Sprint models.Sprint
}

// UpdateGoal patches a goal and re-evaluates its sprint in the same transaction
func (s *ProgressService) UpdateGoal(ctx context.Context, goalID int64, patch GoalProgressPatch) (*GoalUpdate, error) {
	const op = "update goal"

	var out GoalUpdate
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		planRepo := s.planRepo.WithTx(tx)

		goal, err := planRepo.GetGoal(ctx, goalID)
		if err != nil {
			return err
		}
		if goal == nil {
			return notFoundError(op, "goal", goalID)
		}

		if err := s.applyPatch(op, goal, patch); err != nil {
			return err
		}
		if err := planRepo.UpdateGoalProgress(ctx, goal); err != nil {
			return err
		}

		sprint, err := s.rollUpSprint(ctx, planRepo, goal.SprintID)
		if err != nil {
			return err
		}
		if err := s.refreshAssignments(ctx, planRepo, s.assignmentRepo.WithTx(tx), sprint.PlanID); err != nil {
			return err
		}

		out = GoalUpdate{Goal: *goal, Sprint: *sprint}
		return nil
	})
	if err != nil {
		return nil, transactionError(op, err)
	}
	return &out, nil
}

func (s *ProgressService) applyPatch(op string, goal *models.Goal, patch GoalProgressPatch) error {
	if patch.Status != nil {
		next, ok := models.ParseProgressStatus(*patch.Status)
		if !ok {
			return fieldError(op, "status", "must be one of pending, in_progress, completed")
		}
		if !goal.Status.CanAdvanceTo(next) {
			return fieldError(op, "status", "cannot move from "+string(goal.Status)+" to "+string(next))
		}
		if next == models.StatusCompleted && goal.Status != models.StatusCompleted {
			now := s.now().UTC()
			goal.CompletedAt = &now
		}
		goal.Status = next
	}

	if patch.StudiedMinutes != nil {
		goal.StudiedMinutes = *patch.StudiedMinutes
	}
	if patch.Performance != nil {
		goal.Performance = *patch.Performance
	}
	if patch.QuestionsTotal != nil {
		goal.QuestionsTotal = *patch.QuestionsTotal
	}
	if patch.QuestionsCorrect != nil {
		goal.QuestionsCorrect = *patch.QuestionsCorrect
	}

	switch {
	case goal.StudiedMinutes < 0:
		return fieldError(op, "studiedMinutes", "must not be negative")
	case goal.Performance < 0 || goal.Performance > 100:
		return fieldError(op, "performance", "must be between 0 and 100")
	case goal.QuestionsTotal < 0:
		return fieldError(op, "questionsTotal", "must not be negative")
	case goal.QuestionsCorrect < 0:
		return fieldError(op, "questionsCorrect", "must not be negative")
	case goal.QuestionsCorrect > goal.QuestionsTotal:
		return fieldError(op, "questionsCorrect", "must not exceed questionsTotal")
	}
	return nil
}

// rollUpSprint recomputes a sprint's status from its goals
func (s *ProgressService) rollUpSprint(ctx context.Context, repo *repository.PlanRepository, sprintID int64) (*models.Sprint, error) {
	sprint, err := repo.GetSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if sprint == nil {
		return nil, notFoundError("roll up sprint", "sprint", sprintID)
	}

	statuses, err := repo.GoalStatuses(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	next := models.RollUpSprintStatus(sprint.Status, statuses)
	if next == sprint.Status {
		return sprint, nil
	}
	if err := repo.UpdateSprintStatus(ctx, sprintID, next); err != nil {
		return nil, err
	}
	s.log.Info("sprint status rolled up", "sprint_id", sprintID, "from", string(sprint.Status), "to", string(next))
	sprint.Status = next
	return sprint, nil
}

// refreshAssignments recomputes progress for every assignment of the plan.
// Cancelled assignments are left alone.
func (s *ProgressService) refreshAssignments(ctx context.Context, planRepo *repository.PlanRepository, assignmentRepo *repository.AssignmentRepository, planID int64) error {
	total, completed, err := planRepo.GoalCounts(ctx, planID)
	if err != nil {
		return err
	}
	assignments, err := assignmentRepo.ListByPlan(ctx, planID)
	if err != nil {
		return err
	}

	percent := 0
	if total > 0 {
		percent = completed * 100 / total
	}

	for i := range assignments {
		a := &assignments[i]
		if a.Status == models.AssignmentCancelled {
			continue
		}
		a.ProgressPercent = percent
		switch {
		case total > 0 && completed == total:
			if a.Status != models.AssignmentCompleted {
				today := models.DateOf(s.now().UTC())
				a.CompletionDate = &today
			}
			a.Status = models.AssignmentCompleted
		case completed > 0 && a.Status == models.AssignmentNotStarted:
			a.Status = models.AssignmentInProgress
		}
		if err := assignmentRepo.UpdateProgress(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// UpdateSprintStatus moves a sprint forward manually
func (s *ProgressService) UpdateSprintStatus(ctx context.Context, sprintID int64, status string) (*models.Sprint, error) {
	const op = "update sprint"
	next, ok := models.ParseProgressStatus(status)
	if !ok {
		return nil, fieldError(op, "status", "must be one of pending, in_progress, completed")
	}

	var sprint *models.Sprint
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		repo := s.planRepo.WithTx(tx)
		current, err := repo.GetSprint(ctx, sprintID)
		if err != nil {
			return err
		}
		if current == nil {
			return notFoundError(op, "sprint", sprintID)
		}
		if !current.Status.CanAdvanceTo(next) {
			return fieldError(op, "status", "cannot move from "+string(current.Status)+" to "+string(next))
		}
		if next != current.Status {
			if err := repo.UpdateSprintStatus(ctx, sprintID, next); err != nil {
				return err
			}
			current.Status = next
		}
		sprint = current
		return nil
	})
	if err != nil {
		return nil, transactionError(op, err)
	}
	return sprint, nil
}

// CurrentSprintView is a current-sprint pointer with the sprint it points at
type CurrentSprintView struct {
	Pointer models.CurrentSprint
	Sprint  models.Sprint
}

// CurrentSprint returns the student's current sprint. The pointer is created
// on first read, and re-pointed when it no longer belongs to the active plan,
// using the lowest-position sprint of the active plan.
func (s *ProgressService) CurrentSprint(ctx context.Context, studentID int64) (*CurrentSprintView, error) {
	const op = "get current sprint"

	active, err := s.assignmentRepo.GetActive(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, &Error{Kind: ErrNotFound, Op: op, Message: "student has no active plan"}
	}

	pointer, err := s.assignmentRepo.GetCurrentSprint(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if pointer != nil {
		sprint, err := s.planRepo.GetSprint(ctx, pointer.SprintID)
		if err != nil {
			return nil, err
		}
		if sprint != nil && sprint.PlanID == active.PlanID {
			return &CurrentSprintView{Pointer: *pointer, Sprint: *sprint}, nil
		}
	}

	first, err := s.planRepo.FirstSprint(ctx, active.PlanID)
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, &Error{Kind: ErrNotFound, Op: op, Message: "active plan has no sprints"}
	}

	var created *models.CurrentSprint
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		cs, err := s.assignmentRepo.WithTx(tx).SetCurrentSprint(ctx, studentID, first.ID)
		created = cs
		return err
	})
	if err != nil && s.db.Dialect.IsUniqueViolation(err) {
		// A concurrent first read created the pointer
		created, err = s.assignmentRepo.GetCurrentSprint(ctx, studentID)
	}
	if err != nil {
		return nil, transactionError(op, err)
	}
	if created == nil {
		return nil, &Error{Kind: ErrNotFound, Op: op, Message: "current sprint not found"}
	}
	return &CurrentSprintView{Pointer: *created, Sprint: *first}, nil
}

// SetCurrentSprint moves the student's pointer to another sprint of the active plan
func (s *ProgressService) SetCurrentSprint(ctx context.Context, studentID, sprintID int64) (*CurrentSprintView, error) {
	const op = "set current sprint"
	if sprintID <= 0 {
		return nil, fieldError(op, "sprintId", "is required")
	}

	var view *CurrentSprintView
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		assignmentRepo := s.assignmentRepo.WithTx(tx)

		sprint, err := s.planRepo.WithTx(tx).GetSprint(ctx, sprintID)
		if err != nil {
			return err
		}
		if sprint == nil {
			return notFoundError(op, "sprint", sprintID)
		}
		active, err := assignmentRepo.GetActive(ctx, studentID)
		if err != nil {
			return err
		}
		if active == nil {
			return &Error{Kind: ErrNotFound, Op: op, Message: "student has no active plan"}
		}
		if sprint.PlanID != active.PlanID {
			return fieldError(op, "sprintId", "sprint does not belong to the student's active plan")
		}

		pointer, err := assignmentRepo.SetCurrentSprint(ctx, studentID, sprintID)
		if err != nil {
			return err
		}
		view = &CurrentSprintView{Pointer: *pointer, Sprint: *sprint}
		return nil
	})
	if err != nil {
		return nil, transactionError(op, err)
	}
	return view, nil
}
