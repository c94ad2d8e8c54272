package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studyplans/internal/database"
	"studyplans/internal/models"
)

// PlanRepository handles the instance hierarchy: plans, sprints and goals
type PlanRepository struct {
	db database.DBTX
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db database.DBTX) *PlanRepository {
	return &PlanRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *PlanRepository) WithTx(tx *database.Tx) *PlanRepository {
	return &PlanRepository{db: tx}
}

// CreatePlan inserts p and fills in its ID
func (r *PlanRepository) CreatePlan(ctx context.Context, p *models.Plan) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO plans (name, role, description, duration_months, source_plan_template_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		p.Name, p.Role, p.Description, nullInt(p.DurationMonths), nullInt64(p.SourcePlanTemplateID), now)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	p.ID = id
	p.CreatedAt = now
	return nil
}

// GetPlan retrieves a plan by ID
func (r *PlanRepository) GetPlan(ctx context.Context, id int64) (*models.Plan, error) {
	query := `
		SELECT id, name, role, description, duration_months, source_plan_template_id, created_at
		FROM plans
		WHERE id = ?
	`
	var (
		p        models.Plan
		duration sql.NullInt64
		source   sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Role,
		&p.Description,
		&duration,
		&source,
		&p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	p.DurationMonths = intPtr(duration)
	p.SourcePlanTemplateID = int64Ptr(source)
	return &p, nil
}

const sprintColumns = "s.id, s.plan_id, s.name, s.position, s.start_date, s.end_date, s.status, s.source_sprint_template_id, s.created_at, s.updated_at"

func scanSprint(sc scanner) (*models.Sprint, error) {
	var (
		s      models.Sprint
		status string
		source sql.NullInt64
	)
	if err := sc.Scan(
		&s.ID,
		&s.PlanID,
		&s.Name,
		&s.Position,
		&s.StartDate,
		&s.EndDate,
		&status,
		&source,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.StartDate = models.DateOf(s.StartDate)
	s.EndDate = models.DateOf(s.EndDate)
	s.Status = models.ProgressStatus(status)
	s.SourceSprintTemplateID = int64Ptr(source)
	return &s, nil
}

// CreateSprint inserts s at s.Position
func (r *PlanRepository) CreateSprint(ctx context.Context, s *models.Sprint) error {
	now := time.Now().UTC()
	if s.Status == "" {
		s.Status = models.StatusPending
	}
	query := `
		INSERT INTO sprints (plan_id, name, position, start_date, end_date, status, source_sprint_template_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		s.PlanID, s.Name, s.Position, models.DateOf(s.StartDate), models.DateOf(s.EndDate), string(s.Status),
		nullInt64(s.SourceSprintTemplateID), now, now)
	if err != nil {
		return fmt.Errorf("failed to create sprint: %w", err)
	}
	s.ID = id
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

// GetSprint retrieves a sprint by ID
func (r *PlanRepository) GetSprint(ctx context.Context, id int64) (*models.Sprint, error) {
	query := "SELECT " + sprintColumns + " FROM sprints s WHERE s.id = ?"
	s, err := scanSprint(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sprint: %w", err)
	}
	return s, nil
}

// ListSprints returns the sprints of a plan in position order
func (r *PlanRepository) ListSprints(ctx context.Context, planID int64) ([]models.Sprint, error) {
	query := "SELECT " + sprintColumns + " FROM sprints s WHERE s.plan_id = ? ORDER BY s.position"
	rows, err := r.db.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sprints: %w", err)
	}
	defer rows.Close()

	var out []models.Sprint
	for rows.Next() {
		s, err := scanSprint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sprint: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// FirstSprint returns the lowest-position sprint of a plan, or nil if it has none
func (r *PlanRepository) FirstSprint(ctx context.Context, planID int64) (*models.Sprint, error) {
	query := "SELECT " + sprintColumns + " FROM sprints s WHERE s.plan_id = ? ORDER BY s.position LIMIT 1"
	s, err := scanSprint(r.db.QueryRowContext(ctx, query, planID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get first sprint: %w", err)
	}
	return s, nil
}

// LastSprintEnd returns the latest end date among a plan's sprints
func (r *PlanRepository) LastSprintEnd(ctx context.Context, planID int64) (*time.Time, error) {
	query := "SELECT s.end_date FROM sprints s WHERE s.plan_id = ? ORDER BY s.end_date DESC LIMIT 1"
	var end time.Time
	err := r.db.QueryRowContext(ctx, query, planID).Scan(&end)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last sprint end: %w", err)
	}
	end = models.DateOf(end)
	return &end, nil
}

// UpdateSprintStatus sets a sprint's status
func (r *PlanRepository) UpdateSprintStatus(ctx context.Context, id int64, status models.ProgressStatus) error {
	query := "UPDATE sprints SET status = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, string(status), time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to update sprint status: %w", err)
	}
	return nil
}

const goalColumns = `g.id, g.sprint_id, g.subject, g.type, g.title, g.instructions, g.link, g.relevance, g.position,
	g.status, g.studied_minutes, g.performance, g.questions_total, g.questions_correct, g.completed_at,
	g.source_goal_template_id, g.created_at, g.updated_at`

func scanGoal(s scanner) (*models.Goal, error) {
	var (
		g           models.Goal
		goalType    string
		status      string
		completedAt sql.NullTime
		source      sql.NullInt64
	)
	if err := s.Scan(
		&g.ID,
		&g.SprintID,
		&g.Subject,
		&goalType,
		&g.Title,
		&g.Instructions,
		&g.Link,
		&g.Relevance,
		&g.Position,
		&status,
		&g.StudiedMinutes,
		&g.Performance,
		&g.QuestionsTotal,
		&g.QuestionsCorrect,
		&completedAt,
		&source,
		&g.CreatedAt,
		&g.UpdatedAt,
	); err != nil {
		return nil, err
	}
	g.Type = models.ParseGoalType(goalType)
	g.Status = models.ProgressStatus(status)
	g.CompletedAt = timePtr(completedAt)
	g.SourceGoalTemplateID = int64Ptr(source)
	return &g, nil
}

// CreateGoal inserts g at g.Position
func (r *PlanRepository) CreateGoal(ctx context.Context, g *models.Goal) error {
	now := time.Now().UTC()
	if g.Status == "" {
		g.Status = models.StatusPending
	}
	query := `
		INSERT INTO goals (sprint_id, subject, type, title, instructions, link, relevance, position, status,
			studied_minutes, performance, questions_total, questions_correct, completed_at, source_goal_template_id,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		g.SprintID, g.Subject, string(g.Type), g.Title, g.Instructions, g.Link, g.Relevance, g.Position, string(g.Status),
		g.StudiedMinutes, g.Performance, g.QuestionsTotal, g.QuestionsCorrect, nullTime(g.CompletedAt),
		nullInt64(g.SourceGoalTemplateID), now, now)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	g.ID = id
	g.CreatedAt = now
	g.UpdatedAt = now
	return nil
}

// GetGoal retrieves a goal by ID
func (r *PlanRepository) GetGoal(ctx context.Context, id int64) (*models.Goal, error) {
	query := "SELECT " + goalColumns + " FROM goals g WHERE g.id = ?"
	g, err := scanGoal(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return g, nil
}

// ListGoals returns the goals of a sprint in position order
func (r *PlanRepository) ListGoals(ctx context.Context, sprintID int64) ([]models.Goal, error) {
	query := "SELECT " + goalColumns + " FROM goals g WHERE g.sprint_id = ? ORDER BY g.position"
	return r.queryGoals(ctx, query, sprintID)
}

func (r *PlanRepository) queryGoals(ctx context.Context, query string, args ...interface{}) ([]models.Goal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var out []models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// UpdateGoalProgress saves the status and metric fields of g
func (r *PlanRepository) UpdateGoalProgress(ctx context.Context, g *models.Goal) error {
	now := time.Now().UTC()
	query := `
		UPDATE goals
		SET status = ?, studied_minutes = ?, performance = ?, questions_total = ?, questions_correct = ?,
			completed_at = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query,
		string(g.Status), g.StudiedMinutes, g.Performance, g.QuestionsTotal, g.QuestionsCorrect,
		nullTime(g.CompletedAt), now, g.ID); err != nil {
		return fmt.Errorf("failed to update goal progress: %w", err)
	}
	g.UpdatedAt = now
	return nil
}

// GoalStatuses returns the status of every goal in a sprint
func (r *PlanRepository) GoalStatuses(ctx context.Context, sprintID int64) ([]models.ProgressStatus, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status FROM goals WHERE sprint_id = ?", sprintID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goal statuses: %w", err)
	}
	defer rows.Close()

	var out []models.ProgressStatus
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan goal status: %w", err)
		}
		out = append(out, models.ProgressStatus(s))
	}
	return out, rows.Err()
}

// GoalCounts returns the number of goals in a plan and how many are completed
func (r *PlanRepository) GoalCounts(ctx context.Context, planID int64) (total, completed int, err error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN g.status = ? THEN 1 ELSE 0 END), 0)
		FROM goals g
		JOIN sprints s ON s.id = g.sprint_id
		WHERE s.plan_id = ?
	`
	if err := r.db.QueryRowContext(ctx, query, string(models.StatusCompleted), planID).Scan(&total, &completed); err != nil {
		return 0, 0, fmt.Errorf("failed to count goals: %w", err)
	}
	return total, completed, nil
}

// GetTree loads a plan with its sprints and goals in position order. Returns
// nil when the plan does not exist.
func (r *PlanRepository) GetTree(ctx context.Context, planID int64) (*models.PlanTree, error) {
	p, err := r.GetPlan(ctx, planID)
	if err != nil || p == nil {
		return nil, err
	}

	sprints, err := r.ListSprints(ctx, planID)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + goalColumns + `
		FROM goals g
		JOIN sprints s ON s.id = g.sprint_id
		WHERE s.plan_id = ?
		ORDER BY s.position, g.position
	`
	goals, err := r.queryGoals(ctx, query, planID)
	if err != nil {
		return nil, err
	}

	bySprint := make(map[int64][]models.Goal, len(sprints))
	for _, g := range goals {
		bySprint[g.SprintID] = append(bySprint[g.SprintID], g)
	}

	tree := &models.PlanTree{Plan: *p}
	for _, s := range sprints {
		tree.Sprints = append(tree.Sprints, models.SprintWithGoals{Sprint: s, Goals: bySprint[s.ID]})
	}
	return tree, nil
}
