package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studyplans/internal/database"
	"studyplans/internal/models"
)

// TemplateRepository handles the master hierarchy: plan, sprint and goal templates
type TemplateRepository struct {
	db database.DBTX
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db database.DBTX) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *TemplateRepository) WithTx(tx *database.Tx) *TemplateRepository {
	return &TemplateRepository{db: tx}
}

const planTemplateColumns = "id, name, role, description, duration_months, version, active, created_at, updated_at"

func scanPlanTemplate(s scanner) (*models.PlanTemplate, error) {
	var (
		pt       models.PlanTemplate
		duration sql.NullInt64
	)
	if err := s.Scan(
		&pt.ID,
		&pt.Name,
		&pt.Role,
		&pt.Description,
		&duration,
		&pt.Version,
		&pt.Active,
		&pt.CreatedAt,
		&pt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	pt.DurationMonths = intPtr(duration)
	return &pt, nil
}

// CreatePlanTemplate inserts pt and fills in its ID and timestamps
func (r *TemplateRepository) CreatePlanTemplate(ctx context.Context, pt *models.PlanTemplate) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO plan_templates (name, role, description, duration_months, version, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		pt.Name, pt.Role, pt.Description, nullInt(pt.DurationMonths), pt.Version, pt.Active, now, now)
	if err != nil {
		return fmt.Errorf("failed to create plan template: %w", err)
	}
	pt.ID = id
	pt.CreatedAt = now
	pt.UpdatedAt = now
	return nil
}

// GetPlanTemplate retrieves a plan template by ID
func (r *TemplateRepository) GetPlanTemplate(ctx context.Context, id int64) (*models.PlanTemplate, error) {
	query := "SELECT " + planTemplateColumns + " FROM plan_templates WHERE id = ?"
	pt, err := scanPlanTemplate(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan template: %w", err)
	}
	return pt, nil
}

// ListPlanTemplates returns plan templates ordered by name
func (r *TemplateRepository) ListPlanTemplates(ctx context.Context, includeInactive bool) ([]models.PlanTemplate, error) {
	query := "SELECT " + planTemplateColumns + " FROM plan_templates"
	var args []interface{}
	if !includeInactive {
		query += " WHERE active = ?"
		args = append(args, true)
	}
	query += " ORDER BY name, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan templates: %w", err)
	}
	defer rows.Close()

	var out []models.PlanTemplate
	for rows.Next() {
		pt, err := scanPlanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan template: %w", err)
		}
		out = append(out, *pt)
	}
	return out, rows.Err()
}

// UpdatePlanTemplate saves the editable fields of pt
func (r *TemplateRepository) UpdatePlanTemplate(ctx context.Context, pt *models.PlanTemplate) error {
	now := time.Now().UTC()
	query := `
		UPDATE plan_templates
		SET name = ?, role = ?, description = ?, duration_months = ?, version = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query,
		pt.Name, pt.Role, pt.Description, nullInt(pt.DurationMonths), pt.Version, now, pt.ID); err != nil {
		return fmt.Errorf("failed to update plan template: %w", err)
	}
	pt.UpdatedAt = now
	return nil
}

// SetPlanTemplateActive flips the active flag; templates are never hard-deleted
func (r *TemplateRepository) SetPlanTemplateActive(ctx context.Context, id int64, active bool) error {
	query := "UPDATE plan_templates SET active = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to update plan template status: %w", err)
	}
	return nil
}

const sprintTemplateColumns = "id, plan_template_id, name, position, start_date, end_date, duration_days, description, created_at, updated_at"

func scanSprintTemplate(s scanner) (*models.SprintTemplate, error) {
	var (
		st         models.SprintTemplate
		start, end sql.NullTime
		duration   sql.NullInt64
	)
	if err := s.Scan(
		&st.ID,
		&st.PlanTemplateID,
		&st.Name,
		&st.Position,
		&start,
		&end,
		&duration,
		&st.Description,
		&st.CreatedAt,
		&st.UpdatedAt,
	); err != nil {
		return nil, err
	}
	st.StartDate = timePtr(start)
	st.EndDate = timePtr(end)
	st.DurationDays = intPtr(duration)
	return &st, nil
}

// CreateSprintTemplate inserts st at st.Position
func (r *TemplateRepository) CreateSprintTemplate(ctx context.Context, st *models.SprintTemplate) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO sprint_templates (plan_template_id, name, position, start_date, end_date, duration_days, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		st.PlanTemplateID, st.Name, st.Position, nullTime(st.StartDate), nullTime(st.EndDate),
		nullInt(st.DurationDays), st.Description, now, now)
	if err != nil {
		return fmt.Errorf("failed to create sprint template: %w", err)
	}
	st.ID = id
	st.CreatedAt = now
	st.UpdatedAt = now
	return nil
}

// GetSprintTemplate retrieves a sprint template by ID
func (r *TemplateRepository) GetSprintTemplate(ctx context.Context, id int64) (*models.SprintTemplate, error) {
	query := "SELECT " + sprintTemplateColumns + " FROM sprint_templates WHERE id = ?"
	st, err := scanSprintTemplate(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sprint template: %w", err)
	}
	return st, nil
}

// ListSprintTemplates returns the sprint templates of a plan template in position order
func (r *TemplateRepository) ListSprintTemplates(ctx context.Context, planTemplateID int64) ([]models.SprintTemplate, error) {
	query := "SELECT " + sprintTemplateColumns + " FROM sprint_templates WHERE plan_template_id = ? ORDER BY position"
	rows, err := r.db.QueryContext(ctx, query, planTemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sprint templates: %w", err)
	}
	defer rows.Close()

	var out []models.SprintTemplate
	for rows.Next() {
		st, err := scanSprintTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sprint template: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

// UpdateSprintTemplate saves everything but the position and parent
func (r *TemplateRepository) UpdateSprintTemplate(ctx context.Context, st *models.SprintTemplate) error {
	now := time.Now().UTC()
	query := `
		UPDATE sprint_templates
		SET name = ?, start_date = ?, end_date = ?, duration_days = ?, description = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query,
		st.Name, nullTime(st.StartDate), nullTime(st.EndDate), nullInt(st.DurationDays), st.Description, now, st.ID); err != nil {
		return fmt.Errorf("failed to update sprint template: %w", err)
	}
	st.UpdatedAt = now
	return nil
}

const goalTemplateColumns = `g.id, g.sprint_template_id, g.subject, g.type, g.title, g.instructions, g.link, g.relevance,
	g.position, g.expected_minutes, g.expected_performance, g.expected_questions_total, g.expected_questions_correct,
	g.created_at, g.updated_at`

func scanGoalTemplate(s scanner) (*models.GoalTemplate, error) {
	var (
		gt       models.GoalTemplate
		goalType string
	)
	if err := s.Scan(
		&gt.ID,
		&gt.SprintTemplateID,
		&gt.Subject,
		&goalType,
		&gt.Title,
		&gt.Instructions,
		&gt.Link,
		&gt.Relevance,
		&gt.Position,
		&gt.ExpectedMinutes,
		&gt.ExpectedPerformance,
		&gt.ExpectedQuestionsTotal,
		&gt.ExpectedQuestionsCorrect,
		&gt.CreatedAt,
		&gt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	gt.Type = models.ParseGoalType(goalType)
	return &gt, nil
}

// CreateGoalTemplate inserts gt at gt.Position
func (r *TemplateRepository) CreateGoalTemplate(ctx context.Context, gt *models.GoalTemplate) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO goal_templates (sprint_template_id, subject, type, title, instructions, link, relevance, position,
			expected_minutes, expected_performance, expected_questions_total, expected_questions_correct, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		gt.SprintTemplateID, gt.Subject, string(gt.Type), gt.Title, gt.Instructions, gt.Link, gt.Relevance, gt.Position,
		gt.ExpectedMinutes, gt.ExpectedPerformance, gt.ExpectedQuestionsTotal, gt.ExpectedQuestionsCorrect, now, now)
	if err != nil {
		return fmt.Errorf("failed to create goal template: %w", err)
	}
	gt.ID = id
	gt.CreatedAt = now
	gt.UpdatedAt = now
	return nil
}

// GetGoalTemplate retrieves a goal template by ID
func (r *TemplateRepository) GetGoalTemplate(ctx context.Context, id int64) (*models.GoalTemplate, error) {
	query := "SELECT " + goalTemplateColumns + " FROM goal_templates g WHERE g.id = ?"
	gt, err := scanGoalTemplate(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal template: %w", err)
	}
	return gt, nil
}

// ListGoalTemplates returns the goals of a sprint template in position order
func (r *TemplateRepository) ListGoalTemplates(ctx context.Context, sprintTemplateID int64) ([]models.GoalTemplate, error) {
	query := "SELECT " + goalTemplateColumns + " FROM goal_templates g WHERE g.sprint_template_id = ? ORDER BY g.position"
	return r.queryGoalTemplates(ctx, query, sprintTemplateID)
}

func (r *TemplateRepository) queryGoalTemplates(ctx context.Context, query string, args ...interface{}) ([]models.GoalTemplate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query goal templates: %w", err)
	}
	defer rows.Close()

	var out []models.GoalTemplate
	for rows.Next() {
		gt, err := scanGoalTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal template: %w", err)
		}
		out = append(out, *gt)
	}
	return out, rows.Err()
}

// UpdateGoalTemplate saves everything but the position and parent
func (r *TemplateRepository) UpdateGoalTemplate(ctx context.Context, gt *models.GoalTemplate) error {
	now := time.Now().UTC()
	query := `
		UPDATE goal_templates
		SET subject = ?, type = ?, title = ?, instructions = ?, link = ?, relevance = ?,
			expected_minutes = ?, expected_performance = ?, expected_questions_total = ?, expected_questions_correct = ?,
			updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query,
		gt.Subject, string(gt.Type), gt.Title, gt.Instructions, gt.Link, gt.Relevance,
		gt.ExpectedMinutes, gt.ExpectedPerformance, gt.ExpectedQuestionsTotal, gt.ExpectedQuestionsCorrect,
		now, gt.ID); err != nil {
		return fmt.Errorf("failed to update goal template: %w", err)
	}
	gt.UpdatedAt = now
	return nil
}

// GetTree loads a plan template with its sprint and goal templates, all in
// position order. Returns nil when the template does not exist.
func (r *TemplateRepository) GetTree(ctx context.Context, planTemplateID int64) (*models.PlanTemplateTree, error) {
	pt, err := r.GetPlanTemplate(ctx, planTemplateID)
	if err != nil || pt == nil {
		return nil, err
	}

	sprints, err := r.ListSprintTemplates(ctx, planTemplateID)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + goalTemplateColumns + `
		FROM goal_templates g
		JOIN sprint_templates s ON s.id = g.sprint_template_id
		WHERE s.plan_template_id = ?
		ORDER BY s.position, g.position
	`
	goals, err := r.queryGoalTemplates(ctx, query, planTemplateID)
	if err != nil {
		return nil, err
	}

	bySprint := make(map[int64][]models.GoalTemplate, len(sprints))
	for _, g := range goals {
		bySprint[g.SprintTemplateID] = append(bySprint[g.SprintTemplateID], g)
	}

	tree := &models.PlanTemplateTree{PlanTemplate: *pt}
	for _, s := range sprints {
		tree.Sprints = append(tree.Sprints, models.SprintTemplateWithGoals{
			SprintTemplate: s,
			Goals:          bySprint[s.ID],
		})
	}
	return tree, nil
}
