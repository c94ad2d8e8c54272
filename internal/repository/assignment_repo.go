package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studyplans/internal/database"
	"studyplans/internal/models"
)

// AssignmentRepository handles student-plan assignments and current-sprint pointers
type AssignmentRepository struct {
	db database.DBTX
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db database.DBTX) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *AssignmentRepository) WithTx(tx *database.Tx) *AssignmentRepository {
	return &AssignmentRepository{db: tx}
}

const assignmentColumns = `sp.student_id, sp.plan_id, sp.start_date, sp.expected_completion_date, sp.completion_date,
	sp.progress_percent, sp.status, sp.active, sp.notes, sp.created_at`

func scanAssignment(s scanner, extra ...interface{}) (*models.StudentPlanAssignment, error) {
	var (
		a                    models.StudentPlanAssignment
		expected, completion sql.NullTime
		status               string
	)
	dest := []interface{}{
		&a.StudentID,
		&a.PlanID,
		&a.StartDate,
		&expected,
		&completion,
		&a.ProgressPercent,
		&status,
		&a.Active,
		&a.Notes,
		&a.CreatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	a.StartDate = models.DateOf(a.StartDate)
	a.ExpectedCompletionDate = timePtr(expected)
	a.CompletionDate = timePtr(completion)
	a.Status = models.AssignmentStatus(status)
	return &a, nil
}

// Create inserts a new assignment row
func (r *AssignmentRepository) Create(ctx context.Context, a *models.StudentPlanAssignment) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO student_plans (student_id, plan_id, start_date, expected_completion_date, completion_date,
			progress_percent, status, active, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query,
		a.StudentID, a.PlanID, models.DateOf(a.StartDate), nullTime(a.ExpectedCompletionDate), nullTime(a.CompletionDate),
		a.ProgressPercent, string(a.Status), a.Active, a.Notes, now); err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	a.CreatedAt = now
	return nil
}

// Get retrieves the assignment of a plan to a student
func (r *AssignmentRepository) Get(ctx context.Context, studentID, planID int64) (*models.StudentPlanAssignment, error) {
	query := "SELECT " + assignmentColumns + " FROM student_plans sp WHERE sp.student_id = ? AND sp.plan_id = ?"
	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, studentID, planID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// GetActive returns the student's active assignment, or nil if there is none
func (r *AssignmentRepository) GetActive(ctx context.Context, studentID int64) (*models.StudentPlanAssignment, error) {
	query := "SELECT " + assignmentColumns + `
		FROM student_plans sp
		WHERE sp.student_id = ? AND sp.active = ?
		ORDER BY sp.created_at DESC
		LIMIT 1
	`
	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, studentID, true))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active assignment: %w", err)
	}
	return a, nil
}

// ListForStudent returns every assignment of a student with its plan header,
// newest first
func (r *AssignmentRepository) ListForStudent(ctx context.Context, studentID int64) ([]models.AssignmentWithPlan, error) {
	query := "SELECT " + assignmentColumns + `, p.name, p.role, p.description, p.source_plan_template_id
		FROM student_plans sp
		JOIN plans p ON p.id = sp.plan_id
		WHERE sp.student_id = ?
		ORDER BY sp.created_at DESC, sp.plan_id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var out []models.AssignmentWithPlan
	for rows.Next() {
		var (
			p      models.Plan
			source sql.NullInt64
		)
		a, err := scanAssignment(rows, &p.Name, &p.Role, &p.Description, &source)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		p.ID = a.PlanID
		p.SourcePlanTemplateID = int64Ptr(source)
		out = append(out, models.AssignmentWithPlan{StudentPlanAssignment: *a, Plan: p})
	}
	return out, rows.Err()
}

// ListByPlan returns every assignment that points at a plan
func (r *AssignmentRepository) ListByPlan(ctx context.Context, planID int64) ([]models.StudentPlanAssignment, error) {
	query := "SELECT " + assignmentColumns + " FROM student_plans sp WHERE sp.plan_id = ?"
	rows, err := r.db.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan assignments: %w", err)
	}
	defer rows.Close()

	var out []models.StudentPlanAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// DeactivateOthers clears the active flag on every assignment of the student
// except the one for keepPlanID
func (r *AssignmentRepository) DeactivateOthers(ctx context.Context, studentID, keepPlanID int64) (int64, error) {
	query := "UPDATE student_plans SET active = ? WHERE student_id = ? AND plan_id <> ? AND active = ?"
	result, err := r.db.ExecContext(ctx, query, false, studentID, keepPlanID, true)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate assignments: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

// UpdateProgress saves the progress fields of an assignment
func (r *AssignmentRepository) UpdateProgress(ctx context.Context, a *models.StudentPlanAssignment) error {
	query := `
		UPDATE student_plans
		SET progress_percent = ?, status = ?, completion_date = ?
		WHERE student_id = ? AND plan_id = ?
	`
	if _, err := r.db.ExecContext(ctx, query,
		a.ProgressPercent, string(a.Status), nullTime(a.CompletionDate), a.StudentID, a.PlanID); err != nil {
		return fmt.Errorf("failed to update assignment progress: %w", err)
	}
	return nil
}

// GetCurrentSprint returns the student's current-sprint pointer, or nil
func (r *AssignmentRepository) GetCurrentSprint(ctx context.Context, studentID int64) (*models.CurrentSprint, error) {
	query := "SELECT student_id, sprint_id, updated_at FROM current_sprints WHERE student_id = ?"
	var cs models.CurrentSprint
	err := r.db.QueryRowContext(ctx, query, studentID).Scan(&cs.StudentID, &cs.SprintID, &cs.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current sprint: %w", err)
	}
	return &cs, nil
}

// SetCurrentSprint points the student at sprintID, replacing any previous pointer
func (r *AssignmentRepository) SetCurrentSprint(ctx context.Context, studentID, sprintID int64) (*models.CurrentSprint, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		"UPDATE current_sprints SET sprint_id = ?, updated_at = ? WHERE student_id = ?",
		sprintID, now, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to update current sprint: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		if _, err := r.db.ExecContext(ctx,
			"INSERT INTO current_sprints (student_id, sprint_id, updated_at) VALUES (?, ?, ?)",
			studentID, sprintID, now); err != nil {
			return nil, fmt.Errorf("failed to create current sprint: %w", err)
		}
	}
	return &models.CurrentSprint{StudentID: studentID, SprintID: sprintID, UpdatedAt: now}, nil
}
