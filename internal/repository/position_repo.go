package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studyplans/internal/database"
	"studyplans/internal/position"
)

// PositionRepository reads and writes child positions for any position.Scope
type PositionRepository struct {
	db database.DBTX
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db database.DBTX) *PositionRepository {
	return &PositionRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *PositionRepository) WithTx(tx *database.Tx) *PositionRepository {
	return &PositionRepository{db: tx}
}

// ParentExists reports whether the scope's parent row exists
func (r *PositionRepository) ParentExists(ctx context.Context, scope position.Scope, parentID int64) (bool, error) {
	t := scope.Table()
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", t.ParentTable)
	var one int
	err := r.db.QueryRowContext(ctx, query, parentID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s parent: %w", scope, err)
	}
	return true, nil
}

// MaxPosition returns the highest position in the scope, or 0 when it is empty
func (r *PositionRepository) MaxPosition(ctx context.Context, scope position.Scope, parentID int64) (int, error) {
	t := scope.Table()
	query := fmt.Sprintf("SELECT COALESCE(MAX(position), 0) FROM %s WHERE %s = ?", t.Name, t.ParentField)
	var max int
	if err := r.db.QueryRowContext(ctx, query, parentID).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to get max position for %s: %w", scope, err)
	}
	return max, nil
}

// ChildIDs returns the ids of the scope's children in position order
func (r *PositionRepository) ChildIDs(ctx context.Context, scope position.Scope, parentID int64) ([]int64, error) {
	t := scope.Table()
	query := fmt.Sprintf("SELECT id FROM %s WHERE %s = ? ORDER BY position", t.Name, t.ParentField)
	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s children: %w", scope, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan child id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ApplyPositions writes the assignments for a scope. Existing positions are
// first moved to negative values so no intermediate state collides with the
// unique (parent, position) constraint. Call it inside a transaction.
func (r *PositionRepository) ApplyPositions(ctx context.Context, scope position.Scope, parentID int64, assignments []position.Assignment) error {
	t := scope.Table()
	now := time.Now().UTC()

	park := fmt.Sprintf("UPDATE %s SET position = -position WHERE %s = ? AND position > 0", t.Name, t.ParentField)
	if _, err := r.db.ExecContext(ctx, park, parentID); err != nil {
		return fmt.Errorf("failed to park %s positions: %w", scope, err)
	}

	set := fmt.Sprintf("UPDATE %s SET position = ?, updated_at = ? WHERE id = ? AND %s = ?", t.Name, t.ParentField)
	for _, a := range assignments {
		result, err := r.db.ExecContext(ctx, set, a.Position, now, a.ID, parentID)
		if err != nil {
			return fmt.Errorf("failed to set position of %d: %w", a.ID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n != 1 {
			return fmt.Errorf("failed to set position of %d: row not in scope", a.ID)
		}
	}
	return nil
}
