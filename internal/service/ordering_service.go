package service

import (
	"context"
	"errors"

	"studyplans/internal/database"
	"studyplans/internal/logger"
	"studyplans/internal/position"
	"studyplans/internal/repository"
)

// OrderingService applies explicit reorders to any positioned scope
type OrderingService struct {
	db  *database.DB
	log *logger.Logger
}

// NewOrderingService creates a new ordering service
func NewOrderingService(db *database.DB, log *logger.Logger) *OrderingService {
	return &OrderingService{db: db, log: log}
}

// Reorder renumbers the children of parentID so that ordered[i] gets position
// i+1. ordered must list every current child exactly once; otherwise nothing
// changes and a validation error is returned.
func (s *OrderingService) Reorder(ctx context.Context, scope position.Scope, parentID int64, ordered []int64) ([]position.Assignment, error) {
	const op = "reorder"
	if parentID <= 0 {
		return nil, fieldError(op, "scopeId", "is required")
	}

	var assignments []position.Assignment
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		repo := repository.NewPositionRepository(tx)

		exists, err := repo.ParentExists(ctx, scope, parentID)
		if err != nil {
			return err
		}
		if !exists {
			return notFoundError(op, string(scope), parentID)
		}

		current, err := repo.ChildIDs(ctx, scope, parentID)
		if err != nil {
			return err
		}

		assignments, err = position.Reorder(current, ordered)
		if errors.Is(err, position.ErrInvalidOrder) {
			return &Error{Kind: ErrValidation, Op: op, Message: err.Error(), Fields: map[string]string{"orderedChildIds": err.Error()}, Err: err}
		}
		if err != nil {
			return err
		}
		return repo.ApplyPositions(ctx, scope, parentID, assignments)
	})
	if err != nil {
		return nil, transactionError(op, err)
	}

	s.log.Info("reorder applied", "scope", string(scope), "scope_id", parentID, "children", len(assignments))
	return assignments, nil
}
