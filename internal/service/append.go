package service

import (
	"context"

	"studyplans/internal/database"
	"studyplans/internal/position"
	"studyplans/internal/repository"
)

// maxAppendAttempts bounds the retries of a single-create that lost a race
// for the next position
const maxAppendAttempts = 3

// appendChild runs insert in its own transaction with the next free position of
// scope. A unique-constraint violation means a concurrent writer took the same
// position, so the whole transaction is retried with a fresh maximum.
func appendChild(ctx context.Context, db *database.DB, op string, scope position.Scope, parentID int64, insert func(tx *database.Tx, pos int) error) error {
	var err error
	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		err = db.WithTx(ctx, func(tx *database.Tx) error {
			max, err := repository.NewPositionRepository(tx).MaxPosition(ctx, scope, parentID)
			if err != nil {
				return err
			}
			return insert(tx, position.Next(max))
		})
		if err == nil || !db.Dialect.IsUniqueViolation(err) {
			return transactionError(op, err)
		}
	}
	return conflictError(op, "position is contended by concurrent writers, try again", err)
}
