package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openbracket/tournament-engine/repositories"
)

// withTx runs fn inside a transaction, rolling back on error or panic and
// committing otherwise. Every multi-row structural mutation goes through it.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()
	return fn(tx)
}

// mapRepoError converts repository sentinels into service sentinels so
// handlers only ever match against the services package.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repositories.ErrStageNotFound):
		return ErrStageNotFound
	case errors.Is(err, repositories.ErrStageRuleNotFound):
		return ErrStageRuleNotFound
	case errors.Is(err, repositories.ErrStageOrderConflict):
		return ErrStageOrderConflict
	case errors.Is(err, repositories.ErrGroupNotFound):
		return ErrGroupNotFound
	case errors.Is(err, repositories.ErrGroupMemberNotFound):
		return ErrGroupMemberNotFound
	case errors.Is(err, repositories.ErrGroupMemberConflict):
		return ErrGroupMemberConflict
	case errors.Is(err, repositories.ErrGroupInvalidCapacity):
		return ErrInvalidGroupCapacity
	case errors.Is(err, repositories.ErrParticipantNotFound):
		return ErrParticipantNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrBracketSlotNotFound):
		return ErrBracketSlotNotFound
	case errors.Is(err, repositories.ErrDrawSessionNotFound):
		return ErrDrawSessionNotFound
	case errors.Is(err, repositories.ErrUserEmailConflict):
		return ErrUserEmailConflict
	default:
		return err
	}
}
