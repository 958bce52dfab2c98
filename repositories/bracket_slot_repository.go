package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openbracket/tournament-engine/models"
)

var ErrBracketSlotNotFound = errors.New("bracket slot not found")

type BracketSlotRepository interface {
	Create(ctx context.Context, exec SQLExecutor, slot *models.BracketSlot) error
	ListByStage(ctx context.Context, stageID int, resolved *bool) ([]*models.BracketSlot, error)
	ListByStageForUpdate(ctx context.Context, exec SQLExecutor, stageID int, resolved *bool) ([]*models.BracketSlot, error)
	MarkResolved(ctx context.Context, exec SQLExecutor, id int, participantID int) error
	DeleteByStage(ctx context.Context, exec SQLExecutor, stageID int) error
}

type postgresBracketSlotRepository struct {
	db *sql.DB
}

func NewPostgresBracketSlotRepository(db *sql.DB) BracketSlotRepository {
	return &postgresBracketSlotRepository{db: db}
}

const slotColumns = `id, stage_id, target_match_id, position, source_type,
	seed, group_id, rank, source_match_id, resolved, participant_id`

func (r *postgresBracketSlotRepository) Create(ctx context.Context, exec SQLExecutor, slot *models.BracketSlot) error {
	query := `
		INSERT INTO bracket_slots
			(stage_id, target_match_id, position, source_type, seed, group_id, rank, source_match_id, resolved, participant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	err := exec.QueryRowContext(ctx, query,
		slot.StageID, slot.TargetMatchID, slot.Position, slot.SourceType,
		slot.Seed, slot.GroupID, slot.Rank, slot.SourceMatchID, slot.Resolved, slot.ParticipantID,
	).Scan(&slot.ID)
	if err != nil {
		return fmt.Errorf("failed to insert bracket slot: %w", err)
	}
	return nil
}

func (r *postgresBracketSlotRepository) ListByStage(ctx context.Context, stageID int, resolved *bool) ([]*models.BracketSlot, error) {
	return r.listByStage(ctx, r.db, stageID, resolved, false)
}

func (r *postgresBracketSlotRepository) ListByStageForUpdate(ctx context.Context, exec SQLExecutor, stageID int, resolved *bool) ([]*models.BracketSlot, error) {
	return r.listByStage(ctx, exec, stageID, resolved, true)
}

func (r *postgresBracketSlotRepository) listByStage(ctx context.Context, exec SQLExecutor, stageID int, resolved *bool, forUpdate bool) ([]*models.BracketSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM bracket_slots WHERE stage_id = $1`
	args := []interface{}{stageID}
	if resolved != nil {
		query += ` AND resolved = $2`
		args = append(args, *resolved)
	}
	query += ` ORDER BY target_match_id ASC, position ASC`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bracket slots for stage %d: %w", stageID, err)
	}
	defer rows.Close()

	slots := make([]*models.BracketSlot, 0)
	for rows.Next() {
		var s models.BracketSlot
		err := rows.Scan(
			&s.ID, &s.StageID, &s.TargetMatchID, &s.Position, &s.SourceType,
			&s.Seed, &s.GroupID, &s.Rank, &s.SourceMatchID, &s.Resolved, &s.ParticipantID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bracket slot row: %w", err)
		}
		slots = append(slots, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during bracket slot rows iteration: %w", err)
	}
	return slots, nil
}

func (r *postgresBracketSlotRepository) MarkResolved(ctx context.Context, exec SQLExecutor, id int, participantID int) error {
	query := `UPDATE bracket_slots SET resolved = TRUE, participant_id = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, participantID, id)
	if err != nil {
		return fmt.Errorf("failed to mark bracket slot %d resolved: %w", id, err)
	}
	return checkAffectedRows(result, ErrBracketSlotNotFound)
}

func (r *postgresBracketSlotRepository) DeleteByStage(ctx context.Context, exec SQLExecutor, stageID int) error {
	_, err := exec.ExecContext(ctx, `DELETE FROM bracket_slots WHERE stage_id = $1`, stageID)
	if err != nil {
		return fmt.Errorf("failed to delete bracket slots for stage %d: %w", stageID, err)
	}
	return nil
}
