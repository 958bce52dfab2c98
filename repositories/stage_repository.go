package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/openbracket/tournament-engine/models"
)

var (
	ErrStageNotFound      = errors.New("stage not found")
	ErrStageRuleNotFound  = errors.New("stage rule not found")
	ErrStageOrderConflict = errors.New("stage order is already taken within the tournament")
)

type StageRepository interface {
	Create(ctx context.Context, exec SQLExecutor, stage *models.Stage) error
	GetByID(ctx context.Context, id int) (*models.Stage, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Stage, error)
	Update(ctx context.Context, stage *models.Stage) error
	Delete(ctx context.Context, id int) error

	UpsertRule(ctx context.Context, exec SQLExecutor, rule *models.StageRule) error
	GetRule(ctx context.Context, stageID int) (*models.StageRule, error)
	DeleteRule(ctx context.Context, stageID int) error
}

type postgresStageRepository struct {
	db *sql.DB
}

func NewPostgresStageRepository(db *sql.DB) StageRepository {
	return &postgresStageRepository{db: db}
}

func (r *postgresStageRepository) Create(ctx context.Context, exec SQLExecutor, stage *models.Stage) error {
	query := `
		INSERT INTO stages (tournament_id, name, type, stage_order)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := exec.QueryRowContext(ctx, query,
		stage.TournamentID, stage.Name, stage.Type, stage.StageOrder,
	).Scan(&stage.ID, &stage.CreatedAt)
	return r.handleStageError(err)
}

func (r *postgresStageRepository) GetByID(ctx context.Context, id int) (*models.Stage, error) {
	query := `SELECT id, tournament_id, name, type, stage_order, created_at FROM stages WHERE id = $1`
	stage := &models.Stage{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&stage.ID, &stage.TournamentID, &stage.Name, &stage.Type, &stage.StageOrder, &stage.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStageNotFound
		}
		return nil, fmt.Errorf("failed to scan stage %d: %w", id, err)
	}
	return stage, nil
}

func (r *postgresStageRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Stage, error) {
	query := `
		SELECT id, tournament_id, name, type, stage_order, created_at
		FROM stages
		WHERE tournament_id = $1
		ORDER BY stage_order ASC`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stages for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	stages := make([]*models.Stage, 0)
	for rows.Next() {
		var s models.Stage
		if err := rows.Scan(&s.ID, &s.TournamentID, &s.Name, &s.Type, &s.StageOrder, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stage row: %w", err)
		}
		stages = append(stages, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during stage rows iteration: %w", err)
	}
	return stages, nil
}

func (r *postgresStageRepository) Update(ctx context.Context, stage *models.Stage) error {
	query := `UPDATE stages SET name = $1, type = $2, stage_order = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, stage.Name, stage.Type, stage.StageOrder, stage.ID)
	if err != nil {
		return r.handleStageError(err)
	}
	return checkAffectedRows(result, ErrStageNotFound)
}

func (r *postgresStageRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete stage %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrStageNotFound)
}

func (r *postgresStageRepository) UpsertRule(ctx context.Context, exec SQLExecutor, rule *models.StageRule) error {
	query := `
		INSERT INTO stage_rules
			(stage_id, win_points, loss_points, bye_points,
			 count_bye_games_points, count_walkover_as_played, tie_break_order, h2h_mode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (stage_id) DO UPDATE SET
			win_points = EXCLUDED.win_points,
			loss_points = EXCLUDED.loss_points,
			bye_points = EXCLUDED.bye_points,
			count_bye_games_points = EXCLUDED.count_bye_games_points,
			count_walkover_as_played = EXCLUDED.count_walkover_as_played,
			tie_break_order = EXCLUDED.tie_break_order,
			h2h_mode = EXCLUDED.h2h_mode
		RETURNING id`
	var order interface{}
	if rule.TieBreakOrder != nil {
		order = pq.Array(ruleStrings(rule.TieBreakOrder))
	}
	err := exec.QueryRowContext(ctx, query,
		rule.StageID, rule.WinPoints, rule.LossPoints, rule.ByePoints,
		rule.CountByeGamesPoints, rule.CountWalkoverAsPlayed, order, rule.H2HMode,
	).Scan(&rule.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert rule for stage %d: %w", rule.StageID, err)
	}
	return nil
}

func (r *postgresStageRepository) GetRule(ctx context.Context, stageID int) (*models.StageRule, error) {
	query := `
		SELECT id, stage_id, win_points, loss_points, bye_points,
		       count_bye_games_points, count_walkover_as_played, tie_break_order, h2h_mode
		FROM stage_rules
		WHERE stage_id = $1`
	rule := &models.StageRule{}
	var order pq.StringArray
	err := r.db.QueryRowContext(ctx, query, stageID).Scan(
		&rule.ID, &rule.StageID, &rule.WinPoints, &rule.LossPoints, &rule.ByePoints,
		&rule.CountByeGamesPoints, &rule.CountWalkoverAsPlayed, &order, &rule.H2HMode,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStageRuleNotFound
		}
		return nil, fmt.Errorf("failed to scan rule for stage %d: %w", stageID, err)
	}
	if order != nil {
		rule.TieBreakOrder = make([]models.TieBreakRule, len(order))
		for i, s := range order {
			rule.TieBreakOrder[i] = models.TieBreakRule(s)
		}
	}
	return rule, nil
}

func (r *postgresStageRepository) DeleteRule(ctx context.Context, stageID int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stage_rules WHERE stage_id = $1`, stageID)
	if err != nil {
		return fmt.Errorf("failed to delete rule for stage %d: %w", stageID, err)
	}
	return checkAffectedRows(result, ErrStageRuleNotFound)
}

func (r *postgresStageRepository) handleStageError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "stages_tournament_order_key":
			return ErrStageOrderConflict
		case "stages_tournament_id_fkey":
			return ErrTournamentNotFound
		}
	}
	return err
}

func ruleStrings(rules []models.TieBreakRule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = string(r)
	}
	return out
}
