package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/openbracket/tournament-engine/models"
)

var (
	ErrMatchNotFound            = errors.New("match not found")
	ErrMatchNumberConflict      = errors.New("match number is already taken within the round")
	ErrMatchParticipantInvalid  = errors.New("match participant conflict or invalid")
	ErrMatchParticipantNotFound = errors.New("match participant not found")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	// GetByIDForUpdate locks the match row inside the caller's transaction
	// so two concurrent result entries serialize on it.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByStage(ctx context.Context, stageID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	ListByGroup(ctx context.Context, groupID int) ([]*models.Match, error)
	CountByStage(ctx context.Context, exec SQLExecutor, stageID int) (int, error)
	CountByGroup(ctx context.Context, exec SQLExecutor, groupID int) (int, error)
	UpdateResult(ctx context.Context, exec SQLExecutor, id int, score *string, status models.MatchStatus, winnerParticipantID *int, walkover bool) error
	UpdateStatus(ctx context.Context, id int, status models.MatchStatus) error
	Delete(ctx context.Context, id int) error

	AddParticipant(ctx context.Context, exec SQLExecutor, mp *models.MatchParticipant) error
	SetParticipantWinner(ctx context.Context, exec SQLExecutor, matchID, participantID int, isWinner bool) error
	// ReplaceParticipantRefs rewrites every slot row referencing fromID to
	// point at toID. Used when a virtual participant is substituted by the
	// real one it stood in for.
	ReplaceParticipantRefs(ctx context.Context, exec SQLExecutor, fromID, toID int) (int, error)
	// AttachParticipants populates the Participants field (with linked
	// participant records) for each given match.
	AttachParticipants(ctx context.Context, matches []*models.Match) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, stage_id, group_id, round, match_number,
	status, score, winner_participant_id, walkover, created_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.StageID, &m.GroupID, &m.Round, &m.MatchNumber,
		&m.Status, &m.Score, &m.WinnerParticipantID, &m.Walkover, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	if match.Status == "" {
		match.Status = models.MatchStatusScheduled
	}
	query := `
		INSERT INTO matches
			(tournament_id, stage_id, group_id, round, match_number, status, score, winner_participant_id, walkover)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`
	err := exec.QueryRowContext(ctx, query,
		match.TournamentID, match.StageID, match.GroupID, match.Round, match.MatchNumber,
		match.Status, match.Score, match.WinnerParticipantID, match.Walkover,
	).Scan(&match.ID, &match.CreatedAt)
	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	if err := r.AttachParticipants(ctx, []*models.Match{m}); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	m, err := scanMatch(exec.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	if err := r.AttachParticipants(ctx, []*models.Match{m}); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByStage(ctx context.Context, stageID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE stage_id = $1`)
	args := []interface{}{stageID}
	idx := 2
	if round != nil {
		b.WriteString(" AND round = $" + strconv.Itoa(idx))
		args = append(args, *round)
		idx++
	}
	if status != nil {
		b.WriteString(" AND status = $" + strconv.Itoa(idx))
		args = append(args, *status)
	}
	b.WriteString(" ORDER BY round ASC, match_number ASC")

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for stage %d: %w", stageID, err)
	}
	defer rows.Close()
	return collectMatches(rows)
}

func (r *postgresMatchRepository) ListByGroup(ctx context.Context, groupID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE group_id = $1 ORDER BY round ASC, match_number ASC`
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for group %d: %w", groupID, err)
	}
	defer rows.Close()
	return collectMatches(rows)
}

func (r *postgresMatchRepository) CountByStage(ctx context.Context, exec SQLExecutor, stageID int) (int, error) {
	var count int
	err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches WHERE stage_id = $1`, stageID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches for stage %d: %w", stageID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) CountByGroup(ctx context.Context, exec SQLExecutor, groupID int) (int, error) {
	var count int
	err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches WHERE group_id = $1`, groupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches for group %d: %w", groupID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, id int, score *string, status models.MatchStatus, winnerParticipantID *int, walkover bool) error {
	query := `
		UPDATE matches
		SET score = $1, status = $2, winner_participant_id = $3, walkover = $4
		WHERE id = $5`
	result, err := exec.ExecContext(ctx, query, score, status, winnerParticipantID, walkover, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, id int, status models.MatchStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE matches SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) AddParticipant(ctx context.Context, exec SQLExecutor, mp *models.MatchParticipant) error {
	query := `
		INSERT INTO match_participants (match_id, participant_id, position, is_winner)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := exec.QueryRowContext(ctx, query, mp.MatchID, mp.ParticipantID, mp.Position, mp.IsWinner).Scan(&mp.ID)
	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) SetParticipantWinner(ctx context.Context, exec SQLExecutor, matchID, participantID int, isWinner bool) error {
	query := `UPDATE match_participants SET is_winner = $1 WHERE match_id = $2 AND participant_id = $3`
	result, err := exec.ExecContext(ctx, query, isWinner, matchID, participantID)
	if err != nil {
		return fmt.Errorf("failed to update winner flag for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchParticipantNotFound)
}

func (r *postgresMatchRepository) ReplaceParticipantRefs(ctx context.Context, exec SQLExecutor, fromID, toID int) (int, error) {
	result, err := exec.ExecContext(ctx,
		`UPDATE match_participants SET participant_id = $1 WHERE participant_id = $2`, toID, fromID)
	if err != nil {
		return 0, fmt.Errorf("failed to replace participant %d refs: %w", fromID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return int(affected), nil
}

func (r *postgresMatchRepository) AttachParticipants(ctx context.Context, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	byID := make(map[int]*models.Match, len(matches))
	ids := make([]int, 0, len(matches))
	for _, m := range matches {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}

	query := `
		SELECT mp.id, mp.match_id, mp.participant_id, mp.position, mp.is_winner,
		       ` + prefixedParticipantColumns("p") + `
		FROM match_participants mp
		JOIN participants p ON p.id = mp.participant_id
		WHERE mp.match_id = ANY($1)
		ORDER BY mp.match_id ASC, mp.position ASC`
	rows, err := r.db.QueryContext(ctx, query, intArray(ids))
	if err != nil {
		return fmt.Errorf("failed to query match participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mp models.MatchParticipant
		p := &models.Participant{}
		err := rows.Scan(
			&mp.ID, &mp.MatchID, &mp.ParticipantID, &mp.Position, &mp.IsWinner,
			&p.ID, &p.TournamentID, &p.MemberID, &p.PartnerMemberID, &p.DisplayName,
			&p.GroupID, &p.Seed, &p.IsVirtual, &p.Label, &p.SourceJSON, &p.Status, &p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan match participant row: %w", err)
		}
		if err := p.ParseAdvancingSource(); err != nil {
			return err
		}
		mp.Participant = p
		if m, ok := byID[mp.MatchID]; ok {
			m.Participants = append(m.Participants, mp)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error during match participant rows iteration: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "matches_stage_round_number_key":
			return ErrMatchNumberConflict
		case "matches_tournament_id_fkey":
			return ErrTournamentNotFound
		case "matches_stage_id_fkey":
			return ErrStageNotFound
		case "match_participants_match_id_fkey":
			return ErrMatchNotFound
		case "match_participants_participant_id_fkey", "matches_winner_participant_id_fkey":
			return ErrMatchParticipantInvalid
		case "match_participants_match_position_key":
			return ErrMatchParticipantInvalid
		}
	}
	return err
}

func collectMatches(rows *sql.Rows) ([]*models.Match, error) {
	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func prefixedParticipantColumns(alias string) string {
	cols := []string{
		"id", "tournament_id", "member_id", "partner_member_id", "display_name",
		"group_id", "seed", "is_virtual", "label", "advancing_source", "status", "created_at",
	}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}
