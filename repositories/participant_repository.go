package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openbracket/tournament-engine/models"
)

var ErrParticipantNotFound = errors.New("participant not found")

// ParticipantFilter narrows ListByTournament. Nil fields are ignored.
type ParticipantFilter struct {
	Virtual *bool
	Status  *models.ParticipantStatus
	GroupID *int
}

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, participant *models.Participant) error
	GetByID(ctx context.Context, id int) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentID int, filter ParticipantFilter) ([]*models.Participant, error)
	ListByIDs(ctx context.Context, ids []int) ([]*models.Participant, error)
	UpdateSeed(ctx context.Context, exec SQLExecutor, id int, seed *int) error
	UpdateStatus(ctx context.Context, id int, status models.ParticipantStatus) error
	UpdateGroup(ctx context.Context, exec SQLExecutor, id int, groupID *int) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	// FindDoublesByMembers returns the real doubles participant composed of
	// exactly the two given members, in either order.
	FindDoublesByMembers(ctx context.Context, exec SQLExecutor, tournamentID, memberA, memberB int) (*models.Participant, error)
	// FindBySeed returns the real participant holding the given seed number.
	FindBySeed(ctx context.Context, exec SQLExecutor, tournamentID, seed int) (*models.Participant, error)
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

const participantColumns = `id, tournament_id, member_id, partner_member_id, display_name,
	group_id, seed, is_virtual, label, advancing_source, status, created_at`

func scanParticipant(row interface{ Scan(...interface{}) error }) (*models.Participant, error) {
	p := &models.Participant{}
	err := row.Scan(
		&p.ID, &p.TournamentID, &p.MemberID, &p.PartnerMemberID, &p.DisplayName,
		&p.GroupID, &p.Seed, &p.IsVirtual, &p.Label, &p.SourceJSON, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := p.ParseAdvancingSource(); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, participant *models.Participant) error {
	if err := participant.EncodeAdvancingSource(); err != nil {
		return err
	}
	if participant.Status == "" {
		participant.Status = models.ParticipantActive
	}
	query := `
		INSERT INTO participants
			(tournament_id, member_id, partner_member_id, display_name,
			 group_id, seed, is_virtual, label, advancing_source, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`
	err := exec.QueryRowContext(ctx, query,
		participant.TournamentID, participant.MemberID, participant.PartnerMemberID,
		participant.DisplayName, participant.GroupID, participant.Seed,
		participant.IsVirtual, participant.Label, participant.SourceJSON, participant.Status,
	).Scan(&participant.ID, &participant.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`
	p, err := scanParticipant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant %d: %w", id, err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, tournamentID int, filter ParticipantFilter) ([]*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	idx := 2
	if filter.Virtual != nil {
		query += fmt.Sprintf(" AND is_virtual = $%d", idx)
		args = append(args, *filter.Virtual)
		idx++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.GroupID != nil {
		query += fmt.Sprintf(" AND group_id = $%d", idx)
		args = append(args, *filter.GroupID)
	}
	// NULLS LAST keeps unseeded participants behind the seeded ones.
	query += " ORDER BY seed ASC NULLS LAST, created_at ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()
	return collectParticipants(rows)
}

func (r *postgresParticipantRepository) ListByIDs(ctx context.Context, ids []int) ([]*models.Participant, error) {
	if len(ids) == 0 {
		return []*models.Participant{}, nil
	}
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = ANY($1) ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, intArray(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query participants by ids: %w", err)
	}
	defer rows.Close()
	return collectParticipants(rows)
}

func (r *postgresParticipantRepository) UpdateSeed(ctx context.Context, exec SQLExecutor, id int, seed *int) error {
	result, err := exec.ExecContext(ctx, `UPDATE participants SET seed = $1 WHERE id = $2`, seed, id)
	if err != nil {
		return fmt.Errorf("failed to update seed for participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) UpdateStatus(ctx context.Context, id int, status models.ParticipantStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE participants SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status for participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) UpdateGroup(ctx context.Context, exec SQLExecutor, id int, groupID *int) error {
	result, err := exec.ExecContext(ctx, `UPDATE participants SET group_id = $1 WHERE id = $2`, groupID, id)
	if err != nil {
		return fmt.Errorf("failed to update group for participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) FindDoublesByMembers(ctx context.Context, exec SQLExecutor, tournamentID, memberA, memberB int) (*models.Participant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM participants
		WHERE tournament_id = $1
		  AND is_virtual = FALSE
		  AND ((member_id = $2 AND partner_member_id = $3) OR (member_id = $3 AND partner_member_id = $2))
		LIMIT 1`
	p, err := scanParticipant(exec.QueryRowContext(ctx, query, tournamentID, memberA, memberB))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to find doubles participant: %w", err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) FindBySeed(ctx context.Context, exec SQLExecutor, tournamentID, seed int) (*models.Participant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM participants
		WHERE tournament_id = $1 AND is_virtual = FALSE AND seed = $2
		LIMIT 1`
	p, err := scanParticipant(exec.QueryRowContext(ctx, query, tournamentID, seed))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to find participant by seed %d: %w", seed, err)
	}
	return p, nil
}

func collectParticipants(rows *sql.Rows) ([]*models.Participant, error) {
	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during participant rows iteration: %w", err)
	}
	return participants, nil
}
