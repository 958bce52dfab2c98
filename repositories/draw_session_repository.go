package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openbracket/tournament-engine/models"
)

var ErrDrawSessionNotFound = errors.New("draw session not found")

// DrawSessionFilter narrows List. Nil fields are ignored.
type DrawSessionFilter struct {
	TournamentID *int
	StageID      *int
	Type         *models.DrawSessionType
	Status       *models.DrawSessionStatus
}

type DrawSessionRepository interface {
	Create(ctx context.Context, session *models.DrawSession) error
	GetByPublicID(ctx context.Context, publicID string) (*models.DrawSession, error)
	// GetByPublicIDForUpdate locks the session row inside the caller's
	// transaction so apply cannot race a concurrent update or apply.
	GetByPublicIDForUpdate(ctx context.Context, exec SQLExecutor, publicID string) (*models.DrawSession, error)
	List(ctx context.Context, filter DrawSessionFilter) ([]*models.DrawSession, error)
	UpdatePayloads(ctx context.Context, id int, payload, result *string) error
	MarkApplied(ctx context.Context, exec SQLExecutor, id int, appliedAt time.Time) error
}

type postgresDrawSessionRepository struct {
	db *sql.DB
}

func NewPostgresDrawSessionRepository(db *sql.DB) DrawSessionRepository {
	return &postgresDrawSessionRepository{db: db}
}

const drawSessionColumns = `id, public_id, tournament_id, stage_id, type, status, payload, result, created_at, applied_at`

func scanDrawSession(row interface{ Scan(...interface{}) error }) (*models.DrawSession, error) {
	s := &models.DrawSession{}
	err := row.Scan(
		&s.ID, &s.PublicID, &s.TournamentID, &s.StageID, &s.Type, &s.Status,
		&s.PayloadJSON, &s.ResultJSON, &s.CreatedAt, &s.AppliedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresDrawSessionRepository) Create(ctx context.Context, session *models.DrawSession) error {
	if session.Status == "" {
		session.Status = models.DrawSessionPending
	}
	query := `
		INSERT INTO draw_sessions (public_id, tournament_id, stage_id, type, status, payload, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		session.PublicID, session.TournamentID, session.StageID, session.Type,
		session.Status, session.PayloadJSON, session.ResultJSON,
	).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert draw session: %w", err)
	}
	return nil
}

func (r *postgresDrawSessionRepository) GetByPublicID(ctx context.Context, publicID string) (*models.DrawSession, error) {
	query := `SELECT ` + drawSessionColumns + ` FROM draw_sessions WHERE public_id = $1`
	s, err := scanDrawSession(r.db.QueryRowContext(ctx, query, publicID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDrawSessionNotFound
		}
		return nil, fmt.Errorf("failed to scan draw session %s: %w", publicID, err)
	}
	return s, nil
}

func (r *postgresDrawSessionRepository) GetByPublicIDForUpdate(ctx context.Context, exec SQLExecutor, publicID string) (*models.DrawSession, error) {
	query := `SELECT ` + drawSessionColumns + ` FROM draw_sessions WHERE public_id = $1 FOR UPDATE`
	s, err := scanDrawSession(exec.QueryRowContext(ctx, query, publicID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDrawSessionNotFound
		}
		return nil, fmt.Errorf("failed to lock draw session %s: %w", publicID, err)
	}
	return s, nil
}

func (r *postgresDrawSessionRepository) List(ctx context.Context, filter DrawSessionFilter) ([]*models.DrawSession, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + drawSessionColumns + ` FROM draw_sessions WHERE 1=1`)
	args := make([]interface{}, 0, 4)
	idx := 1
	appendFilter := func(column string, value interface{}) {
		b.WriteString(" AND " + column + " = $" + strconv.Itoa(idx))
		args = append(args, value)
		idx++
	}
	if filter.TournamentID != nil {
		appendFilter("tournament_id", *filter.TournamentID)
	}
	if filter.StageID != nil {
		appendFilter("stage_id", *filter.StageID)
	}
	if filter.Type != nil {
		appendFilter("type", *filter.Type)
	}
	if filter.Status != nil {
		appendFilter("status", *filter.Status)
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query draw sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.DrawSession, 0)
	for rows.Next() {
		s, err := scanDrawSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draw session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during draw session rows iteration: %w", err)
	}
	return sessions, nil
}

func (r *postgresDrawSessionRepository) UpdatePayloads(ctx context.Context, id int, payload, result *string) error {
	query := `
		UPDATE draw_sessions
		SET payload = COALESCE($1, payload), result = COALESCE($2, result)
		WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, payload, result, id, models.DrawSessionPending)
	if err != nil {
		return fmt.Errorf("failed to update draw session %d: %w", id, err)
	}
	return checkAffectedRows(res, ErrDrawSessionNotFound)
}

func (r *postgresDrawSessionRepository) MarkApplied(ctx context.Context, exec SQLExecutor, id int, appliedAt time.Time) error {
	query := `UPDATE draw_sessions SET status = $1, applied_at = $2 WHERE id = $3 AND status = $4`
	res, err := exec.ExecContext(ctx, query, models.DrawSessionApplied, appliedAt, id, models.DrawSessionPending)
	if err != nil {
		return fmt.Errorf("failed to mark draw session %d applied: %w", id, err)
	}
	return checkAffectedRows(res, ErrDrawSessionNotFound)
}
