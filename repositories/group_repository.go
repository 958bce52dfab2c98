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
	ErrGroupNotFound        = errors.New("group not found")
	ErrGroupMemberNotFound  = errors.New("group member not found")
	ErrGroupMemberConflict  = errors.New("participant is already a member of the group")
	ErrGroupInvalidCapacity = errors.New("group advancement count must be below capacity")
)

type GroupRepository interface {
	Create(ctx context.Context, exec SQLExecutor, group *models.Group) error
	GetByID(ctx context.Context, id int) (*models.Group, error)
	ListByStage(ctx context.Context, stageID int) ([]*models.Group, error)
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id int) error

	AddMember(ctx context.Context, exec SQLExecutor, member *models.GroupMember) error
	UpdateMember(ctx context.Context, member *models.GroupMember) error
	RemoveMember(ctx context.Context, groupID, participantID int) error
	ListMembers(ctx context.Context, groupID int) ([]*models.GroupMember, error)
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) Create(ctx context.Context, exec SQLExecutor, group *models.Group) error {
	query := `
		INSERT INTO groups (stage_id, name, capacity, advancement_count)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := exec.QueryRowContext(ctx, query,
		group.StageID, group.Name, group.Capacity, group.AdvancementCount,
	).Scan(&group.ID, &group.CreatedAt)
	return r.handleGroupError(err)
}

func (r *postgresGroupRepository) GetByID(ctx context.Context, id int) (*models.Group, error) {
	query := `SELECT id, stage_id, name, capacity, advancement_count, created_at FROM groups WHERE id = $1`
	group := &models.Group{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&group.ID, &group.StageID, &group.Name, &group.Capacity, &group.AdvancementCount, &group.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to scan group %d: %w", id, err)
	}
	return group, nil
}

func (r *postgresGroupRepository) ListByStage(ctx context.Context, stageID int) ([]*models.Group, error) {
	query := `
		SELECT id, stage_id, name, capacity, advancement_count, created_at
		FROM groups
		WHERE stage_id = $1
		ORDER BY name ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups for stage %d: %w", stageID, err)
	}
	defer rows.Close()

	groups := make([]*models.Group, 0)
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.StageID, &g.Name, &g.Capacity, &g.AdvancementCount, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during group rows iteration: %w", err)
	}
	return groups, nil
}

func (r *postgresGroupRepository) Update(ctx context.Context, group *models.Group) error {
	query := `UPDATE groups SET name = $1, capacity = $2, advancement_count = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, group.Name, group.Capacity, group.AdvancementCount, group.ID)
	if err != nil {
		return r.handleGroupError(err)
	}
	return checkAffectedRows(result, ErrGroupNotFound)
}

func (r *postgresGroupRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrGroupNotFound)
}

func (r *postgresGroupRepository) AddMember(ctx context.Context, exec SQLExecutor, member *models.GroupMember) error {
	query := `
		INSERT INTO group_members (group_id, participant_id, seed_in_group, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if member.Status == "" {
		member.Status = models.GroupMemberActive
	}
	err := exec.QueryRowContext(ctx, query,
		member.GroupID, member.ParticipantID, member.SeedInGroup, member.Status,
	).Scan(&member.ID)
	return r.handleGroupError(err)
}

func (r *postgresGroupRepository) UpdateMember(ctx context.Context, member *models.GroupMember) error {
	query := `UPDATE group_members SET seed_in_group = $1, status = $2 WHERE group_id = $3 AND participant_id = $4`
	result, err := r.db.ExecContext(ctx, query, member.SeedInGroup, member.Status, member.GroupID, member.ParticipantID)
	if err != nil {
		return fmt.Errorf("failed to update group member: %w", err)
	}
	return checkAffectedRows(result, ErrGroupMemberNotFound)
}

func (r *postgresGroupRepository) RemoveMember(ctx context.Context, groupID, participantID int) error {
	query := `DELETE FROM group_members WHERE group_id = $1 AND participant_id = $2`
	result, err := r.db.ExecContext(ctx, query, groupID, participantID)
	if err != nil {
		return fmt.Errorf("failed to remove group member: %w", err)
	}
	return checkAffectedRows(result, ErrGroupMemberNotFound)
}

func (r *postgresGroupRepository) ListMembers(ctx context.Context, groupID int) ([]*models.GroupMember, error) {
	query := `
		SELECT id, group_id, participant_id, seed_in_group, status
		FROM group_members
		WHERE group_id = $1
		ORDER BY seed_in_group ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members for group %d: %w", groupID, err)
	}
	defer rows.Close()

	members := make([]*models.GroupMember, 0)
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.ID, &m.GroupID, &m.ParticipantID, &m.SeedInGroup, &m.Status); err != nil {
			return nil, fmt.Errorf("failed to scan group member row: %w", err)
		}
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during group member rows iteration: %w", err)
	}
	return members, nil
}

func (r *postgresGroupRepository) handleGroupError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "groups_advancement_lt_capacity":
			return ErrGroupInvalidCapacity
		case "groups_stage_id_fkey":
			return ErrStageNotFound
		case "group_members_group_participant_key":
			return ErrGroupMemberConflict
		case "group_members_group_id_fkey":
			return ErrGroupNotFound
		case "group_members_participant_id_fkey":
			return ErrParticipantNotFound
		}
	}
	return err
}
