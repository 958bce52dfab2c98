package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/openbracket/tournament-engine/models"
	"github.com/openbracket/tournament-engine/repositories"
)

// CreateParticipantInput covers both singles and doubles entries. A doubles
// entry carries a partner member.
type CreateParticipantInput struct {
	TournamentID    int    `json:"tournament_id"`
	MemberID        int    `json:"member_id"`
	PartnerMemberID *int   `json:"partner_member_id,omitempty"`
	DisplayName     string `json:"display_name"`
	Seed            *int   `json:"seed,omitempty"`
}

type ParticipantService interface {
	Create(ctx context.Context, input CreateParticipantInput) (*models.Participant, error)
	GetByID(ctx context.Context, id int) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentID int, filter repositories.ParticipantFilter) ([]*models.Participant, error)
	UpdateSeed(ctx context.Context, id int, seed *int) error
	UpdateStatus(ctx context.Context, id int, status models.ParticipantStatus) error
	Delete(ctx context.Context, id int) error
}

type participantService struct {
	db              *sql.DB
	participantRepo repositories.ParticipantRepository
	tournamentRepo  repositories.TournamentRepository
}

func NewParticipantService(db *sql.DB, participantRepo repositories.ParticipantRepository, tournamentRepo repositories.TournamentRepository) ParticipantService {
	return &participantService{db: db, participantRepo: participantRepo, tournamentRepo: tournamentRepo}
}

func (s *participantService) Create(ctx context.Context, input CreateParticipantInput) (*models.Participant, error) {
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if input.DisplayName == "" {
		return nil, fmt.Errorf("%w: display name is required", ErrValidationFailed)
	}
	if input.MemberID <= 0 {
		return nil, fmt.Errorf("%w: member reference is required", ErrValidationFailed)
	}
	if input.Seed != nil && *input.Seed < 1 {
		return nil, fmt.Errorf("%w: seed must be positive", ErrValidationFailed)
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, input.TournamentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if tournament.ParticipantsLocked {
		return nil, ErrParticipantsLocked
	}

	participant := &models.Participant{
		TournamentID:    input.TournamentID,
		MemberID:        &input.MemberID,
		PartnerMemberID: input.PartnerMemberID,
		DisplayName:     input.DisplayName,
		Seed:            input.Seed,
	}
	if err := s.participantRepo.Create(ctx, s.db, participant); err != nil {
		return nil, mapRepoError(err)
	}
	return participant, nil
}

func (s *participantService) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	participant, err := s.participantRepo.GetByID(ctx, id)
	return participant, mapRepoError(err)
}

func (s *participantService) ListByTournament(ctx context.Context, tournamentID int, filter repositories.ParticipantFilter) ([]*models.Participant, error) {
	participants, err := s.participantRepo.ListByTournament(ctx, tournamentID, filter)
	return participants, mapRepoError(err)
}

func (s *participantService) UpdateSeed(ctx context.Context, id int, seed *int) error {
	if seed != nil && *seed < 1 {
		return fmt.Errorf("%w: seed must be positive", ErrValidationFailed)
	}
	return mapRepoError(s.participantRepo.UpdateSeed(ctx, s.db, id, seed))
}

func (s *participantService) UpdateStatus(ctx context.Context, id int, status models.ParticipantStatus) error {
	if status != models.ParticipantActive && status != models.ParticipantWithdrawn {
		return fmt.Errorf("%w: unknown participant status %q", ErrValidationFailed, status)
	}
	return mapRepoError(s.participantRepo.UpdateStatus(ctx, id, status))
}

// Delete removes a participant. Allowed only while the tournament's entry
// list is unlocked; once locked, matches may reference the participant.
func (s *participantService) Delete(ctx context.Context, id int) error {
	participant, err := s.participantRepo.GetByID(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, participant.TournamentID)
		if err != nil {
			return mapRepoError(err)
		}
		if tournament.ParticipantsLocked {
			return ErrParticipantsLocked
		}
		return mapRepoError(s.participantRepo.Delete(ctx, tx, id))
	})
}
