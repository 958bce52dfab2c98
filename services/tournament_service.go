package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/openbracket/tournament-engine/models"
	"github.com/openbracket/tournament-engine/repositories"
)

type TournamentService interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, limit, offset int) ([]*models.Tournament, error)
	UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) error
	SetParticipantsLocked(ctx context.Context, id int, locked bool) error
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	stageRepo      repositories.StageRepository
}

func NewTournamentService(db *sql.DB, tournamentRepo repositories.TournamentRepository, stageRepo repositories.StageRepository) TournamentService {
	return &tournamentService{db: db, tournamentRepo: tournamentRepo, stageRepo: stageRepo}
}

func (s *tournamentService) Create(ctx context.Context, tournament *models.Tournament) error {
	tournament.Name = strings.TrimSpace(tournament.Name)
	if tournament.Name == "" {
		return fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	if tournament.Status == "" {
		tournament.Status = models.TournamentStatusDraft
	}
	return mapRepoError(s.tournamentRepo.Create(ctx, s.db, tournament))
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	stages, err := s.stageRepo.ListByTournament(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	tournament.Stages = make([]models.Stage, len(stages))
	for i, st := range stages {
		tournament.Stages[i] = *st
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, limit, offset int) ([]*models.Tournament, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	tournaments, err := s.tournamentRepo.List(ctx, limit, offset)
	return tournaments, mapRepoError(err)
}

// allowedTransitions pins the tournament lifecycle: draft tournaments can be
// activated or canceled, active ones completed or canceled. Completed and
// canceled are terminal.
var allowedTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.TournamentStatusDraft:  {models.TournamentStatusActive, models.TournamentStatusCanceled},
	models.TournamentStatusActive: {models.TournamentStatusCompleted, models.TournamentStatusCanceled},
}

func (s *tournamentService) UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) error {
	current, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}

	allowed := false
	for _, next := range allowedTransitions[current.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, status)
	}
	return mapRepoError(s.tournamentRepo.UpdateStatus(ctx, id, status))
}

func (s *tournamentService) SetParticipantsLocked(ctx context.Context, id int, locked bool) error {
	return mapRepoError(s.tournamentRepo.SetParticipantsLocked(ctx, s.db, id, locked))
}
