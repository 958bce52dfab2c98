package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/openbracket/tournament-engine/models"
	"github.com/openbracket/tournament-engine/repositories"
)

type StageService interface {
	Create(ctx context.Context, stage *models.Stage) error
	GetByID(ctx context.Context, id int) (*models.Stage, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Stage, error)
	Update(ctx context.Context, stage *models.Stage) error
	Delete(ctx context.Context, id int) error

	SetRule(ctx context.Context, stageID int, rule *models.StageRule) error
	GetRule(ctx context.Context, stageID int) (*models.StageRule, error)
	DeleteRule(ctx context.Context, stageID int) error
}

type stageService struct {
	db             *sql.DB
	stageRepo      repositories.StageRepository
	tournamentRepo repositories.TournamentRepository
}

func NewStageService(db *sql.DB, stageRepo repositories.StageRepository, tournamentRepo repositories.TournamentRepository) StageService {
	return &stageService{db: db, stageRepo: stageRepo, tournamentRepo: tournamentRepo}
}

func (s *stageService) Create(ctx context.Context, stage *models.Stage) error {
	stage.Name = strings.TrimSpace(stage.Name)
	if stage.Name == "" {
		return fmt.Errorf("%w: stage name is required", ErrValidationFailed)
	}
	if !models.ValidStageType(stage.Type) {
		return fmt.Errorf("%w: %q", ErrInvalidStageType, stage.Type)
	}
	if stage.StageOrder < 1 {
		return fmt.Errorf("%w: stage order must be positive", ErrValidationFailed)
	}
	if _, err := s.tournamentRepo.GetByID(ctx, stage.TournamentID); err != nil {
		return mapRepoError(err)
	}
	return mapRepoError(s.stageRepo.Create(ctx, s.db, stage))
}

func (s *stageService) GetByID(ctx context.Context, id int) (*models.Stage, error) {
	stage, err := s.stageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	rule, err := s.stageRepo.GetRule(ctx, id)
	if err == nil {
		stage.Rule = rule
	} else if !isNotFound(err) {
		return nil, mapRepoError(err)
	}
	return stage, nil
}

func (s *stageService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Stage, error) {
	stages, err := s.stageRepo.ListByTournament(ctx, tournamentID)
	return stages, mapRepoError(err)
}

func (s *stageService) Update(ctx context.Context, stage *models.Stage) error {
	if !models.ValidStageType(stage.Type) {
		return fmt.Errorf("%w: %q", ErrInvalidStageType, stage.Type)
	}
	return mapRepoError(s.stageRepo.Update(ctx, stage))
}

func (s *stageService) Delete(ctx context.Context, id int) error {
	return mapRepoError(s.stageRepo.Delete(ctx, id))
}

func (s *stageService) SetRule(ctx context.Context, stageID int, rule *models.StageRule) error {
	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return mapRepoError(err)
	}
	if err := validateStageRule(stage, rule); err != nil {
		return err
	}
	rule.StageID = stageID
	return mapRepoError(s.stageRepo.UpsertRule(ctx, s.db, rule))
}

func (s *stageService) GetRule(ctx context.Context, stageID int) (*models.StageRule, error) {
	rule, err := s.stageRepo.GetRule(ctx, stageID)
	return rule, mapRepoError(err)
}

func (s *stageService) DeleteRule(ctx context.Context, stageID int) error {
	return mapRepoError(s.stageRepo.DeleteRule(ctx, stageID))
}

// validateStageRule checks the tie-break configuration. Knockout stages keep
// the tie-break fields empty; they would never be consulted, and storing them
// would suggest otherwise.
func validateStageRule(stage *models.Stage, rule *models.StageRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule payload is required", ErrValidationFailed)
	}
	if stage.Type == models.StageTypeKnockout {
		if len(rule.TieBreakOrder) > 0 || rule.H2HMode != nil {
			return fmt.Errorf("%w: knockout stages do not take tie-break settings", ErrValidationFailed)
		}
		return nil
	}

	seen := make(map[models.TieBreakRule]bool, len(rule.TieBreakOrder))
	for _, tb := range rule.TieBreakOrder {
		if !models.ValidTieBreakRule(tb) {
			return fmt.Errorf("%w: %q", ErrInvalidTieBreakRule, tb)
		}
		if seen[tb] {
			return fmt.Errorf("%w: duplicate rule %q", ErrInvalidTieBreakRule, tb)
		}
		seen[tb] = true
	}
	if rule.H2HMode != nil && *rule.H2HMode != models.H2HModeStrict {
		return fmt.Errorf("%w: unsupported head-to-head mode %q", ErrValidationFailed, *rule.H2HMode)
	}
	return nil
}

func isNotFound(err error) bool {
	mapped := mapRepoError(err)
	switch mapped {
	case ErrStageRuleNotFound, ErrStageNotFound, ErrNotFound:
		return true
	}
	return false
}
