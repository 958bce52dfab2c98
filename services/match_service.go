package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/openbracket/tournament-engine/brackets"
	"github.com/openbracket/tournament-engine/models"
	"github.com/openbracket/tournament-engine/repositories"
	"github.com/openbracket/tournament-engine/standings"
)

// MatchResultInput records the outcome of a played match. Walkover results
// carry no score.
type MatchResultInput struct {
	WinnerParticipantID int     `json:"winner_participant_id"`
	Score               *string `json:"score,omitempty"`
	Walkover            bool    `json:"walkover"`
}

type MatchService interface {
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByStage(ctx context.Context, stageID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	ListByGroup(ctx context.Context, groupID int) ([]*models.Match, error)
	RecordResult(ctx context.Context, matchID int, input MatchResultInput) (*models.Match, error)
	Cancel(ctx context.Context, matchID int) error
	Delete(ctx context.Context, matchID int) error
}

type matchService struct {
	db        *sql.DB
	matchRepo repositories.MatchRepository
	hub       *brackets.Hub
	logger    *slog.Logger
}

func NewMatchService(db *sql.DB, matchRepo repositories.MatchRepository, hub *brackets.Hub, logger *slog.Logger) MatchService {
	return &matchService{db: db, matchRepo: matchRepo, hub: hub, logger: logger}
}

func (s *matchService) GetByID(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	return match, mapRepoError(err)
}

func (s *matchService) ListByStage(ctx context.Context, stageID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByStage(ctx, stageID, round, status)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.matchRepo.AttachParticipants(ctx, matches); err != nil {
		return nil, mapRepoError(err)
	}
	return matches, nil
}

func (s *matchService) ListByGroup(ctx context.Context, groupID int) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.matchRepo.AttachParticipants(ctx, matches); err != nil {
		return nil, mapRepoError(err)
	}
	return matches, nil
}

func (s *matchService) RecordResult(ctx context.Context, matchID int, input MatchResultInput) (*models.Match, error) {
	// Validation happens against the row-locked match so two concurrent
	// entries cannot both see it as still open.
	var match *models.Match
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		match, err = s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
		if err != nil {
			return mapRepoError(err)
		}
		if err := validateResult(match, input); err != nil {
			return err
		}
		if err := s.matchRepo.UpdateResult(ctx, tx, matchID, input.Score, models.MatchStatusCompleted, &input.WinnerParticipantID, input.Walkover); err != nil {
			return mapRepoError(err)
		}
		for _, mp := range match.Participants {
			isWinner := mp.ParticipantID == input.WinnerParticipantID
			if err := s.matchRepo.SetParticipantWinner(ctx, tx, matchID, mp.ParticipantID, isWinner); err != nil {
				return mapRepoError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.hub.BroadcastToRoom(brackets.TournamentRoom(match.TournamentID), brackets.Event{
		Type:    brackets.EventMatchUpdated,
		Payload: updated,
	})
	s.logger.Info("match result recorded",
		"match_id", matchID, "winner_participant_id", input.WinnerParticipantID, "walkover", input.Walkover)
	return updated, nil
}

func (s *matchService) Cancel(ctx context.Context, matchID int) error {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return mapRepoError(err)
	}
	if match.Status == models.MatchStatusCompleted {
		return ErrMatchCompleted
	}
	return mapRepoError(s.matchRepo.UpdateStatus(ctx, matchID, models.MatchStatusCanceled))
}

func (s *matchService) Delete(ctx context.Context, matchID int) error {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return mapRepoError(err)
	}
	if match.Status == models.MatchStatusCompleted {
		return ErrMatchCompleted
	}
	return mapRepoError(s.matchRepo.Delete(ctx, matchID))
}

// validateResult guards the result entry boundary: completed matches stay
// immutable, the winner must occupy one of the match's sides, and a non-
// walkover result needs a parseable score.
func validateResult(match *models.Match, input MatchResultInput) error {
	if match.Status == models.MatchStatusCompleted {
		return ErrMatchCompleted
	}
	if match.Status == models.MatchStatusCanceled {
		return fmt.Errorf("%w: match %d is canceled", ErrValidationFailed, match.ID)
	}

	found := false
	for _, mp := range match.Participants {
		if mp.ParticipantID == input.WinnerParticipantID {
			found = true
			break
		}
	}
	if !found {
		return ErrWinnerNotInMatch
	}

	if input.Walkover {
		if input.Score != nil {
			return fmt.Errorf("%w: walkover results carry no score", ErrValidationFailed)
		}
		return nil
	}
	if input.Score == nil || *input.Score == "" {
		return fmt.Errorf("%w: score is required", ErrInvalidScore)
	}
	games, err := standings.ParseScore(*input.Score)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	if len(games) == 0 {
		return fmt.Errorf("%w: score is required", ErrInvalidScore)
	}
	return nil
}
