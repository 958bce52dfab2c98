package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openbracket/tournament-engine/brackets"
	"github.com/openbracket/tournament-engine/metrics"
	"github.com/openbracket/tournament-engine/models"
	"github.com/openbracket/tournament-engine/repositories"
)

// UnresolvedSlot reports a slot whose source outcome is not yet determined.
type UnresolvedSlot struct {
	SlotID      int    `json:"slot_id"`
	MatchID     int    `json:"match_id"`
	Position    int    `json:"position"`
	Placeholder string `json:"placeholder"`
	Reason      string `json:"reason"`
}

// ResolveReport sums up one resolution pass.
type ResolveReport struct {
	StageID    int              `json:"stage_id"`
	Resolved   int              `json:"resolved"`
	Unresolved []UnresolvedSlot `json:"unresolved"`
}

// SlotResolverService walks a stage's unresolved bracket slots and, for every
// slot whose source outcome is known, substitutes the concrete participant
// for the placeholder standing in for it. Resolution is explicit, partial and
// idempotent: undetermined slots stay put and a second pass with no new
// completions changes nothing.
type SlotResolverService interface {
	ResolveStage(ctx context.Context, stageID int) (*ResolveReport, error)
}

type slotResolverService struct {
	db              *sql.DB
	stageRepo       repositories.StageRepository
	slotRepo        repositories.BracketSlotRepository
	matchRepo       repositories.MatchRepository
	participantRepo repositories.ParticipantRepository
	groupRepo       repositories.GroupRepository
	standingsSvc    StandingsService
	hub             *brackets.Hub
	logger          *slog.Logger
}

func NewSlotResolverService(
	db *sql.DB,
	stageRepo repositories.StageRepository,
	slotRepo repositories.BracketSlotRepository,
	matchRepo repositories.MatchRepository,
	participantRepo repositories.ParticipantRepository,
	groupRepo repositories.GroupRepository,
	standingsSvc StandingsService,
	hub *brackets.Hub,
	logger *slog.Logger,
) SlotResolverService {
	return &slotResolverService{
		db:              db,
		stageRepo:       stageRepo,
		slotRepo:        slotRepo,
		matchRepo:       matchRepo,
		participantRepo: participantRepo,
		groupRepo:       groupRepo,
		standingsSvc:    standingsSvc,
		hub:             hub,
		logger:          logger,
	}
}

func (s *slotResolverService) ResolveStage(ctx context.Context, stageID int) (*ResolveReport, error) {
	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	report := &ResolveReport{StageID: stageID, Unresolved: []UnresolvedSlot{}}

	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		unresolved := false
		slots, err := s.slotRepo.ListByStageForUpdate(ctx, tx, stageID, &unresolved)
		if err != nil {
			return err
		}

		for _, slot := range slots {
			participantID, reason, err := s.determine(ctx, stage, slot)
			if err != nil {
				return err
			}
			if participantID == 0 {
				report.Unresolved = append(report.Unresolved, UnresolvedSlot{
					SlotID:      slot.ID,
					MatchID:     slot.TargetMatchID,
					Position:    slot.Position,
					Placeholder: slot.Describe(),
					Reason:      reason,
				})
				continue
			}
			if err := s.substitute(ctx, tx, slot, participantID); err != nil {
				return err
			}
			report.Resolved++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if report.Resolved > 0 {
		metrics.SlotsResolved.Add(float64(report.Resolved))
		s.hub.BroadcastToRoom(brackets.TournamentRoom(stage.TournamentID), brackets.Event{
			Type:    brackets.EventBracketUpdated,
			Payload: report,
		})
	}
	s.logger.Info("slot resolution pass finished",
		"stage_id", stageID, "resolved", report.Resolved, "unresolved", len(report.Unresolved))
	return report, nil
}

// determine returns the concrete participant a slot resolves to, or 0 with a
// reason when the source outcome is not known yet.
func (s *slotResolverService) determine(ctx context.Context, stage *models.Stage, slot *models.BracketSlot) (int, string, error) {
	switch slot.SourceType {
	case models.SlotSourceMatchWinner, models.SlotSourceMatchLoser:
		return s.determineFromMatch(ctx, slot)
	case models.SlotSourceGroupRank:
		return s.determineFromGroup(ctx, slot)
	case models.SlotSourceSeed:
		if slot.Seed == nil {
			return 0, "", fmt.Errorf("slot %d: seed source without seed number", slot.ID)
		}
		p, err := s.participantRepo.FindBySeed(ctx, s.db, stage.TournamentID, *slot.Seed)
		if err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				return 0, fmt.Sprintf("no participant holds seed %d yet", *slot.Seed), nil
			}
			return 0, "", mapRepoError(err)
		}
		return p.ID, "", nil
	default:
		return 0, "", fmt.Errorf("slot %d: unknown source type %q", slot.ID, slot.SourceType)
	}
}

func (s *slotResolverService) determineFromMatch(ctx context.Context, slot *models.BracketSlot) (int, string, error) {
	if slot.SourceMatchID == nil {
		return 0, "", fmt.Errorf("slot %d: match source without match id", slot.ID)
	}
	source, err := s.matchRepo.GetByID(ctx, *slot.SourceMatchID)
	if err != nil {
		return 0, "", mapRepoError(err)
	}
	if source.Status != models.MatchStatusCompleted || source.WinnerParticipantID == nil {
		return 0, "source match not completed", nil
	}

	var resolved int
	if slot.SourceType == models.SlotSourceMatchWinner {
		resolved = *source.WinnerParticipantID
	} else {
		loserID := source.LoserParticipantID()
		if loserID == nil {
			return 0, "source match has no loser", nil
		}
		resolved = *loserID
	}

	// A winner that is itself a placeholder means the source match was
	// decided transitively but its own slot has not resolved yet.
	p, err := s.participantRepo.GetByID(ctx, resolved)
	if err != nil {
		return 0, "", mapRepoError(err)
	}
	if p.IsVirtual {
		return 0, "source outcome is still a placeholder", nil
	}
	return resolved, "", nil
}

func (s *slotResolverService) determineFromGroup(ctx context.Context, slot *models.BracketSlot) (int, string, error) {
	if slot.GroupID == nil || slot.Rank == nil {
		return 0, "", fmt.Errorf("slot %d: group source without group or rank", slot.ID)
	}
	view, err := s.standingsSvc.ForGroup(ctx, *slot.GroupID)
	if err != nil {
		return 0, "", err
	}
	if !view.Final {
		return 0, "group standings not final", nil
	}
	rank := *slot.Rank
	if rank < 1 || rank > len(view.Entries) {
		return 0, "", fmt.Errorf("slot %d: rank %d out of range for group %d", slot.ID, rank, *slot.GroupID)
	}
	return view.Entries[rank-1].Participant.ID, "", nil
}

// substitute rewrites every match slot referencing the placeholder to the
// concrete participant, deletes the placeholder, and marks the slot resolved.
// A slot whose target side already holds the concrete participant only gets
// marked, which keeps repeat passes no-ops.
func (s *slotResolverService) substitute(ctx context.Context, tx *sql.Tx, slot *models.BracketSlot, participantID int) error {
	target, err := s.matchRepo.GetByID(ctx, slot.TargetMatchID)
	if err != nil {
		return mapRepoError(err)
	}

	current := target.ParticipantAt(slot.Position)
	if current == nil {
		mp := &models.MatchParticipant{MatchID: target.ID, ParticipantID: participantID, Position: slot.Position}
		if err := s.matchRepo.AddParticipant(ctx, tx, mp); err != nil {
			return mapRepoError(err)
		}
		return s.slotRepo.MarkResolved(ctx, tx, slot.ID, participantID)
	}
	if current.ParticipantID == participantID {
		return s.slotRepo.MarkResolved(ctx, tx, slot.ID, participantID)
	}

	placeholder, err := s.participantRepo.GetByID(ctx, current.ParticipantID)
	if err != nil {
		return mapRepoError(err)
	}
	if !placeholder.IsVirtual {
		s.logger.Warn("slot target already holds a different real participant, skipping",
			"slot_id", slot.ID, "match_id", slot.TargetMatchID, "position", slot.Position)
		return nil
	}

	if _, err := s.matchRepo.ReplaceParticipantRefs(ctx, tx, placeholder.ID, participantID); err != nil {
		return mapRepoError(err)
	}
	if err := s.participantRepo.Delete(ctx, tx, placeholder.ID); err != nil {
		return mapRepoError(err)
	}
	return s.slotRepo.MarkResolved(ctx, tx, slot.ID, participantID)
}
