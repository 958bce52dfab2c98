package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/openbracket/tournament-engine/brackets"
	"github.com/openbracket/tournament-engine/metrics"
	"github.com/openbracket/tournament-engine/models"
	"github.com/openbracket/tournament-engine/repositories"
	"github.com/openbracket/tournament-engine/storage"
)

// GenerateBracketOptions tunes knockout generation. BracketSize of 0 derives
// the smallest fitting power of two.
type GenerateBracketOptions struct {
	BracketSize     int  `json:"bracket_size"`
	ThirdPlaceMatch bool `json:"third_place_match"`
}

// BracketSideView is one side of a match in the bracket view: either a
// resolved participant or a placeholder label.
type BracketSideView struct {
	ParticipantID *int   `json:"participant_id,omitempty"`
	Name          string `json:"name"`
	Placeholder   bool   `json:"placeholder"`
	IsWinner      bool   `json:"is_winner,omitempty"`
}

type BracketMatchView struct {
	MatchID     int                `json:"match_id"`
	Round       int                `json:"round"`
	MatchNumber int                `json:"match_number"`
	Status      models.MatchStatus `json:"status"`
	Score       *string            `json:"score,omitempty"`
	Sides       []BracketSideView  `json:"sides"`
}

type BracketRoundView struct {
	Round   int                `json:"round"`
	Matches []BracketMatchView `json:"matches"`
}

type BracketView struct {
	StageID         int                `json:"stage_id"`
	TournamentID    int                `json:"tournament_id"`
	Rounds          []BracketRoundView `json:"rounds"`
	ThirdPlace      *BracketMatchView  `json:"third_place,omitempty"`
	Champion        *BracketSideView   `json:"champion,omitempty"`
	UnresolvedSlots int                `json:"unresolved_slots"`
}

type BracketService interface {
	Generate(ctx context.Context, stageID int, opts GenerateBracketOptions) (*BracketView, error)
	GetView(ctx context.Context, stageID int) (*BracketView, error)
	// Publish uploads the current bracket view as a JSON document and
	// returns its public URL.
	Publish(ctx context.Context, stageID int) (string, error)
	// Unpublish removes a previously published snapshot.
	Unpublish(ctx context.Context, stageID int) error
}

type bracketService struct {
	db              *sql.DB
	stageRepo       repositories.StageRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	slotRepo        repositories.BracketSlotRepository
	snapshots       storage.SnapshotStore
	hub             *brackets.Hub
	logger          *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	stageRepo repositories.StageRepository,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	slotRepo repositories.BracketSlotRepository,
	snapshots storage.SnapshotStore,
	hub *brackets.Hub,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		db:              db,
		stageRepo:       stageRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		slotRepo:        slotRepo,
		snapshots:       snapshots,
		hub:             hub,
		logger:          logger,
	}
}

func (s *bracketService) Generate(ctx context.Context, stageID int, opts GenerateBracketOptions) (*BracketView, error) {
	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if stage.Type != models.StageTypeKnockout {
		return nil, fmt.Errorf("%w: stage %d is not a knockout stage", ErrValidationFailed, stageID)
	}

	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, stage.TournamentID)
		if err != nil {
			return mapRepoError(err)
		}
		if !tournament.ParticipantsLocked {
			return ErrParticipantsNotLocked
		}

		existing, err := s.matchRepo.CountByStage(ctx, tx, stageID)
		if err != nil {
			return err
		}
		if existing > 0 {
			return ErrBracketAlreadyExists
		}

		virtual := false
		status := models.ParticipantActive
		participants, err := s.participantRepo.ListByTournament(ctx, stage.TournamentID, repositories.ParticipantFilter{
			Virtual: &virtual,
			Status:  &status,
		})
		if err != nil {
			return mapRepoError(err)
		}
		entrantIDs := make([]int, len(participants))
		for i, p := range participants {
			entrantIDs[i] = p.ID
		}

		plan, err := brackets.BuildSingleElimination(entrantIDs, opts.BracketSize, opts.ThirdPlaceMatch)
		if err != nil {
			return mapGeneratorError(err)
		}
		created, err := persistBracketPlan(ctx, tx, s.bracketWriter(), stage, plan, nil)
		if err != nil {
			return err
		}

		metrics.MatchesGenerated.Add(float64(created))
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BracketsGenerated.Inc()

	view, err := s.GetView(ctx, stageID)
	if err != nil {
		return nil, err
	}
	s.hub.BroadcastToRoom(brackets.TournamentRoom(stage.TournamentID), brackets.Event{
		Type:    brackets.EventBracketUpdated,
		Payload: view,
	})
	s.logger.Info("bracket generated",
		"stage_id", stageID, "rounds", len(view.Rounds), "third_place", opts.ThirdPlaceMatch)
	return view, nil
}

// bracketWriter is the repository trio bracket persistence writes through.
// The draw workflow reuses it when it materializes a placeholder bracket.
type bracketWriter struct {
	matchRepo       repositories.MatchRepository
	participantRepo repositories.ParticipantRepository
	slotRepo        repositories.BracketSlotRepository
}

func (s *bracketService) bracketWriter() bracketWriter {
	return bracketWriter{
		matchRepo:       s.matchRepo,
		participantRepo: s.participantRepo,
		slotRepo:        s.slotRepo,
	}
}

// persistBracketPlan writes a generated bracket into storage: one match row
// per planned match, real participants attached directly, later-round sides
// filled with virtual participants backed by bracket slots. Round-1 byes are
// completed on the spot with the lone participant as winner, so the slot
// resolver needs no special case for them. seedOf, when supplied, maps a
// placeholder participant to its seed number and records a SEED slot for it.
func persistBracketPlan(ctx context.Context, tx *sql.Tx, w bracketWriter, stage *models.Stage, plan *brackets.Plan, seedOf map[int]int) (int, error) {
	matchIDs := make(map[[2]int]int, len(plan.Matches))

	for _, pm := range plan.Matches {
		match := &models.Match{
			TournamentID: stage.TournamentID,
			StageID:      stage.ID,
			Round:        pm.Round,
			MatchNumber:  pm.MatchNumber,
			Status:       models.MatchStatusScheduled,
		}
		if err := w.matchRepo.Create(ctx, tx, match); err != nil {
			return 0, mapRepoError(err)
		}
		matchIDs[[2]int{pm.Round, pm.MatchNumber}] = match.ID

		sides := []*brackets.SideRef{pm.Side1, pm.Side2}
		for pos, side := range sides {
			if side == nil {
				continue
			}
			if err := persistBracketSide(ctx, tx, w, stage, match, side, pos+1, matchIDs, seedOf); err != nil {
				return 0, err
			}
		}

		// Only a bye held by a concrete participant completes on the spot.
		// A lone side still waiting on a feeder match is recorded as a
		// walkover once the feeder's outcome resolves.
		if lone := pm.LoneSide(); lone != nil && lone.ParticipantID != nil {
			loneID := *lone.ParticipantID
			if err := w.matchRepo.UpdateResult(ctx, tx, match.ID, nil, models.MatchStatusCompleted, &loneID, false); err != nil {
				return 0, mapRepoError(err)
			}
			if err := w.matchRepo.SetParticipantWinner(ctx, tx, match.ID, loneID, true); err != nil {
				return 0, mapRepoError(err)
			}
		}
	}
	return len(plan.Matches), nil
}

func persistBracketSide(ctx context.Context, tx *sql.Tx, w bracketWriter, stage *models.Stage, match *models.Match, side *brackets.SideRef, position int, matchIDs map[[2]int]int, seedOf map[int]int) error {
	if side.ParticipantID != nil {
		pid := *side.ParticipantID
		mp := &models.MatchParticipant{MatchID: match.ID, ParticipantID: pid, Position: position}
		if err := w.matchRepo.AddParticipant(ctx, tx, mp); err != nil {
			return mapRepoError(err)
		}
		if seed, ok := seedOf[pid]; ok {
			slot := &models.BracketSlot{
				StageID:       stage.ID,
				TargetMatchID: match.ID,
				Position:      position,
				SourceType:    models.SlotSourceSeed,
				Seed:          &seed,
			}
			if err := w.slotRepo.Create(ctx, tx, slot); err != nil {
				return err
			}
		}
		return nil
	}

	sourceMatchID, ok := matchIDs[[2]int{side.SourceRound, side.SourceMatchNumber}]
	if !ok {
		return fmt.Errorf("planned match R%dM%d references unknown source R%dM%d",
			match.Round, match.MatchNumber, side.SourceRound, side.SourceMatchNumber)
	}

	placeholder := newMatchVirtual(stage.TournamentID, sourceMatchID, side.Outcome,
		matchOutcomeLabel(side.Outcome, side.SourceMatchNumber, side.SourceRound))
	if err := w.participantRepo.Create(ctx, tx, placeholder); err != nil {
		return mapRepoError(err)
	}

	mp := &models.MatchParticipant{MatchID: match.ID, ParticipantID: placeholder.ID, Position: position}
	if err := w.matchRepo.AddParticipant(ctx, tx, mp); err != nil {
		return mapRepoError(err)
	}

	sourceType := models.SlotSourceMatchWinner
	if side.Outcome == models.OutcomeLoser {
		sourceType = models.SlotSourceMatchLoser
	}
	slot := &models.BracketSlot{
		StageID:       stage.ID,
		TargetMatchID: match.ID,
		Position:      position,
		SourceType:    sourceType,
		SourceMatchID: &sourceMatchID,
	}
	return w.slotRepo.Create(ctx, tx, slot)
}

func (s *bracketService) GetView(ctx context.Context, stageID int) (*BracketView, error) {
	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	var (
		matches []*models.Match
		slots   []*models.BracketSlot
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByStage(gCtx, stageID, nil, nil)
		if err != nil {
			return mapRepoError(err)
		}
		return mapRepoError(s.matchRepo.AttachParticipants(gCtx, matches))
	})
	g.Go(func() error {
		var err error
		slots, err = s.slotRepo.ListByStage(gCtx, stageID, nil)
		return mapRepoError(err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buildBracketView(stage, matches, slots), nil
}

func (s *bracketService) Publish(ctx context.Context, stageID int) (string, error) {
	if s.snapshots == nil {
		return "", fmt.Errorf("%w: no object storage configured", ErrValidationFailed)
	}
	view, err := s.GetView(ctx, stageID)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(view)
	if err != nil {
		return "", fmt.Errorf("failed to encode bracket view: %w", err)
	}

	result, err := s.snapshots.Put(ctx, bracketSnapshotKey(stageID), "application/json", bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to publish bracket for stage %d: %w", stageID, err)
	}
	s.logger.Info("bracket published", "stage_id", stageID, "location", result.Location)
	return result.Location, nil
}

func (s *bracketService) Unpublish(ctx context.Context, stageID int) error {
	if s.snapshots == nil {
		return fmt.Errorf("%w: no object storage configured", ErrValidationFailed)
	}
	if _, err := s.stageRepo.GetByID(ctx, stageID); err != nil {
		return mapRepoError(err)
	}
	if err := s.snapshots.Remove(ctx, bracketSnapshotKey(stageID)); err != nil {
		return fmt.Errorf("failed to unpublish bracket for stage %d: %w", stageID, err)
	}
	s.logger.Info("bracket unpublished", "stage_id", stageID)
	return nil
}

func bracketSnapshotKey(stageID int) string {
	return fmt.Sprintf("brackets/stage_%d.json", stageID)
}

// buildBracketView groups matches into ordered rounds, renders each side as a
// name or placeholder label, and splits out the third-place match.
func buildBracketView(stage *models.Stage, matches []*models.Match, slots []*models.BracketSlot) *BracketView {
	view := &BracketView{StageID: stage.ID, TournamentID: stage.TournamentID}

	for _, slot := range slots {
		if !slot.Resolved {
			view.UnresolvedSlots++
		}
	}

	byRound := make(map[int][]BracketMatchView)
	for _, m := range matches {
		mv := BracketMatchView{
			MatchID:     m.ID,
			Round:       m.Round,
			MatchNumber: m.MatchNumber,
			Status:      m.Status,
			Score:       m.Score,
			Sides:       make([]BracketSideView, 0, 2),
		}
		for _, mp := range m.Participants {
			side := BracketSideView{IsWinner: mp.IsWinner}
			if mp.Participant != nil {
				id := mp.Participant.ID
				side.ParticipantID = &id
				side.Name = mp.Participant.Name()
				side.Placeholder = mp.Participant.IsVirtual
			} else {
				id := mp.ParticipantID
				side.ParticipantID = &id
				side.Name = fmt.Sprintf("Participant %d", mp.ParticipantID)
			}
			mv.Sides = append(mv.Sides, side)
		}
		if m.MatchNumber == models.ThirdPlaceMatchNumber {
			third := mv
			view.ThirdPlace = &third
			continue
		}
		byRound[m.Round] = append(byRound[m.Round], mv)
	}

	rounds := make([]int, 0, len(byRound))
	for r := range byRound {
		rounds = append(rounds, r)
	}
	sort.Ints(rounds)
	for _, r := range rounds {
		ms := byRound[r]
		sort.Slice(ms, func(i, j int) bool { return ms[i].MatchNumber < ms[j].MatchNumber })
		view.Rounds = append(view.Rounds, BracketRoundView{Round: r, Matches: ms})
	}

	// The final is the lone match of the last round; once it is completed and
	// its winner is a real participant, the bracket has a champion.
	if len(view.Rounds) > 0 {
		final := view.Rounds[len(view.Rounds)-1].Matches
		if len(final) == 1 && final[0].Status == models.MatchStatusCompleted {
			for i := range final[0].Sides {
				side := final[0].Sides[i]
				if side.IsWinner && !side.Placeholder {
					view.Champion = &side
					break
				}
			}
		}
	}
	return view
}

// newMatchVirtual builds a placeholder participant standing in for a match
// outcome not yet known.
func newMatchVirtual(tournamentID, sourceMatchID int, outcome models.MatchOutcome, label string) *models.Participant {
	o := outcome
	return &models.Participant{
		TournamentID: tournamentID,
		DisplayName:  label,
		IsVirtual:    true,
		Label:        &label,
		AdvancingSource: &models.AdvancingSource{
			Type:     models.AdvancingSourceMatch,
			MatchID:  &sourceMatchID,
			Position: &o,
		},
	}
}

func matchOutcomeLabel(outcome models.MatchOutcome, matchNumber, round int) string {
	if outcome == models.OutcomeLoser {
		return fmt.Sprintf("Loser of match %d (Round %d)", matchNumber, round)
	}
	return fmt.Sprintf("Winner of match %d (Round %d)", matchNumber, round)
}
