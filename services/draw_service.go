package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/openbracket/tournament-engine/brackets"
	"github.com/openbracket/tournament-engine/metrics"
	"github.com/openbracket/tournament-engine/models"
	"github.com/openbracket/tournament-engine/repositories"
)

// CreateDrawInput opens a new draw session. StageID is required for
// GROUP_ASSIGNMENT and KNOCKOUT_PAIRING draws.
type CreateDrawInput struct {
	TournamentID int                    `json:"tournament_id"`
	StageID      *int                   `json:"stage_id,omitempty"`
	Type         models.DrawSessionType `json:"type"`
	Payload      *string                `json:"payload,omitempty"`
}

// DrawService runs the two-phase draw workflow: record what happened at the
// physical draw while the session is PENDING, then apply it atomically.
// Apply is all-or-nothing; a failed apply leaves the session PENDING and the
// tournament untouched.
type DrawService interface {
	Create(ctx context.Context, input CreateDrawInput) (*models.DrawSession, error)
	Get(ctx context.Context, publicID string) (*models.DrawSession, error)
	List(ctx context.Context, filter repositories.DrawSessionFilter) ([]*models.DrawSession, error)
	Update(ctx context.Context, publicID string, payload, result *string) (*models.DrawSession, error)
	Apply(ctx context.Context, publicID string) (*models.DrawSession, error)
}

type drawService struct {
	db              *sql.DB
	drawRepo        repositories.DrawSessionRepository
	tournamentRepo  repositories.TournamentRepository
	stageRepo       repositories.StageRepository
	groupRepo       repositories.GroupRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	slotRepo        repositories.BracketSlotRepository
	standingsSvc    StandingsService
	hub             *brackets.Hub
	logger          *slog.Logger
}

func NewDrawService(
	db *sql.DB,
	drawRepo repositories.DrawSessionRepository,
	tournamentRepo repositories.TournamentRepository,
	stageRepo repositories.StageRepository,
	groupRepo repositories.GroupRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	slotRepo repositories.BracketSlotRepository,
	standingsSvc StandingsService,
	hub *brackets.Hub,
	logger *slog.Logger,
) DrawService {
	return &drawService{
		db:              db,
		drawRepo:        drawRepo,
		tournamentRepo:  tournamentRepo,
		stageRepo:       stageRepo,
		groupRepo:       groupRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		slotRepo:        slotRepo,
		standingsSvc:    standingsSvc,
		hub:             hub,
		logger:          logger,
	}
}

func (s *drawService) Create(ctx context.Context, input CreateDrawInput) (*models.DrawSession, error) {
	if !models.ValidDrawSessionType(input.Type) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDrawType, input.Type)
	}
	if _, err := s.tournamentRepo.GetByID(ctx, input.TournamentID); err != nil {
		return nil, mapRepoError(err)
	}
	if input.Type != models.DrawDoublesPairing && input.StageID == nil {
		return nil, fmt.Errorf("%w: %s draws need a stage", ErrValidationFailed, input.Type)
	}
	if input.StageID != nil {
		if _, err := s.stageRepo.GetByID(ctx, *input.StageID); err != nil {
			return nil, mapRepoError(err)
		}
	}

	session := &models.DrawSession{
		PublicID:     uuid.NewString(),
		TournamentID: input.TournamentID,
		StageID:      input.StageID,
		Type:         input.Type,
		Status:       models.DrawSessionPending,
		PayloadJSON:  input.Payload,
	}
	if err := s.drawRepo.Create(ctx, session); err != nil {
		return nil, mapRepoError(err)
	}
	return session, nil
}

func (s *drawService) Get(ctx context.Context, publicID string) (*models.DrawSession, error) {
	session, err := s.drawRepo.GetByPublicID(ctx, publicID)
	return session, mapRepoError(err)
}

func (s *drawService) List(ctx context.Context, filter repositories.DrawSessionFilter) ([]*models.DrawSession, error) {
	sessions, err := s.drawRepo.List(ctx, filter)
	return sessions, mapRepoError(err)
}

func (s *drawService) Update(ctx context.Context, publicID string, payload, result *string) (*models.DrawSession, error) {
	session, err := s.drawRepo.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if session.Status != models.DrawSessionPending {
		return nil, ErrDrawSessionNotPending
	}
	if result != nil {
		// Reject a result the apply step could not parse, so transcription
		// mistakes surface while the session is still editable.
		if _, err := decodeDrawResult(session.Type, result); err != nil {
			return nil, err
		}
	}
	if err := s.drawRepo.UpdatePayloads(ctx, session.ID, payload, result); err != nil {
		if errors.Is(err, repositories.ErrDrawSessionNotFound) {
			return nil, ErrDrawSessionNotPending
		}
		return nil, mapRepoError(err)
	}
	return s.drawRepo.GetByPublicID(ctx, publicID)
}

func (s *drawService) Apply(ctx context.Context, publicID string) (*models.DrawSession, error) {
	var sessionType models.DrawSessionType
	var tournamentID int

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		session, err := s.drawRepo.GetByPublicIDForUpdate(ctx, tx, publicID)
		if err != nil {
			return mapRepoError(err)
		}
		if session.Status != models.DrawSessionPending {
			return ErrDrawSessionNotPending
		}
		sessionType = session.Type
		tournamentID = session.TournamentID

		result, err := decodeDrawResult(session.Type, session.ResultJSON)
		if err != nil {
			return err
		}

		switch r := result.(type) {
		case *models.DoublesPairingResult:
			err = s.applyDoubles(ctx, tx, session, r)
		case *models.GroupAssignmentResult:
			err = s.applyGroupAssignment(ctx, tx, session, r)
		case *models.KnockoutPairingResult:
			err = s.applyKnockoutPairing(ctx, tx, session, r)
		default:
			err = fmt.Errorf("%w: unhandled result shape", ErrInvalidDrawResult)
		}
		if err != nil {
			return err
		}
		return mapRepoError(s.drawRepo.MarkApplied(ctx, tx, session.ID, time.Now()))
	})
	if err != nil {
		return nil, err
	}

	metrics.DrawSessionsApplied.WithLabelValues(string(sessionType)).Inc()
	s.hub.BroadcastToRoom(brackets.TournamentRoom(tournamentID), brackets.Event{
		Type:    brackets.EventDrawApplied,
		Payload: map[string]interface{}{"session_id": publicID, "type": sessionType},
	})
	s.logger.Info("draw session applied", "session_id", publicID, "type", sessionType)

	return s.drawRepo.GetByPublicID(ctx, publicID)
}

// applyDoubles materializes each drawn member pair as a doubles participant.
// Pairs that already exist are left alone, so correcting and re-drawing the
// same pairing twice is harmless.
func (s *drawService) applyDoubles(ctx context.Context, tx *sql.Tx, session *models.DrawSession, result *models.DoublesPairingResult) error {
	for _, pair := range result.Pairs {
		_, err := s.participantRepo.FindDoublesByMembers(ctx, tx, session.TournamentID, pair.SideAMemberID, pair.SideBMemberID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repositories.ErrParticipantNotFound) {
			return mapRepoError(err)
		}

		memberA, memberB := pair.SideAMemberID, pair.SideBMemberID
		participant := &models.Participant{
			TournamentID:    session.TournamentID,
			MemberID:        &memberA,
			PartnerMemberID: &memberB,
			DisplayName:     fmt.Sprintf("Pair %d/%d", memberA, memberB),
		}
		if err := s.participantRepo.Create(ctx, tx, participant); err != nil {
			return mapRepoError(err)
		}
	}
	return nil
}

func (s *drawService) applyGroupAssignment(ctx context.Context, tx *sql.Tx, session *models.DrawSession, result *models.GroupAssignmentResult) error {
	memberCounts := make(map[int]int)
	capacities := make(map[int]int)

	for _, a := range result.Assignments {
		if _, ok := capacities[a.GroupID]; !ok {
			group, err := s.groupRepo.GetByID(ctx, a.GroupID)
			if err != nil {
				return mapRepoError(err)
			}
			members, err := s.groupRepo.ListMembers(ctx, a.GroupID)
			if err != nil {
				return mapRepoError(err)
			}
			capacities[a.GroupID] = group.Capacity
			memberCounts[a.GroupID] = len(members)
		}

		participant, err := s.participantRepo.GetByID(ctx, a.ParticipantID)
		if err != nil {
			return mapRepoError(err)
		}
		if participant.IsVirtual || participant.TournamentID != session.TournamentID {
			return fmt.Errorf("%w: participant %d is not an eligible entrant", ErrInvalidDrawResult, a.ParticipantID)
		}

		memberCounts[a.GroupID]++
		if memberCounts[a.GroupID] > capacities[a.GroupID] {
			return fmt.Errorf("%w: group %d over capacity", ErrInvalidDrawResult, a.GroupID)
		}

		member := &models.GroupMember{
			GroupID:       a.GroupID,
			ParticipantID: a.ParticipantID,
			SeedInGroup:   a.SeedInGroup,
			Status:        models.GroupMemberActive,
		}
		if err := s.groupRepo.AddMember(ctx, tx, member); err != nil {
			return mapRepoError(err)
		}
		if err := s.participantRepo.UpdateGroup(ctx, tx, a.ParticipantID, &a.GroupID); err != nil {
			return mapRepoError(err)
		}
	}
	return nil
}

func (s *drawService) applyKnockoutPairing(ctx context.Context, tx *sql.Tx, session *models.DrawSession, result *models.KnockoutPairingResult) error {
	switch {
	case len(result.SeedOrder) > 0:
		return s.applySeedOrder(ctx, tx, session, result.SeedOrder)
	case result.Random != nil:
		return s.applyRandomDirective(ctx, tx, session, result.Random)
	case result.GroupRank != nil:
		return s.applyGroupRankDirective(ctx, tx, session, result.GroupRank)
	}
	return fmt.Errorf("%w: knockout pairing needs a seed order or a directive", ErrInvalidDrawResult)
}

// applySeedOrder writes drawn seed numbers onto the listed participants,
// first position drawn gets seed 1.
func (s *drawService) applySeedOrder(ctx context.Context, tx *sql.Tx, session *models.DrawSession, order []int) error {
	virtual := false
	status := models.ParticipantActive
	eligible, err := s.participantRepo.ListByTournament(ctx, session.TournamentID, repositories.ParticipantFilter{
		Virtual: &virtual,
		Status:  &status,
	})
	if err != nil {
		return mapRepoError(err)
	}
	eligibleIDs := make(map[int]bool, len(eligible))
	for _, p := range eligible {
		eligibleIDs[p.ID] = true
	}
	if err := validateSeedOrder(order, eligibleIDs); err != nil {
		return err
	}

	for i, participantID := range order {
		seed := i + 1
		if err := s.participantRepo.UpdateSeed(ctx, tx, participantID, &seed); err != nil {
			return mapRepoError(err)
		}
	}
	return nil
}

// applyRandomDirective builds a placeholder bracket of the requested size:
// every first-round side is a "Seed N" placeholder backed by a SEED slot.
// Once the external random draw assigns real seed numbers, the slot resolver
// swaps the placeholders out.
func (s *drawService) applyRandomDirective(ctx context.Context, tx *sql.Tx, session *models.DrawSession, directive *models.RandomDirective) error {
	if session.StageID == nil {
		return fmt.Errorf("%w: random knockout draw needs a stage", ErrInvalidDrawResult)
	}
	size := directive.BracketSize
	if size < 2 || size&(size-1) != 0 {
		return fmt.Errorf("%w: bracket size %d", ErrInvalidDrawResult, size)
	}

	stage, err := s.stageRepo.GetByID(ctx, *session.StageID)
	if err != nil {
		return mapRepoError(err)
	}
	if stage.Type != models.StageTypeKnockout {
		return fmt.Errorf("%w: stage %d is not a knockout stage", ErrInvalidDrawResult, stage.ID)
	}
	existing, err := s.matchRepo.CountByStage(ctx, tx, stage.ID)
	if err != nil {
		return err
	}
	if existing > 0 {
		return ErrBracketAlreadyExists
	}

	entrantIDs := make([]int, 0, size)
	seedOf := make(map[int]int, size)
	for seed := 1; seed <= size; seed++ {
		n := seed
		label := fmt.Sprintf("Seed %d", seed)
		placeholder := &models.Participant{
			TournamentID: session.TournamentID,
			DisplayName:  label,
			IsVirtual:    true,
			Label:        &label,
			AdvancingSource: &models.AdvancingSource{
				Type: models.AdvancingSourceSeed,
				Seed: &n,
			},
		}
		if err := s.participantRepo.Create(ctx, tx, placeholder); err != nil {
			return mapRepoError(err)
		}
		entrantIDs = append(entrantIDs, placeholder.ID)
		seedOf[placeholder.ID] = seed
	}

	plan, err := brackets.BuildSingleElimination(entrantIDs, size, false)
	if err != nil {
		return mapGeneratorError(err)
	}
	w := bracketWriter{matchRepo: s.matchRepo, participantRepo: s.participantRepo, slotRepo: s.slotRepo}
	created, err := persistBracketPlan(ctx, tx, w, stage, plan, seedOf)
	if err != nil {
		return err
	}
	metrics.MatchesGenerated.Add(float64(created))
	return nil
}

// applyGroupRankDirective derives the seed order from the finalized
// standings of an earlier group stage: rank 1 finishers first in group
// order, then rank 2, and so on, with wildcards filling from the next rank.
func (s *drawService) applyGroupRankDirective(ctx context.Context, tx *sql.Tx, session *models.DrawSession, directive *models.GroupRankDirective) error {
	if directive.TopPerGroup < 1 {
		return fmt.Errorf("%w: top-per-group must be positive", ErrInvalidDrawResult)
	}
	views, err := s.standingsSvc.ForStage(ctx, directive.SourceStageID)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		return fmt.Errorf("%w: stage %d has no groups", ErrInvalidDrawResult, directive.SourceStageID)
	}
	for _, view := range views {
		if !view.Final {
			return ErrStandingsNotFinal
		}
	}

	order, err := seedOrderFromStandings(views, directive.TopPerGroup, directive.WildcardCount)
	if err != nil {
		return err
	}
	if directive.BracketSize > 0 && len(order) > directive.BracketSize {
		return fmt.Errorf("%w: %d qualifiers for a %d bracket", ErrInvalidDrawResult, len(order), directive.BracketSize)
	}

	for i, participantID := range order {
		seed := i + 1
		if err := s.participantRepo.UpdateSeed(ctx, tx, participantID, &seed); err != nil {
			return mapRepoError(err)
		}
	}
	return nil
}

// decodeDrawResult parses and validates a session's recorded result for its
// type. A nil or empty result is always invalid at apply time.
func decodeDrawResult(t models.DrawSessionType, raw *string) (interface{}, error) {
	if raw == nil || *raw == "" {
		return nil, fmt.Errorf("%w: no result recorded", ErrInvalidDrawResult)
	}

	switch t {
	case models.DrawDoublesPairing:
		var r models.DoublesPairingResult
		if err := json.Unmarshal([]byte(*raw), &r); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDrawResult, err)
		}
		if len(r.Pairs) == 0 {
			return nil, fmt.Errorf("%w: no pairs recorded", ErrInvalidDrawResult)
		}
		seen := make(map[int]bool, len(r.Pairs)*2)
		for _, pair := range r.Pairs {
			if pair.SideAMemberID <= 0 || pair.SideBMemberID <= 0 || pair.SideAMemberID == pair.SideBMemberID {
				return nil, fmt.Errorf("%w: malformed pair %d/%d", ErrInvalidDrawResult, pair.SideAMemberID, pair.SideBMemberID)
			}
			if seen[pair.SideAMemberID] || seen[pair.SideBMemberID] {
				return nil, fmt.Errorf("%w: member drawn into two pairs", ErrInvalidDrawResult)
			}
			seen[pair.SideAMemberID] = true
			seen[pair.SideBMemberID] = true
		}
		return &r, nil

	case models.DrawGroupAssignment:
		var r models.GroupAssignmentResult
		if err := json.Unmarshal([]byte(*raw), &r); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDrawResult, err)
		}
		if len(r.Assignments) == 0 {
			return nil, fmt.Errorf("%w: no assignments recorded", ErrInvalidDrawResult)
		}
		seen := make(map[int]bool, len(r.Assignments))
		for _, a := range r.Assignments {
			if a.GroupID <= 0 || a.ParticipantID <= 0 || a.SeedInGroup < 1 {
				return nil, fmt.Errorf("%w: malformed assignment for participant %d", ErrInvalidDrawResult, a.ParticipantID)
			}
			if seen[a.ParticipantID] {
				return nil, fmt.Errorf("%w: participant %d drawn into two groups", ErrInvalidDrawResult, a.ParticipantID)
			}
			seen[a.ParticipantID] = true
		}
		return &r, nil

	case models.DrawKnockoutPairing:
		var r models.KnockoutPairingResult
		if err := json.Unmarshal([]byte(*raw), &r); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDrawResult, err)
		}
		variants := 0
		if len(r.SeedOrder) > 0 {
			variants++
		}
		if r.Random != nil {
			variants++
		}
		if r.GroupRank != nil {
			variants++
		}
		if variants != 1 {
			return nil, fmt.Errorf("%w: exactly one of seed_order, random, group_rank must be set", ErrInvalidDrawResult)
		}
		return &r, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidDrawType, t)
}

// validateSeedOrder requires the drawn order to reference distinct, eligible
// participants only.
func validateSeedOrder(order []int, eligibleIDs map[int]bool) error {
	if len(order) < 2 {
		return fmt.Errorf("%w: at least 2 entries required", ErrInvalidSeedOrder)
	}
	seen := make(map[int]bool, len(order))
	for _, id := range order {
		if !eligibleIDs[id] {
			return fmt.Errorf("%w: participant %d is not eligible", ErrInvalidSeedOrder, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: participant %d listed twice", ErrInvalidSeedOrder, id)
		}
		seen[id] = true
	}
	return nil
}

// seedOrderFromStandings lays qualifiers out rank-major: every group winner
// (in group order), then every runner-up, and so on through topPerGroup.
// Wildcards are the best of the next rank down, compared by wins then game
// difference then points difference.
func seedOrderFromStandings(views []*GroupStandingsView, topPerGroup, wildcardCount int) ([]int, error) {
	order := make([]int, 0)
	for rank := 1; rank <= topPerGroup; rank++ {
		for _, view := range views {
			if rank > len(view.Entries) {
				return nil, fmt.Errorf("%w: group %d has fewer than %d ranked entries", ErrInvalidDrawResult, view.GroupID, rank)
			}
			order = append(order, view.Entries[rank-1].Participant.ID)
		}
	}

	if wildcardCount > 0 {
		type candidate struct {
			id       int
			wins     int
			gameDiff int
			ptsDiff  int
		}
		candidates := make([]candidate, 0, len(views))
		for _, view := range views {
			if topPerGroup < len(view.Entries) {
				e := view.Entries[topPerGroup]
				candidates = append(candidates, candidate{
					id:       e.Participant.ID,
					wins:     e.Wins,
					gameDiff: e.GameDifference(),
					ptsDiff:  e.PointsDifference(),
				})
			}
		}
		if len(candidates) < wildcardCount {
			return nil, fmt.Errorf("%w: only %d wildcard candidates for %d spots", ErrInvalidDrawResult, len(candidates), wildcardCount)
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].wins != candidates[j].wins {
				return candidates[i].wins > candidates[j].wins
			}
			if candidates[i].gameDiff != candidates[j].gameDiff {
				return candidates[i].gameDiff > candidates[j].gameDiff
			}
			return candidates[i].ptsDiff > candidates[j].ptsDiff
		})
		for i := 0; i < wildcardCount; i++ {
			order = append(order, candidates[i].id)
		}
	}
	return order, nil
}
