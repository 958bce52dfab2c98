package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openbracket/tournament-engine/brackets"
	"github.com/openbracket/tournament-engine/metrics"
	"github.com/openbracket/tournament-engine/models"
	"github.com/openbracket/tournament-engine/repositories"
)

type GroupService interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id int) (*models.Group, error)
	ListByStage(ctx context.Context, stageID int) ([]*models.Group, error)
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id int) error

	AddMember(ctx context.Context, member *models.GroupMember) error
	UpdateMember(ctx context.Context, member *models.GroupMember) error
	RemoveMember(ctx context.Context, groupID, participantID int) error
	ListMembers(ctx context.Context, groupID int) ([]*models.GroupMember, error)

	// AutoGenerateGroups creates count equally-shaped groups named Group A,
	// Group B and so on under the stage.
	AutoGenerateGroups(ctx context.Context, stageID, count, capacity, advancementCount int) ([]*models.Group, error)
	// AssignBySeeding distributes the tournament's real participants over the
	// stage's groups serpentine-style by seed order.
	AssignBySeeding(ctx context.Context, stageID int) error
	// GenerateRoundRobin creates the full match schedule: one circle-method
	// cycle set per group, or over all participants for a LEAGUE stage.
	GenerateRoundRobin(ctx context.Context, stageID, matchupsPerPair int) (int, error)
}

type groupService struct {
	db              *sql.DB
	groupRepo       repositories.GroupRepository
	stageRepo       repositories.StageRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	logger          *slog.Logger
}

func NewGroupService(
	db *sql.DB,
	groupRepo repositories.GroupRepository,
	stageRepo repositories.StageRepository,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	logger *slog.Logger,
) GroupService {
	return &groupService{
		db:              db,
		groupRepo:       groupRepo,
		stageRepo:       stageRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		logger:          logger,
	}
}

func (s *groupService) Create(ctx context.Context, group *models.Group) error {
	if err := validateGroupShape(group.Capacity, group.AdvancementCount); err != nil {
		return err
	}
	group.Name = strings.TrimSpace(group.Name)
	if group.Name == "" {
		return fmt.Errorf("%w: group name is required", ErrValidationFailed)
	}
	if _, err := s.stageRepo.GetByID(ctx, group.StageID); err != nil {
		return mapRepoError(err)
	}
	return mapRepoError(s.groupRepo.Create(ctx, s.db, group))
}

func (s *groupService) GetByID(ctx context.Context, id int) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	members, err := s.groupRepo.ListMembers(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	group.Members = make([]models.GroupMember, len(members))
	for i, m := range members {
		group.Members[i] = *m
	}
	return group, nil
}

func (s *groupService) ListByStage(ctx context.Context, stageID int) ([]*models.Group, error) {
	groups, err := s.groupRepo.ListByStage(ctx, stageID)
	return groups, mapRepoError(err)
}

func (s *groupService) Update(ctx context.Context, group *models.Group) error {
	if err := validateGroupShape(group.Capacity, group.AdvancementCount); err != nil {
		return err
	}
	return mapRepoError(s.groupRepo.Update(ctx, group))
}

func (s *groupService) Delete(ctx context.Context, id int) error {
	return mapRepoError(s.groupRepo.Delete(ctx, id))
}

func (s *groupService) AddMember(ctx context.Context, member *models.GroupMember) error {
	group, err := s.groupRepo.GetByID(ctx, member.GroupID)
	if err != nil {
		return mapRepoError(err)
	}
	members, err := s.groupRepo.ListMembers(ctx, member.GroupID)
	if err != nil {
		return mapRepoError(err)
	}
	if len(members) >= group.Capacity {
		return ErrGroupFull
	}
	if member.Status == "" {
		member.Status = models.GroupMemberActive
	}

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.groupRepo.AddMember(ctx, tx, member); err != nil {
			return mapRepoError(err)
		}
		return mapRepoError(s.participantRepo.UpdateGroup(ctx, tx, member.ParticipantID, &member.GroupID))
	})
}

func (s *groupService) UpdateMember(ctx context.Context, member *models.GroupMember) error {
	return mapRepoError(s.groupRepo.UpdateMember(ctx, member))
}

func (s *groupService) RemoveMember(ctx context.Context, groupID, participantID int) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.groupRepo.RemoveMember(ctx, groupID, participantID); err != nil {
			return mapRepoError(err)
		}
		return mapRepoError(s.participantRepo.UpdateGroup(ctx, tx, participantID, nil))
	})
}

func (s *groupService) ListMembers(ctx context.Context, groupID int) ([]*models.GroupMember, error) {
	members, err := s.groupRepo.ListMembers(ctx, groupID)
	return members, mapRepoError(err)
}

func (s *groupService) AutoGenerateGroups(ctx context.Context, stageID, count, capacity, advancementCount int) ([]*models.Group, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: group count must be positive", ErrValidationFailed)
	}
	if err := validateGroupShape(capacity, advancementCount); err != nil {
		return nil, err
	}
	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if stage.Type != models.StageTypeGroup {
		return nil, fmt.Errorf("%w: stage %d is not a group stage", ErrValidationFailed, stageID)
	}

	existing, err := s.groupRepo.ListByStage(ctx, stageID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: stage %d already has groups", ErrValidationFailed, stageID)
	}

	groups := make([]*models.Group, 0, count)
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		for i := 0; i < count; i++ {
			group := &models.Group{
				StageID:          stageID,
				Name:             "Group " + groupLetter(i),
				Capacity:         capacity,
				AdvancementCount: advancementCount,
			}
			if err := s.groupRepo.Create(ctx, tx, group); err != nil {
				return mapRepoError(err)
			}
			groups = append(groups, group)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *groupService) AssignBySeeding(ctx context.Context, stageID int) error {
	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return mapRepoError(err)
	}
	groups, err := s.groupRepo.ListByStage(ctx, stageID)
	if err != nil {
		return mapRepoError(err)
	}
	if len(groups) == 0 {
		return fmt.Errorf("%w: stage %d has no groups", ErrValidationFailed, stageID)
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
	if len(participants) == 0 {
		return ErrNotEnoughParticipants
	}

	totalCapacity := 0
	for _, g := range groups {
		totalCapacity += g.Capacity
	}
	if len(participants) > totalCapacity {
		return fmt.Errorf("%w: %d participants for %d group slots", ErrValidationFailed, len(participants), totalCapacity)
	}

	assignment := snakeAssign(len(groups), len(participants))

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, stage.TournamentID)
		if err != nil {
			return mapRepoError(err)
		}
		if !tournament.ParticipantsLocked {
			return ErrParticipantsNotLocked
		}

		for groupIdx, indices := range assignment {
			group := groups[groupIdx]
			if len(indices) > group.Capacity {
				return fmt.Errorf("%w: %s cannot hold %d participants", ErrValidationFailed, group.Name, len(indices))
			}
			for seedInGroup, pi := range indices {
				p := participants[pi]
				member := &models.GroupMember{
					GroupID:       group.ID,
					ParticipantID: p.ID,
					SeedInGroup:   seedInGroup + 1,
					Status:        models.GroupMemberActive,
				}
				if err := s.groupRepo.AddMember(ctx, tx, member); err != nil {
					return mapRepoError(err)
				}
				if err := s.participantRepo.UpdateGroup(ctx, tx, p.ID, &group.ID); err != nil {
					return mapRepoError(err)
				}
			}
		}
		return nil
	})
}

func (s *groupService) GenerateRoundRobin(ctx context.Context, stageID, matchupsPerPair int) (int, error) {
	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return 0, mapRepoError(err)
	}
	if stage.Type != models.StageTypeGroup && stage.Type != models.StageTypeLeague {
		return 0, fmt.Errorf("%w: stage %d is not a group or league stage", ErrValidationFailed, stageID)
	}

	created := 0
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, stage.TournamentID)
		if err != nil {
			return mapRepoError(err)
		}
		if !tournament.ParticipantsLocked {
			return ErrParticipantsNotLocked
		}

		if stage.Type == models.StageTypeLeague {
			n, err := s.generateLeagueSchedule(ctx, tx, stage, matchupsPerPair)
			created = n
			return err
		}

		groups, err := s.groupRepo.ListByStage(ctx, stageID)
		if err != nil {
			return mapRepoError(err)
		}
		if len(groups) == 0 {
			return fmt.Errorf("%w: stage %d has no groups", ErrValidationFailed, stageID)
		}
		for _, group := range groups {
			n, err := s.generateGroupSchedule(ctx, tx, stage, group, matchupsPerPair)
			if err != nil {
				return err
			}
			created += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.MatchesGenerated.Add(float64(created))
	s.logger.Info("round robin schedule generated",
		"stage_id", stageID, "matches", created, "matchups_per_pair", matchupsPerPair)
	return created, nil
}

func (s *groupService) generateGroupSchedule(ctx context.Context, tx *sql.Tx, stage *models.Stage, group *models.Group, matchupsPerPair int) (int, error) {
	existing, err := s.matchRepo.CountByGroup(ctx, tx, group.ID)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, fmt.Errorf("%w: group %d", ErrMatchesAlreadyExist, group.ID)
	}

	members, err := s.groupRepo.ListMembers(ctx, group.ID)
	if err != nil {
		return 0, mapRepoError(err)
	}
	ids := make([]int, 0, len(members))
	for _, m := range members {
		if m.Status == models.GroupMemberActive {
			ids = append(ids, m.ParticipantID)
		}
	}

	pairings, err := brackets.BuildRoundRobin(ids, matchupsPerPair)
	if err != nil {
		return 0, mapGeneratorError(err)
	}
	return len(pairings), s.persistPairings(ctx, tx, stage, &group.ID, pairings)
}

func (s *groupService) generateLeagueSchedule(ctx context.Context, tx *sql.Tx, stage *models.Stage, matchupsPerPair int) (int, error) {
	existing, err := s.matchRepo.CountByStage(ctx, tx, stage.ID)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, fmt.Errorf("%w: stage %d", ErrMatchesAlreadyExist, stage.ID)
	}

	virtual := false
	status := models.ParticipantActive
	participants, err := s.participantRepo.ListByTournament(ctx, stage.TournamentID, repositories.ParticipantFilter{
		Virtual: &virtual,
		Status:  &status,
	})
	if err != nil {
		return 0, mapRepoError(err)
	}
	ids := make([]int, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}

	pairings, err := brackets.BuildRoundRobin(ids, matchupsPerPair)
	if err != nil {
		return 0, mapGeneratorError(err)
	}
	return len(pairings), s.persistPairings(ctx, tx, stage, nil, pairings)
}

func (s *groupService) persistPairings(ctx context.Context, tx *sql.Tx, stage *models.Stage, groupID *int, pairings []brackets.Pairing) error {
	for _, p := range pairings {
		match := &models.Match{
			TournamentID: stage.TournamentID,
			StageID:      stage.ID,
			GroupID:      groupID,
			Round:        p.Round,
			MatchNumber:  p.MatchNumber,
			Status:       models.MatchStatusScheduled,
		}
		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			return mapRepoError(err)
		}
		home := &models.MatchParticipant{MatchID: match.ID, ParticipantID: p.HomeID, Position: 1}
		away := &models.MatchParticipant{MatchID: match.ID, ParticipantID: p.AwayID, Position: 2}
		if err := s.matchRepo.AddParticipant(ctx, tx, home); err != nil {
			return mapRepoError(err)
		}
		if err := s.matchRepo.AddParticipant(ctx, tx, away); err != nil {
			return mapRepoError(err)
		}
	}
	return nil
}

func validateGroupShape(capacity, advancementCount int) error {
	if capacity < 2 {
		return fmt.Errorf("%w: capacity must be at least 2", ErrValidationFailed)
	}
	if advancementCount < 1 || advancementCount >= capacity {
		return ErrInvalidGroupCapacity
	}
	return nil
}

// groupLetter yields A..Z, then AA, AB and so on.
func groupLetter(i int) string {
	letter := string(rune('A' + i%26))
	for i >= 26 {
		i = i/26 - 1
		letter = string(rune('A'+i%26)) + letter
	}
	return letter
}

// snakeAssign distributes n participants over groupCount groups in serpentine
// order: the strongest tier fills groups left to right, the next tier right
// to left, and so on, which balances total seed strength per group. The
// returned slice holds, per group, the participant indices in tier order.
func snakeAssign(groupCount, n int) [][]int {
	assignment := make([][]int, groupCount)
	for i := 0; i < n; i++ {
		tier := i / groupCount
		pos := i % groupCount
		if tier%2 == 1 {
			pos = groupCount - 1 - pos
		}
		assignment[pos] = append(assignment[pos], i)
	}
	return assignment
}

func mapGeneratorError(err error) error {
	switch {
	case err == nil:
		return nil
	case err == brackets.ErrNotEnoughParticipants:
		return ErrNotEnoughParticipants
	case err == brackets.ErrInvalidMatchupCount, err == brackets.ErrInvalidBracketSize:
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	default:
		return err
	}
}
