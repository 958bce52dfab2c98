package services

import (
	"context"
	"errors"

	"github.com/openbracket/tournament-engine/models"
	"github.com/openbracket/tournament-engine/repositories"
	"github.com/openbracket/tournament-engine/standings"
)

// GroupStandingsView is the ranked table of one group. Final reports whether
// every scheduled match of the group has been played, which is when the
// table can feed advancement.
type GroupStandingsView struct {
	GroupID   int                `json:"group_id"`
	GroupName string             `json:"group_name"`
	Entries   []*standings.Entry `json:"entries"`
	Final     bool               `json:"final"`
}

type StandingsService interface {
	ForGroup(ctx context.Context, groupID int) (*GroupStandingsView, error)
	ForStage(ctx context.Context, stageID int) ([]*GroupStandingsView, error)
}

type standingsService struct {
	groupRepo       repositories.GroupRepository
	stageRepo       repositories.StageRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
}

func NewStandingsService(
	groupRepo repositories.GroupRepository,
	stageRepo repositories.StageRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
) StandingsService {
	return &standingsService{
		groupRepo:       groupRepo,
		stageRepo:       stageRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
	}
}

func (s *standingsService) ForGroup(ctx context.Context, groupID int) (*GroupStandingsView, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return s.compute(ctx, group)
}

func (s *standingsService) ForStage(ctx context.Context, stageID int) ([]*GroupStandingsView, error) {
	groups, err := s.groupRepo.ListByStage(ctx, stageID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	views := make([]*GroupStandingsView, 0, len(groups))
	for _, group := range groups {
		view, err := s.compute(ctx, group)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *standingsService) compute(ctx context.Context, group *models.Group) (*GroupStandingsView, error) {
	members, err := s.groupRepo.ListMembers(ctx, group.ID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	// Seed-in-group order is the pre-existing order ties fall back to when
	// every tie-break rule is exhausted.
	ids := make([]int, 0, len(members))
	for _, m := range members {
		if m.Status == models.GroupMemberActive {
			ids = append(ids, m.ParticipantID)
		}
	}
	loaded, err := s.participantRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, mapRepoError(err)
	}
	byID := make(map[int]*models.Participant, len(loaded))
	for _, p := range loaded {
		byID[p.ID] = p
	}
	participants := make([]*models.Participant, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			participants = append(participants, p)
		}
	}

	matches, err := s.matchRepo.ListByGroup(ctx, group.ID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.matchRepo.AttachParticipants(ctx, matches); err != nil {
		return nil, mapRepoError(err)
	}

	rule, err := s.stageRepo.GetRule(ctx, group.StageID)
	if err != nil {
		if !errors.Is(err, repositories.ErrStageRuleNotFound) {
			return nil, mapRepoError(err)
		}
		rule = nil
	}

	entries, err := standings.Compute(participants, matches, rule, group.AdvancementCount)
	if err != nil {
		return nil, err
	}

	return &GroupStandingsView{
		GroupID:   group.ID,
		GroupName: group.Name,
		Entries:   entries,
		Final:     standingsFinal(matches),
	}, nil
}

// standingsFinal reports whether the schedule has fully played out: matches
// exist and none is still scheduled or in progress.
func standingsFinal(matches []*models.Match) bool {
	if len(matches) == 0 {
		return false
	}
	for _, m := range matches {
		if m.Status == models.MatchStatusScheduled || m.Status == models.MatchStatusInProgress {
			return false
		}
	}
	return true
}
