package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbracket/tournament-engine/brackets"
	"github.com/openbracket/tournament-engine/models"
)

func intPtr(n int) *int { return &n }

func resolverFixture(t *testing.T) (*slotResolverService, *fakeMatchRepo, *fakeParticipantRepo, *fakeBracketSlotRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	label := "Winner of match 10 (Round 1)"
	participantRepo := newFakeParticipantRepo(
		&models.Participant{ID: 21, TournamentID: 7, DisplayName: "Alice", Status: models.ParticipantActive},
		&models.Participant{ID: 22, TournamentID: 7, DisplayName: "Bob", Status: models.ParticipantActive},
		&models.Participant{ID: 23, TournamentID: 7, DisplayName: "Cara", Status: models.ParticipantActive},
		&models.Participant{ID: 24, TournamentID: 7, DisplayName: "Dave", Status: models.ParticipantActive},
		&models.Participant{ID: 90, TournamentID: 7, DisplayName: label, IsVirtual: true, Label: &label},
		&models.Participant{ID: 91, TournamentID: 7, DisplayName: "Winner of match 11 (Round 1)", IsVirtual: true},
	)
	matchRepo := newFakeMatchRepo(
		&models.Match{
			ID: 10, TournamentID: 7, StageID: 5, Round: 1, MatchNumber: 1,
			Status: models.MatchStatusCompleted, WinnerParticipantID: intPtr(21),
			Participants: []models.MatchParticipant{
				{MatchID: 10, ParticipantID: 21, Position: 1, IsWinner: true},
				{MatchID: 10, ParticipantID: 22, Position: 2},
			},
		},
		&models.Match{
			ID: 11, TournamentID: 7, StageID: 5, Round: 1, MatchNumber: 2,
			Status: models.MatchStatusScheduled,
			Participants: []models.MatchParticipant{
				{MatchID: 11, ParticipantID: 23, Position: 1},
				{MatchID: 11, ParticipantID: 24, Position: 2},
			},
		},
		&models.Match{
			ID: 20, TournamentID: 7, StageID: 5, Round: 2, MatchNumber: 1,
			Status: models.MatchStatusScheduled,
			Participants: []models.MatchParticipant{
				{MatchID: 20, ParticipantID: 90, Position: 1},
				{MatchID: 20, ParticipantID: 91, Position: 2},
			},
		},
	)
	slotRepo := newFakeBracketSlotRepo(
		&models.BracketSlot{ID: 1, StageID: 5, TargetMatchID: 20, Position: 1, SourceType: models.SlotSourceMatchWinner, SourceMatchID: intPtr(10)},
		&models.BracketSlot{ID: 2, StageID: 5, TargetMatchID: 20, Position: 2, SourceType: models.SlotSourceMatchWinner, SourceMatchID: intPtr(11)},
	)
	svc := &slotResolverService{
		db:              db,
		stageRepo:       newFakeStageRepo(&models.Stage{ID: 5, TournamentID: 7, Type: models.StageTypeKnockout}),
		slotRepo:        slotRepo,
		matchRepo:       matchRepo,
		participantRepo: participantRepo,
		hub:             brackets.NewHub(discardLogger()),
		logger:          discardLogger(),
	}
	return svc, matchRepo, participantRepo, slotRepo, mock
}

func TestResolveStageSubstitutesDeterminedSlots(t *testing.T) {
	svc, matchRepo, participantRepo, slotRepo, mock := resolverFixture(t)

	mock.ExpectBegin()
	mock.ExpectCommit()
	report, err := svc.ResolveStage(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Resolved)
	require.Len(t, report.Unresolved, 1)
	assert.Equal(t, 2, report.Unresolved[0].SlotID)
	assert.Equal(t, "source match not completed", report.Unresolved[0].Reason)

	target, err := matchRepo.GetByID(context.Background(), 20)
	require.NoError(t, err)
	require.NotNil(t, target.ParticipantAt(1))
	assert.Equal(t, 21, target.ParticipantAt(1).ParticipantID)

	// The placeholder the winner stood in for is gone and the slot records
	// who filled it.
	_, err = participantRepo.GetByID(context.Background(), 90)
	assert.ErrorIs(t, mapRepoError(err), ErrParticipantNotFound)
	assert.True(t, slotRepo.slots[1].Resolved)
	require.NotNil(t, slotRepo.slots[1].ParticipantID)
	assert.Equal(t, 21, *slotRepo.slots[1].ParticipantID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveStageRepeatPassIsNoOp(t *testing.T) {
	svc, matchRepo, participantRepo, slotRepo, mock := resolverFixture(t)

	mock.ExpectBegin()
	mock.ExpectCommit()
	first, err := svc.ResolveStage(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, 1, first.Resolved)

	replaceCalls := matchRepo.replaceRefsCalls
	deleted := len(participantRepo.deleted)

	// No new completions between passes: the second pass resolves nothing
	// and touches nothing.
	mock.ExpectBegin()
	mock.ExpectCommit()
	second, err := svc.ResolveStage(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Resolved)
	require.Len(t, second.Unresolved, 1)
	assert.Equal(t, replaceCalls, matchRepo.replaceRefsCalls)
	assert.Equal(t, deleted, len(participantRepo.deleted))
	assert.True(t, slotRepo.slots[1].Resolved)
	assert.False(t, slotRepo.slots[2].Resolved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveStagePicksUpLaterCompletions(t *testing.T) {
	svc, matchRepo, _, slotRepo, mock := resolverFixture(t)

	mock.ExpectBegin()
	mock.ExpectCommit()
	_, err := svc.ResolveStage(context.Background(), 5)
	require.NoError(t, err)

	source, err := matchRepo.GetByID(context.Background(), 11)
	require.NoError(t, err)
	source.Status = models.MatchStatusCompleted
	source.WinnerParticipantID = intPtr(23)

	mock.ExpectBegin()
	mock.ExpectCommit()
	report, err := svc.ResolveStage(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Resolved)
	assert.Empty(t, report.Unresolved)

	target, err := matchRepo.GetByID(context.Background(), 20)
	require.NoError(t, err)
	require.NotNil(t, target.ParticipantAt(2))
	assert.Equal(t, 23, target.ParticipantAt(2).ParticipantID)
	assert.True(t, slotRepo.slots[2].Resolved)
	require.NoError(t, mock.ExpectationsWereMet())
}
