package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbracket/tournament-engine/brackets"
	"github.com/openbracket/tournament-engine/models"
	"github.com/openbracket/tournament-engine/standings"
)

func strPtr(s string) *string { return &s }

func TestDecodeDrawResult_Doubles(t *testing.T) {
	raw := strPtr(`{"pairs":[{"side_a_member_id":1,"side_b_member_id":2},{"side_a_member_id":3,"side_b_member_id":4}]}`)
	result, err := decodeDrawResult(models.DrawDoublesPairing, raw)
	require.NoError(t, err)

	doubles, ok := result.(*models.DoublesPairingResult)
	require.True(t, ok)
	assert.Len(t, doubles.Pairs, 2)
}

func TestDecodeDrawResult_DoublesMemberInTwoPairs(t *testing.T) {
	raw := strPtr(`{"pairs":[{"side_a_member_id":1,"side_b_member_id":2},{"side_a_member_id":2,"side_b_member_id":3}]}`)
	_, err := decodeDrawResult(models.DrawDoublesPairing, raw)
	assert.ErrorIs(t, err, ErrInvalidDrawResult)
}

func TestDecodeDrawResult_DoublesSelfPair(t *testing.T) {
	raw := strPtr(`{"pairs":[{"side_a_member_id":5,"side_b_member_id":5}]}`)
	_, err := decodeDrawResult(models.DrawDoublesPairing, raw)
	assert.ErrorIs(t, err, ErrInvalidDrawResult)
}

func TestDecodeDrawResult_GroupAssignment(t *testing.T) {
	raw := strPtr(`{"assignments":[{"group_id":1,"participant_id":10,"seed_in_group":1},{"group_id":1,"participant_id":11,"seed_in_group":2}]}`)
	result, err := decodeDrawResult(models.DrawGroupAssignment, raw)
	require.NoError(t, err)

	ga, ok := result.(*models.GroupAssignmentResult)
	require.True(t, ok)
	assert.Len(t, ga.Assignments, 2)
}

func TestDecodeDrawResult_GroupAssignmentDuplicateParticipant(t *testing.T) {
	raw := strPtr(`{"assignments":[{"group_id":1,"participant_id":10,"seed_in_group":1},{"group_id":2,"participant_id":10,"seed_in_group":1}]}`)
	_, err := decodeDrawResult(models.DrawGroupAssignment, raw)
	assert.ErrorIs(t, err, ErrInvalidDrawResult)
}

func TestDecodeDrawResult_KnockoutExactlyOneVariant(t *testing.T) {
	cases := map[string]string{
		"none": `{}`,
		"two":  `{"seed_order":[1,2],"random":{"bracket_size":8}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeDrawResult(models.DrawKnockoutPairing, strPtr(raw))
			assert.ErrorIs(t, err, ErrInvalidDrawResult)
		})
	}

	result, err := decodeDrawResult(models.DrawKnockoutPairing, strPtr(`{"seed_order":[3,1,2]}`))
	require.NoError(t, err)
	ko, ok := result.(*models.KnockoutPairingResult)
	require.True(t, ok)
	assert.Equal(t, []int{3, 1, 2}, ko.SeedOrder)
}

func TestDecodeDrawResult_MissingResult(t *testing.T) {
	_, err := decodeDrawResult(models.DrawDoublesPairing, nil)
	assert.ErrorIs(t, err, ErrInvalidDrawResult)

	_, err = decodeDrawResult(models.DrawDoublesPairing, strPtr(""))
	assert.ErrorIs(t, err, ErrInvalidDrawResult)
}

func TestDecodeDrawResult_MalformedJSON(t *testing.T) {
	_, err := decodeDrawResult(models.DrawKnockoutPairing, strPtr(`{"seed_order":`))
	assert.ErrorIs(t, err, ErrInvalidDrawResult)
}

func TestValidateSeedOrder(t *testing.T) {
	eligible := map[int]bool{1: true, 2: true, 3: true, 4: true}

	assert.NoError(t, validateSeedOrder([]int{3, 1, 4, 2}, eligible))
	assert.ErrorIs(t, validateSeedOrder([]int{1}, eligible), ErrInvalidSeedOrder)
	assert.ErrorIs(t, validateSeedOrder([]int{1, 9}, eligible), ErrInvalidSeedOrder)
	assert.ErrorIs(t, validateSeedOrder([]int{1, 2, 1}, eligible), ErrInvalidSeedOrder)
}

func standingsEntry(participantID, wins, gamesWon, gamesLost int) *standings.Entry {
	return &standings.Entry{
		Participant: &models.Participant{ID: participantID},
		Wins:        wins,
		GamesWon:    gamesWon,
		GamesLost:   gamesLost,
	}
}

func TestSeedOrderFromStandings_RankMajor(t *testing.T) {
	views := []*GroupStandingsView{
		{GroupID: 1, Entries: []*standings.Entry{standingsEntry(11, 3, 6, 0), standingsEntry(12, 2, 4, 2), standingsEntry(13, 1, 2, 4)}},
		{GroupID: 2, Entries: []*standings.Entry{standingsEntry(21, 3, 6, 1), standingsEntry(22, 2, 4, 3), standingsEntry(23, 1, 3, 4)}},
	}

	order, err := seedOrderFromStandings(views, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{11, 21, 12, 22}, order)
}

func TestSeedOrderFromStandings_Wildcards(t *testing.T) {
	views := []*GroupStandingsView{
		{GroupID: 1, Entries: []*standings.Entry{standingsEntry(11, 3, 6, 0), standingsEntry(12, 2, 4, 2), standingsEntry(13, 1, 2, 4)}},
		{GroupID: 2, Entries: []*standings.Entry{standingsEntry(21, 3, 6, 1), standingsEntry(22, 2, 4, 3), standingsEntry(23, 1, 3, 4)}},
	}

	// Both third-place finishers have one win; participant 23 has the
	// better game difference and takes the single wildcard spot.
	order, err := seedOrderFromStandings(views, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{11, 21, 12, 22, 23}, order)
}

func TestSeedOrderFromStandings_NotEnoughRanked(t *testing.T) {
	views := []*GroupStandingsView{
		{GroupID: 1, Entries: []*standings.Entry{standingsEntry(11, 1, 2, 0)}},
	}
	_, err := seedOrderFromStandings(views, 2, 0)
	assert.ErrorIs(t, err, ErrInvalidDrawResult)
}

func TestSeedOrderFromStandings_NotEnoughWildcardCandidates(t *testing.T) {
	views := []*GroupStandingsView{
		{GroupID: 1, Entries: []*standings.Entry{standingsEntry(11, 2, 4, 0), standingsEntry(12, 1, 2, 2)}},
	}
	_, err := seedOrderFromStandings(views, 2, 1)
	assert.ErrorIs(t, err, ErrInvalidDrawResult)
}

func newDrawFixture(t *testing.T, session *models.DrawSession) (*drawService, *fakeDrawSessionRepo, *fakeParticipantRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	drawRepo := newFakeDrawSessionRepo(session)
	participantRepo := newFakeParticipantRepo(
		&models.Participant{ID: 31, TournamentID: 7, DisplayName: "Alice", Status: models.ParticipantActive},
		&models.Participant{ID: 32, TournamentID: 7, DisplayName: "Bob", Status: models.ParticipantActive},
		&models.Participant{ID: 33, TournamentID: 7, DisplayName: "Cara", Status: models.ParticipantActive},
	)
	svc := &drawService{
		db:              db,
		drawRepo:        drawRepo,
		participantRepo: participantRepo,
		hub:             brackets.NewHub(discardLogger()),
		logger:          discardLogger(),
	}
	return svc, drawRepo, participantRepo, mock
}

func TestDrawServiceApplyTransitionsExactlyOnce(t *testing.T) {
	session := &models.DrawSession{
		ID:           1,
		PublicID:     "draw-1",
		TournamentID: 7,
		Type:         models.DrawKnockoutPairing,
		Status:       models.DrawSessionPending,
		ResultJSON:   strPtr(`{"seed_order":[33,31,32]}`),
	}
	svc, drawRepo, participantRepo, mock := newDrawFixture(t, session)

	mock.ExpectBegin()
	mock.ExpectCommit()
	applied, err := svc.Apply(context.Background(), "draw-1")
	require.NoError(t, err)
	assert.Equal(t, models.DrawSessionApplied, applied.Status)
	require.NotNil(t, applied.AppliedAt)
	assert.Equal(t, 1, drawRepo.markAppliedCalls)

	bySeed := func(id int) int {
		p, err := participantRepo.GetByID(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, p.Seed)
		return *p.Seed
	}
	assert.Equal(t, 1, bySeed(33))
	assert.Equal(t, 2, bySeed(31))
	assert.Equal(t, 3, bySeed(32))

	// An applied session is terminal: a repeat apply is rejected and nothing
	// is written again.
	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.Apply(context.Background(), "draw-1")
	assert.ErrorIs(t, err, ErrDrawSessionNotPending)
	assert.Equal(t, 1, drawRepo.markAppliedCalls)
	assert.Equal(t, 3, participantRepo.updateSeedCalls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDrawServiceApplyFailureLeavesSessionPending(t *testing.T) {
	session := &models.DrawSession{
		ID:           1,
		PublicID:     "draw-2",
		TournamentID: 7,
		Type:         models.DrawKnockoutPairing,
		Status:       models.DrawSessionPending,
		ResultJSON:   strPtr(`{"seed_order":[31,99]}`),
	}
	svc, drawRepo, participantRepo, mock := newDrawFixture(t, session)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.Apply(context.Background(), "draw-2")
	assert.ErrorIs(t, err, ErrInvalidSeedOrder)

	assert.Equal(t, models.DrawSessionPending, session.Status)
	assert.Nil(t, session.AppliedAt)
	assert.Equal(t, 0, drawRepo.markAppliedCalls)
	assert.Equal(t, 0, participantRepo.updateSeedCalls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDrawServiceApplyWithoutResult(t *testing.T) {
	session := &models.DrawSession{
		ID:           1,
		PublicID:     "draw-3",
		TournamentID: 7,
		Type:         models.DrawDoublesPairing,
		Status:       models.DrawSessionPending,
	}
	svc, drawRepo, _, mock := newDrawFixture(t, session)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.Apply(context.Background(), "draw-3")
	assert.ErrorIs(t, err, ErrInvalidDrawResult)
	assert.Equal(t, models.DrawSessionPending, session.Status)
	assert.Equal(t, 0, drawRepo.markAppliedCalls)
	require.NoError(t, mock.ExpectationsWereMet())
}
