package standings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbracket/tournament-engine/models"
)

func participant(id int) *models.Participant {
	return &models.Participant{ID: id, DisplayName: string(rune('A' + id - 1))}
}

func playedMatch(id, p1, p2, winner int, score string) *models.Match {
	m := &models.Match{
		ID:     id,
		Status: models.MatchStatusCompleted,
		Participants: []models.MatchParticipant{
			{MatchID: id, ParticipantID: p1, Position: 1, IsWinner: p1 == winner},
			{MatchID: id, ParticipantID: p2, Position: 2, IsWinner: p2 == winner},
		},
	}
	if winner != 0 {
		m.WinnerParticipantID = &winner
	}
	if score != "" {
		m.Score = &score
	}
	return m
}

func defaultRule(order ...models.TieBreakRule) *models.StageRule {
	return &models.StageRule{WinPoints: 2, LossPoints: 0, ByePoints: 2, TieBreakOrder: order}
}

func TestComputeBaseRecords(t *testing.T) {
	ps := []*models.Participant{participant(1), participant(2)}
	matches := []*models.Match{
		playedMatch(10, 1, 2, 1, "21-15,18-21,21-10"),
	}

	table, err := Compute(ps, matches, defaultRule(), 0)
	require.NoError(t, err)
	require.Len(t, table, 2)

	first := table[0]
	assert.Equal(t, 1, first.Participant.ID)
	assert.Equal(t, 1, first.Rank)
	assert.Equal(t, 1, first.Wins)
	assert.Equal(t, 0, first.Losses)
	assert.Equal(t, 1, first.Played)
	assert.Equal(t, 2, first.TablePoints)
	assert.Equal(t, 2, first.GamesWon)
	assert.Equal(t, 1, first.GamesLost)
	assert.Equal(t, 60, first.PointsScored)
	assert.Equal(t, 46, first.PointsConceded)

	second := table[1]
	assert.Equal(t, 2, second.Participant.ID)
	assert.Equal(t, 1, second.GamesWon)
	assert.Equal(t, 2, second.GamesLost)
	assert.Equal(t, 46, second.PointsScored)
	assert.Equal(t, 60, second.PointsConceded)
}

func TestComputeScheduledMatchesIgnored(t *testing.T) {
	ps := []*models.Participant{participant(1), participant(2)}
	pending := playedMatch(10, 1, 2, 1, "")
	pending.Status = models.MatchStatusScheduled

	table, err := Compute(ps, []*models.Match{pending}, defaultRule(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, table[0].Played)
	assert.Equal(t, 0, table[0].Wins)
}

func TestComputeHeadToHeadSettlesTwoWayTie(t *testing.T) {
	// 1 and 2 both finish 2-1; 2 beat 1, so head-to-head must put 2 first
	// without consulting the game difference (which favors 1).
	ps := []*models.Participant{participant(1), participant(2), participant(3), participant(4)}
	matches := []*models.Match{
		playedMatch(1, 1, 2, 2, "15-21,15-21"),
		playedMatch(2, 1, 3, 1, "21-1,21-1"),
		playedMatch(3, 1, 4, 1, "21-1,21-1"),
		playedMatch(4, 2, 3, 3, "19-21,19-21"),
		playedMatch(5, 2, 4, 2, "21-19,19-21,21-19"),
		playedMatch(6, 3, 4, 4, "19-21,19-21"),
	}

	table, err := Compute(ps, matches, defaultRule(models.TieBreakWinsVsTied, models.TieBreakGameSetDifference), 0)
	require.NoError(t, err)

	assert.Equal(t, 2, table[0].Participant.ID)
	assert.Equal(t, 1, table[1].Participant.ID)
	require.NotNil(t, table[0].DecidedBy)
	assert.Equal(t, models.TieBreakWinsVsTied, *table[0].DecidedBy)
	require.NotNil(t, table[1].DecidedBy)
	assert.Equal(t, models.TieBreakWinsVsTied, *table[1].DecidedBy)
}

func TestComputeCyclicTieFallsToGameDifference(t *testing.T) {
	// 1 beat 2, 2 beat 3, 3 beat 1: each has one head-to-head win, so the
	// first rule cannot separate them and game difference decides.
	ps := []*models.Participant{participant(1), participant(2), participant(3)}
	matches := []*models.Match{
		playedMatch(1, 1, 2, 1, "21-10,21-10"),
		playedMatch(2, 2, 3, 2, "21-19,19-21,21-19"),
		playedMatch(3, 3, 1, 3, "21-19,21-19"),
	}

	table, err := Compute(ps, matches, defaultRule(models.TieBreakWinsVsTied, models.TieBreakGameSetDifference), 0)
	require.NoError(t, err)
	require.Len(t, table, 3)

	// Game differences: 1 has +2-2=0... recompute: 1 won 2 games vs 2, lost
	// 2 games vs 3 => 0; 2 lost 2 vs 1, won 2 lost 1 vs 3 => -1; 3 won 1
	// lost 2 vs 2, won 2 vs 1 => +1.
	assert.Equal(t, 3, table[0].Participant.ID)
	assert.Equal(t, 1, table[1].Participant.ID)
	assert.Equal(t, 2, table[2].Participant.ID)
	for _, e := range table {
		require.NotNil(t, e.DecidedBy)
		assert.Equal(t, models.TieBreakGameSetDifference, *e.DecidedBy)
	}
}

func TestComputeExhaustedRulesKeepInputOrder(t *testing.T) {
	// Identical mirror results leave every metric tied; the caller's order
	// (here: 2 before 1) must survive.
	ps := []*models.Participant{participant(2), participant(1)}
	matches := []*models.Match{
		playedMatch(1, 1, 2, 1, "21-10"),
		playedMatch(2, 2, 1, 2, "21-10"),
	}

	table, err := Compute(ps, matches, defaultRule(models.TieBreakWinsVsTied, models.TieBreakGameSetDifference, models.TieBreakPointsDifference), 0)
	require.NoError(t, err)

	assert.Equal(t, 2, table[0].Participant.ID)
	assert.Equal(t, 1, table[1].Participant.ID)
	assert.Nil(t, table[0].DecidedBy)
	assert.Nil(t, table[1].DecidedBy)
}

func TestComputeAdvancementFlag(t *testing.T) {
	ps := []*models.Participant{participant(1), participant(2), participant(3)}
	matches := []*models.Match{
		playedMatch(1, 1, 2, 1, "21-10"),
		playedMatch(2, 1, 3, 1, "21-10"),
		playedMatch(3, 2, 3, 2, "21-10"),
	}

	table, err := Compute(ps, matches, defaultRule(), 2)
	require.NoError(t, err)

	assert.True(t, table[0].IsAdvancing)
	assert.True(t, table[1].IsAdvancing)
	assert.False(t, table[2].IsAdvancing)
}

func TestComputeByeAccounting(t *testing.T) {
	ps := []*models.Participant{participant(1), participant(2)}
	bye := &models.Match{
		ID:     1,
		Status: models.MatchStatusCompleted,
		Participants: []models.MatchParticipant{
			{MatchID: 1, ParticipantID: 1, Position: 1, IsWinner: true},
		},
	}

	rule := defaultRule()
	table, err := Compute(ps, []*models.Match{bye}, rule, 0)
	require.NoError(t, err)

	e := table[0]
	assert.Equal(t, 1, e.Participant.ID)
	assert.Equal(t, 1, e.Byes)
	assert.Equal(t, 0, e.Wins, "a bye is not a win")
	assert.Equal(t, rule.ByePoints, e.TablePoints)
	assert.Equal(t, 0, e.Played)

	rule.CountByeGamesPoints = true
	table, err = Compute(ps, []*models.Match{bye}, rule, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, table[0].Played)
}

func TestComputeWalkoverAccounting(t *testing.T) {
	ps := []*models.Participant{participant(1), participant(2)}
	wo := playedMatch(1, 1, 2, 1, "")
	wo.Walkover = true

	rule := defaultRule()
	table, err := Compute(ps, []*models.Match{wo}, rule, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, table[0].Wins)
	assert.Equal(t, 0, table[0].Played)
	assert.Equal(t, 1, table[1].Losses)

	rule.CountWalkoverAsPlayed = true
	table, err = Compute(ps, []*models.Match{wo}, rule, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, table[0].Played)
	assert.Equal(t, 1, table[1].Played)
}

func TestParseScore(t *testing.T) {
	games, err := ParseScore(" 21-15, 18-21 ,21-10")
	require.NoError(t, err)
	require.Len(t, games, 3)
	assert.Equal(t, GameScore{21, 15}, games[0])
	assert.Equal(t, GameScore{18, 21}, games[1])

	_, err = ParseScore("21:15")
	assert.Error(t, err)
	_, err = ParseScore("21--5")
	assert.Error(t, err)

	games, err = ParseScore("")
	require.NoError(t, err)
	assert.Empty(t, games)
}
