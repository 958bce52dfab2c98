package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbracket/tournament-engine/models"
)

func seededIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = 100 + i
	}
	return ids
}

func TestBuildSingleEliminationMatchAndByeCounts(t *testing.T) {
	for n := 2; n <= 33; n++ {
		plan, err := BuildSingleElimination(seededIDs(n), 0, false)
		require.NoError(t, err, "n=%d", n)

		assert.Equal(t, plan.Slots-1, len(plan.Matches), "n=%d", n)
		assert.Equal(t, plan.Slots-n, plan.ByeCount, "n=%d", n)
		assert.GreaterOrEqual(t, plan.Slots, n, "n=%d", n)
		assert.Less(t, plan.Slots/2, n, "n=%d slots should be minimal", n)

		byes := 0
		for _, m := range plan.Matches {
			if m.Round == 1 && m.IsBye() {
				byes++
			}
			require.NotNil(t, m.Side1, "n=%d R%dM%d", n, m.Round, m.MatchNumber)
		}
		assert.Equal(t, plan.ByeCount, byes, "n=%d", n)
	}
}

func TestBuildSingleEliminationFiveParticipants(t *testing.T) {
	plan, err := BuildSingleElimination([]int{1, 2, 3, 4, 5}, 0, false)
	require.NoError(t, err)

	assert.Equal(t, 3, plan.Rounds)
	assert.Equal(t, 8, plan.Slots)
	assert.Equal(t, 3, plan.ByeCount)
	require.Len(t, plan.Matches, 7)

	byID := func(round, number int) *PlannedMatch {
		for _, m := range plan.Matches {
			if m.Round == round && m.MatchNumber == number {
				return m
			}
		}
		t.Fatalf("match R%dM%d not found", round, number)
		return nil
	}

	// Halving layout for 8 slots: pairings (1,8) (2,7) (4,5) (3,6), with
	// seeds past the fifth entrant left empty.
	m1 := byID(1, 1)
	require.NotNil(t, m1.Side1.ParticipantID)
	assert.Equal(t, 1, *m1.Side1.ParticipantID)
	assert.True(t, m1.IsBye())

	m3 := byID(1, 3)
	require.NotNil(t, m3.Side1.ParticipantID)
	require.NotNil(t, m3.Side2.ParticipantID)
	assert.Equal(t, 4, *m3.Side1.ParticipantID)
	assert.Equal(t, 5, *m3.Side2.ParticipantID)

	assert.True(t, byID(1, 2).IsBye())
	assert.True(t, byID(1, 4).IsBye())
}

func TestBuildSingleEliminationFeedTopology(t *testing.T) {
	plan, err := BuildSingleElimination(seededIDs(8), 0, false)
	require.NoError(t, err)

	for _, m := range plan.Matches {
		if m.Round == 1 {
			continue
		}
		require.True(t, m.Side1.FromMatch())
		require.True(t, m.Side2.FromMatch())
		assert.Equal(t, m.Round-1, m.Side1.SourceRound)
		assert.Equal(t, 2*m.MatchNumber-1, m.Side1.SourceMatchNumber)
		assert.Equal(t, 2*m.MatchNumber, m.Side2.SourceMatchNumber)
		assert.Equal(t, models.OutcomeWinner, m.Side1.Outcome)
		assert.Equal(t, models.OutcomeWinner, m.Side2.Outcome)
	}
}

func TestBuildSingleEliminationThirdPlace(t *testing.T) {
	plan, err := BuildSingleElimination(seededIDs(6), 0, true)
	require.NoError(t, err)
	require.Len(t, plan.Matches, 8)

	third := plan.Matches[len(plan.Matches)-1]
	require.True(t, third.ThirdPlace)
	assert.Equal(t, plan.Rounds, third.Round)
	assert.Equal(t, models.ThirdPlaceMatchNumber, third.MatchNumber)
	assert.Equal(t, plan.Rounds-1, third.Side1.SourceRound)
	assert.Equal(t, 1, third.Side1.SourceMatchNumber)
	assert.Equal(t, 2, third.Side2.SourceMatchNumber)
	assert.Equal(t, models.OutcomeLoser, third.Side1.Outcome)
	assert.Equal(t, models.OutcomeLoser, third.Side2.Outcome)
}

func TestBuildSingleEliminationTwoParticipantsSkipsThirdPlace(t *testing.T) {
	plan, err := BuildSingleElimination(seededIDs(2), 0, true)
	require.NoError(t, err)
	require.Len(t, plan.Matches, 1)
	assert.False(t, plan.Matches[0].ThirdPlace)
}

func TestBuildSingleEliminationDeterministic(t *testing.T) {
	first, err := BuildSingleElimination(seededIDs(11), 0, true)
	require.NoError(t, err)
	second, err := BuildSingleElimination(seededIDs(11), 0, true)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildSingleEliminationExplicitSize(t *testing.T) {
	plan, err := BuildSingleElimination(seededIDs(3), 8, false)
	require.NoError(t, err)
	assert.Equal(t, 8, plan.Slots)
	assert.Equal(t, 3, plan.Rounds)
	assert.Equal(t, 5, plan.ByeCount)
	require.Len(t, plan.Matches, 7)

	byID := func(round, number int) *PlannedMatch {
		for _, m := range plan.Matches {
			if m.Round == round && m.MatchNumber == number {
				return m
			}
		}
		t.Fatalf("match R%dM%d not found", round, number)
		return nil
	}

	// Pairings for 8 slots are (1,8) (2,7) (4,5) (3,6); with 3 entrants the
	// third pairing holds no one at all.
	m3 := byID(1, 3)
	assert.Nil(t, m3.Side1)
	assert.Nil(t, m3.Side2)
	assert.False(t, m3.IsBye())
	assert.Nil(t, m3.LoneSide())

	m4 := byID(1, 4)
	require.NotNil(t, m4.Side1)
	assert.Equal(t, 102, *m4.Side1.ParticipantID)
	assert.True(t, m4.IsBye())

	// The empty pairing never feeds anything: its semifinal side stays nil
	// and the occupied feeder comes through as the lone side.
	semi := byID(2, 2)
	assert.Nil(t, semi.Side1)
	require.NotNil(t, semi.Side2)
	assert.True(t, semi.Side2.FromMatch())
	assert.Equal(t, 4, semi.Side2.SourceMatchNumber)
	assert.True(t, semi.IsBye())
	assert.Same(t, semi.Side2, semi.LoneSide())

	final := byID(3, 1)
	require.NotNil(t, final.Side1)
	require.NotNil(t, final.Side2)
}

func TestBuildSingleEliminationOversizeCascade(t *testing.T) {
	plan, err := BuildSingleElimination(seededIDs(2), 16, false)
	require.NoError(t, err)
	assert.Equal(t, 4, plan.Rounds)
	require.Len(t, plan.Matches, 15)

	// Seeds 1 and 2 hold the only entrants; their half of the draw carries
	// occupancy forward while every other subtree stays empty.
	for _, m := range plan.Matches {
		switch {
		case m.Round == 1 && m.MatchNumber <= 2:
			require.NotNil(t, m.Side1, "R1M%d", m.MatchNumber)
			assert.Nil(t, m.Side2, "R1M%d", m.MatchNumber)
		case m.Round == 1:
			assert.Nil(t, m.Side1, "R1M%d", m.MatchNumber)
			assert.Nil(t, m.Side2, "R1M%d", m.MatchNumber)
		case m.Round == 2 && m.MatchNumber == 1:
			require.NotNil(t, m.Side1)
			require.NotNil(t, m.Side2)
		case m.MatchNumber == 1:
			require.NotNil(t, m.Side1, "R%dM1", m.Round)
			assert.Nil(t, m.Side2, "R%dM1", m.Round)
			assert.Equal(t, 1, m.Side1.SourceMatchNumber)
		default:
			assert.Nil(t, m.Side1, "R%dM%d", m.Round, m.MatchNumber)
			assert.Nil(t, m.Side2, "R%dM%d", m.Round, m.MatchNumber)
		}
	}
}

func TestBuildSingleEliminationValidation(t *testing.T) {
	_, err := BuildSingleElimination(seededIDs(1), 0, false)
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)

	_, err = BuildSingleElimination(seededIDs(4), 6, false)
	assert.ErrorIs(t, err, ErrInvalidBracketSize)

	_, err = BuildSingleElimination(seededIDs(4), 2, false)
	assert.ErrorIs(t, err, ErrInvalidBracketSize)
}
