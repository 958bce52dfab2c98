package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pairKey struct{ a, b int }

func unorderedPair(x, y int) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{x, y}
}

func TestBuildRoundRobinFourParticipants(t *testing.T) {
	pairings, err := BuildRoundRobin([]int{10, 20, 30, 40}, 1)
	require.NoError(t, err)
	require.Len(t, pairings, 6)

	perRound := map[int]int{}
	pairs := map[pairKey]int{}
	for _, p := range pairings {
		perRound[p.Round]++
		pairs[unorderedPair(p.HomeID, p.AwayID)]++
		assert.NotEqual(t, p.HomeID, p.AwayID)
	}

	require.Len(t, perRound, 3)
	for round, count := range perRound {
		assert.Equal(t, 2, count, "round %d", round)
	}
	require.Len(t, pairs, 6)
	for pair, count := range pairs {
		assert.Equal(t, 1, count, "pair %v", pair)
	}
}

func TestBuildRoundRobinPairMultiplicity(t *testing.T) {
	for _, n := range []int{2, 3, 5, 6, 9} {
		for _, k := range []int{1, 2, 3} {
			pairings, err := BuildRoundRobin(seededIDs(n), k)
			require.NoError(t, err, "n=%d k=%d", n, k)
			assert.Len(t, pairings, k*n*(n-1)/2, "n=%d k=%d", n, k)

			pairs := map[pairKey]int{}
			for _, p := range pairings {
				pairs[unorderedPair(p.HomeID, p.AwayID)]++
			}
			for pair, count := range pairs {
				assert.Equal(t, k, count, "n=%d k=%d pair %v", n, k, pair)
			}
		}
	}
}

func TestBuildRoundRobinOnePerRoundPerParticipant(t *testing.T) {
	pairings, err := BuildRoundRobin(seededIDs(7), 2)
	require.NoError(t, err)

	seen := map[int]map[int]bool{}
	maxRound := 0
	for _, p := range pairings {
		if seen[p.Round] == nil {
			seen[p.Round] = map[int]bool{}
		}
		assert.False(t, seen[p.Round][p.HomeID], "round %d participant %d plays twice", p.Round, p.HomeID)
		assert.False(t, seen[p.Round][p.AwayID], "round %d participant %d plays twice", p.Round, p.AwayID)
		seen[p.Round][p.HomeID] = true
		seen[p.Round][p.AwayID] = true
		if p.Round > maxRound {
			maxRound = p.Round
		}
	}

	// 7 entrants plus the phantom give 7 rounds per cycle, two cycles.
	assert.Equal(t, 14, maxRound)
	for r := 1; r <= maxRound; r++ {
		assert.NotEmpty(t, seen[r], "round %d has no matches", r)
	}
}

func TestBuildRoundRobinRepeatCyclesSwapSides(t *testing.T) {
	pairings, err := BuildRoundRobin([]int{1, 2}, 2)
	require.NoError(t, err)
	require.Len(t, pairings, 2)

	assert.Equal(t, 1, pairings[0].Round)
	assert.Equal(t, 2, pairings[1].Round)
	assert.Equal(t, pairings[0].HomeID, pairings[1].AwayID)
	assert.Equal(t, pairings[0].AwayID, pairings[1].HomeID)
}

func TestBuildRoundRobinValidation(t *testing.T) {
	_, err := BuildRoundRobin([]int{1}, 1)
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)

	_, err = BuildRoundRobin([]int{1, 2}, 0)
	assert.ErrorIs(t, err, ErrInvalidMatchupCount)
}
