package brackets

import (
	"math/bits"

	"github.com/openbracket/tournament-engine/models"
)

// Size returns the number of rounds and first-round slots needed to host
// participantCount entrants: slots is the next power of two at or above the
// count, rounds its base-2 logarithm.
func Size(participantCount int) (rounds, slots int) {
	if participantCount < 2 {
		return 0, 0
	}
	rounds = bits.Len(uint(participantCount - 1))
	return rounds, 1 << rounds
}

// pairingHighSeed returns the higher seed of pairing i (0-based) in a bracket
// with the given slot count. The top half of the pairings takes seeds
// 1..slots/4 ascending, the bottom half the complementary seeds descending,
// so seed 1 lands in the first pairing and seed 2 in the second.
func pairingHighSeed(i, slots int) int {
	quarter := slots / 4
	if i < quarter {
		return i + 1
	}
	return slots/2 - (i - quarter)
}

// BuildSingleElimination lays out a full single-elimination bracket over the
// given entrants, ordered best seed first. bracketSize of 0 derives the
// smallest fitting size; an explicit size must be a power of two no smaller
// than the entrant count. Seeds beyond the entrant count become byes: the
// paired side is left empty, never filled with a placeholder. Rounds past the
// first reference the feeding matches of the previous round, and the optional
// third-place match references the two semifinal losers.
func BuildSingleElimination(entrantIDs []int, bracketSize int, includeThirdPlace bool) (*Plan, error) {
	n := len(entrantIDs)
	if n < 2 {
		return nil, ErrNotEnoughParticipants
	}

	rounds, slots := Size(n)
	if bracketSize != 0 {
		if bracketSize < 2 || bracketSize&(bracketSize-1) != 0 || bracketSize < n {
			return nil, ErrInvalidBracketSize
		}
		slots = bracketSize
		rounds = bits.Len(uint(slots)) - 1
	}

	plan := &Plan{
		Rounds:   rounds,
		Slots:    slots,
		ByeCount: slots - n,
		Matches:  make([]*PlannedMatch, 0, slots-1),
	}

	// In an oversized bracket the high seed of a pairing can also fall past
	// the entrant count, leaving a match with no entrants at all. Such
	// matches stay in the plan to keep the feed topology intact, but nothing
	// references them: occupancy cascades, so a later-round side only points
	// at a feeder whose subtree holds at least one entrant.
	occupied := make([]bool, slots/2+1)
	for i := 0; i < slots/2; i++ {
		high := pairingHighSeed(i, slots)
		low := slots + 1 - high

		m := &PlannedMatch{Round: 1, MatchNumber: i + 1}
		if high <= n {
			m.Side1 = &SideRef{ParticipantID: &entrantIDs[high-1]}
		}
		if low <= n {
			m.Side2 = &SideRef{ParticipantID: &entrantIDs[low-1]}
		}
		occupied[i+1] = m.Side1 != nil || m.Side2 != nil
		plan.Matches = append(plan.Matches, m)
	}

	semifinals := occupied
	for r := 2; r <= rounds; r++ {
		matchesInRound := slots >> uint(r)
		next := make([]bool, matchesInRound+1)
		for num := 1; num <= matchesInRound; num++ {
			m := &PlannedMatch{Round: r, MatchNumber: num}
			if occupied[2*num-1] {
				m.Side1 = &SideRef{
					SourceRound:       r - 1,
					SourceMatchNumber: 2*num - 1,
					Outcome:           models.OutcomeWinner,
				}
			}
			if occupied[2*num] {
				m.Side2 = &SideRef{
					SourceRound:       r - 1,
					SourceMatchNumber: 2 * num,
					Outcome:           models.OutcomeWinner,
				}
			}
			next[num] = m.Side1 != nil || m.Side2 != nil
			plan.Matches = append(plan.Matches, m)
		}
		if r == rounds-1 {
			semifinals = next
		}
		occupied = next
	}

	if includeThirdPlace && rounds >= 2 {
		m := &PlannedMatch{
			Round:       rounds,
			MatchNumber: models.ThirdPlaceMatchNumber,
			ThirdPlace:  true,
		}
		if semifinals[1] {
			m.Side1 = &SideRef{
				SourceRound:       rounds - 1,
				SourceMatchNumber: 1,
				Outcome:           models.OutcomeLoser,
			}
		}
		if semifinals[2] {
			m.Side2 = &SideRef{
				SourceRound:       rounds - 1,
				SourceMatchNumber: 2,
				Outcome:           models.OutcomeLoser,
			}
		}
		plan.Matches = append(plan.Matches, m)
	}

	return plan, nil
}
