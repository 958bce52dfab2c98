package brackets

import "errors"

var ErrInvalidMatchupCount = errors.New("matchups per pair must be at least 1")

// byeSentinel marks the phantom entry added to an odd field. Pairings against
// it are skipped, which gives each participant one idle round per cycle.
const byeSentinel = -1

// Pairing is one round-robin match between two concrete participants.
type Pairing struct {
	Round       int
	MatchNumber int
	HomeID      int
	AwayID      int
}

// BuildRoundRobin schedules every pair of participants against each other
// matchupsPerPair times using the circle method: position 0 stays fixed while
// the rest rotate by one each round. Repeat cycles reuse the rotation with
// their rounds offset past the previous cycle, so round numbers stay
// contiguous and 1-based and nobody plays twice in one round.
func BuildRoundRobin(participantIDs []int, matchupsPerPair int) ([]Pairing, error) {
	if len(participantIDs) < 2 {
		return nil, ErrNotEnoughParticipants
	}
	if matchupsPerPair < 1 {
		return nil, ErrInvalidMatchupCount
	}

	circle := make([]int, len(participantIDs))
	copy(circle, participantIDs)
	if len(circle)%2 != 0 {
		circle = append(circle, byeSentinel)
	}
	n := len(circle)
	roundsPerCycle := n - 1

	pairings := make([]Pairing, 0, matchupsPerPair*len(participantIDs)*(len(participantIDs)-1)/2)

	for cycle := 0; cycle < matchupsPerPair; cycle++ {
		for r := 1; r <= roundsPerCycle; r++ {
			round := cycle*roundsPerCycle + r
			matchNumber := 0
			for k := 0; k < n/2; k++ {
				home := circle[k]
				away := circle[n-1-k]
				if home == byeSentinel || away == byeSentinel {
					continue
				}
				matchNumber++
				// Alternate sides on repeat cycles so rematches swap home
				// and away.
				if cycle%2 == 1 {
					home, away = away, home
				}
				pairings = append(pairings, Pairing{
					Round:       round,
					MatchNumber: matchNumber,
					HomeID:      home,
					AwayID:      away,
				})
			}
			rotate(circle)
		}
	}

	return pairings, nil
}

// rotate shifts every position but the first one step clockwise.
func rotate(circle []int) {
	last := circle[len(circle)-1]
	copy(circle[2:], circle[1:len(circle)-1])
	circle[1] = last
}
