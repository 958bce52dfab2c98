package standings

import (
	"fmt"
	"sort"

	"github.com/openbracket/tournament-engine/models"
)

// Entry is one row of a computed standings table.
type Entry struct {
	Participant *models.Participant `json:"participant"`
	Rank        int                 `json:"rank"`

	Played int `json:"played"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
	Byes   int `json:"byes"`

	TablePoints int `json:"table_points"`

	GamesWon  int `json:"games_won"`
	GamesLost int `json:"games_lost"`

	PointsScored   int `json:"points_scored"`
	PointsConceded int `json:"points_conceded"`

	// DecidedBy names the tie-break rule that separated this entry from the
	// participants it was tied with, when one did.
	DecidedBy   *models.TieBreakRule `json:"decided_by,omitempty"`
	IsAdvancing bool                 `json:"is_advancing"`

	// inputOrder preserves the caller's ordering for exhausted tie-breaks.
	inputOrder int
}

// GameDifference is games won minus games lost.
func (e *Entry) GameDifference() int { return e.GamesWon - e.GamesLost }

// PointsDifference is points scored minus points conceded.
func (e *Entry) PointsDifference() int { return e.PointsScored - e.PointsConceded }

// Compute ranks the given participants by their completed matches. The rule
// supplies point values, bye and walkover accounting, and the ordered
// tie-break list; a nil rule counts plain wins with no tie-breaks.
// advancingCount, when positive, marks the top entries as advancing.
//
// Participant order matters: when every configured tie-break fails to
// separate a group of tied entries, they keep the order they were passed in.
func Compute(participants []*models.Participant, matches []*models.Match, rule *models.StageRule, advancingCount int) ([]*Entry, error) {
	if rule == nil {
		rule = &models.StageRule{WinPoints: 1}
	}

	entries := make(map[int]*Entry, len(participants))
	ordered := make([]*Entry, 0, len(participants))
	for i, p := range participants {
		e := &Entry{Participant: p, inputOrder: i}
		entries[p.ID] = e
		ordered = append(ordered, e)
	}

	for _, m := range matches {
		if m.Status != models.MatchStatusCompleted {
			continue
		}
		if err := accumulate(entries, m, rule); err != nil {
			return nil, err
		}
	}

	buckets := bucketByRecord(ordered)
	result := make([]*Entry, 0, len(ordered))
	for _, bucket := range buckets {
		resolveBucket(bucket, matches, rule.TieBreakOrder)
		result = append(result, bucket...)
	}

	for i, e := range result {
		e.Rank = i + 1
		e.IsAdvancing = advancingCount > 0 && e.Rank <= advancingCount
	}
	return result, nil
}

func accumulate(entries map[int]*Entry, m *models.Match, rule *models.StageRule) error {
	if m.IsBye() {
		e := entries[m.Participants[0].ParticipantID]
		if e == nil {
			return nil
		}
		e.Byes++
		e.TablePoints += rule.ByePoints
		if rule.CountByeGamesPoints {
			e.Played++
		}
		return nil
	}
	if len(m.Participants) != 2 {
		return nil
	}

	side1 := entries[m.Participants[0].ParticipantID]
	side2 := entries[m.Participants[1].ParticipantID]
	if m.Participants[0].Position != 1 {
		side1, side2 = side2, side1
	}

	countPlayed := !m.Walkover || rule.CountWalkoverAsPlayed

	switch {
	case m.WinnerParticipantID == nil:
		// Completed without a winner is a draw.
		for _, e := range []*Entry{side1, side2} {
			if e != nil {
				e.Draws++
				e.Played++
			}
		}
	default:
		winnerID := *m.WinnerParticipantID
		for _, e := range []*Entry{side1, side2} {
			if e == nil {
				continue
			}
			if e.Participant.ID == winnerID {
				e.Wins++
				e.TablePoints += rule.WinPoints
			} else {
				e.Losses++
				e.TablePoints += rule.LossPoints
			}
			if countPlayed {
				e.Played++
			}
		}
	}

	if m.Walkover || m.Score == nil {
		return nil
	}
	games, err := ParseScore(*m.Score)
	if err != nil {
		return fmt.Errorf("match %d: %w", m.ID, err)
	}
	for _, g := range games {
		creditGame(side1, g)
		creditGame(side2, g.Flip())
	}
	return nil
}

func creditGame(e *Entry, g GameScore) {
	if e == nil {
		return
	}
	e.PointsScored += g.Home
	e.PointsConceded += g.Away
	if g.Home > g.Away {
		e.GamesWon++
	} else if g.Home < g.Away {
		e.GamesLost++
	}
}

// bucketByRecord partitions entries by identical (wins, losses), ordering
// buckets by wins descending then losses ascending. Entries inside a bucket
// keep their input order.
func bucketByRecord(ordered []*Entry) [][]*Entry {
	type key struct{ wins, losses int }
	grouped := make(map[key][]*Entry)
	keys := make([]key, 0)
	for _, e := range ordered {
		k := key{e.Wins, e.Losses}
		if _, seen := grouped[k]; !seen {
			keys = append(keys, k)
		}
		grouped[k] = append(grouped[k], e)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].wins != keys[j].wins {
			return keys[i].wins > keys[j].wins
		}
		return keys[i].losses < keys[j].losses
	})

	buckets := make([][]*Entry, 0, len(keys))
	for _, k := range keys {
		buckets = append(buckets, grouped[k])
	}
	return buckets
}

// resolveBucket applies the tie-break rules in order. A rule settles the
// bucket only when it gives every member a distinct value; a rule that leaves
// any two members equal is skipped entirely. When every rule is exhausted the
// bucket keeps the caller's pre-existing order.
func resolveBucket(bucket []*Entry, matches []*models.Match, order []models.TieBreakRule) {
	if len(bucket) < 2 {
		return
	}

	for _, ruleName := range order {
		metrics := bucketMetrics(bucket, matches, ruleName)
		if metrics == nil || !allDistinct(metrics) {
			continue
		}
		sort.SliceStable(bucket, func(i, j int) bool {
			return metrics[bucket[i].Participant.ID] > metrics[bucket[j].Participant.ID]
		})
		decided := ruleName
		for _, e := range bucket {
			r := decided
			e.DecidedBy = &r
		}
		return
	}

	sort.SliceStable(bucket, func(i, j int) bool {
		return bucket[i].inputOrder < bucket[j].inputOrder
	})
}

func bucketMetrics(bucket []*Entry, matches []*models.Match, rule models.TieBreakRule) map[int]int {
	metrics := make(map[int]int, len(bucket))
	switch rule {
	case models.TieBreakWinsVsTied:
		inBucket := make(map[int]bool, len(bucket))
		for _, e := range bucket {
			metrics[e.Participant.ID] = 0
			inBucket[e.Participant.ID] = true
		}
		for _, m := range matches {
			if m.Status != models.MatchStatusCompleted || m.WinnerParticipantID == nil || len(m.Participants) != 2 {
				continue
			}
			// Only matches played entirely inside the tied group count.
			if !inBucket[m.Participants[0].ParticipantID] || !inBucket[m.Participants[1].ParticipantID] {
				continue
			}
			metrics[*m.WinnerParticipantID]++
		}
	case models.TieBreakGameSetDifference:
		for _, e := range bucket {
			metrics[e.Participant.ID] = e.GameDifference()
		}
	case models.TieBreakPointsDifference:
		for _, e := range bucket {
			metrics[e.Participant.ID] = e.PointsDifference()
		}
	default:
		return nil
	}
	return metrics
}

func allDistinct(metrics map[int]int) bool {
	seen := make(map[int]bool, len(metrics))
	for _, v := range metrics {
		if seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
