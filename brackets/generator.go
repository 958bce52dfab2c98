package brackets

import (
	"errors"

	"github.com/openbracket/tournament-engine/models"
)

var (
	ErrNotEnoughParticipants = errors.New("at least 2 participants are required")
	ErrInvalidBracketSize    = errors.New("bracket size must be a power of two, at least 2, and fit all participants")
)

// SideRef is one side of a planned match: either a participant known at
// generation time, or a reference to an earlier planned match whose outcome
// fills the side once it is played.
type SideRef struct {
	ParticipantID *int

	SourceRound       int
	SourceMatchNumber int
	Outcome           models.MatchOutcome
}

// FromMatch reports whether the side waits on another match's outcome.
func (s *SideRef) FromMatch() bool {
	return s != nil && s.ParticipantID == nil && s.SourceRound > 0
}

// PlannedMatch is one match of a generated schedule before persistence.
// A nil side is a bye: its seed or feeding subtree holds no entrant. In a
// bracket sized larger than the entrant count both sides can be nil.
type PlannedMatch struct {
	Round       int
	MatchNumber int
	Side1       *SideRef
	Side2       *SideRef
	ThirdPlace  bool
}

// IsBye reports whether exactly one side is occupied.
func (m *PlannedMatch) IsBye() bool {
	return (m.Side1 == nil) != (m.Side2 == nil)
}

// LoneSide returns the single occupied side of a bye match, or nil when the
// match has two sides or none.
func (m *PlannedMatch) LoneSide() *SideRef {
	if !m.IsBye() {
		return nil
	}
	if m.Side1 != nil {
		return m.Side1
	}
	return m.Side2
}

// Plan is a complete generated bracket: every round instantiated, ordered by
// round then match number, with the third-place match (if any) last.
type Plan struct {
	Rounds   int
	Slots    int
	ByeCount int
	Matches  []*PlannedMatch
}
