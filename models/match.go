package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusCanceled   MatchStatus = "canceled"
)

// ThirdPlaceMatchNumber is reserved; regular match numbers start at 1 and a
// stage never grows enough rounds to reach it.
const ThirdPlaceMatchNumber = 99

// Match belongs to a tournament and stage. Within a round, match numbers
// determine the feed-forward topology: match n in round r feeds match
// ceil(n/2) in round r+1.
type Match struct {
	ID                  int         `json:"id" db:"id"`
	TournamentID        int         `json:"tournament_id" db:"tournament_id"`
	StageID             int         `json:"stage_id" db:"stage_id"`
	GroupID             *int        `json:"group_id,omitempty" db:"group_id"`
	Round               int         `json:"round" db:"round"`
	MatchNumber         int         `json:"match_number" db:"match_number"`
	Status              MatchStatus `json:"status" db:"status"`
	Score               *string     `json:"score,omitempty" db:"score"`
	WinnerParticipantID *int        `json:"winner_participant_id,omitempty" db:"winner_participant_id"`
	Walkover            bool        `json:"walkover" db:"walkover"`
	CreatedAt           time.Time   `json:"created_at" db:"created_at"`

	// Participant slots, ordered by position. A round-1 bye match has a
	// single slot; every other match has two.
	Participants []MatchParticipant `json:"participants,omitempty" db:"-"`
}

type MatchParticipant struct {
	ID            int  `json:"id" db:"id"`
	MatchID       int  `json:"match_id" db:"match_id"`
	ParticipantID int  `json:"participant_id" db:"participant_id"`
	Position      int  `json:"position" db:"position"`
	IsWinner      bool `json:"is_winner" db:"is_winner"`

	Participant *Participant `json:"participant,omitempty" db:"-"`
}

// ParticipantAt returns the slot at the given position (1 or 2), or nil.
func (m *Match) ParticipantAt(position int) *MatchParticipant {
	for i := range m.Participants {
		if m.Participants[i].Position == position {
			return &m.Participants[i]
		}
	}
	return nil
}

// IsBye reports whether the match has a single occupied slot.
func (m *Match) IsBye() bool {
	return len(m.Participants) == 1
}

// LoserParticipantID returns the non-winning participant of a completed
// two-sided match, or nil when it cannot be determined.
func (m *Match) LoserParticipantID() *int {
	if m.Status != MatchStatusCompleted || m.WinnerParticipantID == nil || len(m.Participants) != 2 {
		return nil
	}
	for i := range m.Participants {
		if m.Participants[i].ParticipantID != *m.WinnerParticipantID {
			id := m.Participants[i].ParticipantID
			return &id
		}
	}
	return nil
}
