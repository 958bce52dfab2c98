package models

import "time"

type DrawSessionType string

const (
	DrawDoublesPairing  DrawSessionType = "DOUBLES_PAIRING"
	DrawGroupAssignment DrawSessionType = "GROUP_ASSIGNMENT"
	DrawKnockoutPairing DrawSessionType = "KNOCKOUT_PAIRING"
)

type DrawSessionStatus string

const (
	DrawSessionPending DrawSessionStatus = "PENDING"
	DrawSessionApplied DrawSessionStatus = "APPLIED"
)

// DrawSession stages the result of a manually-performed physical draw.
// PENDING sessions are mutable; APPLIED is terminal. The payload records the
// entrant set under consideration, the result records the drawn outcome.
type DrawSession struct {
	ID           int               `json:"-" db:"id"`
	PublicID     string            `json:"id" db:"public_id"`
	TournamentID int               `json:"tournament_id" db:"tournament_id"`
	StageID      *int              `json:"stage_id,omitempty" db:"stage_id"`
	Type         DrawSessionType   `json:"type" db:"type"`
	Status       DrawSessionStatus `json:"status" db:"status"`
	PayloadJSON  *string           `json:"payload,omitempty" db:"payload"`
	ResultJSON   *string           `json:"result,omitempty" db:"result"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	AppliedAt    *time.Time        `json:"applied_at,omitempty" db:"applied_at"`
}

func ValidDrawSessionType(t DrawSessionType) bool {
	switch t {
	case DrawDoublesPairing, DrawGroupAssignment, DrawKnockoutPairing:
		return true
	}
	return false
}

// MemberPair is one drawn doubles pairing.
type MemberPair struct {
	SideAMemberID int `json:"side_a_member_id"`
	SideBMemberID int `json:"side_b_member_id"`
}

// DoublesPairingResult is the result payload of a DOUBLES_PAIRING session.
type DoublesPairingResult struct {
	Pairs []MemberPair `json:"pairs"`
}

// GroupAssignment places one participant into a group at a drawn seed.
type GroupAssignment struct {
	GroupID       int `json:"group_id"`
	ParticipantID int `json:"participant_id"`
	SeedInGroup   int `json:"seed_in_group"`
}

// GroupAssignmentResult is the result payload of a GROUP_ASSIGNMENT session.
type GroupAssignmentResult struct {
	Assignments []GroupAssignment `json:"assignments"`
}

// RandomDirective asks for a placeholder bracket of the given size, to be
// seeded once the external random draw has happened.
type RandomDirective struct {
	BracketSize int `json:"bracket_size"`
	BestOf      int `json:"best_of"`
}

// GroupRankDirective derives the seed order from the finalized standings of a
// completed group stage.
type GroupRankDirective struct {
	SourceStageID int `json:"source_stage_id"`
	TopPerGroup   int `json:"top_per_group"`
	WildcardCount int `json:"wildcard_count"`
	BracketSize   int `json:"bracket_size"`
}

// KnockoutPairingResult is the result payload of a KNOCKOUT_PAIRING session.
// Exactly one of the three fields must be set.
type KnockoutPairingResult struct {
	SeedOrder []int               `json:"seed_order,omitempty"`
	Random    *RandomDirective    `json:"random,omitempty"`
	GroupRank *GroupRankDirective `json:"group_rank,omitempty"`
}
