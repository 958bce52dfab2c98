package models

import "fmt"

type SlotSourceType string

const (
	SlotSourceSeed        SlotSourceType = "SEED"
	SlotSourceGroupRank   SlotSourceType = "GROUP_RANK"
	SlotSourceMatchWinner SlotSourceType = "MATCH_WINNER"
	SlotSourceMatchLoser  SlotSourceType = "MATCH_LOSER"
)

// BracketSlot is a forward-reference: which match+side a pending outcome will
// fill, and where that outcome comes from. A slot exists only while its
// target side is unfilled or held by a virtual participant; Resolved slots
// keep the concrete participant for auditability.
type BracketSlot struct {
	ID            int            `json:"id" db:"id"`
	StageID       int            `json:"stage_id" db:"stage_id"`
	TargetMatchID int            `json:"target_match_id" db:"target_match_id"`
	Position      int            `json:"position" db:"position"`
	SourceType    SlotSourceType `json:"source_type" db:"source_type"`
	Seed          *int           `json:"seed,omitempty" db:"seed"`
	GroupID       *int           `json:"group_id,omitempty" db:"group_id"`
	Rank          *int           `json:"rank,omitempty" db:"rank"`
	SourceMatchID *int           `json:"source_match_id,omitempty" db:"source_match_id"`
	Resolved      bool           `json:"resolved" db:"resolved"`
	ParticipantID *int           `json:"participant_id,omitempty" db:"participant_id"`
}

// Describe renders the slot's source for view placeholders, e.g.
// "Winner of match 3" or "2nd of group 5".
func (s *BracketSlot) Describe() string {
	switch s.SourceType {
	case SlotSourceSeed:
		if s.Seed != nil {
			return fmt.Sprintf("Seed %d", *s.Seed)
		}
	case SlotSourceGroupRank:
		if s.GroupID != nil && s.Rank != nil {
			return fmt.Sprintf("%s of group %d", Ordinal(*s.Rank), *s.GroupID)
		}
	case SlotSourceMatchWinner:
		if s.SourceMatchID != nil {
			return fmt.Sprintf("Winner of match %d", *s.SourceMatchID)
		}
	case SlotSourceMatchLoser:
		if s.SourceMatchID != nil {
			return fmt.Sprintf("Loser of match %d", *s.SourceMatchID)
		}
	}
	return "TBD"
}

// Ordinal formats 1 as "1st", 2 as "2nd" and so on.
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
