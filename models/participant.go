package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type ParticipantStatus string

const (
	ParticipantActive    ParticipantStatus = "active"
	ParticipantWithdrawn ParticipantStatus = "withdrawn"
)

type AdvancingSourceType string

const (
	AdvancingSourceGroup AdvancingSourceType = "group"
	AdvancingSourceMatch AdvancingSourceType = "match"
	AdvancingSourceSeed  AdvancingSourceType = "seed"
)

type MatchOutcome string

const (
	OutcomeWinner MatchOutcome = "winner"
	OutcomeLoser  MatchOutcome = "loser"
)

// AdvancingSource describes the outcome a virtual participant stands in for.
type AdvancingSource struct {
	Type     AdvancingSourceType `json:"type"`
	GroupID  *int                `json:"group_id,omitempty"`
	Rank     *int                `json:"rank,omitempty"`
	MatchID  *int                `json:"match_id,omitempty"`
	Position *MatchOutcome       `json:"position,omitempty"`
	Seed     *int                `json:"seed,omitempty"`
}

// Participant is either real (backed by a member) or virtual (a placeholder
// for an outcome not yet known). Virtual participants carry a label and an
// advancing source; real participants may carry a seed and a group.
type Participant struct {
	ID              int               `json:"id" db:"id"`
	TournamentID    int               `json:"tournament_id" db:"tournament_id"`
	MemberID        *int              `json:"member_id,omitempty" db:"member_id"`
	PartnerMemberID *int              `json:"partner_member_id,omitempty" db:"partner_member_id"`
	DisplayName     string            `json:"display_name" db:"display_name"`
	GroupID         *int              `json:"group_id,omitempty" db:"group_id"`
	Seed            *int              `json:"seed,omitempty" db:"seed"`
	IsVirtual       bool              `json:"is_virtual" db:"is_virtual"`
	Label           *string           `json:"label,omitempty" db:"label"`
	SourceJSON      *string           `json:"-" db:"advancing_source"`
	Status          ParticipantStatus `json:"status" db:"status"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`

	// Parsed advancing source, populated from SourceJSON by repositories.
	AdvancingSource *AdvancingSource `json:"advancing_source,omitempty" db:"-"`
}

func (p *Participant) ParseAdvancingSource() error {
	if p.SourceJSON == nil || *p.SourceJSON == "" {
		p.AdvancingSource = nil
		return nil
	}
	var src AdvancingSource
	if err := json.Unmarshal([]byte(*p.SourceJSON), &src); err != nil {
		return fmt.Errorf("participant %d: invalid advancing_source: %w", p.ID, err)
	}
	p.AdvancingSource = &src
	return nil
}

func (p *Participant) EncodeAdvancingSource() error {
	if p.AdvancingSource == nil {
		p.SourceJSON = nil
		return nil
	}
	raw, err := json.Marshal(p.AdvancingSource)
	if err != nil {
		return fmt.Errorf("encode advancing_source: %w", err)
	}
	s := string(raw)
	p.SourceJSON = &s
	return nil
}

// Name returns what a bracket or standings view should show for the
// participant: the label for placeholders, the display name otherwise.
func (p *Participant) Name() string {
	if p.IsVirtual && p.Label != nil && *p.Label != "" {
		return *p.Label
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return fmt.Sprintf("Participant %d", p.ID)
}
