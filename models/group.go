package models

import "time"

type Group struct {
	ID               int       `json:"id" db:"id"`
	StageID          int       `json:"stage_id" db:"stage_id"`
	Name             string    `json:"name" db:"name"`
	Capacity         int       `json:"capacity" db:"capacity"`
	AdvancementCount int       `json:"advancement_count" db:"advancement_count"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`

	Members []GroupMember `json:"members,omitempty" db:"-"`
}

type GroupMemberStatus string

const (
	GroupMemberActive    GroupMemberStatus = "active"
	GroupMemberWithdrawn GroupMemberStatus = "withdrawn"
)

type GroupMember struct {
	ID            int               `json:"id" db:"id"`
	GroupID       int               `json:"group_id" db:"group_id"`
	ParticipantID int               `json:"participant_id" db:"participant_id"`
	SeedInGroup   int               `json:"seed_in_group" db:"seed_in_group"`
	Status        GroupMemberStatus `json:"status" db:"status"`

	Participant *Participant `json:"participant,omitempty" db:"-"`
}
