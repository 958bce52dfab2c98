package models

import "time"

// TournamentStatus mirrors the ENUM in the database.
type TournamentStatus string

const (
	TournamentStatusDraft     TournamentStatus = "draft"
	TournamentStatusActive    TournamentStatus = "active"
	TournamentStatusCompleted TournamentStatus = "completed"
	TournamentStatusCanceled  TournamentStatus = "canceled"
)

type Tournament struct {
	ID                 int              `json:"id" db:"id"`
	Name               string           `json:"name" db:"name"`
	Description        *string          `json:"description,omitempty" db:"description"`
	Status             TournamentStatus `json:"status" db:"status"`
	ParticipantsLocked bool             `json:"participants_locked" db:"participants_locked"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`

	// Optional linked entities, populated by services.
	Stages       []Stage       `json:"stages,omitempty" db:"-"`
	Participants []Participant `json:"participants,omitempty" db:"-"`
}
