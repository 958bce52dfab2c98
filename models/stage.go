package models

import "time"

type StageType string

const (
	StageTypeGroup    StageType = "GROUP"
	StageTypeKnockout StageType = "KNOCKOUT"
	StageTypeLeague   StageType = "LEAGUE"
	StageTypeSwiss    StageType = "SWISS"
)

// TieBreakRule identifies one criterion in a stage rule's ordered tie-break list.
type TieBreakRule string

const (
	TieBreakWinsVsTied        TieBreakRule = "WINS_VS_TIED"
	TieBreakGameSetDifference TieBreakRule = "GAME_SET_DIFFERENCE"
	TieBreakPointsDifference  TieBreakRule = "POINTS_DIFFERENCE"
)

// H2HModeStrict counts head-to-head wins only in matches played entirely
// inside the tied bucket. It is the only supported mode; the column exists so
// a different policy can be added without a schema change.
type H2HMode string

const H2HModeStrict H2HMode = "STRICT"

type Stage struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Name         string    `json:"name" db:"name"`
	Type         StageType `json:"type" db:"type"`
	StageOrder   int       `json:"stage_order" db:"stage_order"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	// Optional linked entities, populated by services.
	Rule   *StageRule `json:"rule,omitempty" db:"-"`
	Groups []Group    `json:"groups,omitempty" db:"-"`
}

// StageRule is the zero-or-one rule record owned by a stage. The tie-break
// fields stay nil for KNOCKOUT stages; they are unused there, not defaulted.
type StageRule struct {
	ID                    int            `json:"id" db:"id"`
	StageID               int            `json:"stage_id" db:"stage_id"`
	WinPoints             int            `json:"win_points" db:"win_points"`
	LossPoints            int            `json:"loss_points" db:"loss_points"`
	ByePoints             int            `json:"bye_points" db:"bye_points"`
	CountByeGamesPoints   bool           `json:"count_bye_games_points" db:"count_bye_games_points"`
	CountWalkoverAsPlayed bool           `json:"count_walkover_as_played" db:"count_walkover_as_played"`
	TieBreakOrder         []TieBreakRule `json:"tie_break_order,omitempty" db:"tie_break_order"`
	H2HMode               *H2HMode       `json:"h2h_mode,omitempty" db:"h2h_mode"`
}

func ValidTieBreakRule(r TieBreakRule) bool {
	switch r {
	case TieBreakWinsVsTied, TieBreakGameSetDifference, TieBreakPointsDifference:
		return true
	}
	return false
}

func ValidStageType(t StageType) bool {
	switch t {
	case StageTypeGroup, StageTypeKnockout, StageTypeLeague, StageTypeSwiss:
		return true
	}
	return false
}
