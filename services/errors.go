package services

import "errors"

// Sentinel errors shared across services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation.
	ErrValidationFailed      = errors.New("validation failed")
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrInvalidStageType      = errors.New("invalid stage type")
	ErrInvalidTieBreakRule   = errors.New("invalid tie-break rule")
	ErrInvalidGroupCapacity  = errors.New("group advancement count must be less than capacity")
	ErrInvalidSeedOrder      = errors.New("seed order must be a permutation of eligible participants")
	ErrInvalidDrawType       = errors.New("invalid draw session type")
	ErrInvalidDrawResult     = errors.New("draw session result is missing or malformed")
	ErrInvalidScore          = errors.New("invalid match score")
	ErrWinnerNotInMatch      = errors.New("winner is not a participant of the match")
	ErrNotEnoughParticipants = errors.New("not enough participants")

	// State conflicts.
	ErrBracketAlreadyExists    = errors.New("bracket matches already exist for this stage")
	ErrMatchesAlreadyExist     = errors.New("matches already exist for this group")
	ErrStageRuleAlreadyExists  = errors.New("stage already has a rule")
	ErrStageOrderConflict      = errors.New("stage order is already taken in this tournament")
	ErrParticipantsNotLocked   = errors.New("participant list must be locked before structural changes")
	ErrParticipantsLocked      = errors.New("participant list is locked")
	ErrMatchCompleted          = errors.New("completed matches are immutable")
	ErrDrawSessionNotPending   = errors.New("draw session is not pending")
	ErrStandingsNotFinal       = errors.New("group standings are not final yet")
	ErrGroupFull               = errors.New("group is at capacity")
	ErrGroupMemberConflict     = errors.New("participant is already assigned to this group")
	ErrTournamentNotActive     = errors.New("tournament is not active")
	ErrInvalidStatusTransition = errors.New("invalid tournament status transition")

	// Conflicts.
	ErrUserEmailConflict = errors.New("email address is already in use")

	// Authentication and authorization.
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Entity lookups.
	ErrUserNotFound        = errors.New("user not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrStageNotFound       = errors.New("stage not found")
	ErrStageRuleNotFound   = errors.New("stage rule not found")
	ErrGroupNotFound       = errors.New("group not found")
	ErrGroupMemberNotFound = errors.New("group member not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrBracketSlotNotFound = errors.New("bracket slot not found")
	ErrDrawSessionNotFound = errors.New("draw session not found")
)
