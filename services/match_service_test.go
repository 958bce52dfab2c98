package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbracket/tournament-engine/brackets"
	"github.com/openbracket/tournament-engine/models"
)

func twoSidedMatch(status models.MatchStatus) *models.Match {
	return &models.Match{
		ID:     7,
		Status: status,
		Participants: []models.MatchParticipant{
			{MatchID: 7, ParticipantID: 1, Position: 1},
			{MatchID: 7, ParticipantID: 2, Position: 2},
		},
	}
}

func TestValidateResult_OK(t *testing.T) {
	match := twoSidedMatch(models.MatchStatusScheduled)
	err := validateResult(match, MatchResultInput{WinnerParticipantID: 2, Score: strPtr("21-15,18-21,21-19")})
	assert.NoError(t, err)
}

func TestValidateResult_CompletedIsImmutable(t *testing.T) {
	match := twoSidedMatch(models.MatchStatusCompleted)
	err := validateResult(match, MatchResultInput{WinnerParticipantID: 1, Score: strPtr("21-15")})
	assert.ErrorIs(t, err, ErrMatchCompleted)
}

func TestValidateResult_CanceledRejected(t *testing.T) {
	match := twoSidedMatch(models.MatchStatusCanceled)
	err := validateResult(match, MatchResultInput{WinnerParticipantID: 1, Score: strPtr("21-15")})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidateResult_WinnerMustBeInMatch(t *testing.T) {
	match := twoSidedMatch(models.MatchStatusScheduled)
	err := validateResult(match, MatchResultInput{WinnerParticipantID: 99, Score: strPtr("21-15")})
	assert.ErrorIs(t, err, ErrWinnerNotInMatch)
}

func TestValidateResult_WalkoverCarriesNoScore(t *testing.T) {
	match := twoSidedMatch(models.MatchStatusScheduled)

	err := validateResult(match, MatchResultInput{WinnerParticipantID: 1, Walkover: true})
	assert.NoError(t, err)

	err = validateResult(match, MatchResultInput{WinnerParticipantID: 1, Walkover: true, Score: strPtr("21-0")})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidateResult_ScoreRequired(t *testing.T) {
	match := twoSidedMatch(models.MatchStatusScheduled)

	err := validateResult(match, MatchResultInput{WinnerParticipantID: 1})
	assert.ErrorIs(t, err, ErrInvalidScore)

	err = validateResult(match, MatchResultInput{WinnerParticipantID: 1, Score: strPtr("")})
	assert.ErrorIs(t, err, ErrInvalidScore)

	err = validateResult(match, MatchResultInput{WinnerParticipantID: 1, Score: strPtr("twenty-one")})
	assert.ErrorIs(t, err, ErrInvalidScore)
}

func TestRecordResultRevalidatesInsideTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// The locked read already sees the match as completed, so the second
	// writer of a concurrent pair is turned away before touching anything.
	repo := newFakeMatchRepo(&models.Match{
		ID: 40, TournamentID: 7, StageID: 5, Round: 1, MatchNumber: 1,
		Status: models.MatchStatusCompleted, WinnerParticipantID: intPtr(31),
		Participants: []models.MatchParticipant{
			{MatchID: 40, ParticipantID: 31, Position: 1, IsWinner: true},
			{MatchID: 40, ParticipantID: 32, Position: 2},
		},
	})
	svc := NewMatchService(db, repo, brackets.NewHub(discardLogger()), discardLogger())

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.RecordResult(context.Background(), 40, MatchResultInput{
		WinnerParticipantID: 32,
		Score:               strPtr("21-15,21-10"),
	})
	assert.ErrorIs(t, err, ErrMatchCompleted)
	assert.Equal(t, 0, repo.updateResultCalls)

	kept, getErr := repo.GetByID(context.Background(), 40)
	require.NoError(t, getErr)
	assert.Equal(t, 31, *kept.WinnerParticipantID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordResultCompletesMatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := newFakeMatchRepo(&models.Match{
		ID: 41, TournamentID: 7, StageID: 5, Round: 1, MatchNumber: 2,
		Status: models.MatchStatusScheduled,
		Participants: []models.MatchParticipant{
			{MatchID: 41, ParticipantID: 31, Position: 1},
			{MatchID: 41, ParticipantID: 32, Position: 2},
		},
	})
	svc := NewMatchService(db, repo, brackets.NewHub(discardLogger()), discardLogger())

	mock.ExpectBegin()
	mock.ExpectCommit()
	updated, err := svc.RecordResult(context.Background(), 41, MatchResultInput{
		WinnerParticipantID: 32,
		Score:               strPtr("21-15,18-21,21-19"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusCompleted, updated.Status)
	require.NotNil(t, updated.WinnerParticipantID)
	assert.Equal(t, 32, *updated.WinnerParticipantID)
	assert.False(t, updated.ParticipantAt(1).IsWinner)
	assert.True(t, updated.ParticipantAt(2).IsWinner)
	assert.Equal(t, 1, repo.updateResultCalls)
	require.NoError(t, mock.ExpectationsWereMet())
}
