package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbracket/tournament-engine/models"
)

func TestMatchOutcomeLabel(t *testing.T) {
	assert.Equal(t, "Winner of match 3 (Round 1)", matchOutcomeLabel(models.OutcomeWinner, 3, 1))
	assert.Equal(t, "Loser of match 1 (Round 2)", matchOutcomeLabel(models.OutcomeLoser, 1, 2))
}

func TestNewMatchVirtual(t *testing.T) {
	p := newMatchVirtual(5, 42, models.OutcomeLoser, "Loser of match 1 (Round 2)")

	assert.True(t, p.IsVirtual)
	assert.Equal(t, 5, p.TournamentID)
	assert.Equal(t, "Loser of match 1 (Round 2)", p.DisplayName)
	require.NotNil(t, p.Label)
	assert.Equal(t, p.DisplayName, *p.Label)

	require.NotNil(t, p.AdvancingSource)
	assert.Equal(t, models.AdvancingSourceMatch, p.AdvancingSource.Type)
	require.NotNil(t, p.AdvancingSource.MatchID)
	assert.Equal(t, 42, *p.AdvancingSource.MatchID)
	require.NotNil(t, p.AdvancingSource.Position)
	assert.Equal(t, models.OutcomeLoser, *p.AdvancingSource.Position)
}

func TestBracketServicePublishAndUnpublishSnapshot(t *testing.T) {
	store := newFakeSnapshotStore()
	svc := &bracketService{
		stageRepo: newFakeStageRepo(&models.Stage{ID: 5, TournamentID: 7, Type: models.StageTypeKnockout}),
		matchRepo: newFakeMatchRepo(),
		slotRepo:  newFakeBracketSlotRepo(),
		snapshots: store,
		logger:    discardLogger(),
	}

	location, err := svc.Publish(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.org/brackets/stage_5.json", location)
	require.Contains(t, store.objects, "brackets/stage_5.json")
	assert.Contains(t, string(store.objects["brackets/stage_5.json"]), `"stage_id":5`)

	require.NoError(t, svc.Unpublish(context.Background(), 5))
	assert.NotContains(t, store.objects, "brackets/stage_5.json")
}

func TestBracketServiceUnpublishWithoutStore(t *testing.T) {
	svc := &bracketService{
		stageRepo: newFakeStageRepo(&models.Stage{ID: 5, TournamentID: 7, Type: models.StageTypeKnockout}),
		logger:    discardLogger(),
	}
	err := svc.Unpublish(context.Background(), 5)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestBracketServiceUnpublishUnknownStage(t *testing.T) {
	svc := &bracketService{
		stageRepo: newFakeStageRepo(),
		snapshots: newFakeSnapshotStore(),
		logger:    discardLogger(),
	}
	err := svc.Unpublish(context.Background(), 99)
	assert.ErrorIs(t, err, ErrStageNotFound)
}
