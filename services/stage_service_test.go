package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openbracket/tournament-engine/models"
)

func TestValidateStageRule_GroupStage(t *testing.T) {
	stage := &models.Stage{ID: 1, Type: models.StageTypeGroup}
	strict := models.H2HModeStrict

	rule := &models.StageRule{
		WinPoints:     2,
		LossPoints:    1,
		TieBreakOrder: []models.TieBreakRule{models.TieBreakWinsVsTied, models.TieBreakGameSetDifference},
		H2HMode:       &strict,
	}
	assert.NoError(t, validateStageRule(stage, rule))
}

func TestValidateStageRule_NilRule(t *testing.T) {
	stage := &models.Stage{ID: 1, Type: models.StageTypeGroup}
	assert.ErrorIs(t, validateStageRule(stage, nil), ErrValidationFailed)
}

func TestValidateStageRule_UnknownTieBreak(t *testing.T) {
	stage := &models.Stage{ID: 1, Type: models.StageTypeGroup}
	rule := &models.StageRule{TieBreakOrder: []models.TieBreakRule{"COIN_FLIP"}}
	assert.ErrorIs(t, validateStageRule(stage, rule), ErrInvalidTieBreakRule)
}

func TestValidateStageRule_DuplicateTieBreak(t *testing.T) {
	stage := &models.Stage{ID: 1, Type: models.StageTypeGroup}
	rule := &models.StageRule{TieBreakOrder: []models.TieBreakRule{
		models.TieBreakPointsDifference,
		models.TieBreakPointsDifference,
	}}
	assert.ErrorIs(t, validateStageRule(stage, rule), ErrInvalidTieBreakRule)
}

func TestValidateStageRule_UnsupportedH2HMode(t *testing.T) {
	stage := &models.Stage{ID: 1, Type: models.StageTypeGroup}
	lenient := models.H2HMode("LENIENT")
	rule := &models.StageRule{H2HMode: &lenient}
	assert.ErrorIs(t, validateStageRule(stage, rule), ErrValidationFailed)
}

func TestValidateStageRule_KnockoutKeepsTieBreaksEmpty(t *testing.T) {
	stage := &models.Stage{ID: 1, Type: models.StageTypeKnockout}

	assert.NoError(t, validateStageRule(stage, &models.StageRule{WinPoints: 1}))

	rule := &models.StageRule{TieBreakOrder: []models.TieBreakRule{models.TieBreakWinsVsTied}}
	assert.ErrorIs(t, validateStageRule(stage, rule), ErrValidationFailed)

	strict := models.H2HModeStrict
	assert.ErrorIs(t, validateStageRule(stage, &models.StageRule{H2HMode: &strict}), ErrValidationFailed)
}
