package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupLetter(t *testing.T) {
	assert.Equal(t, "A", groupLetter(0))
	assert.Equal(t, "B", groupLetter(1))
	assert.Equal(t, "Z", groupLetter(25))
	assert.Equal(t, "AA", groupLetter(26))
	assert.Equal(t, "AB", groupLetter(27))
	assert.Equal(t, "AZ", groupLetter(51))
	assert.Equal(t, "BA", groupLetter(52))
}

func TestSnakeAssign_EvenSplit(t *testing.T) {
	// 8 participants over 2 groups. Tiers alternate direction, so the seed
	// strength sums come out equal.
	got := snakeAssign(2, 8)

	assert.Equal(t, [][]int{
		{0, 3, 4, 7},
		{1, 2, 5, 6},
	}, got)
}

func TestSnakeAssign_UnevenTail(t *testing.T) {
	got := snakeAssign(3, 7)

	assert.Equal(t, [][]int{
		{0, 5, 6},
		{1, 4},
		{2, 3},
	}, got)
}

func TestSnakeAssign_SingleGroup(t *testing.T) {
	got := snakeAssign(1, 4)
	assert.Equal(t, [][]int{{0, 1, 2, 3}}, got)
}

func TestValidateGroupShape(t *testing.T) {
	assert.NoError(t, validateGroupShape(4, 2))
	assert.ErrorIs(t, validateGroupShape(1, 1), ErrValidationFailed)
	assert.ErrorIs(t, validateGroupShape(4, 0), ErrInvalidGroupCapacity)
	assert.ErrorIs(t, validateGroupShape(4, 4), ErrInvalidGroupCapacity)
}
