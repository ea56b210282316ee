package progression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredXP(t *testing.T) {
	assert.Equal(t, 120, RequiredXP(1))
	assert.Equal(t, 240, RequiredXP(2))
	assert.Equal(t, 360, RequiredXP(3))
	assert.Equal(t, 1200, RequiredXP(10))
}

func TestApplyXP(t *testing.T) {
	tests := []struct {
		name      string
		xp, level int
		add       int
		wantXP    int
		wantLevel int
	}{
		{"zero is identity", 57, 3, 0, 57, 3},
		{"exact requirement", 0, 1, 120, 0, 2},
		{"topping up to requirement", 90, 1, 30, 0, 2},
		{"below requirement", 10, 1, 50, 60, 1},
		{"rollover keeps remainder", 100, 1, 50, 30, 2},
		{"multiple levels", 0, 1, 120 + 240 + 10, 10, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xp, level, err := ApplyXP(tt.xp, tt.level, tt.add)
			require.NoError(t, err)
			assert.Equal(t, tt.wantXP, xp)
			assert.Equal(t, tt.wantLevel, level)
		})
	}
}

func TestApplyXP_RejectsNegative(t *testing.T) {
	xp, level, err := ApplyXP(40, 2, -5)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, 40, xp)
	assert.Equal(t, 2, level)

	_, _, err = ApplyXP(0, 0, 10)
	assert.True(t, IsValidation(err))
}

func TestApplyXP_RejectsOverflow(t *testing.T) {
	xp, level, err := ApplyXP(1_000_000, 400_000_000, math.MaxInt-10)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, 1_000_000, xp)
	assert.Equal(t, 400_000_000, level)

	xp, level, err = ApplyXP(0, 400_000_000, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, 1_000_000, xp)
	assert.Equal(t, 400_000_000, level)
}

func TestApplyXP_ResultBelowNextRequirement(t *testing.T) {
	for add := 0; add < 5000; add += 37 {
		xp, level, err := ApplyXP(0, 1, add)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, xp, 0)
		assert.Less(t, xp, RequiredXP(level))
	}
}

func TestLevelProgress(t *testing.T) {
	assert.Equal(t, 0, LevelProgress(0, 1))
	assert.Equal(t, 50, LevelProgress(60, 1))
	assert.Equal(t, 25, LevelProgress(60, 2))
	assert.Equal(t, 100, LevelProgress(math.MaxInt, 1))
}
