package decoder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeHealth(t *testing.T) {
	records := []HealthRecord{
		{Timestamp: 1, C1: HafxHealth{ArmTemp: 30000, Counts: 10}, X123: X123Health{BoardTemp: 20}},
		{Timestamp: 2, C1: HafxHealth{ArmTemp: 30200, Counts: 30}, X123: X123Health{BoardTemp: 30}},
	}
	summary, err := SummarizeHealth(records)
	require.NoError(t, err)
	require.Len(t, summary, 4*7+7)

	byName := make(map[string]FieldSummary, len(summary))
	for _, s := range summary {
		byName[s.Field] = s
	}

	armTemp := byName["c1_arm_temp"]
	assert.InDelta(t, 301.0, armTemp.Mean, 1e-9)
	assert.InDelta(t, 300.0, armTemp.Min, 1e-9)
	assert.InDelta(t, 302.0, armTemp.Max, 1e-9)

	counts := byName["c1_counts"]
	assert.InDelta(t, 20.0, counts.Mean, 1e-9)

	board := byName["x123_board_temp"]
	assert.InDelta(t, 298.15, board.Mean, 1e-9)
	assert.InDelta(t, 293.15, board.Min, 1e-9)

	assert.Equal(t, "c1_arm_temp", summary[0].Field)
	assert.Equal(t, "x123_real_time", summary[len(summary)-1].Field)
}

func TestSummarizeHealthEmpty(t *testing.T) {
	_, err := SummarizeHealth(nil)
	var precondition *PreconditionError
	assert.True(t, errors.As(err, &precondition))
}
