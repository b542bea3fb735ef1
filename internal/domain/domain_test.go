package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickSize(t *testing.T) {
	tests := []struct {
		price float64
		want  float64
	}{
		{1500, 1},
		{4990, 5},
		{10000, 10},
		{49950, 50},
		{70000, 100},
		{350000, 500},
		{800000, 1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TickSize(tt.price), "price %.0f", tt.price)
	}
}

func TestAdjustPrice(t *testing.T) {
	assert.Equal(t, 10010.0, AdjustPrice(10001, true))
	assert.Equal(t, 10000.0, AdjustPrice(10009, false))
	assert.Equal(t, 70100.0, AdjustPrice(70001, true))
	assert.Equal(t, 0.0, AdjustPrice(0, true))
}

func TestBarListHelpers(t *testing.T) {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := BarList{
		{Time: base, Close: 1},
		{Time: base.AddDate(0, 0, 1), Close: 2},
		{Time: base.AddDate(0, 0, 3), Close: 3},
	}

	last, ok := bars.Last()
	require.True(t, ok)
	assert.Equal(t, 3.0, last.Close)

	assert.Len(t, bars.Tail(2), 2)
	assert.Len(t, bars.Tail(10), 3)
	assert.Nil(t, bars.Tail(0))
	assert.Equal(t, []float64{1, 2, 3}, bars.Closes())

	idx, found := bars.IndexOf(base.AddDate(0, 0, 3))
	assert.True(t, found)
	assert.Equal(t, 2, idx)

	_, found = bars.IndexOf(base.AddDate(0, 0, 2))
	assert.False(t, found, "휴장일은 찾을 수 없어야 합니다")

	_, ok = BarList{}.Last()
	assert.False(t, ok)
}

func TestExitReasonIsExit(t *testing.T) {
	assert.False(t, ReasonEntry.IsExit())
	assert.False(t, ReasonPyramid.IsExit())
	assert.True(t, ReasonStopLoss.IsExit())
	assert.True(t, ReasonFinalCleanup.IsExit())
}
