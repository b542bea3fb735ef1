package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func TestDrawdownHalts(t *testing.T) {
	cb := NewCircuitBreaker(Config{MaxDrawdownPct: 10}, 1000)
	assert.False(t, cb.Check(day0, 1200))
	assert.False(t, cb.Check(day0.AddDate(0, 0, 1), 1090))
	assert.True(t, cb.Check(day0.AddDate(0, 0, 2), 1070))
	assert.Contains(t, cb.Reason(), "최대 낙폭")

	// 회복해도 Reset 전까지 유지
	assert.True(t, cb.Check(day0.AddDate(0, 0, 3), 1300))
	assert.True(t, cb.Halted())

	cb.Reset()
	assert.False(t, cb.Halted())
	assert.Empty(t, cb.Reason())
	assert.False(t, cb.Check(day0.AddDate(0, 0, 4), 1250))
}

func TestDailyLossUsesPreviousEquity(t *testing.T) {
	cb := NewCircuitBreaker(Config{DailyLossPct: 3}, 1000)
	assert.False(t, cb.Check(day0, 1000))
	assert.False(t, cb.Check(day0.AddDate(0, 0, 1), 980))
	// 전일 980 대비 -3.06%
	assert.True(t, cb.Check(day0.AddDate(0, 0, 2), 950))
	assert.Contains(t, cb.Reason(), "일일 손실")
}

func TestDailyLossIntraday(t *testing.T) {
	cb := NewCircuitBreaker(Config{DailyLossPct: 5}, 1000)
	assert.False(t, cb.Check(day0.Add(9*time.Hour), 990))
	assert.False(t, cb.Check(day0.Add(10*time.Hour), 960))
	assert.True(t, cb.Check(day0.Add(11*time.Hour), 945), "당일 시작 1000 대비 -5.5%")
}

func TestConsecutiveLosses(t *testing.T) {
	cb := NewCircuitBreaker(Config{MaxConsecutiveLosses: 3}, 1000)
	cb.RecordRoundTrip(-10)
	cb.RecordRoundTrip(0)
	cb.RecordRoundTrip(5)
	assert.Equal(t, 0, cb.ConsecutiveLosses())
	assert.False(t, cb.Check(day0, 1000))

	for i := 0; i < 3; i++ {
		cb.RecordRoundTrip(-1)
	}
	require.True(t, cb.Check(day0.AddDate(0, 0, 1), 1000))
	assert.Equal(t, day0.AddDate(0, 0, 1), cb.HaltedAt())

	cb.Reset()
	assert.Equal(t, 0, cb.ConsecutiveLosses())
	assert.False(t, cb.Check(day0.AddDate(0, 0, 2), 1000))
}

func TestDisabledNeverHalts(t *testing.T) {
	cb := NewCircuitBreaker(Config{}, 1000)
	assert.False(t, Config{}.Enabled())
	assert.False(t, cb.Check(day0, 1))
	assert.Error(t, Config{MaxDrawdownPct: -1}.Validate())
	assert.NoError(t, Config{MaxDrawdownPct: 20, DailyLossPct: 5, MaxConsecutiveLosses: 4}.Validate())
}
