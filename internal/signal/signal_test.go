package signal

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/krbacktest/internal/condition"
	"github.com/assist-by/krbacktest/internal/domain"
	"github.com/assist-by/krbacktest/internal/strategy"
)

// 테스트용 봉 데이터 생성 함수
func makeBars(closes []float64) domain.BarList {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make(domain.BarList, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{Time: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

func crossConfig(t *testing.T) *strategy.Config {
	t.Helper()
	cfg, err := strategy.Parse(strings.NewReader(`
name: cross
buy:
  - indicator: ma_5
    operator: cross_above
    value: ma_20
  - indicator: close
    operator: ">"
    value: 0
sell:
  - indicator: ma_5
    operator: cross_below
    value: ma_20
`))
	require.NoError(t, err)
	return cfg
}

func crossSeries() []float64 {
	closes := make([]float64, 0, 60)
	for i := 0; i < 40; i++ {
		closes = append(closes, 50000)
	}
	return append(closes, 50100)
}

func TestEvaluateBuy(t *testing.T) {
	cfg := crossConfig(t)
	report, err := Evaluate(cfg, "005930", makeBars(crossSeries()))
	require.NoError(t, err)

	assert.Equal(t, Buy, report.Type)
	assert.Equal(t, "BUY", report.Type.String())
	assert.True(t, report.Warmed)
	assert.Equal(t, 100.0, report.BuyScore)
	assert.Equal(t, 0.0, report.SellScore)
	assert.Equal(t, 50100.0, report.Price)
	assert.InDelta(t, 50020, report.Values["ma_5"], 1e-9)
	assert.InDelta(t, 50005, report.Values["ma_20"], 1e-9)
}

func TestEvaluateCodeBuiltConfig(t *testing.T) {
	cfg := &strategy.Config{
		Name: "cross",
		Buy: condition.Set{
			{Indicator: "MA_5", Operator: "crossover", Value: condition.Column("ma_20")},
		},
	}
	report, err := Evaluate(cfg, "005930", makeBars(crossSeries()))
	require.NoError(t, err)

	assert.Equal(t, Buy, report.Type)
	assert.InDelta(t, 50020, report.Values["ma_5"], 1e-9)
	assert.Empty(t, cfg.Indicators)
}

func TestEvaluateMatchesFullHistory(t *testing.T) {
	cfg := crossConfig(t)
	long := append(make([]float64, 0, 500), crossSeries()...)
	for len(long) < 300 {
		long = append([]float64{float64(49000 + (len(long)%7)*300)}, long...)
	}
	full, err := Evaluate(cfg, "A", makeBars(long))
	require.NoError(t, err)
	tail, err := Evaluate(cfg, "A", makeBars(long).Tail(WindowSize(cfg)))
	require.NoError(t, err)

	assert.Equal(t, full.Type, tail.Type)
	assert.Equal(t, full.Values, tail.Values)
}

func TestEvaluateInsufficientData(t *testing.T) {
	cfg := crossConfig(t)
	report, err := Evaluate(cfg, "A", makeBars([]float64{100, 101, 102}))
	require.NoError(t, err)

	assert.False(t, report.Warmed)
	assert.Equal(t, NoSignal, report.Type)
	assert.Equal(t, 50.0, report.BuyScore)
	assert.True(t, math.IsNaN(report.Values["ma_20"]))

	_, err = Evaluate(cfg, "A", nil)
	assert.Error(t, err)
	_, err = Evaluate(nil, "A", makeBars([]float64{1}))
	assert.Error(t, err)
}

func TestDetectorChanged(t *testing.T) {
	d := NewDetector(crossConfig(t))
	bars := makeBars(crossSeries())

	r, err := d.Detect("A", bars)
	require.NoError(t, err)
	assert.True(t, r.Changed)

	r, err = d.Detect("A", bars)
	require.NoError(t, err)
	assert.False(t, r.Changed)

	r, err = d.Detect("A", bars[:len(bars)-1])
	require.NoError(t, err)
	assert.Equal(t, NoSignal, r.Type)
	assert.True(t, r.Changed)

	last, ok := d.LastReport("A")
	require.True(t, ok)
	assert.Equal(t, NoSignal, last.Type)

	_, ok = d.LastReport("B")
	assert.False(t, ok)
}
