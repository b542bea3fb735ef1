package position

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/krbacktest/internal/domain"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func dayN(n int) time.Time { return day0.AddDate(0, 0, n) }

// openAt은 수수료 없이 진입 체결을 반영합니다
func openAt(t *testing.T, m *Manager, symbol string, n int, price float64, qty int64) {
	t.Helper()
	_, _, _, err := m.Apply(Fill{
		Symbol: symbol, Time: dayN(n), Action: domain.Buy, Price: price, Quantity: qty,
		Amount: price * float64(qty), Reason: domain.ReasonEntry,
	}, price*float64(qty))
	require.NoError(t, err)
}

// sellIntent는 의도대로 수수료 없이 매도 체결을 반영합니다
func sellIntent(t *testing.T, m *Manager, in Intent, n int, price float64) (float64, bool) {
	t.Helper()
	profit, closed, _, err := m.Apply(Fill{
		Symbol: in.Symbol, Time: dayN(n), Action: domain.Sell, Price: price, Quantity: in.Quantity,
		Amount: price * float64(in.Quantity), Reason: in.Reason, Stage: in.Stage, NewStop: in.NewStop,
	}, 0)
	require.NoError(t, err)
	return profit, closed
}

func step(m *Manager, symbol string, n int, price float64, sell bool) (Intent, bool) {
	m.Mark(symbol, price)
	return m.CheckExit(symbol, ExitContext{Time: dayN(n), Price: price, SellSignal: sell, Reference: math.NaN()})
}

func TestStopLossTriggersAtThreshold(t *testing.T) {
	m := NewManager(ExitPolicy{StopLossPct: 5}, EntryPolicy{}, SizingConfig{})
	openAt(t, m, "005930", 0, 10000, 10)

	for i, price := range []float64{9900, 9600, 9501} {
		_, ok := step(m, "005930", i+1, price, false)
		assert.False(t, ok, "price %.0f", price)
	}
	in, ok := step(m, "005930", 4, 9500, false)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonStopLoss, in.Reason)
	assert.Equal(t, int64(10), in.Quantity)

	_, closed := sellIntent(t, m, in, 4, 9500)
	assert.True(t, closed)
	_, exists := m.Get("005930")
	assert.False(t, exists)
}

func TestStopBaseIsFirstEntry(t *testing.T) {
	addAt := func(m *Manager, n int, price float64, qty int64, reason domain.ExitReason) {
		_, _, _, err := m.Apply(Fill{
			Symbol: "P", Time: dayN(n), Action: domain.Buy, Price: price, Quantity: qty,
			Amount: price * float64(qty), Reason: reason, Stage: 1,
		}, 0)
		require.NoError(t, err)
	}

	// 피라미딩으로 평균 단가가 올라도 손절선은 그대로입니다
	m := NewManager(ExitPolicy{StopLossPct: 5}, EntryPolicy{}, SizingConfig{})
	openAt(t, m, "P", 0, 10000, 10)
	addAt(m, 1, 10500, 10, domain.ReasonPyramid)
	pos, ok := m.Get("P")
	require.True(t, ok)
	assert.InDelta(t, 10250, pos.AvgPrice, 1e-9)
	assert.InDelta(t, 9500, m.Exit.StopPrice(pos), 1e-9)

	_, ok = step(m, "P", 2, 9700, false)
	assert.False(t, ok)
	in, ok := step(m, "P", 3, 9500, false)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonStopLoss, in.Reason)
	assert.Equal(t, int64(20), in.Quantity)

	// 분할 매수로 평균 단가가 내려가도 손절선은 내려가지 않습니다
	m = NewManager(ExitPolicy{StopLossPct: 5}, EntryPolicy{}, SizingConfig{})
	openAt(t, m, "P", 0, 10000, 10)
	addAt(m, 1, 9600, 10, domain.ReasonSplitEntry)
	pos, _ = m.Get("P")
	assert.InDelta(t, 9800, pos.AvgPrice, 1e-9)
	assert.InDelta(t, 9500, m.Exit.StopPrice(pos), 1e-9)

	in, ok = step(m, "P", 2, 9400, false)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonStopLoss, in.Reason)
}

func TestStagedProfitFiresEachStageOnce(t *testing.T) {
	m := NewManager(ExitPolicy{
		Stages: []ProfitStage{{ProfitPct: 3, RatioPct: 30}, {ProfitPct: 5, RatioPct: 30}, {ProfitPct: 10, RatioPct: 40}},
	}, EntryPolicy{}, SizingConfig{})
	openAt(t, m, "000660", 0, 10000, 100)

	prices := []float64{10100, 10300, 10200, 10350, 10310, 10500, 10400, 10550, 10600, 10300, 11000}
	var sold []int64
	var stages []int
	for i, price := range prices {
		in, ok := step(m, "000660", i+1, price, false)
		if !ok {
			continue
		}
		assert.Equal(t, domain.ReasonStagedProfit, in.Reason)
		sold = append(sold, in.Quantity)
		stages = append(stages, in.Stage)
		sellIntent(t, m, in, i+1, price)
	}

	assert.Equal(t, []int64{30, 30, 40}, sold)
	assert.Equal(t, []int{0, 1, 2}, stages)
	_, exists := m.Get("000660")
	assert.False(t, exists, "세 단계 합계로 전량 매도")
}

func TestDynamicStopRatchetsUp(t *testing.T) {
	m := NewManager(ExitPolicy{
		StopLossPct: 5,
		Stages:      []ProfitStage{{ProfitPct: 3, RatioPct: 50}, {ProfitPct: 6, RatioPct: 50}},
		DynamicStop: DynamicStopBreakEven,
	}, EntryPolicy{}, SizingConfig{})
	openAt(t, m, "035420", 0, 10000, 10)
	pos, _ := m.Get("035420")
	assert.InDelta(t, 9500, m.Exit.StopPrice(pos), 1e-9)

	in, ok := step(m, "035420", 1, 10300, false)
	require.True(t, ok)
	assert.Equal(t, 10000.0, in.NewStop)
	sellIntent(t, m, in, 1, 10300)
	assert.Equal(t, 10000.0, m.Exit.StopPrice(pos))

	in, ok = step(m, "035420", 2, 9990, false)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonDynamicStop, in.Reason)
	assert.Equal(t, int64(5), in.Quantity)
}

func TestRatchetNeverLowers(t *testing.T) {
	p := ExitPolicy{
		Stages:      []ProfitStage{{ProfitPct: 3, RatioPct: 30}, {ProfitPct: 5, RatioPct: 30}},
		DynamicStop: DynamicStopPriorStage,
	}
	pos := &Position{AvgPrice: 10000, RatchetStop: 10400}
	assert.Equal(t, 0.0, p.ratchet(pos, 1), "기존 손절가보다 낮으면 변경 없음")
	pos.RatchetStop = 10000
	assert.InDelta(t, 10300, p.ratchet(pos, 1), 1e-6)
}

func TestTrailingStop(t *testing.T) {
	m := NewManager(ExitPolicy{Trailing: TrailingStop{ActivationPct: 5, DistancePct: 3}}, EntryPolicy{}, SizingConfig{})
	openAt(t, m, "005380", 0, 10000, 10)

	// 활성화 전에는 고점 대비 하락해도 동작하지 않음
	_, ok := step(m, "005380", 1, 10400, false)
	assert.False(t, ok)
	_, ok = step(m, "005380", 2, 10050, false)
	assert.False(t, ok)

	_, ok = step(m, "005380", 3, 11000, false)
	assert.False(t, ok)
	_, ok = step(m, "005380", 4, 10700, false)
	assert.False(t, ok)
	in, ok := step(m, "005380", 5, 10670, false)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonTrailingStop, in.Reason)
}

func TestExitPriority(t *testing.T) {
	// 손절과 매도 신호가 동시에 충족되면 손절
	m := NewManager(ExitPolicy{StopLossPct: 5, TargetProfitPct: 10}, EntryPolicy{}, SizingConfig{})
	openAt(t, m, "A", 0, 10000, 10)
	in, ok := step(m, "A", 1, 9000, true)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonStopLoss, in.Reason)

	// 익절과 매도 신호가 동시에 충족되면 익절
	in, ok = step(m, "A", 1, 11000, true)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonTargetProfit, in.Reason)
}

func TestSplitSellOnSignal(t *testing.T) {
	m := NewManager(ExitPolicy{SplitSell: []float64{50, 50}}, EntryPolicy{}, SizingConfig{})
	openAt(t, m, "B", 0, 10000, 9)

	in, ok := step(m, "B", 1, 10100, true)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonSignal, in.Reason)
	assert.Equal(t, int64(4), in.Quantity)
	sellIntent(t, m, in, 1, 10100)

	in, ok = step(m, "B", 2, 10100, true)
	require.True(t, ok)
	assert.Equal(t, int64(5), in.Quantity, "마지막 단계는 잔량 전부")
}

func TestMaxHoldingAndMeanReversion(t *testing.T) {
	m := NewManager(ExitPolicy{MaxHoldingDays: 10, MeanReversion: "ma_20"}, EntryPolicy{}, SizingConfig{})
	openAt(t, m, "C", 0, 10000, 1)

	ec := ExitContext{Time: dayN(5), Price: 10000, Reference: 10100}
	_, ok := m.CheckExit("C", ec)
	assert.False(t, ok)

	ec.Price = 10100
	in, ok := m.CheckExit("C", ec)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonMeanReversion, in.Reason)

	ec = ExitContext{Time: dayN(10), Price: 9000, Reference: math.NaN()}
	in, ok = m.CheckExit("C", ec)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonMaxHolding, in.Reason)
}

func TestSplitTradingLevels(t *testing.T) {
	entry := EntryPolicy{Split: SplitTrading{Enabled: true, Levels: []SplitLevel{
		{DropPct: 0, SizePct: 40}, {DropPct: 5, SizePct: 30}, {DropPct: 10, SizePct: 30},
	}}}
	require.NoError(t, entry.Validate())
	m := NewManager(ExitPolicy{}, entry, SizingConfig{Method: SizingFixed, FixedPct: 100})

	in, ok := m.PlanEntry("D", 10000, true, 1000000)
	require.True(t, ok)
	assert.InDelta(t, 400000, in.Budget, 1e-6)
	assert.InDelta(t, 1000000, in.Plan, 1e-6)
	_, _, _, err := m.Apply(Fill{Symbol: "D", Time: dayN(0), Action: domain.Buy, Price: 10000, Quantity: 40, Amount: 400000, Reason: domain.ReasonEntry}, in.Plan)
	require.NoError(t, err)

	_, ok = m.PlanEntry("D", 9600, false, 1000000)
	assert.False(t, ok, "하락폭 미달")

	in, ok = m.PlanEntry("D", 9500, false, 1000000)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonSplitEntry, in.Reason)
	assert.Equal(t, 1, in.Stage)
	assert.InDelta(t, 300000, in.Budget, 1e-6)
	_, _, _, err = m.Apply(Fill{Symbol: "D", Time: dayN(1), Action: domain.Buy, Price: 9500, Quantity: 31, Amount: 294500, Reason: domain.ReasonSplitEntry, Stage: 1}, 0)
	require.NoError(t, err)

	// 같은 단계는 다시 실행되지 않음
	in, ok = m.PlanEntry("D", 9400, false, 1000000)
	assert.False(t, ok)
	in, ok = m.PlanEntry("D", 9000, false, 1000000)
	require.True(t, ok)
	assert.Equal(t, 2, in.Stage)

	pos, _ := m.Get("D")
	assert.Equal(t, 2, pos.PyramidLevel)
	assert.Equal(t, 10000.0, pos.EntryPrice)
	assert.Equal(t, int64(71), pos.Quantity)
}

func TestPyramiding(t *testing.T) {
	entry := EntryPolicy{Pyramiding: Pyramiding{Enabled: true, PriceStepPct: 2}}
	m := NewManager(ExitPolicy{}, entry, SizingConfig{Method: SizingFixed, FixedPct: 10})
	assert.Equal(t, []float64{100, 50, 25}, m.Entry.Pyramiding.Ratios)
	assert.Equal(t, 3, m.Entry.Pyramiding.MaxPositions)

	in, ok := m.PlanEntry("E", 10000, true, 1000000)
	require.True(t, ok)
	assert.InDelta(t, 100000, in.Budget, 1e-6)
	_, _, _, err := m.Apply(Fill{Symbol: "E", Time: dayN(0), Action: domain.Buy, Price: 10000, Quantity: 10, Amount: 100000, Reason: domain.ReasonEntry}, in.Plan)
	require.NoError(t, err)

	_, ok = m.PlanEntry("E", 10100, false, 1000000)
	assert.False(t, ok, "상승 간격 미달")
	_, ok = m.PlanEntry("E", 9900, false, 1000000)
	assert.False(t, ok, "손실 중에는 추가 매수 안 함")

	in, ok = m.PlanEntry("E", 10200, false, 1000000)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonPyramid, in.Reason)
	assert.InDelta(t, 50000, in.Budget, 1e-6)
	_, _, _, err = m.Apply(Fill{Symbol: "E", Time: dayN(1), Action: domain.Buy, Price: 10200, Quantity: 4, Amount: 40800, Reason: domain.ReasonPyramid, Stage: 1}, 0)
	require.NoError(t, err)

	in, ok = m.PlanEntry("E", 10500, false, 1000000)
	require.True(t, ok)
	assert.InDelta(t, 25000, in.Budget, 1e-6)
	_, _, _, err = m.Apply(Fill{Symbol: "E", Time: dayN(2), Action: domain.Buy, Price: 10500, Quantity: 2, Amount: 21000, Reason: domain.ReasonPyramid, Stage: 2}, 0)
	require.NoError(t, err)

	_, ok = m.PlanEntry("E", 12000, true, 1000000)
	assert.False(t, ok, "max_positions 도달")
}

func TestEntryPolicyValidation(t *testing.T) {
	both := EntryPolicy{
		Split:      SplitTrading{Enabled: true, Levels: []SplitLevel{{SizePct: 100}}},
		Pyramiding: Pyramiding{Enabled: true, MaxPositions: 2, PriceStepPct: 1, Ratios: []float64{100, 50}},
	}
	assert.Error(t, both.Validate())
	assert.Error(t, EntryPolicy{Pyramiding: Pyramiding{Enabled: true, MaxPositions: 3, Ratios: []float64{100, 50, 25}}}.Validate())
	assert.Error(t, EntryPolicy{Pyramiding: Pyramiding{Enabled: true, MaxPositions: 2, MinBars: 1, Ratios: []float64{50, 100}}}.Validate())
	assert.Error(t, EntryPolicy{Split: SplitTrading{Enabled: true, Levels: []SplitLevel{{DropPct: 5, SizePct: 50}}}}.Validate())
}

func TestExitPolicyValidation(t *testing.T) {
	assert.NoError(t, ExitPolicy{StopLossPct: 5}.Validate())
	assert.Error(t, ExitPolicy{StopLossPct: -1}.Validate())
	assert.Error(t, ExitPolicy{Stages: []ProfitStage{{ProfitPct: 5, RatioPct: 50}, {ProfitPct: 3, RatioPct: 50}}}.Validate())
	assert.Error(t, ExitPolicy{Stages: []ProfitStage{{ProfitPct: 3, RatioPct: 80}, {ProfitPct: 5, RatioPct: 80}}}.Validate())
	assert.Error(t, ExitPolicy{DynamicStop: DynamicStopBreakEven}.Validate())
	assert.Error(t, ExitPolicy{DynamicStop: "sometimes", Stages: []ProfitStage{{ProfitPct: 3, RatioPct: 30}}}.Validate())
}

func TestKellySizing(t *testing.T) {
	assert.InDelta(t, 10.0, KellyPercent(60, 10, 5), 1e-9)

	cfg := SizingConfig{Method: SizingKelly, WinRatePct: 60, AvgWinPct: 10, AvgLossPct: 5}.WithDefaults()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 10.0, cfg.Percent(TradeStats{}), 1e-9)

	// 음수 켈리는 하한으로, 과도한 켈리는 상한으로 제한
	low := SizingConfig{Method: SizingKelly, WinRatePct: 20, AvgWinPct: 5, AvgLossPct: 5, MinPct: 2, MaxPct: 20}
	assert.Equal(t, 2.0, low.Percent(TradeStats{}))
	high := SizingConfig{Method: SizingKelly, WinRatePct: 95, AvgWinPct: 50, AvgLossPct: 1, MinPct: 2, MaxPct: 20}
	assert.Equal(t, 20.0, high.Percent(TradeStats{}))
}

func TestAdaptiveKelly(t *testing.T) {
	cfg := SizingConfig{Method: SizingKelly, WinRatePct: 50, AvgWinPct: 5, AvgLossPct: 5, MinTrades: 5, MinPct: 0.5, MaxPct: 50}
	var stats TradeStats
	for _, r := range []float64{10, 10, 10, -5, -5} {
		stats.Record(r)
	}
	// 60% 승률, 평균 10% / 5% → 10%
	assert.InDelta(t, 10.0, cfg.Percent(stats), 1e-9)

	stats = TradeStats{}
	stats.Record(0)
	assert.Equal(t, 1, stats.Losses, "수익 0은 손실로 집계")
}

func TestCalculatePositionSize(t *testing.T) {
	res, err := CalculatePositionSize(10000, 1000000, 0.00015)
	require.NoError(t, err)
	assert.Equal(t, int64(99), res.Quantity)

	_, err = CalculatePositionSize(10000, 5000, 0)
	assert.True(t, errors.Is(err, ErrInsufficientCash))
}

func TestInvariantViolations(t *testing.T) {
	m := NewManager(ExitPolicy{}, EntryPolicy{}, SizingConfig{})
	openAt(t, m, "F", 1, 10000, 5)

	_, _, _, err := m.Apply(Fill{Symbol: "F", Time: dayN(2), Action: domain.Sell, Price: 10000, Quantity: 6, Amount: 60000, Reason: domain.ReasonSignal}, 0)
	assert.True(t, errors.Is(err, ErrNegativeQuantity))
	assert.True(t, IsInvariantViolation(err))

	_, _, _, err = m.Apply(Fill{Symbol: "F", Time: dayN(1), Action: domain.Sell, Price: 10000, Quantity: 1, Amount: 10000, Reason: domain.ReasonSignal}, 0)
	assert.True(t, errors.Is(err, ErrDuplicateTimestamp))

	_, _, _, err = m.Apply(Fill{Symbol: "G", Time: dayN(3), Action: domain.Sell, Price: 10000, Quantity: 1, Amount: 10000, Reason: domain.ReasonSignal}, 0)
	assert.True(t, errors.Is(err, ErrExitBeforeEntry))

	_, _, _, err = m.Apply(Fill{Symbol: "F", Time: dayN(4), Action: domain.Buy, Price: 10000, Quantity: 1, Amount: 10000, Reason: domain.ReasonEntry}, 0)
	assert.True(t, errors.Is(err, ErrPositionExists))
	assert.False(t, IsInvariantViolation(err))

	var perr *PositionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "F", perr.Symbol)
}

func TestHighLowMonotonic(t *testing.T) {
	m := NewManager(ExitPolicy{}, EntryPolicy{}, SizingConfig{})
	openAt(t, m, "H", 0, 10000, 1)
	pos, _ := m.Get("H")
	prevHigh, prevLow := pos.HighestPrice, pos.LowestPrice
	for _, price := range []float64{10100, 9900, 10050, 10300, 9800, math.NaN(), 10000} {
		m.Mark("H", price)
		assert.GreaterOrEqual(t, pos.HighestPrice, prevHigh)
		assert.LessOrEqual(t, pos.LowestPrice, prevLow)
		prevHigh, prevLow = pos.HighestPrice, pos.LowestPrice
	}
	assert.Equal(t, 10300.0, pos.HighestPrice)
	assert.Equal(t, 9800.0, pos.LowestPrice)
}
