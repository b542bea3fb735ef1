package position

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/assist-by/krbacktest/internal/domain"
)

// Manager는 한 번의 백테스트 실행 동안 심볼별 포지션을 관리합니다.
// 실행마다 새로 생성하며 동시에 여러 고루틴에서 사용하지 않습니다
type Manager struct {
	Exit   ExitPolicy
	Entry  EntryPolicy
	Sizing SizingConfig

	positions map[string]*Position
	lastTrade map[string]time.Time
	stats     TradeStats
}

// NewManager는 새로운 포지션 관리자를 생성합니다
func NewManager(exit ExitPolicy, entry EntryPolicy, sizing SizingConfig) *Manager {
	return &Manager{
		Exit:      exit,
		Entry:     entry.WithDefaults(),
		Sizing:    sizing.WithDefaults(),
		positions: make(map[string]*Position),
		lastTrade: make(map[string]time.Time),
	}
}

// Get은 심볼의 보유 포지션을 반환합니다
func (m *Manager) Get(symbol string) (*Position, bool) {
	pos, ok := m.positions[symbol]
	return pos, ok
}

// Symbols는 보유 중인 심볼을 정렬해 반환합니다
func (m *Manager) Symbols() []string {
	symbols := make([]string, 0, len(m.positions))
	for s := range m.positions {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// MarketValue는 모든 보유 포지션의 평가금액 합계입니다
func (m *Manager) MarketValue() float64 {
	var total float64
	for _, pos := range m.positions {
		total += pos.MarketValue()
	}
	return total
}

// Stats는 청산 완료된 포지션의 통계입니다
func (m *Manager) Stats() TradeStats {
	return m.stats
}

// Mark는 심볼의 포지션을 현재가로 평가합니다
func (m *Manager) Mark(symbol string, price float64) {
	if pos, ok := m.positions[symbol]; ok {
		pos.Mark(price)
	}
}

// CheckExit은 청산 정책을 확인합니다
func (m *Manager) CheckExit(symbol string, ec ExitContext) (Intent, bool) {
	pos, ok := m.positions[symbol]
	if !ok {
		return Intent{}, false
	}
	return m.Exit.Check(pos, ec)
}

// Liquidate는 남은 수량 전체를 매도하는 의도를 생성합니다
func (m *Manager) Liquidate(symbol string, reason domain.ExitReason) (Intent, bool) {
	pos, ok := m.positions[symbol]
	if !ok || pos.Quantity <= 0 {
		return Intent{}, false
	}
	return Intent{Symbol: symbol, Action: domain.Sell, Quantity: pos.Quantity, Reason: reason}, true
}

// PlanEntry는 신규 진입 또는 추가 매수 의도를 결정합니다.
// equity는 현재 평가금액으로 신규 진입 예산 계산에 사용합니다
func (m *Manager) PlanEntry(symbol string, price float64, buySignal bool, equity float64) (Intent, bool) {
	if math.IsNaN(price) || price <= 0 {
		return Intent{}, false
	}
	pos, ok := m.positions[symbol]
	if !ok {
		if !buySignal {
			return Intent{}, false
		}
		plan := equity * m.Sizing.Percent(m.stats) / 100
		if plan <= 0 {
			return Intent{}, false
		}
		budget := plan
		switch {
		case m.Entry.Split.Enabled:
			budget = plan * m.Entry.Split.Levels[0].SizePct / 100
		case m.Entry.Pyramiding.Enabled:
			budget = plan * m.Entry.Pyramiding.Ratios[0] / 100
		}
		return Intent{Symbol: symbol, Action: domain.Buy, Budget: budget, Plan: plan, Reason: domain.ReasonEntry}, true
	}

	if pos.Unwinding() {
		return Intent{}, false
	}
	level := pos.PyramidLevel

	if m.Entry.Split.Enabled {
		levels := m.Entry.Split.Levels
		if level >= len(levels) {
			return Intent{}, false
		}
		trigger := pos.EntryPrice * (100 - levels[level].DropPct) / 100
		if price > trigger {
			return Intent{}, false
		}
		return Intent{
			Symbol: symbol, Action: domain.Buy, Budget: pos.Budget * levels[level].SizePct / 100,
			Reason: domain.ReasonSplitEntry, Stage: level,
		}, true
	}

	if m.Entry.Pyramiding.Enabled {
		py := m.Entry.Pyramiding
		if level >= py.MaxPositions || level >= len(py.Ratios) {
			return Intent{}, false
		}
		if price <= pos.AvgPrice {
			return Intent{}, false
		}
		if py.PriceStepPct > 0 && price < pos.LastAddPrice*(100+py.PriceStepPct)/100 {
			return Intent{}, false
		}
		if py.MinBars > 0 && pos.BarsSinceAdd < py.MinBars {
			return Intent{}, false
		}
		if py.RequireSignal && !buySignal {
			return Intent{}, false
		}
		return Intent{
			Symbol: symbol, Action: domain.Buy, Budget: pos.Budget * py.Ratios[level] / 100,
			Reason: domain.ReasonPyramid, Stage: level,
		}, true
	}
	return Intent{}, false
}

// Apply는 체결을 포지션에 반영합니다.
// 매도로 수량이 0이 되면 포지션을 제거하고 closed=true와 포지션 전체 수익률을 반환합니다
func (m *Manager) Apply(f Fill, plan float64) (profit float64, closed bool, roundTripPct float64, err error) {
	if last, ok := m.lastTrade[f.Symbol]; ok && !f.Time.After(last) {
		return 0, false, 0, NewPositionError(f.Symbol, string(f.Action), ErrDuplicateTimestamp)
	}

	pos, exists := m.positions[f.Symbol]
	switch f.Action {
	case domain.Buy:
		if !exists {
			if f.Reason != domain.ReasonEntry {
				return 0, false, 0, NewPositionError(f.Symbol, "buy", ErrPositionNotFound)
			}
			pos = newPosition(f, plan)
			m.positions[f.Symbol] = pos
		} else if f.Reason == domain.ReasonEntry {
			return 0, false, 0, NewPositionError(f.Symbol, "buy", ErrPositionExists)
		}
		if err := pos.applyBuy(f); err != nil {
			return 0, false, 0, err
		}

	case domain.Sell:
		if !exists {
			return 0, false, 0, NewPositionError(f.Symbol, "sell", ErrExitBeforeEntry)
		}
		profit, err = pos.applySell(f)
		if err != nil {
			return 0, false, 0, err
		}
		if pos.Quantity == 0 {
			closed = true
			roundTripPct = pos.ReturnPct()
			m.stats.Record(roundTripPct)
			delete(m.positions, f.Symbol)
		}

	default:
		return 0, false, 0, NewPositionError(f.Symbol, "apply", fmt.Errorf("알 수 없는 주문 방향: %q", f.Action))
	}

	m.lastTrade[f.Symbol] = f.Time
	return profit, closed, roundTripPct, nil
}
