package position

import (
	"fmt"
	"math"
	"time"

	"github.com/assist-by/krbacktest/internal/domain"
)

// Fill은 체결 결과입니다. 매수의 Amount는 수수료 포함 지출액, 매도의 Amount는 수수료/세금 차감 후 수령액입니다
type Fill struct {
	Symbol   string
	Time     time.Time
	Action   domain.Action
	Price    float64 // 슬리피지와 호가 단위가 반영된 체결가
	Quantity int64
	Amount   float64
	Reason   domain.ExitReason
	Stage    int
	NewStop  float64 // 단계 익절 후 올릴 손절가, 0이면 변경 없음
}

// Position은 심볼별 보유 상태입니다. Quantity > 0인 동안만 존재합니다
type Position struct {
	Symbol        string
	EntryTime     time.Time // 최초 진입 시각
	EntryPrice    float64   // 최초 진입 체결가
	AvgPrice      float64   // 평균 매수 단가 (수수료 제외)
	Quantity      int64
	PeakQuantity  int64   // 보유 기간 중 최대 수량 (분할 매도 기준)
	CostBasis     float64 // 남은 수량의 매수 원가 (수수료 포함)
	Budget        float64 // 최초 진입 시 계획한 예산 (분할/피라미딩 기준)
	HighestPrice  float64
	LowestPrice   float64
	LastPrice     float64
	PyramidLevel  int // 체결된 매수 단계 수 (단조 증가)
	LastAddPrice  float64
	BarsSinceAdd  int
	StagesHit     map[int]bool
	SplitSellStep int
	RatchetStop   float64 // 단계 익절로 올라간 손절가
	RealizedPnL   float64
	TotalCost     float64 // 누적 매수 지출액 (수익률 계산용)

	lastTrade time.Time
}

func newPosition(f Fill, budget float64) *Position {
	return &Position{
		Symbol:       f.Symbol,
		EntryTime:    f.Time,
		EntryPrice:   f.Price,
		HighestPrice: f.Price,
		LowestPrice:  f.Price,
		LastPrice:    f.Price,
		Budget:       budget,
		StagesHit:    make(map[int]bool),
	}
}

// Mark는 현재가로 평가하고 최고가/최저가를 갱신합니다
func (p *Position) Mark(price float64) {
	if math.IsNaN(price) || price <= 0 {
		return
	}
	p.LastPrice = price
	p.HighestPrice = math.Max(p.HighestPrice, price)
	p.LowestPrice = math.Min(p.LowestPrice, price)
	p.BarsSinceAdd++
}

// MarketValue는 현재가 기준 평가금액입니다
func (p *Position) MarketValue() float64 {
	return float64(p.Quantity) * p.LastPrice
}

// UnrealizedPnL은 남은 수량의 평가손익입니다 (매도 비용 제외)
func (p *Position) UnrealizedPnL() float64 {
	return p.MarketValue() - p.CostBasis
}

// ProfitPct는 가격 기준 평균 단가 대비 수익률(%)입니다
func (p *Position) ProfitPct(price float64) float64 {
	if p.AvgPrice <= 0 {
		return 0
	}
	return (price/p.AvgPrice - 1) * 100
}

// Unwinding은 일부라도 매도가 시작되었는지 확인합니다. 이후에는 추가 매수를 하지 않습니다
func (p *Position) Unwinding() bool {
	return len(p.StagesHit) > 0 || p.SplitSellStep > 0 || p.Quantity < p.PeakQuantity
}

func (p *Position) checkTime(t time.Time, op string) error {
	if !p.lastTrade.IsZero() && !t.After(p.lastTrade) {
		return NewPositionError(p.Symbol, op, fmt.Errorf("%w: %s <= %s", ErrDuplicateTimestamp,
			t.Format(time.RFC3339), p.lastTrade.Format(time.RFC3339)))
	}
	return nil
}

func (p *Position) applyBuy(f Fill) error {
	if f.Quantity <= 0 {
		return NewPositionError(p.Symbol, "buy", fmt.Errorf("%w: %d", ErrNegativeQuantity, f.Quantity))
	}
	if err := p.checkTime(f.Time, "buy"); err != nil {
		return err
	}
	total := p.AvgPrice*float64(p.Quantity) + f.Price*float64(f.Quantity)
	p.Quantity += f.Quantity
	p.AvgPrice = total / float64(p.Quantity)
	p.CostBasis += f.Amount
	p.TotalCost += f.Amount
	if p.Quantity > p.PeakQuantity {
		p.PeakQuantity = p.Quantity
	}
	p.PyramidLevel++
	p.LastAddPrice = f.Price
	p.BarsSinceAdd = 0
	p.lastTrade = f.Time
	return nil
}

// applySell은 매도를 반영하고 이번 매도의 실현손익을 반환합니다
func (p *Position) applySell(f Fill) (float64, error) {
	if f.Quantity <= 0 || f.Quantity > p.Quantity {
		return 0, NewPositionError(p.Symbol, "sell", fmt.Errorf("%w: 보유 %d, 매도 %d", ErrNegativeQuantity, p.Quantity, f.Quantity))
	}
	if f.Time.Before(p.EntryTime) {
		return 0, NewPositionError(p.Symbol, "sell", ErrExitBeforeEntry)
	}
	if err := p.checkTime(f.Time, "sell"); err != nil {
		return 0, err
	}

	basis := p.CostBasis * float64(f.Quantity) / float64(p.Quantity)
	if f.Quantity == p.Quantity {
		basis = p.CostBasis
	}
	profit := f.Amount - basis
	p.CostBasis -= basis
	p.Quantity -= f.Quantity
	p.RealizedPnL += profit

	switch f.Reason {
	case domain.ReasonStagedProfit:
		p.StagesHit[f.Stage] = true
	case domain.ReasonSignal:
		p.SplitSellStep++
	}
	if f.NewStop > p.RatchetStop {
		p.RatchetStop = f.NewStop
	}
	p.lastTrade = f.Time
	return profit, nil
}

// ReturnPct는 지금까지의 실현손익을 누적 매수 지출액 대비 수익률(%)로 반환합니다
func (p *Position) ReturnPct() float64 {
	if p.TotalCost <= 0 {
		return 0
	}
	return p.RealizedPnL / p.TotalCost * 100
}
