package position

import (
	"math"
	"time"

	"github.com/assist-by/krbacktest/internal/domain"
)

// eps는 % 임계값 비교의 부동소수점 허용 오차입니다
const eps = 1e-9

// Intent는 포지션 관리자가 결정한 주문 의도입니다.
// 매도는 Quantity를, 매수는 Budget(수수료 포함 지출 한도)을 사용합니다
type Intent struct {
	Symbol   string
	Action   domain.Action
	Quantity int64
	Budget   float64
	Plan     float64 // 최초 진입 시 계획 예산
	Reason   domain.ExitReason
	Stage    int
	NewStop  float64
}

// ExitContext는 청산 판단에 필요한 봉 정보입니다
type ExitContext struct {
	Time       time.Time
	Price      float64 // 판단 기준가 (종가)
	SellSignal bool
	Reference  float64 // 평균 회귀 기준값, 없으면 NaN
}

// StopPrice는 현재 유효한 손절가입니다 (기본 손절가와 상향 조정된 손절가 중 큰 값).
// 기본 손절가는 최초 진입가 기준이라 추가 매수로 평균 단가가 바뀌어도 움직이지 않습니다
func (p ExitPolicy) StopPrice(pos *Position) float64 {
	var base float64
	if p.StopLossPct > 0 {
		base = pos.EntryPrice * (100 - p.StopLossPct) / 100
	}
	return math.Max(base, pos.RatchetStop)
}

// Check는 우선순위에 따라 첫 번째로 충족된 청산 조건을 반환합니다
func (p ExitPolicy) Check(pos *Position, ec ExitContext) (Intent, bool) {
	if pos == nil || pos.Quantity <= 0 {
		return Intent{}, false
	}
	price := ec.Price
	full := func(reason domain.ExitReason) (Intent, bool) {
		return Intent{Symbol: pos.Symbol, Action: domain.Sell, Quantity: pos.Quantity, Reason: reason}, true
	}
	profit := pos.ProfitPct(price)

	// 1. 손절 (단계 익절로 올라간 손절가 포함)
	if stop := p.StopPrice(pos); stop > 0 && price <= stop {
		if pos.RatchetStop > 0 && pos.RatchetStop >= stop {
			return full(domain.ReasonDynamicStop)
		}
		return full(domain.ReasonStopLoss)
	}

	// 2. 추적 손절
	if p.Trailing.Enabled() && pos.ProfitPct(pos.HighestPrice) >= p.Trailing.ActivationPct-eps {
		if price <= pos.HighestPrice*(100-p.Trailing.DistancePct)/100 {
			return full(domain.ReasonTrailingStop)
		}
	}

	// 3. 단계 익절: 봉마다 가장 낮은 미체결 단계 하나만 실행합니다
	var cumulative float64
	for i, stage := range p.Stages {
		cumulative += stage.RatioPct
		if pos.StagesHit[i] {
			continue
		}
		if profit < stage.ProfitPct-eps {
			break
		}
		qty := int64(math.Floor(float64(pos.PeakQuantity) * stage.RatioPct / 100))
		if qty < 1 {
			qty = 1
		}
		if i == len(p.Stages)-1 || cumulative >= 100-eps || qty > pos.Quantity {
			qty = pos.Quantity
		}
		return Intent{
			Symbol:   pos.Symbol,
			Action:   domain.Sell,
			Quantity: qty,
			Reason:   domain.ReasonStagedProfit,
			Stage:    i,
			NewStop:  p.ratchet(pos, i),
		}, true
	}

	// 4. 단순 익절
	if p.TargetProfitPct > 0 && profit >= p.TargetProfitPct-eps {
		return full(domain.ReasonTargetProfit)
	}

	// 5. 매도 신호 (분할 매도)
	if ec.SellSignal {
		if step := pos.SplitSellStep; step < len(p.SplitSell) {
			qty := int64(math.Floor(float64(pos.PeakQuantity) * p.SplitSell[step] / 100))
			if qty < 1 {
				qty = 1
			}
			if step == len(p.SplitSell)-1 || qty > pos.Quantity {
				qty = pos.Quantity
			}
			return Intent{Symbol: pos.Symbol, Action: domain.Sell, Quantity: qty, Reason: domain.ReasonSignal, Stage: step}, true
		}
		return full(domain.ReasonSignal)
	}

	// 6. 보유 기간 / 평균 회귀
	if p.MaxHoldingDays > 0 && ec.Time.Sub(pos.EntryTime) >= time.Duration(p.MaxHoldingDays)*24*time.Hour {
		return full(domain.ReasonMaxHolding)
	}
	if p.MeanReversion != "" && !math.IsNaN(ec.Reference) && price >= ec.Reference {
		return full(domain.ReasonMeanReversion)
	}
	return Intent{}, false
}

// ratchet은 i번째 단계 익절 이후의 손절가를 계산합니다. 기존 값보다 낮으면 0입니다
func (p ExitPolicy) ratchet(pos *Position, i int) float64 {
	var level float64
	switch p.DynamicStop {
	case DynamicStopBreakEven:
		level = pos.AvgPrice
	case DynamicStopPriorStage:
		level = pos.AvgPrice
		if i > 0 {
			level = pos.AvgPrice * (1 + p.Stages[i-1].ProfitPct/100)
		}
	default:
		return 0
	}
	if level <= pos.RatchetStop {
		return 0
	}
	return level
}
