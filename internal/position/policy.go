package position

import (
	"fmt"
	"sort"
)

// TrailingStop은 추적 손절 설정입니다. 최고가 대비 수익률이 ActivationPct 이상이 된 뒤부터 동작합니다
type TrailingStop struct {
	ActivationPct float64 `yaml:"activation_pct"`
	DistancePct   float64 `yaml:"distance_pct"` // 최고가 대비 하락 폭
}

// Enabled는 추적 손절 사용 여부입니다
func (t TrailingStop) Enabled() bool { return t.DistancePct > 0 }

// ProfitStage는 단계별 익절 기준입니다
type ProfitStage struct {
	ProfitPct float64 `yaml:"profit_pct"` // 평균 단가 대비 수익률
	RatioPct  float64 `yaml:"ratio_pct"`  // 최대 보유 수량 대비 매도 비율
}

// DynamicStop은 단계 익절 이후 손절가를 끌어올리는 방식입니다
type DynamicStop string

const (
	DynamicStopNone       DynamicStop = ""
	DynamicStopBreakEven  DynamicStop = "breakeven"   // 손익분기점(평균 단가)
	DynamicStopPriorStage DynamicStop = "prior_stage" // 직전 단계 수익률 가격
)

// ExitPolicy는 청산 정책입니다. 비율은 모두 % 단위이며 0은 사용 안 함입니다.
// 봉마다 손절 → 추적 손절 → 단계 익절 → 단순 익절 → 매도 신호 → 보유 기간/평균 회귀 순서로 확인합니다
type ExitPolicy struct {
	StopLossPct     float64       `yaml:"stop_loss_pct"`
	Trailing        TrailingStop  `yaml:"trailing_stop"`
	Stages          []ProfitStage `yaml:"staged_profit"`
	DynamicStop     DynamicStop   `yaml:"dynamic_stop"`
	TargetProfitPct float64       `yaml:"target_profit_pct"`
	SplitSell       []float64     `yaml:"split_sell"` // 매도 신호마다 최대 보유 수량 대비 매도 비율
	MaxHoldingDays  int           `yaml:"max_holding_days"`
	MeanReversion   string        `yaml:"mean_reversion_column"` // 종가가 이 컬럼 값 이상이면 청산
}

// Validate는 청산 정책을 확인합니다
func (p ExitPolicy) Validate() error {
	if p.StopLossPct < 0 || p.StopLossPct >= 100 {
		return fmt.Errorf("stop_loss_pct는 [0, 100) 범위여야 합니다: %g", p.StopLossPct)
	}
	if p.Trailing.ActivationPct < 0 || p.Trailing.DistancePct < 0 || p.Trailing.DistancePct >= 100 {
		return fmt.Errorf("trailing_stop 설정이 잘못되었습니다: %+v", p.Trailing)
	}
	if p.TargetProfitPct < 0 {
		return fmt.Errorf("target_profit_pct는 0 이상이어야 합니다: %g", p.TargetProfitPct)
	}
	if p.MaxHoldingDays < 0 {
		return fmt.Errorf("max_holding_days는 0 이상이어야 합니다: %d", p.MaxHoldingDays)
	}

	var total float64
	for i, s := range p.Stages {
		if s.ProfitPct <= 0 || s.RatioPct <= 0 {
			return fmt.Errorf("staged_profit[%d]: profit_pct와 ratio_pct는 0보다 커야 합니다", i)
		}
		if i > 0 && s.ProfitPct <= p.Stages[i-1].ProfitPct {
			return fmt.Errorf("staged_profit[%d]: profit_pct는 증가해야 합니다", i)
		}
		total += s.RatioPct
	}
	if total > 100+1e-9 {
		return fmt.Errorf("staged_profit 매도 비율 합계가 100%%를 넘습니다: %g", total)
	}

	switch p.DynamicStop {
	case DynamicStopNone, DynamicStopBreakEven, DynamicStopPriorStage:
	default:
		return fmt.Errorf("알 수 없는 dynamic_stop: %q", p.DynamicStop)
	}
	if p.DynamicStop != DynamicStopNone && len(p.Stages) == 0 {
		return fmt.Errorf("dynamic_stop은 staged_profit이 필요합니다")
	}

	for i, r := range p.SplitSell {
		if r <= 0 || r > 100 {
			return fmt.Errorf("split_sell[%d]은 (0, 100] 범위여야 합니다: %g", i, r)
		}
	}
	return nil
}

// SplitLevel은 분할 매수 단계입니다
type SplitLevel struct {
	DropPct float64 `yaml:"drop_pct"` // 최초 진입가 대비 하락률 (0단계는 0)
	SizePct float64 `yaml:"size_pct"` // 계획 예산 대비 매수 비율
}

// SplitTrading은 하락 시 분할 매수 설정입니다
type SplitTrading struct {
	Enabled bool         `yaml:"enabled"`
	Levels  []SplitLevel `yaml:"levels"`
}

// Pyramiding은 수익 중인 포지션에 추가 매수하는 설정입니다
type Pyramiding struct {
	Enabled       bool      `yaml:"enabled"`
	MaxPositions  int       `yaml:"max_positions"`  // 최초 진입을 포함한 최대 매수 횟수
	PriceStepPct  float64   `yaml:"price_step_pct"` // 직전 매수가 대비 상승률
	MinBars       int       `yaml:"min_bars"`       // 직전 매수 이후 최소 경과 봉 수
	Ratios        []float64 `yaml:"ratios"`         // 단계별 계획 예산 대비 매수 비율
	RequireSignal bool      `yaml:"require_signal"` // 추가 매수에도 매수 신호 필요
}

// EntryPolicy는 진입 정책입니다. 분할 매수와 피라미딩은 함께 쓸 수 없습니다
type EntryPolicy struct {
	Split      SplitTrading `yaml:"split_trading"`
	Pyramiding Pyramiding   `yaml:"pyramiding"`
}

// WithDefaults는 비어 있는 값을 기본값으로 채웁니다
func (p EntryPolicy) WithDefaults() EntryPolicy {
	if p.Pyramiding.Enabled {
		if len(p.Pyramiding.Ratios) == 0 {
			p.Pyramiding.Ratios = []float64{100, 50, 25}
		}
		if p.Pyramiding.MaxPositions == 0 {
			p.Pyramiding.MaxPositions = len(p.Pyramiding.Ratios)
		}
	}
	return p
}

// Validate는 진입 정책을 확인합니다
func (p EntryPolicy) Validate() error {
	if p.Split.Enabled && p.Pyramiding.Enabled {
		return fmt.Errorf("split_trading과 pyramiding은 함께 사용할 수 없습니다")
	}
	if p.Split.Enabled {
		levels := p.Split.Levels
		if len(levels) == 0 {
			return fmt.Errorf("split_trading.levels가 비어 있습니다")
		}
		if levels[0].DropPct != 0 {
			return fmt.Errorf("split_trading.levels[0].drop_pct는 0이어야 합니다")
		}
		var total float64
		for i, l := range levels {
			if l.SizePct <= 0 {
				return fmt.Errorf("split_trading.levels[%d].size_pct는 0보다 커야 합니다", i)
			}
			if i > 0 && (l.DropPct <= levels[i-1].DropPct || l.DropPct >= 100) {
				return fmt.Errorf("split_trading.levels[%d].drop_pct는 증가해야 하며 100 미만이어야 합니다", i)
			}
			total += l.SizePct
		}
		if total > 100+1e-9 {
			return fmt.Errorf("split_trading 매수 비율 합계가 100%%를 넘습니다: %g", total)
		}
	}
	if p.Pyramiding.Enabled {
		py := p.Pyramiding
		if py.MaxPositions < 1 {
			return fmt.Errorf("pyramiding.max_positions는 1 이상이어야 합니다")
		}
		if py.PriceStepPct <= 0 && py.MinBars <= 0 {
			return fmt.Errorf("pyramiding은 price_step_pct 또는 min_bars가 필요합니다")
		}
		for i, r := range py.Ratios {
			if r <= 0 {
				return fmt.Errorf("pyramiding.ratios[%d]는 0보다 커야 합니다", i)
			}
		}
		if !sort.SliceIsSorted(py.Ratios, func(i, j int) bool { return py.Ratios[i] > py.Ratios[j] }) {
			return fmt.Errorf("pyramiding.ratios는 감소해야 합니다: %v", py.Ratios)
		}
	}
	return nil
}
