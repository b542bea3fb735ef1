package position

import (
	"fmt"
	"math"
)

// SizingMethod는 신규 진입 규모 결정 방식입니다
type SizingMethod string

const (
	SizingFixed SizingMethod = "fixed"
	SizingKelly SizingMethod = "kelly"
)

// SizingConfig는 포지션 사이즈 계산을 위한 설정을 정의합니다. 비율은 모두 % 단위입니다
type SizingConfig struct {
	Method     SizingMethod `yaml:"method"`
	FixedPct   float64      `yaml:"fixed_pct"`    // 평가금액 대비 투자 비율
	MinPct     float64      `yaml:"min_pct"`      // 켈리 하한
	MaxPct     float64      `yaml:"max_pct"`      // 켈리 상한
	WinRatePct float64      `yaml:"win_rate_pct"` // 켈리 입력: 승률
	AvgWinPct  float64      `yaml:"avg_win_pct"`  // 켈리 입력: 평균 수익률
	AvgLossPct float64      `yaml:"avg_loss_pct"` // 켈리 입력: 평균 손실률 (양수)
	MinTrades  int          `yaml:"min_trades"`   // 이 횟수 이상 청산되면 실제 성과로 켈리 입력을 대체, 0이면 사용 안 함
}

// WithDefaults는 비어 있는 값을 기본값으로 채웁니다
func (c SizingConfig) WithDefaults() SizingConfig {
	if c.Method == "" {
		c.Method = SizingFixed
	}
	if c.FixedPct == 0 {
		c.FixedPct = 10
	}
	if c.Method == SizingKelly {
		if c.MinPct == 0 {
			c.MinPct = 1
		}
		if c.MaxPct == 0 {
			c.MaxPct = 25
		}
	}
	return c
}

// Validate는 설정 범위를 확인합니다
func (c SizingConfig) Validate() error {
	switch c.Method {
	case SizingFixed:
		if c.FixedPct <= 0 || c.FixedPct > 100 {
			return fmt.Errorf("fixed_pct는 (0, 100] 범위여야 합니다: %g", c.FixedPct)
		}
	case SizingKelly:
		if c.MinPct < 0 || c.MaxPct <= 0 || c.MinPct > c.MaxPct || c.MaxPct > 100 {
			return fmt.Errorf("켈리 범위가 잘못되었습니다: min %g, max %g", c.MinPct, c.MaxPct)
		}
		if c.MinTrades == 0 && (c.WinRatePct <= 0 || c.AvgWinPct <= 0 || c.AvgLossPct <= 0) {
			return fmt.Errorf("켈리 입력(win_rate_pct, avg_win_pct, avg_loss_pct)이 필요합니다")
		}
		if c.WinRatePct < 0 || c.WinRatePct > 100 {
			return fmt.Errorf("win_rate_pct는 [0, 100] 범위여야 합니다: %g", c.WinRatePct)
		}
	default:
		return fmt.Errorf("알 수 없는 사이징 방식: %q", c.Method)
	}
	return nil
}

// Percent는 신규 진입에 사용할 평가금액 대비 비율(%)을 반환합니다
func (c SizingConfig) Percent(stats TradeStats) float64 {
	if c.Method != SizingKelly {
		return c.FixedPct
	}
	winRate, avgWin, avgLoss := c.WinRatePct, c.AvgWinPct, c.AvgLossPct
	if c.MinTrades > 0 && stats.Count() >= c.MinTrades {
		winRate, avgWin, avgLoss = stats.WinRatePct(), stats.AvgWinPct(), stats.AvgLossPct()
	}
	return math.Max(c.MinPct, math.Min(c.MaxPct, KellyPercent(winRate, avgWin, avgLoss)))
}

// KellyPercent는 1/4 켈리 비율(%)을 계산합니다. 범위 제한은 하지 않습니다.
//
//	size = (winRate × R − (1 − winRate)) / R / 4,  R = avgWin / avgLoss
func KellyPercent(winRatePct, avgWinPct, avgLossPct float64) float64 {
	if avgWinPct <= 0 || avgLossPct <= 0 {
		return 0
	}
	wr := winRatePct / 100
	r := avgWinPct / avgLossPct
	return (wr*r - (1 - wr)) / r / 4 * 100
}

// TradeStats는 청산 완료된 포지션의 수익률 통계입니다 (적응형 켈리 입력)
type TradeStats struct {
	Wins       int
	Losses     int
	SumWinPct  float64
	SumLossPct float64 // 양수로 누적
}

// Record는 청산 완료된 포지션 하나의 수익률을 기록합니다. 0 이하는 손실로 집계합니다
func (s *TradeStats) Record(returnPct float64) {
	if returnPct > 0 {
		s.Wins++
		s.SumWinPct += returnPct
		return
	}
	s.Losses++
	s.SumLossPct += -returnPct
}

// Count는 기록된 포지션 수입니다
func (s TradeStats) Count() int { return s.Wins + s.Losses }

// WinRatePct는 승률(%)입니다
func (s TradeStats) WinRatePct() float64 {
	if s.Count() == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Count()) * 100
}

// AvgWinPct는 평균 수익률(%)입니다
func (s TradeStats) AvgWinPct() float64 {
	if s.Wins == 0 {
		return 0
	}
	return s.SumWinPct / float64(s.Wins)
}

// AvgLossPct는 평균 손실률(%, 양수)입니다
func (s TradeStats) AvgLossPct() float64 {
	if s.Losses == 0 {
		return 0
	}
	return s.SumLossPct / float64(s.Losses)
}

// PositionSizeResult는 포지션 계산 결과를 담는 구조체입니다
type PositionSizeResult struct {
	PositionValue float64 // 매수 금액 (수수료 제외)
	Quantity      int64   // 매수 수량 (주)
}

// CalculatePositionSize는 예산 안에서 수수료를 포함해 살 수 있는 최대 주식 수를 계산합니다
func CalculatePositionSize(price, budget, feeRate float64) (PositionSizeResult, error) {
	if price <= 0 || math.IsNaN(price) {
		return PositionSizeResult{}, fmt.Errorf("유효하지 않은 가격: %g", price)
	}
	quantity := int64(math.Floor(budget / (price * (1 + feeRate))))
	if quantity < 1 {
		return PositionSizeResult{}, fmt.Errorf("%w: 예산 %.0f, 가격 %.0f", ErrInsufficientCash, budget, price)
	}
	return PositionSizeResult{
		PositionValue: float64(quantity) * price,
		Quantity:      quantity,
	}, nil
}
