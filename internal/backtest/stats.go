package backtest

import (
	"math"
	"time"

	"github.com/assist-by/krbacktest/internal/domain"
)

// TradingDaysPerYear는 샤프 지수 연율화에 쓰는 연간 거래일 수입니다
const TradingDaysPerYear = 252

// CalculateMetrics는 체결 기록과 자산 곡선으로 요약 지표를 계산합니다.
// 승패는 매도 체결 단위로 세며 손익이 0인 매도는 손실로 봅니다
func CalculateMetrics(trades []domain.Trade, curve []domain.EquityPoint, initialCapital, riskFreeRate float64) Metrics {
	var m Metrics

	finalEquity := initialCapital
	if len(curve) > 0 {
		finalEquity = curve[len(curve)-1].Equity
	}
	if initialCapital > 0 {
		m.TotalReturn = (finalEquity/initialCapital - 1) * 100
	}
	if len(curve) > 0 {
		m.AnnualizedReturn = CalculateAnnualizedReturn(initialCapital, finalEquity, curve[0].Time, curve[len(curve)-1].Time) * 100
	}

	m.MaxDrawdown, m.AvgDrawdown, m.LongestDrawdown = CalculateDrawdownStats(curve)
	m.SharpeRatio = CalculateSharpe(curve, riskFreeRate)

	// 연속 승/패 계산 변수
	var (
		grossProfit, grossLoss   float64
		sumWinPct, sumLossPct    float64
		currentWins, currentLoss int
	)
	for _, t := range trades {
		if t.Action != domain.Sell {
			continue
		}
		m.TotalTrades++
		if t.Profit > 0 {
			m.WinningTrades++
			grossProfit += t.Profit
			sumWinPct += t.ProfitPct

			currentWins++
			currentLoss = 0
			if currentWins > m.MaxConsecutiveWins {
				m.MaxConsecutiveWins = currentWins
			}
		} else {
			m.LosingTrades++
			grossLoss += -t.Profit
			sumLossPct += t.ProfitPct

			currentLoss++
			currentWins = 0
			if currentLoss > m.MaxConsecutiveLosses {
				m.MaxConsecutiveLosses = currentLoss
			}
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	}
	if m.WinningTrades > 0 {
		m.AvgWinPct = sumWinPct / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLossPct = sumLossPct / float64(m.LosingTrades)
	}

	// 손실이 없으면 이익 여부에 따라 +Inf 또는 0
	switch {
	case grossLoss > 0:
		m.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		m.ProfitFactor = math.Inf(1)
	}
	return m
}

// CalculateSharpe는 일간 수익률로 연율화 샤프 지수를 계산합니다.
// riskFreeRate는 연 수익률(소수)이며 표준편차는 표본 표준편차입니다.
// 평가 지점이 2개 미만이거나 표준편차가 0이면 0입니다
func CalculateSharpe(curve []domain.EquityPoint, riskFreeRate float64) float64 {
	if len(curve) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	std := math.Sqrt(ss / float64(len(returns)-1))
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	daily := riskFreeRate / TradingDaysPerYear
	return (mean - daily) / std * math.Sqrt(TradingDaysPerYear)
}

// CalculateDrawdownStats는 자산 이력에서 낙폭 통계를 계산합니다
func CalculateDrawdownStats(equityHistory []domain.EquityPoint) (maxDrawdown float64, avgDrawdown float64, drawdownDuration time.Duration) {
	if len(equityHistory) == 0 {
		return 0, 0, 0
	}

	highWaterMark := equityHistory[0].Equity
	totalDrawdown := 0.0
	drawdownCount := 0

	drawdownStart := time.Time{}
	inDrawdown := false

	for _, point := range equityHistory {
		// 신규 최고점 갱신
		if point.Equity >= highWaterMark {
			highWaterMark = point.Equity

			// 낙폭 종료
			if inDrawdown {
				inDrawdown = false
				if d := point.Time.Sub(drawdownStart); d > drawdownDuration {
					drawdownDuration = d
				}
			}
			continue
		}

		if highWaterMark <= 0 {
			continue
		}
		currentDrawdown := (highWaterMark - point.Equity) / highWaterMark * 100
		if !inDrawdown {
			inDrawdown = true
			drawdownStart = point.Time
		}
		if currentDrawdown > maxDrawdown {
			maxDrawdown = currentDrawdown
		}
		totalDrawdown += currentDrawdown
		drawdownCount++
	}

	// 끝까지 회복하지 못한 낙폭
	if inDrawdown {
		if d := equityHistory[len(equityHistory)-1].Time.Sub(drawdownStart); d > drawdownDuration {
			drawdownDuration = d
		}
	}

	if drawdownCount > 0 {
		avgDrawdown = totalDrawdown / float64(drawdownCount)
	}
	return maxDrawdown, avgDrawdown, drawdownDuration
}

// CalculateAnnualizedReturn은 연율화 수익률(소수)을 계산합니다
func CalculateAnnualizedReturn(startEquity, endEquity float64, startTime, endTime time.Time) float64 {
	if startEquity <= 0 {
		return 0
	}
	// 총 수익률
	totalReturn := (endEquity - startEquity) / startEquity
	if totalReturn <= -1 {
		return -1
	}

	// 거래 기간 (연 단위)
	yearDiff := float64(endTime.Sub(startTime)) / float64(365*24*time.Hour)

	// 연율화 수익률 계산 공식: (1 + totalReturn)^(1/yearDiff) - 1
	if yearDiff > 0 {
		return math.Pow(1+totalReturn, 1/yearDiff) - 1
	}
	return totalReturn
}
