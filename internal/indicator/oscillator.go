package indicator

import "math"

// AroonResult는 Aroon 지표 계산 결과입니다
type AroonResult struct {
	Up         Series
	Down       Series
	Oscillator Series
}

// Aroon은 최근 period+1개 봉 안에서 최고가/최저가 이후 경과 봉 수로 계산합니다
func Aroon(prices []PriceData, period int) AroonResult {
	n := len(prices)
	res := AroonResult{Up: nanSeries(n), Down: nanSeries(n), Oscillator: nanSeries(n)}
	if period < 1 {
		return res
	}
	for i := period; i < n; i++ {
		hiIdx, loIdx := i-period, i-period
		for j := i - period; j <= i; j++ {
			// 같은 값이면 최근 봉을 우선합니다
			if prices[j].High >= prices[hiIdx].High {
				hiIdx = j
			}
			if prices[j].Low <= prices[loIdx].Low {
				loIdx = j
			}
		}
		up := 100 * float64(period-(i-hiIdx)) / float64(period)
		down := 100 * float64(period-(i-loIdx)) / float64(period)
		res.Up[i] = up
		res.Down[i] = down
		res.Oscillator[i] = up - down
	}
	return res
}

// VortexResult는 Vortex 지표 계산 결과입니다
type VortexResult struct {
	Plus  Series
	Minus Series
}

// Vortex는 VI+ = Σ|고가-전일저가| / ΣTR, VI- = Σ|저가-전일고가| / ΣTR 입니다
func Vortex(prices []PriceData, period int) VortexResult {
	n := len(prices)
	res := VortexResult{Plus: nanSeries(n), Minus: nanSeries(n)}
	if period < 1 {
		return res
	}
	tr := TrueRange(prices)
	for i := period; i < n; i++ {
		var vmPlus, vmMinus, sumTR float64
		for j := i - period + 1; j <= i; j++ {
			vmPlus += math.Abs(prices[j].High - prices[j-1].Low)
			vmMinus += math.Abs(prices[j].Low - prices[j-1].High)
			sumTR += tr[j]
		}
		if sumTR == 0 {
			continue
		}
		res.Plus[i] = vmPlus / sumTR
		res.Minus[i] = vmMinus / sumTR
	}
	return res
}

// CCI는 Commodity Channel Index입니다. 평균편차가 0이면 0입니다
func CCI(prices []PriceData, period int) Series {
	n := len(prices)
	out := nanSeries(n)
	if period < 1 {
		return out
	}
	tp := make([]float64, n)
	for i, p := range prices {
		tp[i] = (p.High + p.Low + p.Close) / 3
	}
	mean := SMA(tp, period)
	for i := period - 1; i < n; i++ {
		if isNaN(mean[i]) {
			continue
		}
		var md float64
		for j := i - period + 1; j <= i; j++ {
			md += math.Abs(tp[j] - mean[i])
		}
		md /= float64(period)
		if md == 0 {
			out[i] = 0
			continue
		}
		out[i] = (tp[i] - mean[i]) / (0.015 * md)
	}
	return out
}

// TRIX는 삼중 지수평활 종가의 1봉 변화율(%)입니다
func TRIX(values []float64, period int) Series {
	n := len(values)
	out := nanSeries(n)
	triple := EMA(EMA(EMA(values, period), period), period)
	for i := 1; i < n; i++ {
		prev := triple[i-1]
		if isNaN(prev) || isNaN(triple[i]) || prev == 0 {
			continue
		}
		out[i] = 100 * (triple[i] - prev) / prev
	}
	return out
}
