package indicator

// BollingerResult는 볼린저 밴드 계산 결과입니다
type BollingerResult struct {
	Upper  Series
	Middle Series
	Lower  Series
	Width  Series // (상단-하단)/중심 × 100
	PctB   Series // (종가-하단)/(상단-하단), 밴드 폭이 0이면 NaN
}

// Bollinger는 볼린저 밴드를 계산합니다. 표준편차는 모집단 표준편차(ddof=0)입니다
func Bollinger(values []float64, period int, k float64) BollingerResult {
	n := len(values)
	res := BollingerResult{
		Upper:  nanSeries(n),
		Middle: SMA(values, period),
		Lower:  nanSeries(n),
		Width:  nanSeries(n),
		PctB:   nanSeries(n),
	}
	if period < 1 {
		return res
	}

	std := rollingStd(values, res.Middle, period)
	for i := 0; i < n; i++ {
		mid := res.Middle[i]
		if isNaN(mid) || isNaN(std[i]) {
			continue
		}
		upper := mid + k*std[i]
		lower := mid - k*std[i]
		res.Upper[i] = upper
		res.Lower[i] = lower
		if mid != 0 {
			res.Width[i] = (upper - lower) / mid * 100
		}
		if upper != lower {
			res.PctB[i] = (values[i] - lower) / (upper - lower)
		}
	}
	return res
}
