package indicator

// SuperTrendResult는 SuperTrend 계산 결과입니다
type SuperTrendResult struct {
	Value     Series // 추세선 (상승 추세면 하단 밴드, 하락 추세면 상단 밴드)
	Direction Series // 1: 상승, -1: 하락
}

// SuperTrend는 ATR 기반 추세 추종 지표입니다.
// 최종 밴드와 추세 방향이 이전 봉 값에 의존하므로 순방향 단일 패스로 계산합니다
func SuperTrend(prices []PriceData, period int, multiplier float64) SuperTrendResult {
	n := len(prices)
	res := SuperTrendResult{Value: nanSeries(n), Direction: nanSeries(n)}
	atr := ATR(prices, period)

	start := -1
	for i, v := range atr {
		if !isNaN(v) {
			start = i
			break
		}
	}
	if start < 0 {
		return res
	}

	bands := func(i int) (float64, float64) {
		hl2 := (prices[i].High + prices[i].Low) / 2
		return hl2 + multiplier*atr[i], hl2 - multiplier*atr[i]
	}

	upper, lower := bands(start)
	dir := 1.0
	if prices[start].Close < lower {
		dir = -1
	}
	res.Direction[start] = dir
	if dir > 0 {
		res.Value[start] = lower
	} else {
		res.Value[start] = upper
	}

	for i := start + 1; i < n; i++ {
		basicUpper, basicLower := bands(i)
		prevClose := prices[i-1].Close

		if basicUpper < upper || prevClose > upper {
			upper = basicUpper
		}
		if basicLower > lower || prevClose < lower {
			lower = basicLower
		}

		switch {
		case dir > 0 && prices[i].Close < lower:
			dir = -1
		case dir < 0 && prices[i].Close > upper:
			dir = 1
		}

		res.Direction[i] = dir
		if dir > 0 {
			res.Value[i] = lower
		} else {
			res.Value[i] = upper
		}
	}
	return res
}
