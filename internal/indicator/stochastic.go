package indicator

// StochasticResult는 스토캐스틱 계산 결과입니다
type StochasticResult struct {
	K Series
	D Series
}

// Stochastic은 %K와 %D(= %K의 SMA)를 계산합니다.
// 구간 고가와 저가가 같으면 %K는 NaN입니다
func Stochastic(prices []PriceData, kPeriod, dPeriod int) StochasticResult {
	n := len(prices)
	k := nanSeries(n)
	if kPeriod >= 1 {
		for i := kPeriod - 1; i < n; i++ {
			hh := highestHigh(prices, i, kPeriod)
			ll := lowestLow(prices, i, kPeriod)
			if hh == ll {
				continue
			}
			k[i] = 100 * (prices[i].Close - ll) / (hh - ll)
		}
	}
	return StochasticResult{K: k, D: SMA(k, dPeriod)}
}

// WilliamsR은 Williams %R을 계산합니다 ([-100, 0]). 구간 고가와 저가가 같으면 NaN입니다
func WilliamsR(prices []PriceData, period int) Series {
	n := len(prices)
	out := nanSeries(n)
	if period < 1 {
		return out
	}
	for i := period - 1; i < n; i++ {
		hh := highestHigh(prices, i, period)
		ll := lowestLow(prices, i, period)
		if hh == ll {
			continue
		}
		out[i] = -100 * (hh - prices[i].Close) / (hh - ll)
	}
	return out
}
