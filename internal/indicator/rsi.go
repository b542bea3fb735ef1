package indicator

// RSI는 Wilder 방식의 Relative Strength Index를 계산합니다.
//   - 첫 period개 변동의 평균으로 시작하고 이후 α=1/period로 평활
//   - 평균 손실이 0이면 100, 이득과 손실이 모두 0이면(완전 횡보) 50
//   - 결과는 항상 [0, 100] 범위
func RSI(values []float64, period int) Series {
	n := len(values)
	out := nanSeries(n)
	if period < 1 || n <= period {
		return out
	}

	gains := nanSeries(n)
	losses := nanSeries(n)
	for i := 1; i < n; i++ {
		if isNaN(values[i]) || isNaN(values[i-1]) {
			continue
		}
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains[i], losses[i] = delta, 0
		} else {
			gains[i], losses[i] = 0, -delta
		}
	}

	avgGain := Wilder(gains, period)
	avgLoss := Wilder(losses, period)
	for i := range out {
		if isNaN(avgGain[i]) || isNaN(avgLoss[i]) {
			continue
		}
		out[i] = toRSI(avgGain[i], avgLoss[i])
	}
	return out
}

func toRSI(avgGain, avgLoss float64) float64 {
	var rsi float64
	switch {
	case avgGain == 0 && avgLoss == 0:
		rsi = 50 // 완전 횡보
	case avgLoss == 0:
		rsi = 100
	default:
		rs := avgGain / avgLoss
		rsi = 100 - 100/(1+rs)
	}
	return clamp(rsi, 0, 100)
}
