package indicator

// OBV는 On-Balance Volume입니다. 첫 봉은 0에서 시작합니다
func OBV(prices []PriceData) Series {
	out := make(Series, len(prices))
	for i := 1; i < len(prices); i++ {
		switch {
		case prices[i].Close > prices[i-1].Close:
			out[i] = out[i-1] + prices[i].Volume
		case prices[i].Close < prices[i-1].Close:
			out[i] = out[i-1] - prices[i].Volume
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// MFI는 Money Flow Index입니다.
// 음의 자금흐름이 0이면 100, 양/음 모두 0이면 50입니다
func MFI(prices []PriceData, period int) Series {
	n := len(prices)
	out := nanSeries(n)
	if period < 1 || n <= period {
		return out
	}
	tp := make([]float64, n)
	for i, p := range prices {
		tp[i] = (p.High + p.Low + p.Close) / 3
	}
	for i := period; i < n; i++ {
		var pos, neg float64
		for j := i - period + 1; j <= i; j++ {
			flow := tp[j] * prices[j].Volume
			if tp[j] > tp[j-1] {
				pos += flow
			} else if tp[j] < tp[j-1] {
				neg += flow
			}
		}
		switch {
		case pos == 0 && neg == 0:
			out[i] = 50
		case neg == 0:
			out[i] = 100
		default:
			out[i] = clamp(100-100/(1+pos/neg), 0, 100)
		}
	}
	return out
}

// moneyFlowVolume은 CLV × 거래량입니다. 고가=저가면 0입니다
func moneyFlowVolume(p PriceData) float64 {
	if p.High == p.Low {
		return 0
	}
	clv := ((p.Close - p.Low) - (p.High - p.Close)) / (p.High - p.Low)
	return clv * p.Volume
}

// AD는 Accumulation/Distribution 누적선입니다
func AD(prices []PriceData) Series {
	out := make(Series, len(prices))
	var acc float64
	for i, p := range prices {
		acc += moneyFlowVolume(p)
		out[i] = acc
	}
	return out
}

// CMF는 Chaikin Money Flow입니다. 구간 거래량 합이 0이면 0입니다
func CMF(prices []PriceData, period int) Series {
	n := len(prices)
	out := nanSeries(n)
	if period < 1 {
		return out
	}
	for i := period - 1; i < n; i++ {
		var mfv, vol float64
		for j := i - period + 1; j <= i; j++ {
			mfv += moneyFlowVolume(prices[j])
			vol += prices[j].Volume
		}
		if vol == 0 {
			out[i] = 0
			continue
		}
		out[i] = mfv / vol
	}
	return out
}
