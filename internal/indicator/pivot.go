package indicator

// PivotResult는 클래식 피벗 포인트입니다. 각 봉의 값은 직전 봉으로 계산됩니다
type PivotResult struct {
	P  Series
	R1 Series
	R2 Series
	S1 Series
	S2 Series
}

// Pivots는 직전 봉의 고가/저가/종가로 피벗과 지지/저항선을 계산합니다
func Pivots(prices []PriceData) PivotResult {
	n := len(prices)
	res := PivotResult{P: nanSeries(n), R1: nanSeries(n), R2: nanSeries(n), S1: nanSeries(n), S2: nanSeries(n)}
	for i := 1; i < n; i++ {
		prev := prices[i-1]
		p := (prev.High + prev.Low + prev.Close) / 3
		rng := prev.High - prev.Low
		res.P[i] = p
		res.R1[i] = 2*p - prev.Low
		res.S1[i] = 2*p - prev.High
		res.R2[i] = p + rng
		res.S2[i] = p - rng
	}
	return res
}
