package indicator

// MACDResult는 MACD 지표 계산 결과입니다
type MACDResult struct {
	MACD      Series // MACD 라인
	Signal    Series // 시그널 라인
	Histogram Series // 히스토그램
}

// MACD는 Moving Average Convergence Divergence를 계산합니다.
// 라인 = EMA(fast) - EMA(slow), 시그널 = 라인의 EMA(signal), 히스토그램 = 라인 - 시그널
func MACD(values []float64, fast, slow, signal int) MACDResult {
	n := len(values)
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)

	line := nanSeries(n)
	for i := 0; i < n; i++ {
		if isNaN(fastEMA[i]) || isNaN(slowEMA[i]) {
			continue
		}
		line[i] = fastEMA[i] - slowEMA[i]
	}

	// 라인의 앞쪽 NaN은 EMA가 건너뜁니다
	sig := EMA(line, signal)
	hist := nanSeries(n)
	for i := 0; i < n; i++ {
		if isNaN(line[i]) || isNaN(sig[i]) {
			continue
		}
		hist[i] = line[i] - sig[i]
	}

	return MACDResult{MACD: line, Signal: sig, Histogram: hist}
}
