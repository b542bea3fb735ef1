package indicator

// IchimokuResult는 일목균형표 계산 결과입니다
type IchimokuResult struct {
	Tenkan  Series // 전환선
	Kijun   Series // 기준선
	SenkouA Series // 선행스팬1 (kijun 기간만큼 앞으로 이동)
	SenkouB Series // 선행스팬2 (kijun 기간만큼 앞으로 이동)
}

// Ichimoku는 일목균형표를 계산합니다.
// 후행스팬은 미래 종가가 필요하므로 백테스트에서는 제공하지 않습니다
func Ichimoku(prices []PriceData, tenkan, kijun, senkou int) IchimokuResult {
	n := len(prices)
	res := IchimokuResult{
		Tenkan:  midpoint(prices, tenkan),
		Kijun:   midpoint(prices, kijun),
		SenkouA: nanSeries(n),
		SenkouB: nanSeries(n),
	}
	spanB := midpoint(prices, senkou)

	for i := kijun; i < n; i++ {
		src := i - kijun
		if !isNaN(res.Tenkan[src]) && !isNaN(res.Kijun[src]) {
			res.SenkouA[i] = (res.Tenkan[src] + res.Kijun[src]) / 2
		}
		res.SenkouB[i] = spanB[src]
	}
	return res
}
