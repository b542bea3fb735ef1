package indicator

import "math"

// SARResult는 Parabolic SAR 지표 계산 결과입니다
type SARResult struct {
	SAR   Series // SAR 값
	Trend Series // 1: 상승 추세, -1: 하락 추세
}

// SAR은 Parabolic SAR을 계산합니다.
// 이전 봉의 SAR, 극점(EP), 가속계수(AF), 추세 방향에 의존하는 순방향 단일 패스입니다
func SAR(prices []PriceData, step, maxStep float64) SARResult {
	n := len(prices)
	res := SARResult{SAR: nanSeries(n), Trend: nanSeries(n)}
	if n < 2 || step <= 0 || maxStep < step {
		return res
	}

	// 초기 추세는 처음 두 봉의 종가로 결정합니다
	isLong := prices[1].Close >= prices[0].Close
	af := step
	var sar, ep float64
	if isLong {
		sar, ep = prices[0].Low, prices[0].High
	} else {
		sar, ep = prices[0].High, prices[0].Low
	}

	for i := 1; i < n; i++ {
		sar = sar + af*(ep-sar)

		if isLong {
			// SAR은 직전 두 봉의 저가를 넘을 수 없습니다
			sar = math.Min(sar, prices[i-1].Low)
			if i >= 2 {
				sar = math.Min(sar, prices[i-2].Low)
			}

			if prices[i].Low < sar {
				// 추세 전환
				isLong = false
				sar = ep
				ep = prices[i].Low
				af = step
			} else if prices[i].High > ep {
				// 새로운 고점 발견
				ep = prices[i].High
				af = math.Min(af+step, maxStep)
			}
		} else {
			sar = math.Max(sar, prices[i-1].High)
			if i >= 2 {
				sar = math.Max(sar, prices[i-2].High)
			}

			if prices[i].High > sar {
				isLong = true
				sar = ep
				ep = prices[i].High
				af = step
			} else if prices[i].Low < ep {
				// 새로운 저점 발견
				ep = prices[i].Low
				af = math.Min(af+step, maxStep)
			}
		}

		res.SAR[i] = sar
		if isLong {
			res.Trend[i] = 1
		} else {
			res.Trend[i] = -1
		}
	}

	return res
}
