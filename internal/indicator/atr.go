package indicator

import "math"

// TrueRange는 max(고가-저가, |고가-전일종가|, |저가-전일종가|)입니다. 첫 봉은 고가-저가입니다
func TrueRange(prices []PriceData) Series {
	out := make(Series, len(prices))
	for i, p := range prices {
		tr := math.Abs(p.High - p.Low)
		if i > 0 {
			prevClose := prices[i-1].Close
			tr = math.Max(tr, math.Abs(p.High-prevClose))
			tr = math.Max(tr, math.Abs(p.Low-prevClose))
		}
		out[i] = tr
	}
	return out
}

// ATR은 True Range의 Wilder 평활입니다. 항상 0 이상입니다
func ATR(prices []PriceData, period int) Series {
	return Wilder(TrueRange(prices), period)
}
