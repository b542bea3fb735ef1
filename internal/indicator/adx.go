package indicator

import "math"

// ADXResult는 방향성 지표 계산 결과입니다
type ADXResult struct {
	ADX     Series
	PlusDI  Series
	MinusDI Series
}

// ADX는 Wilder의 방향성 시스템(+DI, -DI, ADX)을 계산합니다. ADX는 [0, 100] 범위입니다
func ADX(prices []PriceData, period int) ADXResult {
	n := len(prices)
	res := ADXResult{ADX: nanSeries(n), PlusDI: nanSeries(n), MinusDI: nanSeries(n)}
	if period < 1 || n < 2 {
		return res
	}

	tr := nanSeries(n)
	plusDM := nanSeries(n)
	minusDM := nanSeries(n)
	for i := 1; i < n; i++ {
		cur, prev := prices[i], prices[i-1]
		tr[i] = math.Max(math.Abs(cur.High-cur.Low),
			math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))

		up := cur.High - prev.High
		down := prev.Low - cur.Low
		plusDM[i], minusDM[i] = 0, 0
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	sTR := Wilder(tr, period)
	sPlus := Wilder(plusDM, period)
	sMinus := Wilder(minusDM, period)

	dx := nanSeries(n)
	for i := 0; i < n; i++ {
		if isNaN(sTR[i]) || isNaN(sPlus[i]) || isNaN(sMinus[i]) {
			continue
		}
		var pdi, mdi float64
		if sTR[i] > 0 {
			pdi = 100 * sPlus[i] / sTR[i]
			mdi = 100 * sMinus[i] / sTR[i]
		}
		res.PlusDI[i] = pdi
		res.MinusDI[i] = mdi
		if sum := pdi + mdi; sum > 0 {
			dx[i] = 100 * math.Abs(pdi-mdi) / sum
		} else {
			dx[i] = 0
		}
	}

	adx := Wilder(dx, period)
	for i, v := range adx {
		if !isNaN(v) {
			res.ADX[i] = clamp(v, 0, 100)
		}
	}
	return res
}
