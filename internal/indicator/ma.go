package indicator

import "math"

// SMA는 단순이동평균입니다. 구간 안에 NaN이 있으면 NaN입니다
func SMA(values []float64, period int) Series {
	out := nanSeries(len(values))
	if period < 1 {
		return out
	}
	var sum float64
	nans := 0
	for i, v := range values {
		if isNaN(v) {
			nans++
		} else {
			sum += v
		}
		if i >= period {
			old := values[i-period]
			if isNaN(old) {
				nans--
			} else {
				sum -= old
			}
		}
		if i >= period-1 && nans == 0 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA는 지수이동평균입니다. 첫 구간의 SMA를 시작값으로 사용합니다 (α = 2/(period+1))
func EMA(values []float64, period int) Series {
	return smooth(values, period, 2.0/float64(period+1))
}

// Wilder는 Wilder 평활(α = 1/period)입니다. RSI, ATR, ADX에서 사용합니다
func Wilder(values []float64, period int) Series {
	return smooth(values, period, 1.0/float64(period))
}

// smooth는 앞쪽 NaN을 건너뛰고 첫 완전한 구간의 평균으로 시작하는 재귀 평활입니다
func smooth(values []float64, period int, alpha float64) Series {
	out := nanSeries(len(values))
	if period < 1 {
		return out
	}
	start := seedStart(values, period)
	if start < 0 {
		return out
	}

	var sum float64
	for i := start; i < start+period; i++ {
		sum += values[i]
	}
	prev := sum / float64(period)
	out[start+period-1] = prev

	for i := start + period; i < len(values); i++ {
		if isNaN(values[i]) {
			continue
		}
		prev = prev + alpha*(values[i]-prev)
		out[i] = prev
	}
	return out
}

// seedStart는 period개의 유효값이 연속되는 첫 시작 인덱스를 찾습니다
func seedStart(values []float64, period int) int {
	run := 0
	for i, v := range values {
		if isNaN(v) {
			run = 0
			continue
		}
		run++
		if run == period {
			return i - period + 1
		}
	}
	return -1
}

// WMA는 선형가중이동평균입니다 (최근 값 가중치 = period)
func WMA(values []float64, period int) Series {
	out := nanSeries(len(values))
	if period < 1 {
		return out
	}
	denom := float64(period*(period+1)) / 2
	for i := period - 1; i < len(values); i++ {
		var sum float64
		valid := true
		for j := 0; j < period; j++ {
			v := values[i-period+1+j]
			if isNaN(v) {
				valid = false
				break
			}
			sum += v * float64(j+1)
		}
		if valid {
			out[i] = sum / denom
		}
	}
	return out
}

// rollingStd는 모집단 표준편차(ddof=0)입니다
func rollingStd(values []float64, mean Series, period int) Series {
	out := nanSeries(len(values))
	for i := period - 1; i < len(values); i++ {
		m := mean[i]
		if isNaN(m) {
			continue
		}
		var ss float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - m
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(period))
	}
	return out
}

// rollingSum은 구간 합입니다. NaN이 섞이면 NaN입니다
func rollingSum(values []float64, period int) Series {
	avg := SMA(values, period)
	for i, v := range avg {
		if !isNaN(v) {
			avg[i] = v * float64(period)
		}
	}
	return avg
}
