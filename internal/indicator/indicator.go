package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/assist-by/krbacktest/internal/domain"
)

// PriceData는 지표 계산에 필요한 가격 정보를 정의합니다
type PriceData struct {
	Time   time.Time // 타임스탬프
	Open   float64   // 시가
	High   float64   // 고가
	Low    float64   // 저가
	Close  float64   // 종가
	Volume float64   // 거래량
}

// Series는 봉 배열과 1:1로 정렬된 지표 값입니다. 웜업 구간은 NaN입니다
type Series []float64

// At은 인덱스의 값을 반환합니다. 범위를 벗어나면 NaN입니다
func (s Series) At(i int) float64 {
	if i < 0 || i >= len(s) {
		return math.NaN()
	}
	return s[i]
}

// ValidationError는 입력값 검증 에러를 정의합니다
type ValidationError struct {
	Field string
	Err   error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("유효하지 않은 %s: %v", e.Field, e.Err)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// ConvertBarsToPriceData는 봉 데이터를 지표 계산용 PriceData로 변환합니다
func ConvertBarsToPriceData(bars domain.BarList) []PriceData {
	priceData := make([]PriceData, len(bars))
	for i, bar := range bars {
		priceData[i] = PriceData{
			Time:   bar.Time,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		}
	}
	return priceData
}

func closes(prices []PriceData) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = p.Close
	}
	return out
}

func volumes(prices []PriceData) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = p.Volume
	}
	return out
}

func nanSeries(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

func isNaN(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// highestHigh, lowestLow는 [i-period+1, i] 구간의 고가 최댓값/저가 최솟값입니다
func highestHigh(prices []PriceData, i, period int) float64 {
	hh := math.Inf(-1)
	for j := i - period + 1; j <= i; j++ {
		hh = math.Max(hh, prices[j].High)
	}
	return hh
}

func lowestLow(prices []PriceData, i, period int) float64 {
	ll := math.Inf(1)
	for j := i - period + 1; j <= i; j++ {
		ll = math.Min(ll, prices[j].Low)
	}
	return ll
}

// midpoint는 구간 고저의 중간값 시리즈입니다 (일목균형표)
func midpoint(prices []PriceData, period int) Series {
	out := nanSeries(len(prices))
	if period < 1 {
		return out
	}
	for i := period - 1; i < len(prices); i++ {
		out[i] = (highestHigh(prices, i, period) + lowestLow(prices, i, period)) / 2
	}
	return out
}
