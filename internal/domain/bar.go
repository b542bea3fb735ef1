package domain

import "time"

// Bar는 한 종목의 한 시점 OHLCV 데이터를 표현합니다
type Bar struct {
	Time   time.Time // 봉 시간 (일봉은 거래일)
	Open   float64   // 시가
	High   float64   // 고가
	Low    float64   // 저가
	Close  float64   // 종가
	Volume float64   // 거래량
}

// BarList는 시간순으로 정렬된 봉 목록입니다
type BarList []Bar

// Last는 가장 최근 봉을 반환합니다
func (bl BarList) Last() (Bar, bool) {
	if len(bl) == 0 {
		return Bar{}, false
	}
	return bl[len(bl)-1], true
}

// Tail은 마지막 n개의 봉을 반환합니다. n이 길이보다 크면 전체를 반환합니다
func (bl BarList) Tail(n int) BarList {
	if n <= 0 {
		return nil
	}
	if n >= len(bl) {
		return bl
	}
	return bl[len(bl)-n:]
}

// GetSubList는 지정된 범위의 부분 리스트를 반환합니다
func (bl BarList) GetSubList(start, end int) (BarList, bool) {
	if start < 0 || end > len(bl) || start >= end {
		return nil, false
	}
	return bl[start:end], true
}

// Closes는 종가 배열을 반환합니다
func (bl BarList) Closes() []float64 {
	out := make([]float64, len(bl))
	for i, b := range bl {
		out[i] = b.Close
	}
	return out
}

// IndexOf는 주어진 시간의 봉 인덱스를 이진 탐색으로 찾습니다
func (bl BarList) IndexOf(t time.Time) (int, bool) {
	lo, hi := 0, len(bl)
	for lo < hi {
		mid := (lo + hi) / 2
		if bl[mid].Time.Before(t) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(bl) && bl[lo].Time.Equal(t) {
		return lo, true
	}
	return lo, false
}
