package indicator

import (
	"fmt"
	"math"
	"sort"
)

// Frame은 봉 데이터와 계산된 지표 컬럼을 함께 보관하는 테이블입니다.
// 모든 컬럼의 길이는 봉 개수와 같습니다
type Frame struct {
	Prices  []PriceData
	columns map[string]Series
}

// NewFrame은 지표 컬럼이 없는 Frame을 생성합니다
func NewFrame(prices []PriceData) *Frame {
	return &Frame{
		Prices:  prices,
		columns: make(map[string]Series),
	}
}

// BuildFrame은 명세 목록의 모든 지표를 계산한 Frame을 생성합니다
func BuildFrame(prices []PriceData, specs []Spec) (*Frame, error) {
	f := NewFrame(prices)
	for _, spec := range specs {
		cols, err := Compute(spec, prices)
		if err != nil {
			return nil, err
		}
		for name, s := range cols {
			if err := f.Set(name, s); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

// Len은 봉 개수입니다
func (f *Frame) Len() int {
	return len(f.Prices)
}

// Set은 컬럼을 추가하거나 교체합니다
func (f *Frame) Set(name string, s Series) error {
	if len(s) != len(f.Prices) {
		return &ValidationError{Field: name, Err: fmt.Errorf("컬럼 길이 불일치: %d != %d", len(s), len(f.Prices))}
	}
	f.columns[NormalizeColumn(name)] = s
	return nil
}

// Column은 지표 컬럼을 반환합니다
func (f *Frame) Column(name string) (Series, bool) {
	s, ok := f.columns[NormalizeColumn(name)]
	return s, ok
}

// Has는 이름이 기본 가격 컬럼이거나 계산된 지표 컬럼인지 확인합니다
func (f *Frame) Has(name string) bool {
	name = NormalizeColumn(name)
	if IsBaseColumn(name) {
		return true
	}
	_, ok := f.columns[name]
	return ok
}

// Columns는 계산된 지표 컬럼 이름을 정렬해 반환합니다
func (f *Frame) Columns() []string {
	names := make([]string, 0, len(f.columns))
	for name := range f.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Value는 i번째 봉의 컬럼 값을 반환합니다. 컬럼이 없거나 범위를 벗어나면 NaN입니다
func (f *Frame) Value(name string, i int) float64 {
	if i < 0 || i >= len(f.Prices) {
		return math.NaN()
	}
	name = NormalizeColumn(name)
	switch name {
	case "price", "close":
		return f.Prices[i].Close
	case "open":
		return f.Prices[i].Open
	case "high":
		return f.Prices[i].High
	case "low":
		return f.Prices[i].Low
	case "volume":
		return f.Prices[i].Volume
	}
	return f.columns[name].At(i)
}

// IsBaseColumn은 지표 계산 없이 봉에서 바로 읽는 컬럼인지 확인합니다
func IsBaseColumn(name string) bool {
	switch NormalizeColumn(name) {
	case "price", "close", "open", "high", "low", "volume":
		return true
	}
	return false
}
