package backtest

import (
	"fmt"
	"sort"
	"sync"

	"github.com/assist-by/krbacktest/internal/indicator"
)

// IndicatorCache는 종목별 지표 계산 결과를 캐싱하는 저장소입니다
type IndicatorCache struct {
	indicators map[string]map[string]indicator.Series // 종목|명세 키 → 컬럼 → 시리즈
	mutex      sync.RWMutex                           // 동시성 제어
}

// NewIndicatorCache는 새로운 지표 캐시를 생성합니다
func NewIndicatorCache() *IndicatorCache {
	return &IndicatorCache{
		indicators: make(map[string]map[string]indicator.Series),
	}
}

func cacheKey(symbol string, spec indicator.Spec) string {
	return symbol + "|" + spec.Key()
}

// CacheIndicator는 특정 지표를 계산하고 캐싱합니다. 이미 있으면 계산하지 않습니다
func (cache *IndicatorCache) CacheIndicator(symbol string, spec indicator.Spec, prices []indicator.PriceData) (map[string]indicator.Series, error) {
	key := cacheKey(symbol, spec)

	cache.mutex.RLock()
	cols, ok := cache.indicators[key]
	cache.mutex.RUnlock()
	if ok {
		return cols, nil
	}

	cols, err := indicator.Compute(spec, prices)
	if err != nil {
		return nil, fmt.Errorf("지표 '%s' 계산 실패: %w", spec.Key(), err)
	}

	cache.mutex.Lock()
	cache.indicators[key] = cols
	cache.mutex.Unlock()
	return cols, nil
}

// HasIndicator는 특정 지표가 캐시에 있는지 확인합니다
func (cache *IndicatorCache) HasIndicator(symbol string, spec indicator.Spec) bool {
	cache.mutex.RLock()
	defer cache.mutex.RUnlock()

	_, exists := cache.indicators[cacheKey(symbol, spec)]
	return exists
}

// GetIndicators는 캐시 키 목록을 정렬해 반환합니다
func (cache *IndicatorCache) GetIndicators() []string {
	cache.mutex.RLock()
	defer cache.mutex.RUnlock()

	names := make([]string, 0, len(cache.indicators))
	for name := range cache.indicators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BacktestContext는 한 번의 실행이 소유하는 지표 캐시와 경고 목록입니다.
// 실행 사이에 공유하지 않습니다
type BacktestContext struct {
	Cache *IndicatorCache

	mu       sync.Mutex
	warnings []string
}

// NewContext는 빈 캐시를 가진 실행 컨텍스트를 생성합니다
func NewContext() *BacktestContext {
	return &BacktestContext{Cache: NewIndicatorCache()}
}

// Frame은 종목의 모든 지표를 계산(또는 캐시에서 조회)한 Frame을 생성합니다
func (c *BacktestContext) Frame(symbol string, prices []indicator.PriceData, specs []indicator.Spec) (*indicator.Frame, error) {
	frame := indicator.NewFrame(prices)
	for _, spec := range specs {
		cols, err := c.Cache.CacheIndicator(symbol, spec, prices)
		if err != nil {
			return nil, err
		}
		for name, s := range cols {
			if err := frame.Set(name, s); err != nil {
				return nil, err
			}
		}
	}
	return frame, nil
}

// Warn은 실행을 멈추지 않는 데이터 경고를 기록합니다
func (c *BacktestContext) Warn(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// Warnings는 기록된 경고의 복사본을 반환합니다
func (c *BacktestContext) Warnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.warnings...)
}
