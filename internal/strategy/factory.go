package strategy

import (
	"fmt"
	"os"
)

// DefaultRegistry는 내장 프리셋이 모두 등록된 레지스트리를 생성합니다
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("macd_sar_ema", MACDSAREMA)
	r.Register("double_rsi", DoubleRSI)
	r.Register("golden_cross", GoldenCross)
	r.Register("rsi_reversal", RSIReversal)
	r.Register("bollinger_reversion", BollingerReversion)
	return r
}

// Resolve는 프리셋 이름 또는 YAML 파일 경로로 전략을 가져옵니다
func Resolve(registry *Registry, nameOrPath string, params map[string]float64) (*Config, error) {
	if registry.Has(nameOrPath) {
		return registry.Create(nameOrPath, params)
	}
	if _, err := os.Stat(nameOrPath); err != nil {
		return nil, &ConfigError{
			Field: "name",
			Err:   fmt.Errorf("프리셋도 파일도 아닙니다: %s (프리셋: %v)", nameOrPath, registry.ListStrategies()),
		}
	}
	return LoadFile(nameOrPath)
}
