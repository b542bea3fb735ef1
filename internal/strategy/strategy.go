// Package strategy는 선언형(YAML) 전략 설정과 내장 프리셋을 제공합니다
package strategy

import (
	"fmt"
	"sort"
)

// Factory는 파라미터로 전략 설정을 생성하는 함수 타입입니다.
// 비어 있는 파라미터는 프리셋 기본값을 사용합니다
type Factory func(params map[string]float64) (*Config, error)

// Registry는 사용 가능한 모든 프리셋을 등록하고 관리합니다
type Registry struct {
	strategies map[string]Factory
}

// NewRegistry는 새로운 전략 레지스트리를 생성합니다
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Factory),
	}
}

// Register는 새로운 전략 팩토리를 레지스트리에 등록합니다
func (r *Registry) Register(name string, factory Factory) {
	r.strategies[name] = factory
}

// Create는 주어진 이름과 파라미터로 정규화, 검증된 전략 설정을 생성합니다
func (r *Registry) Create(name string, params map[string]float64) (*Config, error) {
	factory, exists := r.strategies[name]
	if !exists {
		return nil, &ConfigError{Field: "name", Err: fmt.Errorf("존재하지 않는 전략: %s", name)}
	}
	cfg, err := factory(params)
	if err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Has는 등록 여부를 확인합니다
func (r *Registry) Has(name string) bool {
	_, ok := r.strategies[name]
	return ok
}

// ListStrategies는 사용 가능한 모든 전략 이름을 정렬해 반환합니다
func (r *Registry) ListStrategies() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
