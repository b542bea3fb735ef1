package strategy

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig는 전략 설정 에러를 식별합니다
var ErrInvalidConfig = errors.New("잘못된 전략 설정")

// ConfigError는 전략 로드 시점의 설정 에러입니다. 데이터를 처리하기 전에 발생합니다
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("잘못된 전략 설정 [%s]: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is는 errors.Is(err, ErrInvalidConfig)를 지원합니다
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}
