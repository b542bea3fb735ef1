package position

import (
	"errors"
	"fmt"
)

// Error 타입들은 포지션 관리 중 발생할 수 있는 다양한 에러를 정의합니다
var (
	ErrInsufficientCash = fmt.Errorf("현금이 부족합니다")
	ErrPositionExists   = fmt.Errorf("이미 해당 심볼에 포지션이 존재합니다")
	ErrPositionNotFound = fmt.Errorf("해당 심볼에 포지션이 존재하지 않습니다")

	// 아래 에러는 시뮬레이션 불변식 위반으로 발생하면 안 됩니다
	ErrNegativeQuantity   = fmt.Errorf("수량이 음수가 됩니다")
	ErrDuplicateTimestamp = fmt.Errorf("같은 심볼의 거래 시각이 증가하지 않습니다")
	ErrExitBeforeEntry    = fmt.Errorf("진입 이전 시각의 청산입니다")
)

// PositionError는 포지션 관리 에러를 확장한 구조체입니다
type PositionError struct {
	Symbol string
	Op     string
	Err    error
}

// Error는 error 인터페이스를 구현합니다
func (e *PositionError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("포지션 에러 [%s, 작업: %s]: %v", e.Symbol, e.Op, e.Err)
	}
	return fmt.Sprintf("포지션 에러 [작업: %s]: %v", e.Op, e.Err)
}

// Unwrap은 내부 에러를 반환합니다 (errors.Is/As 지원을 위함)
func (e *PositionError) Unwrap() error {
	return e.Err
}

// NewPositionError는 새로운 PositionError를 생성합니다
func NewPositionError(symbol, op string, err error) *PositionError {
	return &PositionError{
		Symbol: symbol,
		Op:     op,
		Err:    err,
	}
}

// IsInvariantViolation은 시뮬레이션 불변식 위반 에러인지 확인합니다
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrNegativeQuantity) ||
		errors.Is(err, ErrDuplicateTimestamp) ||
		errors.Is(err, ErrExitBeforeEntry)
}
