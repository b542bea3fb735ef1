// Package condition은 지표 컬럼에 대한 비교식과 AND/OR 조합을 평가합니다
package condition

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrMalformed는 잘못 구성된 조건식 에러입니다
var ErrMalformed = errors.New("잘못된 조건식")

// Operator는 비교 연산자입니다
type Operator string

const (
	GT         Operator = ">"
	LT         Operator = "<"
	GTE        Operator = ">="
	LTE        Operator = "<="
	EQ         Operator = "=="
	CrossAbove Operator = "cross_above"
	CrossBelow Operator = "cross_below"
)

var operatorAliases = map[string]Operator{
	">":            GT,
	"gt":           GT,
	"<":            LT,
	"lt":           LT,
	">=":           GTE,
	"gte":          GTE,
	"ge":           GTE,
	"<=":           LTE,
	"lte":          LTE,
	"le":           LTE,
	"==":           EQ,
	"=":            EQ,
	"eq":           EQ,
	"cross_above":  CrossAbove,
	"crossover":    CrossAbove,
	"cross_over":   CrossAbove,
	"cross_up":     CrossAbove,
	"golden_cross": CrossAbove,
	"cross_below":  CrossBelow,
	"crossunder":   CrossBelow,
	"cross_under":  CrossBelow,
	"cross_down":   CrossBelow,
	"dead_cross":   CrossBelow,
}

// ParseOperator는 대소문자와 별칭을 정규화해 연산자로 변환합니다
func ParseOperator(s string) (Operator, error) {
	if op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return op, nil
	}
	return "", fmt.Errorf("%w: 알 수 없는 연산자 %q", ErrMalformed, s)
}

// IsCross는 이전 봉이 필요한 교차 연산자인지 확인합니다
func (o Operator) IsCross() bool {
	return o == CrossAbove || o == CrossBelow
}

// Combinator는 이전 조건과의 결합 방식입니다
type Combinator string

const (
	And Combinator = "AND"
	Or  Combinator = "OR"
)

// ParseCombinator는 결합 방식을 정규화합니다. 빈 값은 AND입니다
func ParseCombinator(s string) (Combinator, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "AND", "&&":
		return And, nil
	case "OR", "||":
		return Or, nil
	}
	return "", fmt.Errorf("%w: 알 수 없는 결합 방식 %q", ErrMalformed, s)
}

// Lookup은 컬럼 값을 조회하는 인터페이스입니다. 값이 없으면 NaN을 반환해야 합니다.
// *indicator.Frame이 구현합니다
type Lookup interface {
	Value(name string, i int) float64
}

// Condition은 조건식의 단일 비교(leaf)입니다
type Condition struct {
	Indicator string     `yaml:"indicator"`
	Operator  Operator   `yaml:"operator"`
	Value     Comparand  `yaml:"value"`
	Combine   Combinator `yaml:"combine,omitempty"` // 직전 조건과의 결합, 첫 조건은 무시
	Group     string     `yaml:"group,omitempty"`   // 표시용, 평가 순서에 영향 없음
}

// Evaluate는 i번째 봉에서 조건을 평가합니다. NaN 피연산자가 있으면 false입니다
func (c Condition) Evaluate(l Lookup, i int) bool {
	a := l.Value(c.Indicator, i)
	b := c.Value.resolve(l, i)
	if !finite(a) || !finite(b) {
		return false
	}

	// 정규화되지 않은 별칭도 같은 연산자로 평가합니다
	op, err := ParseOperator(string(c.Operator))
	if err != nil {
		return false
	}
	switch op {
	case GT:
		return a > b
	case LT:
		return a < b
	case GTE:
		return a >= b
	case LTE:
		return a <= b
	case EQ:
		return nearlyEqual(a, b)
	case CrossAbove, CrossBelow:
		if i < 1 {
			return false
		}
		prevA := l.Value(c.Indicator, i-1)
		prevB := c.Value.resolve(l, i-1)
		if !finite(prevA) || !finite(prevB) {
			return false
		}
		if op == CrossAbove {
			return prevA <= prevB && a > b
		}
		return prevA >= prevB && a < b
	}
	return false
}

// Normalize는 컬럼 이름, 연산자, 결합 방식을 정규 형태로 바꿉니다
func (c Condition) Normalize(normalizeColumn func(string) string) (Condition, error) {
	op, err := ParseOperator(string(c.Operator))
	if err != nil {
		return c, err
	}
	comb, err := ParseCombinator(string(c.Combine))
	if err != nil {
		return c, err
	}
	out := c
	out.Operator = op
	out.Combine = comb
	out.Indicator = normalizeColumn(c.Indicator)
	if c.Value.IsColumn() {
		out.Value = Column(normalizeColumn(c.Value.Column))
	}
	return out, nil
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Indicator, c.Operator, c.Value)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}
