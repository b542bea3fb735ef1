package condition

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Comparand는 비교 대상입니다. Column이 비어 있으면 상수(Literal)입니다
type Comparand struct {
	Column  string
	Literal float64
}

// Literal은 상수 비교 대상을 생성합니다
func Literal(v float64) Comparand { return Comparand{Literal: v} }

// Column은 컬럼 비교 대상을 생성합니다
func Column(name string) Comparand { return Comparand{Column: name} }

// IsColumn은 컬럼 참조인지 확인합니다
func (c Comparand) IsColumn() bool { return c.Column != "" }

func (c Comparand) resolve(l Lookup, i int) float64 {
	if c.IsColumn() {
		return l.Value(c.Column, i)
	}
	return c.Literal
}

func (c Comparand) String() string {
	if c.IsColumn() {
		return c.Column
	}
	return strconv.FormatFloat(c.Literal, 'f', -1, 64)
}

// UnmarshalYAML은 숫자는 상수로, 문자열은 컬럼 이름으로 해석합니다
func (c *Comparand) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: value는 숫자나 컬럼 이름이어야 합니다 (line %d)", ErrMalformed, node.Line)
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		return fmt.Errorf("%w: 빈 value (line %d)", ErrMalformed, node.Line)
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		*c = Literal(v)
		return nil
	}
	*c = Column(raw)
	return nil
}

// MarshalYAML은 UnmarshalYAML의 역변환입니다
func (c Comparand) MarshalYAML() (interface{}, error) {
	if c.IsColumn() {
		return c.Column, nil
	}
	return c.Literal, nil
}
