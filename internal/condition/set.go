package condition

import "fmt"

// Set은 왼쪽부터 순서대로 결합되는 조건 목록입니다: ((c1 op c2) op c3)...
type Set []Condition

// Evaluate는 i번째 봉에서 조건 목록을 평가합니다. 빈 목록은 false입니다
func (s Set) Evaluate(l Lookup, i int) bool {
	if len(s) == 0 {
		return false
	}
	result := s[0].Evaluate(l, i)
	for _, c := range s[1:] {
		v := c.Evaluate(l, i)
		if comb, _ := ParseCombinator(string(c.Combine)); comb == Or {
			result = result || v
		} else {
			result = result && v
		}
	}
	return result
}

// Score는 참인 조건의 비율(0~100)입니다. 빈 목록은 0입니다
func (s Set) Score(l Lookup, i int) float64 {
	if len(s) == 0 {
		return 0
	}
	hits := 0
	for _, c := range s {
		if c.Evaluate(l, i) {
			hits++
		}
	}
	return 100 * float64(hits) / float64(len(s))
}

// Columns는 조건이 참조하는 컬럼 이름을 중복 없이 등장 순서대로 반환합니다
func (s Set) Columns() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, c := range s {
		add(c.Indicator)
		add(c.Value.Column)
	}
	return names
}

// Normalize는 모든 조건을 정규화한 복사본을 반환합니다
func (s Set) Normalize(normalizeColumn func(string) string) (Set, error) {
	out := make(Set, len(s))
	for i, c := range s {
		n, err := c.Normalize(normalizeColumn)
		if err != nil {
			return nil, fmt.Errorf("조건 %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

// Validate는 연산자와 참조 컬럼을 확인합니다. known이 nil이면 컬럼 확인을 건너뜁니다
func (s Set) Validate(known func(string) bool) error {
	for i, c := range s {
		if c.Indicator == "" {
			return fmt.Errorf("조건 %d: %w: indicator가 비어 있습니다", i, ErrMalformed)
		}
		if _, err := ParseOperator(string(c.Operator)); err != nil {
			return fmt.Errorf("조건 %d: %w", i, err)
		}
		if _, err := ParseCombinator(string(c.Combine)); err != nil {
			return fmt.Errorf("조건 %d: %w", i, err)
		}
		if known == nil {
			continue
		}
		if !known(c.Indicator) {
			return fmt.Errorf("조건 %d: %w: 계산되지 않는 컬럼 %q", i, ErrMalformed, c.Indicator)
		}
		if c.Value.IsColumn() && !known(c.Value.Column) {
			return fmt.Errorf("조건 %d: %w: 계산되지 않는 컬럼 %q", i, ErrMalformed, c.Value.Column)
		}
	}
	return nil
}
