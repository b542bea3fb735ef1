package strategy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/assist-by/krbacktest/internal/condition"
	"github.com/assist-by/krbacktest/internal/indicator"
	"github.com/assist-by/krbacktest/internal/position"
	"github.com/assist-by/krbacktest/internal/risk"
)

// DefaultCapital은 초기 자본 기본값입니다 (원)
const DefaultCapital = 10_000_000

// SignalPriority는 매수/매도 조건이 같은 봉에서 동시에 충족될 때의 우선순위입니다
type SignalPriority string

const (
	SellFirst SignalPriority = "sell"
	BuyFirst  SignalPriority = "buy"
)

// Config는 선언형 전략 설정입니다 (YAML)
type Config struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Indicators  []indicator.Spec `yaml:"indicators"`
	Buy         condition.Set    `yaml:"buy"`
	Sell        condition.Set    `yaml:"sell"`
	Priority    SignalPriority   `yaml:"signal_priority,omitempty"`

	Capital       float64 `yaml:"capital"`
	CommissionPct float64 `yaml:"commission_pct"` // 매수/매도 각각 적용
	SlippagePct   float64 `yaml:"slippage_pct"`   // 매수는 높게, 매도는 낮게 체결
	SellTaxPct    float64 `yaml:"sell_tax_pct"`   // 증권거래세 (매도만)
	RoundToTick   bool    `yaml:"round_to_tick"`  // KRX 호가 단위 반올림

	Exit           position.ExitPolicy   `yaml:"exit"`
	Entry          position.EntryPolicy  `yaml:"entry"`
	Sizing         position.SizingConfig `yaml:"sizing"`
	CircuitBreaker risk.Config           `yaml:"circuit_breaker"`
}

// LoadFile은 YAML 파일에서 전략을 읽고 정규화와 검증까지 수행합니다
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("전략 파일 열기 실패: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse는 YAML을 읽어 정규화와 검증을 수행합니다. 알 수 없는 키는 에러입니다
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("전략 읽기 실패: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigError{Field: "yaml", Err: err}
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize는 예전 이름(대문자, SMA 등)을 정규 이름으로 바꾸고 기본값을 채웁니다.
// 조건식이 참조하지만 선언되지 않은 지표는 컬럼 이름에서 유추해 추가합니다
func (c *Config) Normalize() error {
	if c.Name == "" {
		c.Name = "unnamed"
	}
	if c.Capital == 0 {
		c.Capital = DefaultCapital
	}
	if c.Priority == "" {
		c.Priority = SellFirst
	}

	for i, spec := range c.Indicators {
		c.Indicators[i] = spec.Normalize()
	}

	var err error
	if c.Buy, err = c.Buy.Normalize(indicator.NormalizeColumn); err != nil {
		return &ConfigError{Field: "buy", Err: err}
	}
	if c.Sell, err = c.Sell.Normalize(indicator.NormalizeColumn); err != nil {
		return &ConfigError{Field: "sell", Err: err}
	}
	if c.Exit.MeanReversion != "" {
		c.Exit.MeanReversion = indicator.NormalizeColumn(c.Exit.MeanReversion)
	}

	known := c.knownColumns()
	for _, name := range c.referencedColumns() {
		if known[name] {
			continue
		}
		if spec, ok := indicator.ParseColumn(name); ok {
			c.Indicators = append(c.Indicators, spec)
			cols, _ := spec.Columns()
			for _, col := range cols {
				known[col] = true
			}
		}
	}

	c.Entry = c.Entry.WithDefaults()
	c.Sizing = c.Sizing.WithDefaults()
	return nil
}

// Validate는 설정 전체를 확인합니다. 모든 에러는 ConfigError입니다
func (c *Config) Validate() error {
	for i, spec := range c.Indicators {
		if err := spec.Validate(); err != nil {
			return &ConfigError{Field: fmt.Sprintf("indicators[%d]", i), Err: err}
		}
	}

	known := c.knownColumns()
	isKnown := func(name string) bool { return known[name] }
	if err := c.Buy.Validate(isKnown); err != nil {
		return &ConfigError{Field: "buy", Err: err}
	}
	if err := c.Sell.Validate(isKnown); err != nil {
		return &ConfigError{Field: "sell", Err: err}
	}
	if c.Exit.MeanReversion != "" && !known[c.Exit.MeanReversion] {
		return &ConfigError{Field: "exit.mean_reversion_column", Err: fmt.Errorf("계산되지 않는 컬럼 %q", c.Exit.MeanReversion)}
	}

	switch c.Priority {
	case SellFirst, BuyFirst:
	default:
		return &ConfigError{Field: "signal_priority", Err: fmt.Errorf("sell 또는 buy여야 합니다: %q", c.Priority)}
	}
	if c.Capital <= 0 {
		return &ConfigError{Field: "capital", Err: fmt.Errorf("0보다 커야 합니다: %g", c.Capital)}
	}
	for field, v := range map[string]float64{
		"commission_pct": c.CommissionPct,
		"slippage_pct":   c.SlippagePct,
		"sell_tax_pct":   c.SellTaxPct,
	} {
		if v < 0 || v >= 100 {
			return &ConfigError{Field: field, Err: fmt.Errorf("[0, 100) 범위여야 합니다: %g", v)}
		}
	}

	if err := c.Exit.Validate(); err != nil {
		return &ConfigError{Field: "exit", Err: err}
	}
	if err := c.Entry.Validate(); err != nil {
		return &ConfigError{Field: "entry", Err: err}
	}
	if err := c.Sizing.Validate(); err != nil {
		return &ConfigError{Field: "sizing", Err: err}
	}
	if err := c.CircuitBreaker.Validate(); err != nil {
		return &ConfigError{Field: "circuit_breaker", Err: err}
	}
	return nil
}

// Columns는 계산되는 모든 지표 컬럼을 정렬해 반환합니다
func (c *Config) Columns() []string {
	known := c.knownColumns()
	names := make([]string, 0, len(known))
	for name := range known {
		if !indicator.IsBaseColumn(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// MaxWarmUp은 선언된 지표 중 가장 긴 웜업 봉 수입니다
func (c *Config) MaxWarmUp() int {
	max := 0
	for _, spec := range c.Indicators {
		if w, err := spec.WarmUp(); err == nil && w > max {
			max = w
		}
	}
	return max
}

// Clone은 슬라이스까지 복사한 설정을 반환합니다 (배치 실행 간 공유 방지)
func (c *Config) Clone() *Config {
	out := *c
	out.Indicators = append([]indicator.Spec(nil), c.Indicators...)
	out.Buy = append(condition.Set(nil), c.Buy...)
	out.Sell = append(condition.Set(nil), c.Sell...)
	out.Exit.Stages = append([]position.ProfitStage(nil), c.Exit.Stages...)
	out.Exit.SplitSell = append([]float64(nil), c.Exit.SplitSell...)
	out.Entry.Split.Levels = append([]position.SplitLevel(nil), c.Entry.Split.Levels...)
	out.Entry.Pyramiding.Ratios = append([]float64(nil), c.Entry.Pyramiding.Ratios...)
	return &out
}

func (c *Config) knownColumns() map[string]bool {
	known := map[string]bool{"price": true, "close": true, "open": true, "high": true, "low": true, "volume": true}
	for _, spec := range c.Indicators {
		cols, err := spec.Columns()
		if err != nil {
			continue
		}
		for _, col := range cols {
			known[col] = true
		}
	}
	return known
}

func (c *Config) referencedColumns() []string {
	names := append(c.Buy.Columns(), c.Sell.Columns()...)
	if c.Exit.MeanReversion != "" {
		names = append(names, c.Exit.MeanReversion)
	}
	return names
}
