package indicator

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownIndicator는 등록되지 않은 지표 유형입니다
var ErrUnknownIndicator = errors.New("지원하지 않는 지표 유형")

// Spec은 지표 명세입니다 (유형 + 파라미터)
type Spec struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

// Params는 기본값이 채워진 지표 파라미터입니다
type Params map[string]float64

// Int는 정수 파라미터를 반환합니다
func (p Params) Int(name string) int { return int(p[name]) }

// Float는 실수 파라미터를 반환합니다
func (p Params) Float(name string) float64 { return p[name] }

type param struct {
	name    string
	def     float64
	integer bool
}

type definition struct {
	params   []param
	prefixes []string // 컬럼 이름 접두어 (columns 결과와 같은 순서)
	warmUp   func(p Params) int
	compute  func(prices []PriceData, p Params) []Series
	check    func(p Params) error
}

func period(def float64) []param {
	return []param{{name: "period", def: def, integer: true}}
}

func closesOf(f func(values []float64, period int) Series) func([]PriceData, Params) []Series {
	return func(prices []PriceData, p Params) []Series {
		return []Series{f(closes(prices), p.Int("period"))}
	}
}

var registry = map[string]definition{
	"ma": {
		params: period(20), prefixes: []string{"ma"},
		warmUp:  func(p Params) int { return p.Int("period") - 1 },
		compute: closesOf(SMA),
	},
	"ema": {
		params: period(20), prefixes: []string{"ema"},
		warmUp:  func(p Params) int { return p.Int("period") - 1 },
		compute: closesOf(EMA),
	},
	"wma": {
		params: period(20), prefixes: []string{"wma"},
		warmUp:  func(p Params) int { return p.Int("period") - 1 },
		compute: closesOf(WMA),
	},
	"rsi": {
		params: period(14), prefixes: []string{"rsi"},
		warmUp:  func(p Params) int { return p.Int("period") },
		compute: closesOf(RSI),
	},
	"macd": {
		params: []param{
			{name: "fast", def: 12, integer: true},
			{name: "slow", def: 26, integer: true},
			{name: "signal", def: 9, integer: true},
		},
		prefixes: []string{"macd", "macd_signal", "macd_hist"},
		warmUp:   func(p Params) int { return p.Int("slow") - 1 + p.Int("signal") - 1 },
		compute: func(prices []PriceData, p Params) []Series {
			r := MACD(closes(prices), p.Int("fast"), p.Int("slow"), p.Int("signal"))
			return []Series{r.MACD, r.Signal, r.Histogram}
		},
		check: func(p Params) error {
			if p.Int("fast") >= p.Int("slow") {
				return fmt.Errorf("fast(%d)는 slow(%d)보다 작아야 합니다", p.Int("fast"), p.Int("slow"))
			}
			return nil
		},
	},
	"bollinger": {
		params: []param{
			{name: "period", def: 20, integer: true},
			{name: "k", def: 2},
		},
		prefixes: []string{"bb_upper", "bb_middle", "bb_lower", "bb_width", "bb_pctb"},
		warmUp:   func(p Params) int { return p.Int("period") - 1 },
		compute: func(prices []PriceData, p Params) []Series {
			r := Bollinger(closes(prices), p.Int("period"), p.Float("k"))
			return []Series{r.Upper, r.Middle, r.Lower, r.Width, r.PctB}
		},
	},
	"atr": {
		params: period(14), prefixes: []string{"atr"},
		warmUp: func(p Params) int { return p.Int("period") - 1 },
		compute: func(prices []PriceData, p Params) []Series {
			return []Series{ATR(prices, p.Int("period"))}
		},
	},
	"adx": {
		params: period(14), prefixes: []string{"adx", "plus_di", "minus_di"},
		warmUp: func(p Params) int { return 2*p.Int("period") - 1 },
		compute: func(prices []PriceData, p Params) []Series {
			r := ADX(prices, p.Int("period"))
			return []Series{r.ADX, r.PlusDI, r.MinusDI}
		},
	},
	"stochastic": {
		params: []param{
			{name: "k", def: 14, integer: true},
			{name: "d", def: 3, integer: true},
		},
		prefixes: []string{"stoch_k", "stoch_d"},
		warmUp:   func(p Params) int { return p.Int("k") - 1 + p.Int("d") - 1 },
		compute: func(prices []PriceData, p Params) []Series {
			r := Stochastic(prices, p.Int("k"), p.Int("d"))
			return []Series{r.K, r.D}
		},
	},
	"psar": {
		params: []param{
			{name: "step", def: 0.02},
			{name: "max", def: 0.2},
		},
		prefixes: []string{"psar", "psar_trend"},
		warmUp:   func(Params) int { return 1 },
		compute: func(prices []PriceData, p Params) []Series {
			r := SAR(prices, p.Float("step"), p.Float("max"))
			return []Series{r.SAR, r.Trend}
		},
		check: func(p Params) error {
			if p.Float("step") > p.Float("max") {
				return fmt.Errorf("step(%g)은 max(%g) 이하여야 합니다", p.Float("step"), p.Float("max"))
			}
			return nil
		},
	},
	"ichimoku": {
		params: []param{
			{name: "tenkan", def: 9, integer: true},
			{name: "kijun", def: 26, integer: true},
			{name: "senkou", def: 52, integer: true},
		},
		prefixes: []string{"ichimoku_tenkan", "ichimoku_kijun", "ichimoku_senkou_a", "ichimoku_senkou_b"},
		warmUp:   func(p Params) int { return p.Int("senkou") - 1 + p.Int("kijun") },
		compute: func(prices []PriceData, p Params) []Series {
			r := Ichimoku(prices, p.Int("tenkan"), p.Int("kijun"), p.Int("senkou"))
			return []Series{r.Tenkan, r.Kijun, r.SenkouA, r.SenkouB}
		},
	},
	"aroon": {
		params: period(25), prefixes: []string{"aroon_up", "aroon_down", "aroon_osc"},
		warmUp: func(p Params) int { return p.Int("period") },
		compute: func(prices []PriceData, p Params) []Series {
			r := Aroon(prices, p.Int("period"))
			return []Series{r.Up, r.Down, r.Oscillator}
		},
	},
	"vortex": {
		params: period(14), prefixes: []string{"vortex_plus", "vortex_minus"},
		warmUp: func(p Params) int { return p.Int("period") },
		compute: func(prices []PriceData, p Params) []Series {
			r := Vortex(prices, p.Int("period"))
			return []Series{r.Plus, r.Minus}
		},
	},
	"cci": {
		params: period(20), prefixes: []string{"cci"},
		warmUp: func(p Params) int { return p.Int("period") - 1 },
		compute: func(prices []PriceData, p Params) []Series {
			return []Series{CCI(prices, p.Int("period"))}
		},
	},
	"williams_r": {
		params: period(14), prefixes: []string{"williams_r"},
		warmUp: func(p Params) int { return p.Int("period") - 1 },
		compute: func(prices []PriceData, p Params) []Series {
			return []Series{WilliamsR(prices, p.Int("period"))}
		},
	},
	"obv": {
		prefixes: []string{"obv"},
		warmUp:   func(Params) int { return 0 },
		compute: func(prices []PriceData, _ Params) []Series {
			return []Series{OBV(prices)}
		},
	},
	"mfi": {
		params: period(14), prefixes: []string{"mfi"},
		warmUp: func(p Params) int { return p.Int("period") },
		compute: func(prices []PriceData, p Params) []Series {
			return []Series{MFI(prices, p.Int("period"))}
		},
	},
	"cmf": {
		params: period(20), prefixes: []string{"cmf"},
		warmUp: func(p Params) int { return p.Int("period") - 1 },
		compute: func(prices []PriceData, p Params) []Series {
			return []Series{CMF(prices, p.Int("period"))}
		},
	},
	"ad": {
		prefixes: []string{"ad"},
		warmUp:   func(Params) int { return 0 },
		compute: func(prices []PriceData, _ Params) []Series {
			return []Series{AD(prices)}
		},
	},
	"supertrend": {
		params: []param{
			{name: "period", def: 10, integer: true},
			{name: "multiplier", def: 3},
		},
		prefixes: []string{"supertrend", "supertrend_dir"},
		warmUp:   func(p Params) int { return p.Int("period") - 1 },
		compute: func(prices []PriceData, p Params) []Series {
			r := SuperTrend(prices, p.Int("period"), p.Float("multiplier"))
			return []Series{r.Value, r.Direction}
		},
	},
	"trix": {
		params: period(15), prefixes: []string{"trix"},
		warmUp:  func(p Params) int { return 3*(p.Int("period")-1) + 1 },
		compute: closesOf(TRIX),
	},
	"pivot": {
		prefixes: []string{"pivot_p", "pivot_r1", "pivot_r2", "pivot_s1", "pivot_s2"},
		warmUp:   func(Params) int { return 1 },
		compute: func(prices []PriceData, _ Params) []Series {
			r := Pivots(prices)
			return []Series{r.P, r.R1, r.R2, r.S1, r.S2}
		},
	},
	"volume_ma": {
		params: period(20), prefixes: []string{"volume_ma"},
		warmUp: func(p Params) int { return p.Int("period") - 1 },
		compute: func(prices []PriceData, p Params) []Series {
			return []Series{SMA(volumes(prices), p.Int("period"))}
		},
	},
}

// typeAliases는 예전 설정에서 쓰던 지표 이름을 정규 이름으로 바꿉니다
var typeAliases = map[string]string{
	"sma":                       "ma",
	"bb":                        "bollinger",
	"bbands":                    "bollinger",
	"bollinger_bands":           "bollinger",
	"sar":                       "psar",
	"parabolic_sar":             "psar",
	"stoch":                     "stochastic",
	"willr":                     "williams_r",
	"williams":                  "williams_r",
	"ichimoku_cloud":            "ichimoku",
	"vi":                        "vortex",
	"st":                        "supertrend",
	"pivots":                    "pivot",
	"pivot_points":              "pivot",
	"vol_ma":                    "volume_ma",
	"volume_sma":                "volume_ma",
	"chaikin_money_flow":        "cmf",
	"adl":                       "ad",
	"accumulation_distribution": "ad",
	"money_flow_index":          "mfi",
	"commodity_channel_index":   "cci",
}

// paramAliases는 예전 파라미터 이름을 정규 이름으로 바꿉니다
var paramAliases = map[string]string{
	"shortperiod":         "fast",
	"longperiod":          "slow",
	"signalperiod":        "signal",
	"accelerationinitial": "step",
	"accelerationmax":     "max",
	"std":                 "k",
	"stddev":              "k",
	"num_std":             "k",
	"kperiod":             "k",
	"dperiod":             "d",
	"length":              "period",
	"window":              "period",
}

// columnAliases는 예전 컬럼 접두어를 정규 접두어로 바꿉니다
var columnAliases = map[string]string{
	"sma_":              "ma_",
	"sar_":              "psar_",
	"willr_":            "williams_r_",
	"volume_sma_":       "volume_ma_",
	"bollinger_upper_":  "bb_upper_",
	"bollinger_middle_": "bb_middle_",
	"bollinger_lower_":  "bb_lower_",
}

// NormalizeType은 지표 유형을 소문자 정규 이름으로 바꿉니다
func NormalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if alias, ok := typeAliases[t]; ok {
		return alias
	}
	return t
}

// NormalizeColumn은 컬럼 이름을 소문자 정규 이름으로 바꿉니다
func NormalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for old, canonical := range columnAliases {
		if strings.HasPrefix(name, old) {
			return canonical + strings.TrimPrefix(name, old)
		}
	}
	return name
}

// Types는 지원하는 지표 유형 목록을 반환합니다
func Types() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Normalize는 유형과 파라미터 키를 정규화한 복사본을 반환합니다
func (s Spec) Normalize() Spec {
	out := Spec{Type: NormalizeType(s.Type)}
	if len(s.Params) > 0 {
		out.Params = make(map[string]float64, len(s.Params))
		for k, v := range s.Params {
			key := strings.ToLower(strings.TrimSpace(k))
			if alias, ok := paramAliases[key]; ok {
				key = alias
			}
			out.Params[key] = v
		}
	}
	return out
}

// resolve는 명세를 검증하고 기본값이 채워진 파라미터를 반환합니다
func (s Spec) resolve() (definition, Params, error) {
	spec := s.Normalize()
	def, ok := registry[spec.Type]
	if !ok {
		return definition{}, nil, &ValidationError{Field: "type", Err: fmt.Errorf("%w: %q", ErrUnknownIndicator, s.Type)}
	}

	known := make(map[string]bool, len(def.params))
	params := make(Params, len(def.params))
	for _, p := range def.params {
		known[p.name] = true
		params[p.name] = p.def
	}
	for k, v := range spec.Params {
		if !known[k] {
			return definition{}, nil, &ValidationError{Field: spec.Type + "." + k, Err: fmt.Errorf("알 수 없는 파라미터")}
		}
		params[k] = v
	}
	for _, p := range def.params {
		v := params[p.name]
		if math.IsNaN(v) || v <= 0 {
			return definition{}, nil, &ValidationError{Field: spec.Type + "." + p.name, Err: fmt.Errorf("0보다 커야 합니다: %g", v)}
		}
		if p.integer && v != math.Trunc(v) {
			return definition{}, nil, &ValidationError{Field: spec.Type + "." + p.name, Err: fmt.Errorf("정수여야 합니다: %g", v)}
		}
	}
	if def.check != nil {
		if err := def.check(params); err != nil {
			return definition{}, nil, &ValidationError{Field: spec.Type, Err: err}
		}
	}
	return def, params, nil
}

// Validate는 지표 명세가 유효한지 확인합니다
func (s Spec) Validate() error {
	_, _, err := s.resolve()
	return err
}

// Columns는 명세가 생성하는 컬럼 이름을 반환합니다 (예: rsi_14, macd_signal_12_26_9)
func (s Spec) Columns() ([]string, error) {
	def, params, err := s.resolve()
	if err != nil {
		return nil, err
	}
	return columnNames(def, params), nil
}

// WarmUp은 첫 유효값이 나오기 전까지 필요한 봉 수입니다
func (s Spec) WarmUp() (int, error) {
	def, params, err := s.resolve()
	if err != nil {
		return 0, err
	}
	return def.warmUp(params), nil
}

// Key는 캐시 키로 쓰는 정규화된 명세 문자열입니다
func (s Spec) Key() string {
	def, params, err := s.resolve()
	if err != nil {
		return NormalizeType(s.Type)
	}
	vals := make([]string, 0, len(def.params))
	for _, p := range def.params {
		vals = append(vals, formatNum(params[p.name]))
	}
	return NormalizeType(s.Type) + "(" + strings.Join(vals, ",") + ")"
}

// Compute는 명세에 따라 지표를 계산하고 컬럼 이름별 시리즈를 반환합니다.
// 데이터가 부족하면 에러 없이 NaN으로 채워집니다
func Compute(s Spec, prices []PriceData) (map[string]Series, error) {
	def, params, err := s.resolve()
	if err != nil {
		return nil, err
	}
	names := columnNames(def, params)
	series := def.compute(prices, params)
	out := make(map[string]Series, len(names))
	for i, name := range names {
		out[name] = series[i]
	}
	return out, nil
}

// ParseColumn은 컬럼 이름에서 지표 명세를 역으로 구성합니다.
// 파라미터가 생략된 뒤쪽 값은 기본값을 사용합니다 (예: macd_12_26 → macd(12,26,9))
func ParseColumn(name string) (Spec, bool) {
	name = NormalizeColumn(name)
	tokens := strings.Split(name, "_")
	split := len(tokens)
	for i, tok := range tokens {
		if _, err := strconv.ParseFloat(tok, 64); err == nil {
			split = i
			break
		}
	}
	base := strings.Join(tokens[:split], "_")
	nums := tokens[split:]

	for typ, def := range registry {
		for _, prefix := range def.prefixes {
			if prefix != base || len(nums) > len(def.params) {
				continue
			}
			spec := Spec{Type: typ}
			if len(nums) > 0 {
				spec.Params = make(map[string]float64, len(nums))
			}
			valid := true
			for i, raw := range nums {
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					valid = false
					break
				}
				spec.Params[def.params[i].name] = v
			}
			if !valid {
				continue
			}
			cols, err := spec.Columns()
			if err != nil {
				continue
			}
			for _, c := range cols {
				if c == name {
					return spec, true
				}
			}
		}
	}
	return Spec{}, false
}

func columnNames(def definition, params Params) []string {
	// 컬럼마다 사용하는 파라미터 개수가 다릅니다 (macd 라인은 fast_slow만 사용)
	all := make([]string, 0, len(def.params))
	for _, p := range def.params {
		all = append(all, formatNum(params[p.name]))
	}
	names := make([]string, len(def.prefixes))
	for i, prefix := range def.prefixes {
		vals := all
		if prefix == "macd" {
			vals = all[:2]
		}
		if len(vals) == 0 {
			names[i] = prefix
			continue
		}
		names[i] = prefix + "_" + strings.Join(vals, "_")
	}
	return names
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
