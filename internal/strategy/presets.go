package strategy

import (
	"strconv"

	"github.com/assist-by/krbacktest/internal/condition"
	"github.com/assist-by/krbacktest/internal/indicator"
	"github.com/assist-by/krbacktest/internal/position"
)

func param(params map[string]float64, name string, def float64) float64 {
	if v, ok := params[name]; ok {
		return v
	}
	return def
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func spec(typ string, params map[string]float64) indicator.Spec {
	return indicator.Spec{Type: typ, Params: params}
}

func cond(column string, op condition.Operator, value condition.Comparand) condition.Condition {
	return condition.Condition{Indicator: column, Operator: op, Value: value}
}

func or(c condition.Condition) condition.Condition {
	c.Combine = condition.Or
	return c
}

// MACDSAREMA는 장기 EMA 위에서 MACD 골든크로스가 나오고 SAR이 종가 아래일 때 매수합니다.
// 매도는 MACD 데드크로스 또는 SAR 반전입니다
//
// 파라미터: ema, stop_loss_pct, target_profit_pct
func MACDSAREMA(params map[string]float64) (*Config, error) {
	ema := param(params, "ema", 200)
	emaCol := "ema_" + fmtNum(ema)

	return &Config{
		Name:        "macd_sar_ema",
		Description: "EMA 추세 + MACD 크로스 + Parabolic SAR",
		Indicators: []indicator.Spec{
			spec("ema", map[string]float64{"period": ema}),
			spec("macd", map[string]float64{"fast": 12, "slow": 26, "signal": 9}),
			spec("psar", map[string]float64{"step": 0.02, "max": 0.2}),
		},
		Buy: condition.Set{
			cond("close", condition.GT, condition.Column(emaCol)),
			cond("macd_12_26", condition.CrossAbove, condition.Column("macd_signal_12_26_9")),
			cond("psar_0.02_0.2", condition.LT, condition.Column("close")),
		},
		Sell: condition.Set{
			cond("macd_12_26", condition.CrossBelow, condition.Column("macd_signal_12_26_9")),
			or(cond("psar_0.02_0.2", condition.GT, condition.Column("close"))),
		},
		Exit: position.ExitPolicy{
			StopLossPct:     param(params, "stop_loss_pct", 2),
			TargetProfitPct: param(params, "target_profit_pct", 4),
		},
	}, nil
}

// DoubleRSI는 장기 RSI 추세 필터와 단기 RSI 되돌림을 조합합니다.
// 장기 RSI가 중립 위에 있고 단기 RSI가 하단 밴드를 상향 돌파하면 매수합니다
//
// 파라미터: period, upper, lower, stop_loss_pct
func DoubleRSI(params map[string]float64) (*Config, error) {
	short := param(params, "period", 7)
	long := short * 4
	upper := param(params, "upper", 60)
	lower := param(params, "lower", 40)
	shortCol := "rsi_" + fmtNum(short)
	longCol := "rsi_" + fmtNum(long)

	return &Config{
		Name:        "double_rsi",
		Description: "장단기 RSI 이중 필터",
		Indicators: []indicator.Spec{
			spec("rsi", map[string]float64{"period": short}),
			spec("rsi", map[string]float64{"period": long}),
		},
		Buy: condition.Set{
			cond(longCol, condition.GT, condition.Literal(lower)),
			cond(shortCol, condition.CrossAbove, condition.Literal(lower)),
		},
		Sell: condition.Set{
			cond(shortCol, condition.CrossBelow, condition.Literal(upper)),
			or(cond(longCol, condition.LT, condition.Literal(lower))),
		},
		Exit: position.ExitPolicy{
			StopLossPct: param(params, "stop_loss_pct", 3),
			Stages: []position.ProfitStage{
				{ProfitPct: 3, RatioPct: 50},
				{ProfitPct: 6, RatioPct: 50},
			},
			DynamicStop: position.DynamicStopBreakEven,
		},
	}, nil
}

// GoldenCross는 단기 이동평균이 장기 이동평균을 상향 돌파하면 매수, 하향 돌파하면 매도합니다
//
// 파라미터: fast, slow, stop_loss_pct
func GoldenCross(params map[string]float64) (*Config, error) {
	fast := param(params, "fast", 5)
	slow := param(params, "slow", 20)
	fastCol := "ma_" + fmtNum(fast)
	slowCol := "ma_" + fmtNum(slow)

	return &Config{
		Name:        "golden_cross",
		Description: "이동평균 골든크로스/데드크로스",
		Indicators: []indicator.Spec{
			spec("ma", map[string]float64{"period": fast}),
			spec("ma", map[string]float64{"period": slow}),
		},
		Buy:  condition.Set{cond(fastCol, condition.CrossAbove, condition.Column(slowCol))},
		Sell: condition.Set{cond(fastCol, condition.CrossBelow, condition.Column(slowCol))},
		Exit: position.ExitPolicy{
			StopLossPct: param(params, "stop_loss_pct", 5),
		},
	}, nil
}

// RSIReversal은 과매도 구간에서 매수하고 과매수 구간에서 매도합니다.
// 추적 손절로 수익을 보호합니다
//
// 파라미터: period, oversold, overbought
func RSIReversal(params map[string]float64) (*Config, error) {
	period := param(params, "period", 14)
	col := "rsi_" + fmtNum(period)

	return &Config{
		Name:        "rsi_reversal",
		Description: "RSI 과매도 매수 / 과매수 매도",
		Indicators:  []indicator.Spec{spec("rsi", map[string]float64{"period": period})},
		Buy:         condition.Set{cond(col, condition.LT, condition.Literal(param(params, "oversold", 30)))},
		Sell:        condition.Set{cond(col, condition.GT, condition.Literal(param(params, "overbought", 70)))},
		Exit: position.ExitPolicy{
			StopLossPct: 5,
			Trailing:    position.TrailingStop{ActivationPct: 5, DistancePct: 3},
		},
	}, nil
}

// BollingerReversion은 하단 밴드 아래에서 분할 매수하고 중심선 회귀 시 청산합니다
//
// 파라미터: period, k
func BollingerReversion(params map[string]float64) (*Config, error) {
	period := param(params, "period", 20)
	k := param(params, "k", 2)
	suffix := fmtNum(period) + "_" + fmtNum(k)

	return &Config{
		Name:        "bollinger_reversion",
		Description: "볼린저 밴드 평균 회귀",
		Indicators:  []indicator.Spec{spec("bollinger", map[string]float64{"period": period, "k": k})},
		Buy:         condition.Set{cond("close", condition.LT, condition.Column("bb_lower_"+suffix))},
		Exit: position.ExitPolicy{
			StopLossPct:    10,
			MaxHoldingDays: 20,
			MeanReversion:  "bb_middle_" + suffix,
		},
		Entry: position.EntryPolicy{
			Split: position.SplitTrading{
				Enabled: true,
				Levels: []position.SplitLevel{
					{DropPct: 0, SizePct: 40},
					{DropPct: 3, SizePct: 30},
					{DropPct: 6, SizePct: 30},
				},
			},
		},
		Sizing: position.SizingConfig{Method: position.SizingFixed, FixedPct: 30},
	}, nil
}
