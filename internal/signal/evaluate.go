package signal

import (
	"fmt"

	"github.com/assist-by/krbacktest/internal/domain"
	"github.com/assist-by/krbacktest/internal/indicator"
	"github.com/assist-by/krbacktest/internal/strategy"
)

// RequiredBars는 마지막 봉에서 모든 지표와 교차 조건을 평가하는 데 필요한 최소 봉 수입니다
func RequiredBars(cfg *strategy.Config) int {
	return cfg.MaxWarmUp() + 2
}

// WindowSize는 평가에 사용하는 최근 봉 수입니다.
// 재귀형 지표(EMA, Wilder)가 충분히 수렴하도록 웜업의 두 배를 사용합니다
func WindowSize(cfg *strategy.Config) int {
	return 2*cfg.MaxWarmUp() + 2
}

// Evaluate는 최근 봉으로 마지막 봉의 신호를 계산합니다.
// 데이터가 부족하면 에러 없이 Warmed=false, NoSignal을 반환합니다
func Evaluate(cfg *strategy.Config, symbol string, bars domain.BarList) (*Report, error) {
	if cfg == nil {
		return nil, fmt.Errorf("전략 설정이 없습니다")
	}
	// 코드로 만든 설정도 별칭과 누락된 지표가 정리된 상태로 평가합니다
	cfg = cfg.Clone()
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	last, ok := bars.Last()
	if !ok {
		return nil, fmt.Errorf("%s: 봉 데이터가 없습니다", symbol)
	}

	window := bars.Tail(WindowSize(cfg))
	frame, err := indicator.BuildFrame(indicator.ConvertBarsToPriceData(window), cfg.Indicators)
	if err != nil {
		return nil, fmt.Errorf("지표 계산 실패: %w", err)
	}
	i := frame.Len() - 1

	report := &Report{
		Symbol:    symbol,
		Time:      last.Time,
		Price:     last.Close,
		Type:      NoSignal,
		BuyScore:  cfg.Buy.Score(frame, i),
		SellScore: cfg.Sell.Score(frame, i),
		Values:    make(map[string]float64),
		Warmed:    len(window) >= RequiredBars(cfg),
	}
	for _, col := range append(cfg.Buy.Columns(), cfg.Sell.Columns()...) {
		report.Values[col] = frame.Value(col, i)
	}

	buy := cfg.Buy.Evaluate(frame, i)
	sell := cfg.Sell.Evaluate(frame, i)
	switch {
	case buy && sell:
		if cfg.Priority == strategy.BuyFirst {
			report.Type = Buy
		} else {
			report.Type = Sell
		}
	case buy:
		report.Type = Buy
	case sell:
		report.Type = Sell
	}
	return report, nil
}
