package backtest

import (
	"time"

	"github.com/assist-by/krbacktest/internal/domain"
)

// Result는 백테스트 결과를 저장하는 구조체입니다
type Result struct {
	RunID          string               // 실행 식별자 (uuid)
	Strategy       string               // 전략 이름
	Symbols        []string             // 테스트한 종목
	Start          time.Time            // 첫 봉 시간
	End            time.Time            // 마지막 봉 시간
	InitialCapital float64              // 초기 자본
	FinalEquity    float64              // 최종 평가금액
	FinalCash      float64              // 최종 현금
	Trades         []domain.Trade       // 체결 기록 (매수/매도)
	EquityCurve    []domain.EquityPoint // 봉마다의 평가금액
	Metrics        Metrics              // 요약 지표
	Warnings       []string             // 데이터 문제 등 실행을 멈추지 않은 경고
	Halted         bool                 // 서킷 브레이커 발동 여부
	HaltReason     string
}

// Metrics는 자산 곡선과 체결 기록에서 계산한 요약 지표입니다. 비율은 모두 % 단위입니다
type Metrics struct {
	TotalReturn          float64       // 총 수익률
	AnnualizedReturn     float64       // 연율화 수익률
	SharpeRatio          float64       // 연율화 샤프 지수 (252 거래일)
	MaxDrawdown          float64       // 최대 낙폭
	AvgDrawdown          float64       // 낙폭 구간의 평균 낙폭
	LongestDrawdown      time.Duration // 가장 긴 낙폭 지속 기간
	TotalTrades          int           // 매도 체결 수
	WinningTrades        int           // 이익 매도 수
	LosingTrades         int           // 손실 매도 수 (손익 0 포함)
	WinRate              float64       // 승률
	ProfitFactor         float64       // 총 이익 / 총 손실
	AvgWinPct            float64       // 이익 매도의 평균 수익률
	AvgLossPct           float64       // 손실 매도의 평균 손실률 (음수)
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	RoundTrips           int     // 완전히 청산된 포지션 수
	TotalFees            float64 // 수수료 합계
	TotalTaxes           float64 // 거래세 합계
}

// SellTrades는 매도 체결만 반환합니다
func (r *Result) SellTrades() []domain.Trade {
	var out []domain.Trade
	for _, t := range r.Trades {
		if t.Action == domain.Sell {
			out = append(out, t)
		}
	}
	return out
}
