package domain

import (
	"math"
	"time"
)

// Trade는 한 번의 체결 기록입니다. 생성 후 변경되지 않습니다
type Trade struct {
	Time      time.Time  // 체결 시간
	Symbol    string     // 종목 코드 (예: 005930)
	Action    Action     // 매수/매도
	Price     float64    // 체결가 (슬리피지 반영)
	Quantity  int64      // 체결 수량 (주)
	Gross     float64    // 체결 금액 (가격 × 수량)
	Fee       float64    // 수수료
	Tax       float64    // 거래세 (매도만)
	Amount    float64    // 현금 흐름 크기 (매수: 금액+수수료, 매도: 금액-수수료-세금)
	Profit    float64    // 실현 손익 (매도만)
	ProfitPct float64    // 실현 손익률 % (매도만)
	Reason    ExitReason // 체결 사유
	Stage     int        // 분할/단계 번호 (0부터)
}

// EquityPoint는 특정 시점의 포트폴리오 평가액입니다
type EquityPoint struct {
	Time   time.Time
	Equity float64 // 현금 + 보유 주식 평가액
	Cash   float64
}

// krxTicks는 KRX 호가가격단위 구간입니다 (상한 미만, 단위)
var krxTicks = []struct {
	below float64
	tick  float64
}{
	{2000, 1},
	{5000, 5},
	{20000, 10},
	{50000, 50},
	{200000, 100},
	{500000, 500},
	{math.Inf(1), 1000},
}

// TickSize는 가격 구간에 맞는 KRX 호가단위를 반환합니다
func TickSize(price float64) float64 {
	for _, t := range krxTicks {
		if price < t.below {
			return t.tick
		}
	}
	return 1000
}

// AdjustPrice는 가격을 호가단위에 맞게 조정합니다. roundUp이면 올림, 아니면 내림
func AdjustPrice(price float64, roundUp bool) float64 {
	if price <= 0 || math.IsNaN(price) {
		return price
	}
	tick := TickSize(price)
	if roundUp {
		return math.Ceil(price/tick) * tick
	}
	return math.Floor(price/tick) * tick
}
