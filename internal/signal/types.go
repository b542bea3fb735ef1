// Package signal은 최근 N개 봉만으로 마지막 봉의 매매 신호와 점수를 계산합니다.
// 시뮬레이션 루프 없이 지표와 조건식만 사용합니다
package signal

import (
	"sync"
	"time"

	"github.com/assist-by/krbacktest/internal/strategy"
)

// SignalType은 시그널 유형을 정의합니다
type SignalType int

const (
	NoSignal SignalType = iota
	Buy
	Sell
)

func (t SignalType) String() string {
	switch t {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NONE"
	}
}

// Report는 마지막 봉의 신호 평가 결과입니다
type Report struct {
	Symbol    string
	Time      time.Time
	Price     float64
	Type      SignalType
	BuyScore  float64            // 매수 조건 중 충족된 비율 (%)
	SellScore float64            // 매도 조건 중 충족된 비율 (%)
	Values    map[string]float64 // 조건식이 참조하는 컬럼의 마지막 값
	Warmed    bool               // 모든 지표가 웜업을 마쳤는지 여부
	Changed   bool               // 직전 보고 대비 신호 유형 변경 여부 (Detector만 설정)
}

// SymbolState는 각 심볼별 상태를 관리합니다
type SymbolState struct {
	LastReport *Report
}

// Detector는 여러 심볼의 신호를 감지하고 직전 신호를 기억합니다
type Detector struct {
	cfg    *strategy.Config
	states map[string]*SymbolState
	mu     sync.RWMutex
}
