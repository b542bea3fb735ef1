package domain

// Action은 체결 방향을 정의합니다
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// ExitReason은 매도 사유 태그입니다
type ExitReason string

const (
	ReasonEntry         ExitReason = "entry"         // 신규 진입
	ReasonSplitEntry    ExitReason = "split_entry"   // 분할 매수 추가 진입
	ReasonPyramid       ExitReason = "pyramid"       // 피라미딩 추가 진입
	ReasonStopLoss      ExitReason = "stop_loss"     // 손절
	ReasonDynamicStop   ExitReason = "dynamic_stop"  // 상향 조정된 손절선 이탈
	ReasonTrailingStop  ExitReason = "trailing_stop" // 트레일링 스탑
	ReasonStagedProfit  ExitReason = "staged_profit" // 단계별 익절
	ReasonTargetProfit  ExitReason = "target_profit" // 단순 익절
	ReasonSignal        ExitReason = "signal"        // 매도 조건 충족
	ReasonMaxHolding    ExitReason = "max_holding"   // 최대 보유기간 초과
	ReasonMeanReversion ExitReason = "mean_reversion"
	ReasonFinalCleanup  ExitReason = "final_cleanup" // 백테스트 종료 강제 청산
)

// IsExit는 매도 사유인지 확인합니다
func (r ExitReason) IsExit() bool {
	switch r {
	case ReasonEntry, ReasonSplitEntry, ReasonPyramid:
		return false
	default:
		return true
	}
}
