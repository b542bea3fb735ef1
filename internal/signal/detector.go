package signal

import (
	"github.com/assist-by/krbacktest/internal/domain"
	"github.com/assist-by/krbacktest/internal/strategy"
)

// NewDetector는 새로운 시그널 감지기를 생성합니다
func NewDetector(cfg *strategy.Config) *Detector {
	return &Detector{
		cfg:    cfg,
		states: make(map[string]*SymbolState),
	}
}

// Detect는 심볼의 최근 봉으로 신호를 계산하고 직전 신호와 비교합니다
func (d *Detector) Detect(symbol string, bars domain.BarList) (*Report, error) {
	report, err := Evaluate(d.cfg, symbol, bars)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	state, ok := d.states[symbol]
	if !ok {
		state = &SymbolState{}
		d.states[symbol] = state
	}
	prev := NoSignal
	if state.LastReport != nil {
		prev = state.LastReport.Type
	}
	report.Changed = report.Type != prev
	state.LastReport = report
	return report, nil
}

// LastReport는 심볼의 마지막 보고를 반환합니다
func (d *Detector) LastReport(symbol string) (*Report, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	state, ok := d.states[symbol]
	if !ok || state.LastReport == nil {
		return nil, false
	}
	return state.LastReport, true
}
