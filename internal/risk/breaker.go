// Package risk는 포트폴리오 단위 서킷 브레이커를 제공합니다
package risk

import (
	"fmt"
	"time"
)

// Config는 서킷 브레이커 설정입니다. 0은 사용 안 함입니다
type Config struct {
	MaxDrawdownPct       float64 `yaml:"max_drawdown_pct"`       // 최고 평가금액 대비 하락률
	DailyLossPct         float64 `yaml:"daily_loss_pct"`         // 전일 평가금액 대비 당일 손실률
	MaxConsecutiveLosses int     `yaml:"max_consecutive_losses"` // 연속 손실 청산 횟수
}

// Enabled는 하나라도 한도가 설정되어 있는지 확인합니다
func (c Config) Enabled() bool {
	return c.MaxDrawdownPct > 0 || c.DailyLossPct > 0 || c.MaxConsecutiveLosses > 0
}

// Validate는 설정 범위를 확인합니다
func (c Config) Validate() error {
	if c.MaxDrawdownPct < 0 || c.MaxDrawdownPct > 100 {
		return fmt.Errorf("max_drawdown_pct는 [0, 100] 범위여야 합니다: %g", c.MaxDrawdownPct)
	}
	if c.DailyLossPct < 0 || c.DailyLossPct > 100 {
		return fmt.Errorf("daily_loss_pct는 [0, 100] 범위여야 합니다: %g", c.DailyLossPct)
	}
	if c.MaxConsecutiveLosses < 0 {
		return fmt.Errorf("max_consecutive_losses는 0 이상이어야 합니다: %d", c.MaxConsecutiveLosses)
	}
	return nil
}

// CircuitBreaker는 한도를 넘으면 halted 상태가 되어 신규 진입을 막습니다.
// 보유 포지션의 청산은 막지 않으며 Reset을 호출할 때까지 유지됩니다
type CircuitBreaker struct {
	cfg Config

	peak        float64
	last        float64
	dayStart    float64
	day         time.Time
	consecutive int

	halted   bool
	reason   string
	haltedAt time.Time
}

// NewCircuitBreaker는 초기 평가금액으로 서킷 브레이커를 생성합니다
func NewCircuitBreaker(cfg Config, initialEquity float64) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:      cfg,
		peak:     initialEquity,
		last:     initialEquity,
		dayStart: initialEquity,
	}
}

// Check는 봉마다 신규 진입 전에 호출합니다. halted 여부를 반환합니다
func (c *CircuitBreaker) Check(t time.Time, equity float64) bool {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	if !day.Equal(c.day) {
		c.day = day
		c.dayStart = c.last
	}
	c.last = equity
	if equity > c.peak {
		c.peak = equity
	}
	if c.halted {
		return true
	}

	if c.cfg.MaxDrawdownPct > 0 && c.peak > 0 {
		if dd := (c.peak - equity) / c.peak * 100; dd >= c.cfg.MaxDrawdownPct {
			c.trip(t, fmt.Sprintf("최대 낙폭 %.2f%% 도달 (한도 %.2f%%)", dd, c.cfg.MaxDrawdownPct))
			return true
		}
	}
	if c.cfg.DailyLossPct > 0 && c.dayStart > 0 {
		if loss := (c.dayStart - equity) / c.dayStart * 100; loss >= c.cfg.DailyLossPct {
			c.trip(t, fmt.Sprintf("일일 손실 %.2f%% 도달 (한도 %.2f%%)", loss, c.cfg.DailyLossPct))
			return true
		}
	}
	if c.cfg.MaxConsecutiveLosses > 0 && c.consecutive >= c.cfg.MaxConsecutiveLosses {
		c.trip(t, fmt.Sprintf("연속 손실 %d회 도달", c.consecutive))
		return true
	}
	return false
}

// RecordRoundTrip은 포지션 하나가 완전히 청산될 때 손익을 기록합니다. 0 이하는 손실입니다
func (c *CircuitBreaker) RecordRoundTrip(profit float64) {
	if profit > 0 {
		c.consecutive = 0
		return
	}
	c.consecutive++
}

func (c *CircuitBreaker) trip(t time.Time, reason string) {
	c.halted = true
	c.reason = reason
	c.haltedAt = t
}

// Halted는 신규 진입이 막혀 있는지 확인합니다
func (c *CircuitBreaker) Halted() bool { return c.halted }

// Reason은 마지막 중단 사유입니다
func (c *CircuitBreaker) Reason() string { return c.reason }

// HaltedAt은 중단된 시각입니다
func (c *CircuitBreaker) HaltedAt() time.Time { return c.haltedAt }

// ConsecutiveLosses는 현재 연속 손실 횟수입니다
func (c *CircuitBreaker) ConsecutiveLosses() int { return c.consecutive }

// Reset은 중단 상태를 해제하고 기준값을 마지막 평가금액으로 다시 잡습니다
func (c *CircuitBreaker) Reset() {
	c.halted = false
	c.reason = ""
	c.haltedAt = time.Time{}
	c.consecutive = 0
	c.peak = c.last
	c.dayStart = c.last
}
