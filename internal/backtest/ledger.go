package backtest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assist-by/krbacktest/internal/domain"
	"github.com/assist-by/krbacktest/internal/position"
)

var hundred = decimal.NewFromInt(100)

// Costs는 거래 비용 설정입니다. 비율은 % 단위입니다
type Costs struct {
	CommissionPct float64
	SlippagePct   float64
	SellTaxPct    float64
	RoundToTick   bool
}

// Ledger는 현금과 체결 기록을 관리합니다.
// 현금 흐름은 decimal로 누적해 매수 지출 - 매도 수령 + 현금 = 초기 자본이 정확히 성립합니다
type Ledger struct {
	costs Costs

	initial      decimal.Decimal
	cash         decimal.Decimal
	buyCosts     decimal.Decimal
	sellProceeds decimal.Decimal
	fees         decimal.Decimal
	taxes        decimal.Decimal

	trades []domain.Trade
}

// NewLedger는 초기 자본으로 원장을 생성합니다
func NewLedger(initialCapital float64, costs Costs) *Ledger {
	initial := decimal.NewFromFloat(initialCapital)
	return &Ledger{
		costs:   costs,
		initial: initial,
		cash:    initial,
	}
}

// BuyPrice는 슬리피지(불리한 방향)와 호가 단위를 반영한 매수 체결가입니다
func (l *Ledger) BuyPrice(price float64) float64 {
	p := price * (1 + l.costs.SlippagePct/100)
	if l.costs.RoundToTick {
		p = domain.AdjustPrice(p, true)
	}
	return p
}

// SellPrice는 슬리피지와 호가 단위를 반영한 매도 체결가입니다
func (l *Ledger) SellPrice(price float64) float64 {
	p := price * (1 - l.costs.SlippagePct/100)
	if l.costs.RoundToTick {
		p = domain.AdjustPrice(p, false)
	}
	return p
}

// QuoteBuy는 예산 안에서 살 수 있는 수량으로 매수 체결을 계산합니다. 현금은 바꾸지 않습니다
func (l *Ledger) QuoteBuy(symbol string, t time.Time, price, budget float64, reason domain.ExitReason, stage int) (domain.Trade, error) {
	fill := l.BuyPrice(price)
	cash := l.Cash()
	if budget > cash {
		budget = cash
	}
	size, err := position.CalculatePositionSize(fill, budget, l.costs.CommissionPct/100)
	if err != nil {
		return domain.Trade{}, err
	}

	qty := size.Quantity
	gross, fee := l.buyAmounts(fill, qty)
	for qty > 0 && gross.Add(fee).GreaterThan(l.cash) {
		qty--
		gross, fee = l.buyAmounts(fill, qty)
	}
	if qty < 1 {
		return domain.Trade{}, fmt.Errorf("%w: 현금 %s, 가격 %.0f", position.ErrInsufficientCash, l.cash.StringFixed(0), fill)
	}

	return domain.Trade{
		Time:     t,
		Symbol:   symbol,
		Action:   domain.Buy,
		Price:    fill,
		Quantity: qty,
		Gross:    gross.InexactFloat64(),
		Fee:      fee.InexactFloat64(),
		Amount:   gross.Add(fee).InexactFloat64(),
		Reason:   reason,
		Stage:    stage,
	}, nil
}

// QuoteSell은 매도 체결을 계산합니다. 현금은 바꾸지 않습니다
func (l *Ledger) QuoteSell(symbol string, t time.Time, price float64, qty int64, reason domain.ExitReason, stage int) domain.Trade {
	fill := l.SellPrice(price)
	gross, fee, tax := l.sellAmounts(fill, qty)
	return domain.Trade{
		Time:     t,
		Symbol:   symbol,
		Action:   domain.Sell,
		Price:    fill,
		Quantity: qty,
		Gross:    gross.InexactFloat64(),
		Fee:      fee.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Amount:   gross.Sub(fee).Sub(tax).InexactFloat64(),
		Reason:   reason,
		Stage:    stage,
	}
}

// Commit은 체결을 현금과 기록에 반영합니다
func (l *Ledger) Commit(tr domain.Trade) error {
	switch tr.Action {
	case domain.Buy:
		gross, fee := l.buyAmounts(tr.Price, tr.Quantity)
		amount := gross.Add(fee)
		if amount.GreaterThan(l.cash) {
			return fmt.Errorf("%w: 필요 %s, 보유 %s", position.ErrInsufficientCash, amount.StringFixed(2), l.cash.StringFixed(2))
		}
		l.cash = l.cash.Sub(amount)
		l.buyCosts = l.buyCosts.Add(amount)
		l.fees = l.fees.Add(fee)
	case domain.Sell:
		gross, fee, tax := l.sellAmounts(tr.Price, tr.Quantity)
		amount := gross.Sub(fee).Sub(tax)
		l.cash = l.cash.Add(amount)
		l.sellProceeds = l.sellProceeds.Add(amount)
		l.fees = l.fees.Add(fee)
		l.taxes = l.taxes.Add(tax)
	default:
		return fmt.Errorf("알 수 없는 주문 방향: %q", tr.Action)
	}
	l.trades = append(l.trades, tr)
	return nil
}

func (l *Ledger) buyAmounts(price float64, qty int64) (gross, fee decimal.Decimal) {
	gross = decimal.NewFromFloat(price).Mul(decimal.NewFromInt(qty))
	fee = gross.Mul(decimal.NewFromFloat(l.costs.CommissionPct)).Div(hundred)
	return gross, fee
}

func (l *Ledger) sellAmounts(price float64, qty int64) (gross, fee, tax decimal.Decimal) {
	gross = decimal.NewFromFloat(price).Mul(decimal.NewFromInt(qty))
	fee = gross.Mul(decimal.NewFromFloat(l.costs.CommissionPct)).Div(hundred)
	tax = gross.Mul(decimal.NewFromFloat(l.costs.SellTaxPct)).Div(hundred)
	return gross, fee, tax
}

// Cash는 현재 현금입니다
func (l *Ledger) Cash() float64 { return l.cash.InexactFloat64() }

// CashDecimal은 현재 현금의 정확한 값입니다
func (l *Ledger) CashDecimal() decimal.Decimal { return l.cash }

// Initial은 초기 자본입니다
func (l *Ledger) Initial() decimal.Decimal { return l.initial }

// BuyCosts는 누적 매수 지출액(수수료 포함)입니다
func (l *Ledger) BuyCosts() decimal.Decimal { return l.buyCosts }

// SellProceeds는 누적 매도 수령액(수수료, 세금 차감)입니다
func (l *Ledger) SellProceeds() decimal.Decimal { return l.sellProceeds }

// Fees는 누적 수수료입니다
func (l *Ledger) Fees() float64 { return l.fees.InexactFloat64() }

// Taxes는 누적 거래세입니다
func (l *Ledger) Taxes() float64 { return l.taxes.InexactFloat64() }

// Trades는 체결 기록입니다
func (l *Ledger) Trades() []domain.Trade { return l.trades }
