package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/assist-by/krbacktest/internal/domain"
	"github.com/assist-by/krbacktest/internal/indicator"
	"github.com/assist-by/krbacktest/internal/metrics"
	"github.com/assist-by/krbacktest/internal/position"
	"github.com/assist-by/krbacktest/internal/risk"
	"github.com/assist-by/krbacktest/internal/strategy"
)

// DefaultRiskFreeRate는 샤프 지수 계산용 연 무위험 수익률 기본값입니다
const DefaultRiskFreeRate = 0.035

// Option은 Engine 설정 함수입니다
type Option func(*Engine)

// WithLogger는 로거를 지정합니다. 기본값은 출력하지 않는 로거입니다
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithRiskFreeRate는 연 무위험 수익률(소수, 0.035 = 3.5%)을 지정합니다
func WithRiskFreeRate(rate float64) Option {
	return func(e *Engine) { e.riskFreeRate = rate }
}

// WithContext는 지표 캐시와 경고를 담을 실행 컨텍스트를 지정합니다
func WithContext(c *BacktestContext) Option {
	return func(e *Engine) { e.bctx = c }
}

// Engine은 백테스트 실행 엔진입니다. 한 번의 실행에만 사용합니다
type Engine struct {
	Config       *strategy.Config          // 테스트할 전략
	Data         map[string]domain.BarList // 종목별 봉 데이터
	cfg          *strategy.Config // Run에서 정규화한 복사본
	log          zerolog.Logger
	riskFreeRate float64
	bctx         *BacktestContext
}

// feed는 한 종목의 정제된 봉과 지표 Frame, 진행 위치입니다
type feed struct {
	symbol string
	bars   domain.BarList
	frame  *indicator.Frame
	cursor int
	index  int
}

// run은 한 번의 실행 동안의 가변 상태입니다
type run struct {
	e         *Engine
	log       zerolog.Logger
	ledger    *Ledger
	positions *position.Manager
	breaker   *risk.CircuitBreaker
	lastPrice map[string]float64
	halted    bool
}

// NewEngine은 새로운 백테스트 엔진을 생성합니다
func NewEngine(cfg *strategy.Config, data map[string]domain.BarList, opts ...Option) *Engine {
	e := &Engine{
		Config:       cfg,
		Data:         data,
		log:          zerolog.Nop(),
		riskFreeRate: DefaultRiskFreeRate,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.bctx == nil {
		e.bctx = NewContext()
	}
	return e
}

// Run은 백테스트를 실행합니다. 봉 사이마다 취소 여부를 확인합니다
func (e *Engine) Run(ctx context.Context) (result *Result, err error) {
	started := time.Now()
	name := "unknown"
	if e.Config != nil {
		name = e.Config.Name
	}
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.RunsTotal.WithLabelValues(name, status).Inc()
		metrics.RunDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
	}()

	if e.Config == nil {
		return nil, &strategy.ConfigError{Field: "strategy", Err: errors.New("전략 설정이 없습니다")}
	}
	// 코드로 만든 설정도 YAML과 같은 정규화를 거칩니다. 호출자의 설정은 바꾸지 않습니다
	cfg := e.Config.Clone()
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e.cfg = cfg

	runID := uuid.NewString()
	log := e.log.With().Str("run_id", runID).Str("strategy", cfg.Name).Logger()

	// 1. 데이터 정제와 지표 사전 계산
	feeds, err := e.prepare()
	if err != nil {
		return nil, fmt.Errorf("지표 계산 실패: %w", err)
	}
	timestamps := mergeTimestamps(feeds)

	symbols := make([]string, len(feeds))
	for i, f := range feeds {
		symbols[i] = f.symbol
	}
	log.Info().
		Strs("symbols", symbols).
		Int("bars", len(timestamps)).
		Int("warm_up", cfg.MaxWarmUp()).
		Msg("백테스트 시작")

	r := &run{
		e:   e,
		log: log,
		ledger: NewLedger(cfg.Capital, Costs{
			CommissionPct: cfg.CommissionPct,
			SlippagePct:   cfg.SlippagePct,
			SellTaxPct:    cfg.SellTaxPct,
			RoundToTick:   cfg.RoundToTick,
		}),
		positions: position.NewManager(cfg.Exit, cfg.Entry, cfg.Sizing),
		breaker:   risk.NewCircuitBreaker(cfg.CircuitBreaker, cfg.Capital),
		lastPrice: make(map[string]float64),
	}

	// 2. 시간순 처리
	curve := make([]domain.EquityPoint, 0, len(timestamps))
	for k, ts := range timestamps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.step(feeds, ts, k == len(timestamps)-1); err != nil {
			return nil, err
		}
		curve = append(curve, domain.EquityPoint{Time: ts, Equity: r.equity(), Cash: r.ledger.Cash()})
		metrics.BarsProcessed.Inc()
	}

	// 3. 결과 계산
	result = &Result{
		RunID:          runID,
		Strategy:       cfg.Name,
		Symbols:        symbols,
		InitialCapital: cfg.Capital,
		FinalEquity:    cfg.Capital,
		FinalCash:      r.ledger.Cash(),
		Trades:         r.ledger.Trades(),
		EquityCurve:    curve,
		Warnings:       e.bctx.Warnings(),
		Halted:         r.breaker.Halted(),
		HaltReason:     r.breaker.Reason(),
	}
	if len(curve) > 0 {
		result.Start = curve[0].Time
		result.End = curve[len(curve)-1].Time
		result.FinalEquity = curve[len(curve)-1].Equity
	}
	result.Metrics = CalculateMetrics(result.Trades, curve, cfg.Capital, e.riskFreeRate)
	result.Metrics.TotalFees = r.ledger.Fees()
	result.Metrics.TotalTaxes = r.ledger.Taxes()
	result.Metrics.RoundTrips = r.positions.Stats().Count()

	log.Info().
		Int("trades", result.Metrics.TotalTrades).
		Float64("win_rate", result.Metrics.WinRate).
		Float64("total_return", result.Metrics.TotalReturn).
		Float64("max_drawdown", result.Metrics.MaxDrawdown).
		Float64("sharpe", result.Metrics.SharpeRatio).
		Int("warnings", len(result.Warnings)).
		Msg("백테스트 완료")

	return result, nil
}

// prepare는 종목별 봉을 정제하고 지표를 계산합니다. 종목 순서는 이름순으로 고정합니다
func (e *Engine) prepare() ([]*feed, error) {
	symbols := make([]string, 0, len(e.Data))
	for s := range e.Data {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	warmUp := e.cfg.MaxWarmUp()
	feeds := make([]*feed, 0, len(symbols))
	for _, symbol := range symbols {
		bars := e.sanitize(symbol, e.Data[symbol])
		if len(bars) == 0 {
			e.bctx.Warn("%s: 유효한 봉이 없어 제외합니다", symbol)
			continue
		}
		if len(bars) <= warmUp {
			e.bctx.Warn("%s: 데이터가 웜업 기간보다 짧습니다 (봉 %d, 웜업 %d), 신호가 발생하지 않습니다", symbol, len(bars), warmUp)
		}

		frame, err := e.bctx.Frame(symbol, indicator.ConvertBarsToPriceData(bars), e.cfg.Indicators)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, &feed{symbol: symbol, bars: bars, frame: frame})
	}
	return feeds, nil
}

// sanitize는 봉을 시간순으로 정렬하고 중복 시간과 잘못된 종가를 제거합니다
func (e *Engine) sanitize(symbol string, raw domain.BarList) domain.BarList {
	bars := make(domain.BarList, 0, len(raw))
	for _, b := range raw {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
			e.bctx.Warn("%s %s: 잘못된 종가(%g)의 봉을 제외합니다", symbol, b.Time.Format("2006-01-02"), b.Close)
			continue
		}
		bars = append(bars, b)
	}
	if !sort.SliceIsSorted(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) }) {
		e.bctx.Warn("%s: 봉이 시간순이 아니어서 정렬합니다", symbol)
		sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	}

	out := bars[:0]
	for i, b := range bars {
		if i > 0 && b.Time.Equal(bars[i-1].Time) {
			e.bctx.Warn("%s %s: 중복된 시간의 봉을 제외합니다", symbol, b.Time.Format("2006-01-02"))
			continue
		}
		out = append(out, b)
	}
	return out
}

// mergeTimestamps는 모든 종목 봉 시간의 정렬된 합집합입니다
func mergeTimestamps(feeds []*feed) []time.Time {
	seen := make(map[int64]bool)
	var out []time.Time
	for _, f := range feeds {
		for _, b := range f.bars {
			key := b.Time.UnixNano()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, b.Time)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// signals는 i번째 봉의 매수/매도 신호입니다. 둘 다 참이면 우선순위에 따라 하나만 남깁니다
func (e *Engine) signals(f *feed, i int) (buy, sell bool) {
	buy = e.cfg.Buy.Evaluate(f.frame, i)
	sell = e.cfg.Sell.Evaluate(f.frame, i)
	if buy && sell {
		if e.cfg.Priority == strategy.BuyFirst {
			sell = false
		} else {
			buy = false
		}
	}
	return buy, sell
}

// step은 한 시점을 처리합니다. 모든 종목의 청산을 먼저 확인한 뒤 서킷 브레이커를 점검하고 진입을 결정합니다
func (r *run) step(feeds []*feed, ts time.Time, final bool) error {
	cfg := r.e.cfg

	active := make([]*feed, 0, len(feeds))
	for _, f := range feeds {
		if f.cursor < len(f.bars) && f.bars[f.cursor].Time.Equal(ts) {
			f.index = f.cursor
			f.cursor++
			active = append(active, f)
		}
	}

	// 1단계: 평가와 청산
	exited := make(map[string]bool)
	buys := make(map[string]bool)
	for _, f := range active {
		price := f.bars[f.index].Close
		r.lastPrice[f.symbol] = price
		r.positions.Mark(f.symbol, price)

		buy, sell := r.e.signals(f, f.index)
		buys[f.symbol] = buy

		ref := math.NaN()
		if cfg.Exit.MeanReversion != "" {
			ref = f.frame.Value(cfg.Exit.MeanReversion, f.index)
		}
		intent, ok := r.positions.CheckExit(f.symbol, position.ExitContext{
			Time: ts, Price: price, SellSignal: sell, Reference: ref,
		})
		if !ok {
			continue
		}
		if final {
			if pos, held := r.positions.Get(f.symbol); held && intent.Quantity < pos.Quantity {
				intent, _ = r.positions.Liquidate(f.symbol, domain.ReasonFinalCleanup)
			}
		}
		if err := r.sell(intent, ts, price); err != nil {
			return err
		}
		exited[f.symbol] = true
	}

	// 서킷 브레이커는 봉마다 한 번, 진입 전에 확인합니다
	wasHalted := r.halted
	r.halted = r.breaker.Check(ts, r.equity())
	if r.halted && !wasHalted {
		metrics.HaltsTotal.WithLabelValues(cfg.Name).Inc()
		r.log.Warn().Str("reason", r.breaker.Reason()).Time("time", ts).Msg("서킷 브레이커 발동, 신규 진입 중단")
	}

	if final {
		return r.cleanup(ts)
	}

	// 2단계: 진입
	if r.halted {
		return nil
	}
	for _, f := range active {
		if exited[f.symbol] {
			continue
		}
		price := f.bars[f.index].Close
		intent, ok := r.positions.PlanEntry(f.symbol, price, buys[f.symbol], r.equity())
		if !ok {
			continue
		}
		if err := r.buy(intent, ts, price); err != nil {
			return err
		}
	}
	return nil
}

// cleanup은 마지막 시점에 남은 포지션을 모두 청산합니다.
// 데이터가 먼저 끝난 종목은 마지막으로 알려진 가격을 사용합니다
func (r *run) cleanup(ts time.Time) error {
	for _, symbol := range r.positions.Symbols() {
		intent, ok := r.positions.Liquidate(symbol, domain.ReasonFinalCleanup)
		if !ok {
			continue
		}
		if err := r.sell(intent, ts, r.lastPrice[symbol]); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) equity() float64 {
	return r.ledger.Cash() + r.positions.MarketValue()
}

func (r *run) sell(intent position.Intent, ts time.Time, price float64) error {
	tr := r.ledger.QuoteSell(intent.Symbol, ts, price, intent.Quantity, intent.Reason, intent.Stage)
	profit, closed, roundTripPct, err := r.positions.Apply(position.Fill{
		Symbol:   tr.Symbol,
		Time:     ts,
		Action:   domain.Sell,
		Price:    tr.Price,
		Quantity: tr.Quantity,
		Amount:   tr.Amount,
		Reason:   tr.Reason,
		Stage:    tr.Stage,
		NewStop:  intent.NewStop,
	}, 0)
	if err != nil {
		return err
	}
	tr.Profit = profit
	if basis := tr.Amount - profit; basis > 0 {
		tr.ProfitPct = profit / basis * 100
	}
	if err := r.ledger.Commit(tr); err != nil {
		return err
	}
	if closed {
		r.breaker.RecordRoundTrip(roundTripPct)
	}

	metrics.TradesTotal.WithLabelValues(string(tr.Action), string(tr.Reason)).Inc()
	r.log.Debug().
		Str("symbol", tr.Symbol).
		Str("reason", string(tr.Reason)).
		Int64("qty", tr.Quantity).
		Float64("price", tr.Price).
		Float64("profit", tr.Profit).
		Time("time", ts).
		Msg("매도 체결")
	return nil
}

func (r *run) buy(intent position.Intent, ts time.Time, price float64) error {
	tr, err := r.ledger.QuoteBuy(intent.Symbol, ts, price, intent.Budget, intent.Reason, intent.Stage)
	if err != nil {
		if errors.Is(err, position.ErrInsufficientCash) {
			r.log.Debug().Str("symbol", intent.Symbol).Err(err).Msg("현금 부족으로 매수 생략")
			return nil
		}
		return err
	}
	if _, _, _, err := r.positions.Apply(position.Fill{
		Symbol:   tr.Symbol,
		Time:     ts,
		Action:   domain.Buy,
		Price:    tr.Price,
		Quantity: tr.Quantity,
		Amount:   tr.Amount,
		Reason:   tr.Reason,
		Stage:    tr.Stage,
	}, intent.Plan); err != nil {
		return err
	}
	if err := r.ledger.Commit(tr); err != nil {
		return err
	}

	metrics.TradesTotal.WithLabelValues(string(tr.Action), string(tr.Reason)).Inc()
	r.log.Debug().
		Str("symbol", tr.Symbol).
		Str("reason", string(tr.Reason)).
		Int64("qty", tr.Quantity).
		Float64("price", tr.Price).
		Time("time", ts).
		Msg("매수 체결")
	return nil
}
