package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	osSignal "os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/assist-by/krbacktest/internal/backtest"
	"github.com/assist-by/krbacktest/internal/config"
	"github.com/assist-by/krbacktest/internal/domain"
	"github.com/assist-by/krbacktest/internal/market"
	"github.com/assist-by/krbacktest/internal/metrics"
	"github.com/assist-by/krbacktest/internal/scheduler"
	"github.com/assist-by/krbacktest/internal/signal"
	"github.com/assist-by/krbacktest/internal/strategy"
)

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// options는 명령줄 플래그 값입니다. 비어 있지 않은 값은 환경변수 설정보다 우선합니다
type options struct {
	strategies string
	presets    string
	symbols    string
	data       string
	out        string
	workers    int
	signal     bool
	watch      time.Duration
}

func main() {
	// 명령줄 플래그 정의
	var opts options
	flag.StringVar(&opts.strategies, "strategy", "", "전략 YAML 파일 목록 (쉼표 구분)")
	flag.StringVar(&opts.presets, "preset", "", "내장 프리셋 목록 (쉼표 구분)")
	flag.StringVar(&opts.symbols, "symbols", "", "종목 코드 목록 (쉼표 구분)")
	flag.StringVar(&opts.data, "data", "", "OHLCV CSV 디렉터리")
	flag.StringVar(&opts.out, "out", "", "결과 CSV 저장 디렉터리")
	flag.IntVar(&opts.workers, "workers", 0, "동시 실행 수")
	flag.BoolVar(&opts.signal, "signal", false, "백테스트 대신 마지막 봉의 신호만 출력")
	flag.DurationVar(&opts.watch, "watch", 0, "신호 모드에서 데이터를 다시 읽는 주기 (0이면 한 번만)")
	listFlag := flag.Bool("list", false, "내장 프리셋 목록 출력 후 종료")
	flag.Parse()

	if *listFlag {
		for _, name := range strategy.DefaultRegistry().ListStrategies() {
			fmt.Println(name)
		}
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "실행 실패: %v\n", err)
		os.Exit(1)
	}
}

// run은 설정을 읽고 백테스트나 신호 평가를 실행합니다. 종료 처리는 모두 defer로 정리됩니다
func run(opts options) error {
	// 설정 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("설정 로드 실패: %w", err)
	}
	applyFlags(cfg, opts)

	log := config.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	log.Info().Msg("백테스터 시작...")

	if cfg.App.MetricsAddr != "" {
		srv, err := metrics.Serve(cfg.App.MetricsAddr, log)
		if err != nil {
			return err
		}
		defer srv.Close()
		log.Info().Str("addr", srv.Addr).Msg("메트릭 서버 시작")
	}

	// 시그널 처리
	ctx, stop := osSignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	strategies, err := loadStrategies(strategy.DefaultRegistry(), cfg)
	if err != nil {
		return fmt.Errorf("전략 로드 실패: %w", err)
	}

	data, warnings, err := market.LoadDir(cfg.Backtest.DataDir, cfg.Backtest.Symbols)
	if err != nil {
		return fmt.Errorf("데이터 로드 실패: %w", err)
	}
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	if opts.signal {
		return watchSignals(ctx, log, cfg, strategies, data, opts.watch)
	}

	if cfg.Backtest.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Backtest.Timeout)
		defer cancel()
	}

	jobs := make([]backtest.Job, len(strategies))
	for i, s := range strategies {
		jobs[i] = backtest.Job{Name: s.Name, Config: s, Data: data}
	}
	results := backtest.RunBatch(ctx, jobs, cfg.App.Workers,
		backtest.WithLogger(log),
		backtest.WithRiskFreeRate(cfg.Backtest.RiskFreeRate),
	)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Error().Str("strategy", r.Job).Err(r.Err).Msg("백테스트 실패")
			continue
		}
		report(log, r.Result)
		if cfg.Backtest.OutputDir != "" {
			if err := export(cfg.Backtest.OutputDir, r.Result); err != nil {
				log.Error().Str("strategy", r.Job).Err(err).Msg("결과 저장 실패")
			}
		}
	}

	log.Info().Int("runs", len(results)).Int("failed", failed).Msg("프로그램을 종료합니다.")
	if failed > 0 {
		return fmt.Errorf("백테스트 %d건 실패", failed)
	}
	return nil
}

// watchSignals는 마지막 봉 신호를 출력합니다. interval이 있으면 그 주기로 데이터를 다시 읽어 평가합니다
func watchSignals(ctx context.Context, log zerolog.Logger, cfg *config.Config, strategies []*strategy.Config, data map[string]domain.BarList, interval time.Duration) error {
	detectors := make([]*signal.Detector, len(strategies))
	for i, s := range strategies {
		detectors[i] = signal.NewDetector(s)
	}
	if interval <= 0 {
		printSignals(log, detectors, strategies, data, true)
		return nil
	}

	task := scheduler.TaskFunc(func(ctx context.Context) error {
		data, _, err := market.LoadDir(cfg.Backtest.DataDir, cfg.Backtest.Symbols)
		if err != nil {
			return err
		}
		printSignals(log, detectors, strategies, data, false)
		return nil
	})
	s := scheduler.NewScheduler(interval, task, scheduler.WithLogger(log), scheduler.WithImmediate())
	if err := s.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("프로그램을 종료합니다.")
	return nil
}

func applyFlags(cfg *config.Config, opts options) {
	if v := splitList(opts.strategies); len(v) > 0 {
		cfg.Backtest.StrategyFiles = v
	}
	if v := splitList(opts.presets); len(v) > 0 {
		cfg.Backtest.Presets = v
	}
	if v := splitList(opts.symbols); len(v) > 0 {
		cfg.Backtest.Symbols = v
	}
	if opts.data != "" {
		cfg.Backtest.DataDir = opts.data
	}
	if opts.out != "" {
		cfg.Backtest.OutputDir = opts.out
	}
	if opts.workers > 0 {
		cfg.App.Workers = opts.workers
	}
}

// loadStrategies는 YAML 파일과 프리셋을 모두 읽습니다. 자본이 기본값이면 INITIAL_CAPITAL을 사용합니다
func loadStrategies(registry *strategy.Registry, cfg *config.Config) ([]*strategy.Config, error) {
	var out []*strategy.Config
	for _, path := range cfg.Backtest.StrategyFiles {
		s, err := strategy.LoadFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	for _, name := range cfg.Backtest.Presets {
		s, err := registry.Create(name, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("전략이 없습니다: -strategy 또는 -preset을 지정하세요 (프리셋: %v)", registry.ListStrategies())
	}
	for _, s := range out {
		if s.Capital == strategy.DefaultCapital {
			s.Capital = cfg.Backtest.InitialCapital
		}
	}
	return out, nil
}

// printSignals는 종목별 마지막 봉의 신호를 기록합니다. all이 아니면 신호가 바뀐 경우만 Info로 남깁니다
func printSignals(log zerolog.Logger, detectors []*signal.Detector, strategies []*strategy.Config, data map[string]domain.BarList, all bool) {
	symbols := make([]string, 0, len(data))
	for symbol := range data {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for i, s := range strategies {
		for _, symbol := range symbols {
			r, err := detectors[i].Detect(symbol, data[symbol])
			if err != nil {
				log.Warn().Str("strategy", s.Name).Str("symbol", symbol).Err(err).Msg("신호 계산 실패")
				continue
			}
			ev := log.Debug()
			if all || r.Changed {
				ev = log.Info()
			}
			ev.
				Str("strategy", s.Name).
				Str("symbol", symbol).
				Time("time", r.Time).
				Float64("price", r.Price).
				Str("signal", r.Type.String()).
				Float64("buy_score", r.BuyScore).
				Float64("sell_score", r.SellScore).
				Bool("warmed", r.Warmed).
				Bool("changed", r.Changed).
				Msg("신호")
		}
	}
}

func report(log zerolog.Logger, r *backtest.Result) {
	m := r.Metrics
	log.Info().
		Str("strategy", r.Strategy).
		Str("run_id", r.RunID).
		Time("start", r.Start).
		Time("end", r.End).
		Float64("final_equity", r.FinalEquity).
		Float64("total_return", m.TotalReturn).
		Float64("annualized_return", m.AnnualizedReturn).
		Float64("max_drawdown", m.MaxDrawdown).
		Float64("sharpe", m.SharpeRatio).
		Int("trades", m.TotalTrades).
		Float64("win_rate", m.WinRate).
		Float64("profit_factor", m.ProfitFactor).
		Bool("halted", r.Halted).
		Msg("백테스트 결과")
	for _, w := range r.Warnings {
		log.Warn().Str("strategy", r.Strategy).Msg(w)
	}
}

func export(dir string, r *backtest.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	prefix := filepath.Join(dir, r.Strategy+"_"+r.RunID[:8])
	if err := market.WriteTradesCSV(r.Trades, prefix+"_trades.csv"); err != nil {
		return err
	}
	return market.WriteEquityCSV(r.EquityCurve, prefix+"_equity.csv")
}
