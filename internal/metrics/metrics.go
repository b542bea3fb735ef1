// Package metrics는 백테스트 실행과 체결에 대한 Prometheus 지표를 제공합니다
package metrics

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "krbacktest_runs_total", Help: "Backtest runs by strategy and outcome."},
		[]string{"strategy", "status"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "krbacktest_trades_total", Help: "Simulated fills by action and reason."},
		[]string{"action", "reason"},
	)
	HaltsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "krbacktest_halts_total", Help: "Circuit breaker halts by strategy."},
		[]string{"strategy"},
	)
	BarsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "krbacktest_bars_processed_total", Help: "Timestamps processed by the simulation loop."},
	)
	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "krbacktest_run_duration_seconds",
			Help:    "Wall-clock duration of a backtest run.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"strategy"},
	)
)

func init() {
	prometheus.MustRegister(RunsTotal, TradesTotal, HaltsTotal, BarsProcessed, RunDuration)
}

// Serve는 /metrics 엔드포인트를 백그라운드로 띄웁니다.
// 포트 바인딩 실패는 바로 반환하고 이후 서버 에러는 로그로 남깁니다
func Serve(addr string, log zerolog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("메트릭 서버 바인딩 실패: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ln.Addr().String(), Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", srv.Addr).Msg("메트릭 서버 중단")
		}
	}()
	return srv, nil
}
