package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// 애플리케이션 설정
	App struct {
		LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
		LogFormat   string `envconfig:"LOG_FORMAT" default:"json"` // json 또는 console
		MetricsAddr string `envconfig:"METRICS_ADDR"`              // 비어 있으면 /metrics 서버를 띄우지 않습니다
		Workers     int    `envconfig:"WORKERS" default:"4"`
	}

	// 백테스트 설정
	Backtest struct {
		DataDir        string        `envconfig:"DATA_DIR" default:"data"`
		StrategyFiles  []string      `envconfig:"STRATEGY_FILES"` // 쉼표로 구분
		Presets        []string      `envconfig:"PRESETS"`        // 쉼표로 구분
		Symbols        []string      `envconfig:"SYMBOLS"`        // 비어 있으면 DATA_DIR의 모든 CSV
		InitialCapital float64       `envconfig:"INITIAL_CAPITAL" default:"10000000"`
		RiskFreeRate   float64       `envconfig:"RISK_FREE_RATE" default:"0.035"`
		OutputDir      string        `envconfig:"OUTPUT_DIR"`
		Timeout        time.Duration `envconfig:"RUN_TIMEOUT" default:"0"` // 0이면 제한 없음
	}
}

// ValidateConfig는 설정이 유효한지 확인합니다.
func ValidateConfig(cfg *Config) error {
	if cfg.App.Workers < 1 || cfg.App.Workers > 256 {
		return fmt.Errorf("WORKERS는 1 이상 256 이하이어야 합니다")
	}

	if cfg.App.LogFormat != "json" && cfg.App.LogFormat != "console" {
		return fmt.Errorf("LOG_FORMAT은 json 또는 console이어야 합니다: %q", cfg.App.LogFormat)
	}

	if cfg.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("INITIAL_CAPITAL은 0보다 커야 합니다")
	}

	if cfg.Backtest.RiskFreeRate < 0 || cfg.Backtest.RiskFreeRate >= 1 {
		return fmt.Errorf("RISK_FREE_RATE는 [0, 1) 범위의 소수여야 합니다")
	}

	if cfg.Backtest.Timeout < 0 {
		return fmt.Errorf("RUN_TIMEOUT은 0 이상이어야 합니다")
	}

	return nil
}

// LoadConfig는 환경변수에서 설정을 로드합니다. .env 파일이 없으면 환경변수만 사용합니다
func LoadConfig(envFiles ...string) (*Config, error) {
	// .env 파일 로드
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".env 파일 로드 실패: %w", err)
	}

	var cfg Config
	// 환경변수를 구조체로 파싱
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("환경변수 처리 실패: %w", err)
	}

	// 설정값 검증
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("설정값 검증 실패: %w", err)
	}

	return &cfg, nil
}
