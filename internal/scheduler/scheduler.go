package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Task는 스케줄러가 실행할 작업을 정의하는 인터페이스입니다
type Task interface {
	Execute(ctx context.Context) error
}

// TaskFunc는 일반 함수를 Task로 사용하게 해줍니다
type TaskFunc func(ctx context.Context) error

// Execute는 함수를 호출합니다
func (f TaskFunc) Execute(ctx context.Context) error { return f(ctx) }

// Scheduler는 interval 경계마다 작업을 실행하는 스케줄러입니다
type Scheduler struct {
	interval  time.Duration
	task      Task
	log       zerolog.Logger
	immediate bool
	stopCh    chan struct{}
}

// Option은 스케줄러 옵션입니다
type Option func(*Scheduler)

// WithLogger는 로거를 지정합니다
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithImmediate는 첫 경계를 기다리기 전에 작업을 한 번 실행합니다
func WithImmediate() Option {
	return func(s *Scheduler) { s.immediate = true }
}

// NewScheduler는 새로운 스케줄러를 생성합니다
func NewScheduler(interval time.Duration, task Task, opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: interval,
		task:     task,
		log:      zerolog.Nop(),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// nextWait는 다음 interval 경계까지 남은 시간을 계산합니다
func (s *Scheduler) nextWait() time.Duration {
	now := time.Now()
	nextRun := now.Truncate(s.interval).Add(s.interval)
	wait := nextRun.Sub(now)
	s.log.Debug().
		Dur("wait", wait.Round(time.Millisecond)).
		Time("next_run", nextRun).
		Msg("다음 실행 대기")
	return wait
}

func (s *Scheduler) execute(ctx context.Context) {
	// 에러가 발생해도 계속 실행
	if err := s.task.Execute(ctx); err != nil {
		s.log.Error().Err(err).Msg("작업 실행 실패")
	}
}

// Start는 ctx가 취소되거나 Stop이 호출될 때까지 작업을 반복 실행합니다
func (s *Scheduler) Start(ctx context.Context) error {
	if s.immediate {
		s.execute(ctx)
	}

	timer := time.NewTimer(s.nextWait())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.stopCh:
			return nil

		case <-timer.C:
			s.execute(ctx)
			timer.Reset(s.nextWait())
		}
	}
}

// Stop은 스케줄러를 중지합니다. 한 번만 호출해야 합니다
func (s *Scheduler) Stop() {
	close(s.stopCh)
}
