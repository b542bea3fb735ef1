package backtest

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/assist-by/krbacktest/internal/domain"
	"github.com/assist-by/krbacktest/internal/strategy"
)

// Job은 배치 실행의 독립된 작업 단위입니다
type Job struct {
	Name   string
	Config *strategy.Config
	Data   map[string]domain.BarList // 작업 사이에 읽기 전용으로 공유됩니다
}

// BatchResult는 작업 하나의 결과입니다. 실패한 작업은 Err만 가집니다
type BatchResult struct {
	Job    string
	Result *Result
	Err    error
}

// RunBatch는 독립된 작업들을 최대 workers개씩 병렬 실행합니다.
// 작업마다 별도의 엔진과 실행 컨텍스트를 사용하며 한 작업의 실패나 panic은 다른 작업에 영향을 주지 않습니다.
// 결과는 작업 순서와 같습니다
func RunBatch(ctx context.Context, jobs []Job, workers int, opts ...Option) []BatchResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]BatchResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, job := range jobs {
		i, job := i, job
		results[i].Job = job.Name
		g.Go(func() error {
			results[i].Result, results[i].Err = runJob(ctx, job, opts)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func runJob(ctx context.Context, job Job, opts []Option) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("작업 %q panic: %v", job.Name, r)
		}
	}()
	if job.Config == nil {
		return nil, &strategy.ConfigError{Field: "strategy", Err: fmt.Errorf("작업 %q에 전략이 없습니다", job.Name)}
	}

	jobOpts := append(append([]Option(nil), opts...), WithContext(NewContext()))
	return NewEngine(job.Config.Clone(), job.Data, jobOpts...).Run(ctx)
}
