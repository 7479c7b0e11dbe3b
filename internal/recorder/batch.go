package recorder

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"replayRecorder/internal/replay"
)

// ParseBulk разбирает значение флага bulk: "all" или число >= 1.
// Результат не больше количества ссылок.
func ParseBulk(raw string, links int) (int, error) {
	if raw == "all" {
		return max(links, 1), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf(`invalid value: argument bulk, given: %q, takes: all/a number 1 or above`, raw)
	}
	return min(n, max(links, 1)), nil
}

// Batches делит задания на пачки по size штук
func Batches(jobs []replay.Job, size int) [][]replay.Job {
	if size < 1 {
		size = 1
	}
	var batches [][]replay.Job
	for i := 0; i < len(jobs); i += size {
		batches = append(batches, jobs[i:min(i+size, len(jobs))])
	}
	return batches
}

// Result — итог одной записи из пачки
type Result struct {
	Job    replay.Job
	Output *Output
	Err    error
}

// RecordAll записывает реплеи пачками по bulk штук: внутри пачки параллельно,
// следующая пачка стартует после завершения всей предыдущей. Ошибка одной
// записи не влияет на остальные; все ошибки возвращаются вместе.
func (r *Recorder) RecordAll(ctx context.Context, jobs []replay.Job, bulk int) ([]Result, error) {
	results := make([]Result, 0, len(jobs))

	for _, batch := range Batches(jobs, bulk) {
		if ctx.Err() != nil {
			break
		}

		batchResults := make([]Result, len(batch))
		var g errgroup.Group
		for i, job := range batch {
			g.Go(func() error {
				out, err := r.Record(ctx, job)
				batchResults[i] = Result{Job: job, Output: out, Err: err}
				return nil
			})
		}
		_ = g.Wait()

		results = append(results, batchResults...)
	}

	var errs error
	for _, res := range results {
		if res.Err != nil {
			r.log.Error("Ошибка записи реплея", zap.Stringer("job", res.Job), zap.Error(res.Err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", res.Job, res.Err))
		}
	}
	if err := ctx.Err(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return results, errs
}
