package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"scrivo/internal/logging"
)

// batchScale is the per-item progress resolution used for the combined
// batch progress value.
const batchScale = 100

// BatchOptions adjust a batch run. Per-item behavior comes from the
// embedded ProcessOptions; its Progress callback receives batch-level
// stage labels and the combined progress value.
type BatchOptions struct {
	ProcessOptions

	// MaxWorkers bounds the worker pool. Zero falls back to configuration.
	MaxWorkers int
	// Parallel processes items concurrently when more than one is given.
	Parallel bool
	// ContinueOnError keeps the batch running when an item fails.
	ContinueOnError bool
}

// BatchDefaults returns batch options seeded from the configuration.
func (p *Processor) BatchDefaults() BatchOptions {
	return BatchOptions{
		MaxWorkers:      p.cfg.Batch.MaxWorkers,
		Parallel:        p.cfg.Batch.Parallel,
		ContinueOnError: p.cfg.Batch.ContinueOnError,
	}
}

// ProcessAll runs every input through Process, in parallel when enabled.
//
// The first return value maps every attempted input to its outcome, with nil
// recorded for failures; the second maps failed inputs to their errors. With
// ContinueOnError set, item failures never stop the batch and the returned
// error reflects only batch-level conditions such as cancellation. Without
// it, the first failure cancels the remaining work and is returned wrapped
// with the offending input.
func (p *Processor) ProcessAll(ctx context.Context, inputs []string, opts BatchOptions) (map[string]*Outcome, map[string]error, error) {
	results := make(map[string]*Outcome, len(inputs))
	failures := make(map[string]error)
	if len(inputs) == 0 {
		return results, failures, nil
	}

	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = p.cfg.Batch.MaxWorkers
	}
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	logger := logging.WithContext(ctx, p.logger)
	logger.Info("starting batch",
		logging.Int("inputs", len(inputs)),
		logging.Bool("parallel", opts.Parallel && len(inputs) > 1),
		logging.Int("max_workers", maxWorkers))

	var mu sync.Mutex
	record := func(input string, outcome *Outcome, err error) {
		mu.Lock()
		if err != nil {
			results[input] = nil
			failures[input] = err
		} else {
			results[input] = outcome
		}
		mu.Unlock()
	}

	runOne := func(runCtx context.Context, index int, input string) error {
		itemOpts := opts.ProcessOptions
		itemOpts.Progress = p.batchProgress(opts.Progress, index, len(inputs))
		outcome, err := p.Process(runCtx, input, itemOpts)
		record(input, outcome, err)
		if err != nil && !opts.ContinueOnError {
			return fmt.Errorf("input %q: %w", input, err)
		}
		return nil
	}

	if opts.Parallel && len(inputs) > 1 {
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(maxWorkers)
		for index, input := range inputs {
			if err := p.checkCancelled(groupCtx, "batch"); err != nil {
				break
			}
			group.Go(func() error {
				return runOne(groupCtx, index, input)
			})
		}
		groupErr := group.Wait()
		if err := p.token.Err(); err != nil {
			return results, failures, err
		}
		if groupErr != nil {
			return results, failures, groupErr
		}
	} else {
		for index, input := range inputs {
			if err := p.checkCancelled(ctx, "batch"); err != nil {
				return results, failures, err
			}
			if err := runOne(ctx, index, input); err != nil {
				return results, failures, err
			}
		}
		if err := p.token.Err(); err != nil {
			return results, failures, err
		}
	}

	logger.Info("batch finished",
		logging.Int("succeeded", len(results)-len(failures)),
		logging.Int("failed", len(failures)))
	return results, failures, nil
}

// batchProgress wraps the caller's callback so per-item progress (index,
// fraction) becomes a combined value index+fraction out of the input count.
func (p *Processor) batchProgress(progress ProgressFunc, index, count int) ProgressFunc {
	if progress == nil {
		return nil
	}
	return func(stage string, current, total int) {
		fraction := 0.0
		if total > 0 {
			fraction = float64(current) / float64(total)
		}
		if fraction > 1 {
			fraction = 1
		}
		overall := index*batchScale + int(fraction*batchScale)
		label := fmt.Sprintf("file %d/%d: %s", index+1, count, stage)
		progress(label, overall, count*batchScale)
	}
}
