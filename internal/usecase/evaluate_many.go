package usecase

import (
	"context"
	"sync"

	"RegimeGuard/internal/domain/models"
)

// BatchResult keeps input order for the evaluations that succeeded.
type BatchResult struct {
	Evaluations []*models.Evaluation `json:"evaluations"`
	Errors      map[string]string    `json:"errors,omitempty"`
}

// EvaluateMany evaluates symbols on a bounded worker pool. A failing symbol
// is reported in Errors and does not stop the others.
func (uc *Evaluator) EvaluateMany(ctx context.Context, symbols []string, opts EvaluateOptions) *BatchResult {
	type job struct {
		idx int
		raw string
	}
	type item struct {
		idx int
		raw string
		ev  *models.Evaluation
		err error
	}

	workers := uc.cfg.Workers
	if workers > len(symbols) {
		workers = len(symbols)
	}

	jobs := make(chan job)
	ch := make(chan item, len(symbols))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				ev, err := uc.Evaluate(ctx, j.raw, opts)
				ch <- item{j.idx, j.raw, ev, err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, s := range symbols {
			select {
			case jobs <- job{i, s}:
			case <-ctx.Done():
				for _, rest := range symbols[i:] {
					ch <- item{raw: rest, err: ctx.Err()}
				}
				return
			}
		}
	}()

	go func() { wg.Wait(); close(ch) }()

	ordered := make([]*models.Evaluation, len(symbols))
	res := &BatchResult{Errors: map[string]string{}}
	for it := range ch {
		if it.err != nil {
			res.Errors[it.raw] = it.err.Error()
			continue
		}
		ordered[it.idx] = it.ev
	}

	res.Evaluations = make([]*models.Evaluation, 0, len(symbols))
	for _, ev := range ordered {
		if ev != nil {
			res.Evaluations = append(res.Evaluations, ev)
		}
	}
	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res
}
