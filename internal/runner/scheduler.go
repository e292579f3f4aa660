package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Waves splits total requests into consecutive chunks of at most
// concurrency. Only the last chunk may be smaller.
func Waves(total, concurrency int) []int {
	if total <= 0 || concurrency <= 0 {
		return nil
	}
	if concurrency > total {
		concurrency = total
	}

	sizes := make([]int, 0, (total+concurrency-1)/concurrency)
	for start := 0; start < total; start += concurrency {
		sizes = append(sizes, min(concurrency, total-start))
	}
	return sizes
}

// Scheduler drives Total executions with at most Concurrency in flight.
type Scheduler struct {
	Total       int
	Concurrency int
	Mode        Mode

	// OnWave, if set, is called before each wave starts with the
	// 0-based wave index and its size. Pipeline mode reports a single
	// wave covering the whole run.
	OnWave func(index, size int)
}

// Drive calls fn exactly Total times, once per sequence number, and
// returns when every call has returned. Cancelling ctx does not skip
// calls; fn is expected to classify the request as aborted instead.
func (s Scheduler) Drive(ctx context.Context, fn func(ctx context.Context, seq int)) {
	if s.Mode == ModePipeline {
		s.pipeline(ctx, fn)
		return
	}

	seq := 0
	for i, size := range Waves(s.Total, s.Concurrency) {
		if s.OnWave != nil {
			s.OnWave(i, size)
		}

		var g errgroup.Group
		for end := seq + size; seq < end; seq++ {
			n := seq
			g.Go(func() error {
				fn(ctx, n)
				return nil
			})
		}
		_ = g.Wait()
	}
}

func (s Scheduler) pipeline(ctx context.Context, fn func(ctx context.Context, seq int)) {
	if s.Total <= 0 || s.Concurrency <= 0 {
		return
	}
	if s.OnWave != nil {
		s.OnWave(0, s.Total)
	}

	var g errgroup.Group
	g.SetLimit(s.Concurrency)
	for seq := 0; seq < s.Total; seq++ {
		g.Go(func() error {
			fn(ctx, seq)
			return nil
		})
	}
	_ = g.Wait()
}
