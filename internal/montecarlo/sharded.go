package montecarlo

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"lsmc/internal/stats"
)

// ModelFactory builds the model for one worker. stream selects the RNG
// stream partition, so no two workers draw correlated variates.
type ModelFactory func(stream uint64) (*Model, error)

// ShardedModel spreads sampling across workers, each owning its own model
// and accumulator. Statistics merges the shards.
type ShardedModel struct {
	shards []*Model
}

// NewShardedModel builds one model per worker, on streams 0..workers-1.
func NewShardedModel(workers int, factory ModelFactory) (*ShardedModel, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: workers %d must be positive", ErrInvalidConfig, workers)
	}
	shards := make([]*Model, workers)
	for i := range shards {
		m, err := factory(uint64(i))
		if err != nil {
			return nil, fmt.Errorf("montecarlo: shard %d: %w", i, err)
		}
		shards[i] = m
	}
	return &ShardedModel{shards: shards}, nil
}

// Workers is the number of shards.
func (s *ShardedModel) Workers() int { return len(s.shards) }

// AddSamples splits n across the shards, the first n%workers shards taking
// one extra sample, and draws them concurrently.
func (s *ShardedModel) AddSamples(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative sample count %d", ErrInvalidConfig, n)
	}
	per, rem := n/len(s.shards), n%len(s.shards)
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range s.shards {
		k := per
		if i < rem {
			k++
		}
		if k == 0 {
			continue
		}
		m := m
		g.Go(func() error { return m.AddSamples(gctx, k) })
	}
	return g.Wait()
}

// Statistics merges the shard accumulators.
func (s *ShardedModel) Statistics() stats.Statistics {
	var out stats.Statistics
	for _, m := range s.shards {
		out = stats.Merge(out, m.Statistics())
	}
	return out
}

// AllowsErrorEstimate reports whether every shard supports a standard error.
func (s *ShardedModel) AllowsErrorEstimate() bool {
	for _, m := range s.shards {
		if !m.AllowsErrorEstimate() {
			return false
		}
	}
	return true
}
