// Package scheduler drives the merge loop (§4.6): repeatedly selecting the
// globally maximum-potential live pair, merging it, emitting a record, and
// refreshing the best-partner index, until one region remains.
package scheduler

import (
	"context"
	"time"

	"github.com/jimspencer/spidermap/internal/bestpartner"
	"github.com/jimspencer/spidermap/internal/cache"
	"github.com/jimspencer/spidermap/internal/clustererr"
	"github.com/jimspencer/spidermap/internal/emit"
	"github.com/jimspencer/spidermap/internal/logger"
	"github.com/jimspencer/spidermap/internal/metrics"
	"github.com/jimspencer/spidermap/internal/potential"
	"github.com/jimspencer/spidermap/internal/region"
)

// logCadence is how often progress is logged, matching this codebase's
// established batch-progress convention.
const logCadence = 1000

// Scheduler owns the live arena, the cache, the potential evaluator, and
// drives merges to completion against an emit.Writer.
type Scheduler struct {
	Arena     *region.Arena
	Eval      *potential.Evaluator
	Cache     cache.Cache
	Threshold float64
	MaxRecord int // 0 means unlimited

	// ParallelInit enables the optional worker-pool seeding pass (§5)
	// instead of the sequential triangular scan. InitWorkers <= 0 uses
	// runtime.GOMAXPROCS(0).
	ParallelInit bool
	InitWorkers  int
}

// New constructs a Scheduler over an already-populated arena (one
// singleton per ingested point) with a given potential kernel, cache
// backend, and size threshold.
func New(ar *region.Arena, eval *potential.Evaluator, c cache.Cache, threshold float64) *Scheduler {
	return &Scheduler{Arena: ar, Eval: eval, Cache: c, Threshold: threshold}
}

// Run drives the merge loop to completion, writing one record per merge to
// w. It returns the number of records emitted. ctx is checked between
// iterations only; an in-flight merge is never interrupted mid-step, per
// the cancellation policy in §5.
func (s *Scheduler) Run(ctx context.Context, w *emit.Writer) (int, error) {
	start := time.Now()
	if s.ParallelInit {
		bestpartner.InitializeParallel(s.Arena, s.Eval, s.Cache, s.Threshold, s.InitWorkers)
	} else {
		bestpartner.Initialize(s.Arena, s.Eval, s.Cache, s.Threshold)
	}

	for s.Arena.LiveCount() > 1 {
		if err := ctx.Err(); err != nil {
			return w.Seq(), clustererr.Wrap(clustererr.IO, "scheduler.Run", err)
		}
		if s.MaxRecord > 0 && w.Seq() >= s.MaxRecord {
			break
		}

		bestIdx, bestJdx, err := s.selectBestPair()
		if err != nil {
			return w.Seq(), err
		}

		a := s.Arena.Get(bestIdx)
		b := s.Arena.Get(bestJdx)
		if a.N < b.N {
			a, b = b, a
			bestIdx, bestJdx = bestJdx, bestIdx
		}

		if err := w.Record(a, b); err != nil {
			return w.Seq(), err
		}

		merged := region.Merge(a, b)
		mIdx := s.Arena.Add(merged)
		s.Arena.Retire(bestIdx)
		s.Arena.Retire(bestJdx)

		// bestpartner.RefreshAfterMerge tombstones every surviving
		// region's cache entry against a and b as it consumes the cache
		// shortcut, so no separate sweep is needed here; doing one first
		// would destroy the additive shortcut before it can be read.
		bestpartner.RefreshAfterMerge(s.Arena, s.Eval, s.Cache, s.Threshold, mIdx, bestIdx, bestJdx)

		metrics.MergesTotal.Inc()
		if w.Seq()%logCadence == 0 {
			logger.L().Info("merge_progress",
				"merges", w.Seq(),
				"live", s.Arena.LiveCount(),
				"cache_len", s.Cache.Len(),
			)
		}
	}

	if err := w.Flush(); err != nil {
		return w.Seq(), err
	}
	metrics.MergeDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	return w.Seq(), nil
}

// selectBestPair scans all live regions and returns the slot pair with the
// globally maximum best-partner potential, per §4.6 step 1. Ties are
// resolved by keeping the first-encountered pair in live-set iteration
// order, since Each walks the arena's stable insertion-order slice.
func (s *Scheduler) selectBestPair() (int, int, error) {
	bestIdx := region.NoPartner
	var bestPot float64 = -1

	s.Arena.Each(func(idx int, r *region.Region) bool {
		if r.BestPartner == region.NoPartner {
			return true
		}
		if r.BestPot > bestPot {
			bestPot = r.BestPot
			bestIdx = idx
		}
		return true
	})

	if bestIdx == region.NoPartner {
		return 0, 0, clustererr.New(clustererr.Invariant, "scheduler.selectBestPair", "no region has a live best partner while more than one region remains")
	}

	partner := s.Arena.Get(bestIdx).BestPartner
	if !s.Arena.IsLive(partner) {
		return 0, 0, clustererr.New(clustererr.Invariant, "scheduler.selectBestPair", "selected best partner is not live")
	}
	return bestIdx, partner, nil
}
