package match

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/manasdutta04/matchwise/internal/types"
)

// BatchMatch scores every candidate against the job on a small worker
// pool and returns the results sorted by total score, highest first.
// Candidates with equal scores keep their input order. When ctx is
// cancelled mid-batch, candidates not yet started are skipped and the
// partial, sorted results are returned along with the context error.
func (s *Scorer) BatchMatch(ctx context.Context, job *types.JobProfile, candidates []*types.CandidateProfile) ([]*types.MatchResult, error) {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(candidates) {
		workers = len(candidates)
	}

	slots := make([]*types.MatchResult, len(candidates))
	indexes := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				slots[i] = s.Score(job, candidates[i])
			}
		}()
	}

feed:
	for i := range candidates {
		select {
		case <-ctx.Done():
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	// Compact in input order so the stable sort has a deterministic base.
	results := make([]*types.MatchResult, 0, len(candidates))
	for _, r := range slots {
		if r != nil {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalScore > results[j].TotalScore
	})
	return results, ctx.Err()
}

// FilterShortlisted keeps only shortlisted results, preserving order.
func FilterShortlisted(results []*types.MatchResult) []*types.MatchResult {
	var out []*types.MatchResult
	for _, r := range results {
		if r.Shortlisted {
			out = append(out, r)
		}
	}
	return out
}
