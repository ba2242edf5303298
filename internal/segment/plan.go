package segment

import (
	"math"
	"sort"

	"voice-memos-go/internal/types"
)

// cutEpsilon is the distance under which two cut points are the same cut.
const cutEpsilon = 1e-3

// PlanSplits picks exactly ceil(size/maxChunkBytes)-1 cut points (seconds)
// that should bring every segment of asset under maxChunkBytes. It prefers
// the midpoints of the longest silences; when there are not enough of them,
// the evenly spaced cuts farthest from the chosen silences fill the gap. The
// result is ascending, deduplicated and strictly inside (0, asset.Duration).
// An asset that already fits yields no cuts.
func PlanSplits(asset types.AudioAsset, silences []types.SilenceInterval, maxChunkBytes int64) []float64 {
	if maxChunkBytes <= 0 || asset.Size <= maxChunkBytes {
		return nil
	}
	needed := int(math.Ceil(float64(asset.Size) / float64(maxChunkBytes)))
	if needed <= 1 {
		return nil
	}
	want := needed - 1

	ranked := append([]types.SilenceInterval(nil), silences...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Duration > ranked[j].Duration
	})
	if len(ranked) > want {
		ranked = ranked[:want]
	}

	cuts := make([]float64, 0, want)
	for _, s := range ranked {
		cuts = append(cuts, s.Midpoint())
	}
	cuts = cleanCuts(cuts, asset.Duration)

	if missing := want - len(cuts); missing > 0 && asset.Duration > 0 {
		even := make([]float64, 0, want)
		for i := 1; i < needed; i++ {
			even = append(even, float64(i)*asset.Duration/float64(needed))
		}
		cuts = append(cuts, farthestCuts(even, cuts, missing)...)
		sort.Float64s(cuts)
	}
	return cuts
}

// cleanCuts sorts cuts, drops those outside (0, duration) and merges cuts
// closer than cutEpsilon. A zero duration leaves the upper bound open.
func cleanCuts(cuts []float64, duration float64) []float64 {
	sort.Float64s(cuts)
	out := cuts[:0]
	for _, c := range cuts {
		if c <= 0 || (duration > 0 && c >= duration) {
			continue
		}
		if len(out) > 0 && c-out[len(out)-1] < cutEpsilon {
			continue
		}
		out = append(out, c)
	}
	return out
}

// farthestCuts greedily takes n candidates, each time the one farthest from
// everything taken so far. Ties go to the earlier candidate. Candidates
// within cutEpsilon of a taken cut are never taken.
func farthestCuts(candidates, taken []float64, n int) []float64 {
	used := make([]bool, len(candidates))
	chosen := append([]float64(nil), taken...)
	var picked []float64
	for len(picked) < n {
		best, bestDist := -1, -1.0
		for i, c := range candidates {
			if used[i] {
				continue
			}
			d := math.Inf(1)
			for _, t := range chosen {
				d = math.Min(d, math.Abs(c-t))
			}
			if d < cutEpsilon {
				used[i] = true
				continue
			}
			if d > bestDist {
				best, bestDist = i, d
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		chosen = append(chosen, candidates[best])
		picked = append(picked, candidates[best])
	}
	return picked
}

// fixedChunkSeconds sizes fixed-duration chunks at 80% of the ceiling to
// leave room for encoder variance.
func fixedChunkSeconds(asset types.AudioAsset, maxChunkBytes int64) (secondsPerChunk float64, numChunks int) {
	bytesPerSecond := float64(asset.Size) / asset.Duration
	secondsPerChunk = math.Floor(0.8 * float64(maxChunkBytes) / bytesPerSecond)
	if secondsPerChunk < 1 {
		secondsPerChunk = 1
	}
	numChunks = int(math.Ceil(asset.Duration / secondsPerChunk))
	return secondsPerChunk, numChunks
}
