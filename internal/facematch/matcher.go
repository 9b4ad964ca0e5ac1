package facematch

import (
	"fmt"
	"math"

	"github.com/nandhiniannika/online-voting/internal/constants"
	"github.com/nandhiniannika/online-voting/internal/database"
)

// Match finds the record nearest to probe by Euclidean distance.
// The minimum is strict, so on equal distances the earliest record wins.
// The result is accepted only when the distance is strictly below threshold.
func Match(probe []float32, records []database.IdentityRecord, threshold float64) (MatchResult, error) {
	if len(records) == 0 {
		return MatchResult{}, ErrNoEnrolledIdentities
	}

	best := MatchResult{Position: -1}
	for i, rec := range records {
		if len(rec.Embedding) != len(probe) {
			return MatchResult{}, fmt.Errorf("%w: probe has %d values, record %d has %d",
				database.ErrDimensionMismatch, len(probe), i, len(rec.Embedding))
		}
		d := EuclideanDistance(probe, rec.Embedding)
		if best.Position < 0 || d < best.Distance {
			best = MatchResult{IdentityKey: rec.IdentityKey, Distance: d, Position: i}
		}
	}
	best.Accepted = best.Distance < threshold
	return best, nil
}

// Matcher applies one threshold and strategy to every comparison.
type Matcher struct {
	Threshold float64
	Strategy  Strategy
}

// NewMatcher returns a matcher, falling back to the default threshold and the
// linear strategy for zero values.
func NewMatcher(threshold float64, strategy Strategy) *Matcher {
	if threshold <= 0 {
		threshold = constants.DefaultDistanceThreshold
	}
	if strategy == "" {
		strategy = StrategyLinear
	}
	return &Matcher{Threshold: threshold, Strategy: strategy}
}

// MatchSnapshot matches probe against a store snapshot.
func (m *Matcher) MatchSnapshot(probe []float32, snap *database.Snapshot) (MatchResult, error) {
	if snap == nil || snap.Len() == 0 {
		return MatchResult{}, ErrNoEnrolledIdentities
	}
	if err := snap.Validate(); err != nil {
		return MatchResult{}, err
	}
	if len(probe) != snap.Dim() {
		return MatchResult{}, fmt.Errorf("%w: probe has %d values, store holds %d",
			database.ErrDimensionMismatch, len(probe), snap.Dim())
	}

	if m.Strategy == StrategyHNSW {
		return m.matchIndexed(probe, snap), nil
	}

	return m.matchLinear(probe, snap), nil
}

func (m *Matcher) matchLinear(probe []float32, snap *database.Snapshot) MatchResult {
	embeddings := snap.Embeddings()
	best := MatchResult{Position: -1}
	for i, emb := range embeddings {
		d := EuclideanDistance(probe, emb)
		if best.Position < 0 || d < best.Distance {
			best = MatchResult{Distance: d, Position: i}
		}
	}
	return m.finish(best, snap)
}

// pruneSlack keeps float rounding from pruning a record that ties the best.
const pruneSlack = 1e-9

// matchIndexed returns exactly what matchLinear returns. Graph candidates only
// seed a distance bound; every record is still visited in order, and one is
// abandoned once its partial squared distance is clearly past the closest
// record seen so far.
func (m *Matcher) matchIndexed(probe []float32, snap *database.Snapshot) MatchResult {
	embeddings := snap.Embeddings()

	bound := math.Inf(1)
	for _, pos := range snap.Index().Search(probe, database.CandidateCount(snap.Len())) {
		if sum, _ := squaredDistanceWithin(probe, embeddings[pos], math.Inf(1)); sum < bound {
			bound = sum
		}
	}

	best := MatchResult{Position: -1}
	for i, emb := range embeddings {
		sum, ok := squaredDistanceWithin(probe, emb, bound*(1+pruneSlack))
		if !ok {
			continue
		}
		d := math.Sqrt(sum)
		if best.Position < 0 || d < best.Distance {
			best = MatchResult{Distance: d, Position: i}
		}
		if sum < bound {
			bound = sum
		}
	}
	return m.finish(best, snap)
}

func (m *Matcher) finish(best MatchResult, snap *database.Snapshot) MatchResult {
	best.IdentityKey = snap.At(best.Position).IdentityKey
	best.Accepted = best.Distance < m.Threshold
	return best
}
