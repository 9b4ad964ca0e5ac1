package database

import (
	"github.com/coder/hnsw"
)

// IdentityIndex wraps an HNSW graph over a snapshot's embeddings.
// Node keys are record positions in the snapshot.
type IdentityIndex struct {
	graph *hnsw.Graph[int]
	count int
}

// BuildIdentityIndex builds a Euclidean HNSW graph from co-indexed embeddings.
// The embeddings must share one dimension.
func BuildIdentityIndex(embeddings [][]float32) *IdentityIndex {
	idx := &IdentityIndex{count: len(embeddings)}
	if len(embeddings) == 0 {
		return idx
	}

	g := hnsw.NewGraph[int]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance

	for i, emb := range embeddings {
		g.Add(hnsw.MakeNode(i, emb))
	}

	idx.graph = g
	return idx
}

// Search returns up to k candidate positions near query, in graph order.
// Results are approximate; callers must not treat them as the exact nearest.
func (h *IdentityIndex) Search(query []float32, k int) []int {
	if h.graph == nil || k <= 0 {
		return nil
	}
	if k > h.count {
		k = h.count
	}

	neighbors := h.graph.Search(query, k)
	positions := make([]int, len(neighbors))
	for i, n := range neighbors {
		positions[i] = n.Key
	}
	return positions
}

// Count returns the number of indexed records.
func (h *IdentityIndex) Count() int {
	return h.count
}

// CandidateCount returns how many graph candidates to request for seeding a
// nearest-record bound.
func CandidateCount(total int) int {
	k := HNSWMinCandidates * HNSWSearchMultiplier
	if k > total {
		k = total
	}
	return k
}
