package database

// HNSW index parameters for 128/512-dim face embeddings
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	// Higher values improve recall but slow down search.
	HNSWEfSearch = 100

	// HNSWSearchMultiplier is the factor to request more candidates from HNSW
	// so the seeded bound starts close to the true nearest distance.
	HNSWSearchMultiplier = 3

	// HNSWMinCandidates is the smallest candidate set requested from the graph.
	HNSWMinCandidates = 8
)

// Persisted layout
const (
	// BucketKeys holds the identity key sequence.
	BucketKeys = "keys"

	// BucketEmbeddings holds the embedding sequence, co-indexed with BucketKeys.
	BucketEmbeddings = "embeddings"

	// currentLayoutVersion is written into gob and blob payloads.
	currentLayoutVersion = 1
)
