// Package facematch decides which enrolled identity a face embedding belongs to.
// The matcher is shared by the verification session, the single-image check
// and the enrollment duplicate report.
package facematch

import "errors"

// ErrNoEnrolledIdentities is returned when matching against an empty store.
var ErrNoEnrolledIdentities = errors.New("no enrolled identities")

// Strategy selects how the nearest record is found
type Strategy string

const (
	StrategyLinear Strategy = "linear" // exact scan over every record
	StrategyHNSW   Strategy = "hnsw"   // exact scan pruned by a graph-seeded bound
)

// MatchResult is the nearest enrolled record for one probe embedding.
type MatchResult struct {
	IdentityKey string  `json:"identity_key"`
	Distance    float64 `json:"distance"`
	Accepted    bool    `json:"accepted"` // Distance < threshold
	Position    int     `json:"-"`        // record position in the snapshot
}
