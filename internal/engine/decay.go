package engine

import (
	"math"
	"time"

	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/store"
)

// Decay lowers the relevance of stale nodes.
//
// Algorithm:
//   - age is whole days since last_updated, floored
//   - at StaleDays or older, relevance *= (100 - Percent) / 100, floor 0
//   - applied once per optimize run and not remembered, so a node that stays
//     stale keeps decaying on every run
//   - nodes with a missing or unparseable last_updated are left alone
type Decay struct {
	StaleDays int
	Percent   float64
}

// Apply decays n in place if it is stale. It reports whether the relevance
// changed; the error is non-nil only when last_updated cannot be read.
func (d Decay) Apply(n *store.Node, now time.Time) (bool, error) {
	updated, err := n.LastUpdatedTime()
	if err != nil {
		return false, err
	}
	if AgeDays(updated, now) < d.StaleDays {
		return false, nil
	}
	next := math.Max(0, n.RelevanceScore*(100-d.Percent)/100)
	if next == n.RelevanceScore {
		return false, nil
	}
	n.RelevanceScore = next
	return true, nil
}

// AgeDays is the number of whole days from then to now. Future timestamps
// give a negative age.
func AgeDays(then, now time.Time) int {
	return int(math.Floor(now.Sub(then).Hours() / 24))
}
