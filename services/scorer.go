package services

import (
	"math"

	"battle-seoul/config"
	"battle-seoul/models"
)

// Rejected is the score of a pair that must never be selected.
var Rejected = math.Inf(-1)

// Scorer rates how good a battle two contenders would make. It is pure and safe
// for concurrent use.
type Scorer struct {
	Weights config.ScoringConfig
}

func NewScorer(weights config.ScoringConfig) *Scorer {
	if weights.ViewsPerLike <= 0 {
		weights.ViewsPerLike = 10
	}
	return &Scorer{Weights: weights}
}

// IsRejected reports whether a score marks an ineligible pair.
func IsRejected(score float64) bool {
	return math.IsInf(score, -1)
}

// Score returns a value in [0, 100], or Rejected for same contender, same creator,
// cross-category pairs and pairs containing an unavailable contender.
func (s *Scorer) Score(a, b models.Contender) float64 {
	if a.ID == b.ID || a.CreatorID == b.CreatorID || a.Category != b.Category {
		return Rejected
	}
	if !a.IsAvailable() || !b.IsAvailable() {
		return Rejected
	}

	w := s.Weights
	score := w.Base +
		w.Recency*s.recency(a, b) +
		w.Engagement*s.balance(a, b)
	if a.Platform != b.Platform {
		score += w.PlatformBonus
	}
	return math.Max(0, math.Min(100, score))
}

func (s *Scorer) recency(a, b models.Contender) float64 {
	window := s.Weights.RecencyWindow
	if window <= 0 {
		return 0
	}
	gap := a.CreatedAt.Sub(b.CreatedAt)
	if gap < 0 {
		gap = -gap
	}
	return 1 - math.Min(float64(gap)/float64(window), 1)
}

func (s *Scorer) engagement(c models.Contender) float64 {
	return float64(c.Likes) + float64(c.Views)/s.Weights.ViewsPerLike
}

func (s *Scorer) balance(a, b models.Contender) float64 {
	ea, eb := s.engagement(a), s.engagement(b)
	denom := math.Max(math.Max(ea, eb), 1)
	return 1 - math.Abs(ea-eb)/denom
}
