package services

import (
	"testing"
	"time"

	"battle-seoul/config"
	"battle-seoul/models"

	"github.com/stretchr/testify/assert"
)

var scoreEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func contender(id, creator string, category models.Category, platform models.Platform) models.Contender {
	return models.Contender{
		ID:        id,
		CreatorID: creator,
		Title:     "contender " + id,
		Category:  category,
		Platform:  platform,
		Status:    models.ContenderAvailable,
		CreatedAt: scoreEpoch,
	}
}

func TestScoreRejectsIneligiblePairs(t *testing.T) {
	s := NewScorer(config.DefaultScoring())
	a := contender("a", "u1", models.CategoryMusic, models.PlatformImage)

	sameCreator := contender("b", "u1", models.CategoryMusic, models.PlatformImage)
	otherCategory := contender("c", "u2", models.CategoryFood, models.PlatformImage)
	matched := contender("d", "u3", models.CategoryMusic, models.PlatformImage)
	matched.Status = models.ContenderMatched

	assert.True(t, IsRejected(s.Score(a, a)))
	assert.True(t, IsRejected(s.Score(a, sameCreator)))
	assert.True(t, IsRejected(s.Score(a, otherCategory)))
	assert.True(t, IsRejected(s.Score(a, matched)))
	assert.True(t, IsRejected(s.Score(matched, a)))
}

func TestScoreIdenticalFreshPairHitsCeiling(t *testing.T) {
	s := NewScorer(config.DefaultScoring())
	a := contender("a", "u1", models.CategoryMusic, models.PlatformImage)
	b := contender("b", "u2", models.CategoryMusic, models.PlatformYouTube)

	// 40 base + 25 recency + 25 balance + 10 platform bonus
	assert.InDelta(t, 100, s.Score(a, b), 1e-9)
}

func TestScoreComponents(t *testing.T) {
	s := NewScorer(config.DefaultScoring())
	a := contender("a", "u1", models.CategoryFashion, models.PlatformImage)
	b := contender("b", "u2", models.CategoryFashion, models.PlatformImage)

	// Half the recency window apart, engagement 10 vs 20.
	b.CreatedAt = a.CreatedAt.Add(36 * time.Hour)
	a.Likes = 5
	a.Views = 50
	b.Likes = 20

	want := 40 + 25*0.5 + 25*0.5
	assert.InDelta(t, want, s.Score(a, b), 1e-9)
	assert.InDelta(t, s.Score(a, b), s.Score(b, a), 1e-9)
}

func TestScoreRecencyFloorsAtZero(t *testing.T) {
	s := NewScorer(config.DefaultScoring())
	a := contender("a", "u1", models.CategoryFood, models.PlatformTikTok)
	b := contender("b", "u2", models.CategoryFood, models.PlatformTikTok)
	b.CreatedAt = a.CreatedAt.Add(-30 * 24 * time.Hour)

	assert.InDelta(t, 65, s.Score(a, b), 1e-9)
}

func TestScoreClampsToRange(t *testing.T) {
	weights := config.DefaultScoring()
	weights.Base = -50
	s := NewScorer(weights)
	a := contender("a", "u1", models.CategoryFood, models.PlatformTikTok)
	b := contender("b", "u2", models.CategoryFood, models.PlatformTikTok)
	b.CreatedAt = a.CreatedAt.Add(-30 * 24 * time.Hour)
	b.Likes = 1000

	assert.Equal(t, 0.0, s.Score(a, b))
}
