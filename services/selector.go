package services

import (
	"sort"

	"battle-seoul/models"
)

// Proposal is a candidate pair picked by the selector, A/B ordered by id.
type Proposal struct {
	A     models.Contender
	B     models.Contender
	Score float64
}

func (p Proposal) less(o Proposal) bool {
	if p.Score != o.Score {
		return p.Score > o.Score
	}
	if p.A.ID != o.A.ID {
		return p.A.ID < o.A.ID
	}
	return p.B.ID < o.B.ID
}

// Selector ranks same-category pairs and picks a disjoint set of them.
type Selector struct {
	Scorer            *Scorer
	DefaultMaxMatches int
}

func NewSelector(scorer *Scorer, defaultMax int) *Selector {
	if defaultMax <= 0 {
		defaultMax = 3
	}
	return &Selector{Scorer: scorer, DefaultMaxMatches: defaultMax}
}

// SelectCandidates returns at most maxMatches non-overlapping proposals in
// descending score order. A non-empty reason means nothing could be proposed.
func (s *Selector) SelectCandidates(pool map[models.Category][]models.Contender, maxMatches int) ([]Proposal, models.Reason) {
	if maxMatches <= 0 {
		maxMatches = s.DefaultMaxMatches
	}

	total := 0
	for _, list := range pool {
		total += len(list)
	}
	if total < 2 {
		return nil, models.ReasonInsufficientContenders
	}

	// Iterate categories in a fixed order so results do not depend on map order.
	categories := make([]models.Category, 0, len(pool))
	for c := range pool {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	var selected []Proposal
	for _, category := range categories {
		selected = append(selected, s.selectInCategory(category, pool[category], maxMatches)...)
	}

	sort.SliceStable(selected, func(i, j int) bool { return selected[i].less(selected[j]) })
	if len(selected) > maxMatches {
		selected = selected[:maxMatches]
	}
	if len(selected) == 0 {
		return nil, models.ReasonNoValidMatches
	}
	return selected, models.ReasonNone
}

func (s *Selector) selectInCategory(category models.Category, contenders []models.Contender, limit int) []Proposal {
	var candidates []Proposal
	for i := 0; i < len(contenders); i++ {
		for j := i + 1; j < len(contenders); j++ {
			a, b := contenders[i], contenders[j]
			if a.Category != category || b.Category != category {
				continue
			}
			score := s.Scorer.Score(a, b)
			if IsRejected(score) {
				continue
			}
			if b.ID < a.ID {
				a, b = b, a
			}
			candidates = append(candidates, Proposal{A: a, B: b, Score: score})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].less(candidates[j]) })

	used := make(map[string]bool)
	var picked []Proposal
	for _, p := range candidates {
		if len(picked) >= limit {
			break
		}
		if used[p.A.ID] || used[p.B.ID] {
			continue
		}
		used[p.A.ID] = true
		used[p.B.ID] = true
		picked = append(picked, p)
	}
	return picked
}
