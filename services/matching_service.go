package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"battle-seoul/config"
	"battle-seoul/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MatchingResult is the outcome of one matching run.
type MatchingResult struct {
	Success          bool            `json:"success"`
	Reason           models.Reason   `json:"reason,omitempty"`
	MatchesCreated   int             `json:"matchesCreated"`
	MatchingScores   []float64       `json:"matchingScores,omitempty"`
	Battles          []models.Battle `json:"battles,omitempty"`
	Skipped          int             `json:"skipped"`
	NextMatchingTime *time.Time      `json:"nextMatchingTime,omitempty"`
}

type MatchingStatistics struct {
	TotalAvailableContenders int64                     `json:"totalAvailableContenders"`
	CooldownRemainingSeconds int64                     `json:"cooldownRemaining"`
	CategoryDistribution     map[models.Category]int64 `json:"categoryDistribution"`
	LastRunAt                *time.Time                `json:"lastRunAt,omitempty"`
	NextMatchingTime         *time.Time                `json:"nextMatchingTime,omitempty"`
}

// MatchingService turns available contenders into battles.
type MatchingService struct {
	DB         *gorm.DB
	Contenders *ContenderStore
	Battles    *BattleStore
	Cooldowns  *CooldownStore
	Scorer     *Scorer
	Selector   *Selector
	Config     config.MatchingConfig
	Clock      clockwork.Clock
	Logger     *zap.Logger
}

func NewMatchingService(db *gorm.DB, cfg config.MatchingConfig, scoring config.ScoringConfig, clock clockwork.Clock, logger *zap.Logger) *MatchingService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	scorer := NewScorer(scoring)
	return &MatchingService{
		DB:         db,
		Contenders: NewContenderStore(db),
		Battles:    NewBattleStore(db),
		Cooldowns:  NewCooldownStore(db),
		Scorer:     scorer,
		Selector:   NewSelector(scorer, cfg.DefaultMaxMatches),
		Config:     cfg,
		Clock:      clock,
		Logger:     logger.Named("matching"),
	}
}

// FindAndCreateRandomBattle runs a regular, cooldown-respecting matching pass.
func (s *MatchingService) FindAndCreateRandomBattle(ctx context.Context) (*MatchingResult, error) {
	return s.RunSmartMatching(ctx, s.Config.DefaultMaxMatches, false)
}

// ExecuteForceMatching runs matching regardless of the cooldown.
func (s *MatchingService) ExecuteForceMatching(ctx context.Context, maxMatches int) (*MatchingResult, error) {
	return s.RunSmartMatching(ctx, maxMatches, true)
}

// RunSmartMatching selects up to maxMatches pairs and commits each one in its own
// transaction. A pair whose contenders were consumed concurrently is skipped.
// An error is returned only when no pair could be committed and at least one
// failed for a reason other than staleness.
func (s *MatchingService) RunSmartMatching(ctx context.Context, maxMatches int, force bool) (*MatchingResult, error) {
	now := s.Clock.Now()

	// A non-forced run claims the cooldown slot up front so concurrent runs
	// cannot both pass the check. The claim is released if nothing is committed.
	claimed := false
	var prevRun *time.Time
	if !force {
		ok, prev, err := s.Cooldowns.ClaimMatchingRun(ctx, now, s.Config.Cooldown)
		if err != nil {
			return nil, err
		}
		if !ok {
			var next *time.Time
			if prev != nil {
				t := prev.Add(s.Config.Cooldown)
				next = &t
			}
			s.Logger.Debug("matching skipped during cooldown", zap.Timep("next_matching_time", next))
			return &MatchingResult{Reason: models.ReasonCooldown, NextMatchingTime: next}, nil
		}
		claimed, prevRun = true, prev
	}

	result, err := s.runClaimed(ctx, maxMatches, force)
	if claimed && (err != nil || !result.Success) {
		if rerr := s.Cooldowns.ReleaseMatchingRun(ctx, now, prevRun); rerr != nil {
			s.Logger.Error("failed to release matching claim", zap.Error(rerr))
		}
	}
	return result, err
}

func (s *MatchingService) runClaimed(ctx context.Context, maxMatches int, force bool) (*MatchingResult, error) {
	pool, err := s.Contenders.AvailablePool(ctx)
	if err != nil {
		return nil, err
	}

	proposals, reason := s.Selector.SelectCandidates(pool, maxMatches)
	if reason != models.ReasonNone {
		s.Logger.Info("matching produced no proposals", zap.String("reason", string(reason)))
		return &MatchingResult{Reason: reason}, nil
	}

	result := &MatchingResult{}
	var failures []error
	for _, p := range proposals {
		score := p.Score
		battle, err := s.commitPair(ctx, p.A, p.B, models.MatchingSmart, &score, "")
		switch {
		case errors.Is(err, ErrContenderUnavailable):
			result.Skipped++
			s.Logger.Info("pair skipped, contender already matched",
				zap.String("contender_a", p.A.ID), zap.String("contender_b", p.B.ID))
		case err != nil:
			failures = append(failures, err)
			s.Logger.Error("pair commit failed",
				zap.String("contender_a", p.A.ID), zap.String("contender_b", p.B.ID), zap.Error(err))
		default:
			result.Battles = append(result.Battles, *battle)
			result.MatchingScores = append(result.MatchingScores, score)
		}
	}
	result.MatchesCreated = len(result.Battles)

	if result.MatchesCreated == 0 {
		if len(failures) > 0 {
			return nil, fmt.Errorf("matching run committed no battles: %w", errors.Join(failures...))
		}
		result.Reason = models.ReasonNoValidMatches
		return result, nil
	}

	result.Success = true
	if force {
		if err := s.Cooldowns.SetLastMatchingRun(ctx, s.Clock.Now()); err != nil {
			s.Logger.Error("failed to record matching run", zap.Error(err))
		}
	}
	s.Logger.Info("matching run committed battles",
		zap.Int("matches_created", result.MatchesCreated),
		zap.Int("skipped", result.Skipped),
		zap.Bool("forced", force))
	return result, nil
}

// CreateManualBattle pairs two contenders chosen by a user who owns one of them.
func (s *MatchingService) CreateManualBattle(ctx context.Context, requesterID, contenderAID, contenderBID string) (*models.Battle, error) {
	if requesterID == "" || contenderAID == "" || contenderBID == "" {
		return nil, fmt.Errorf("%w: requester and both contenders are required", ErrInvalidInput)
	}
	if contenderAID == contenderBID {
		return nil, fmt.Errorf("%w: a contender cannot battle itself", ErrInvalidInput)
	}

	found, err := s.Contenders.GetContenders(ctx, contenderAID, contenderBID)
	if err != nil {
		return nil, err
	}
	a, okA := found[contenderAID]
	b, okB := found[contenderBID]
	if !okA || !okB {
		return nil, ErrContenderNotFound
	}
	if a.CreatorID != requesterID && b.CreatorID != requesterID {
		return nil, fmt.Errorf("%w: requester owns neither contender", ErrForbidden)
	}
	if a.Category != b.Category {
		return nil, fmt.Errorf("%w: contenders are in different categories", ErrInvalidInput)
	}
	if a.CreatorID == b.CreatorID {
		return nil, fmt.Errorf("%w: contenders share a creator", ErrInvalidInput)
	}
	if !a.IsAvailable() || !b.IsAvailable() {
		return nil, ErrContenderUnavailable
	}

	score := s.Scorer.Score(a, b)
	battle, err := s.commitPair(ctx, a, b, models.MatchingManual, &score, requesterID)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("manual battle created", zap.String("battle_id", battle.ID), zap.String("requester", requesterID))
	return battle, nil
}

// commitPair re-reads both contenders inside one transaction, flips them to
// matched and creates the battle. ErrContenderUnavailable means the pair went stale.
func (s *MatchingService) commitPair(ctx context.Context, a, b models.Contender, method models.MatchingMethod, score *float64, createdBy string) (*models.Battle, error) {
	var battle *models.Battle
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contenders := s.Contenders.WithTx(tx)

		fresh, err := contenders.GetContenders(ctx, a.ID, b.ID)
		if err != nil {
			return err
		}
		fa, okA := fresh[a.ID]
		fb, okB := fresh[b.ID]
		if !okA || !okB || !fa.IsAvailable() || !fb.IsAvailable() {
			return ErrContenderUnavailable
		}

		if err := contenders.MarkMatched(ctx, fa.ID, fb.ID); err != nil {
			return err
		}

		battle = s.newBattle(fa, fb, method, score, createdBy)
		return s.Battles.WithTx(tx).CreateBattle(ctx, battle)
	})
	if err != nil {
		return nil, err
	}
	return battle, nil
}

func (s *MatchingService) newBattle(a, b models.Contender, method models.MatchingMethod, score *float64, createdBy string) *models.Battle {
	now := s.Clock.Now()
	id := uuid.NewString()
	return &models.Battle{
		ID:             id,
		Slug:           slug.Make(a.Title+" vs "+b.Title) + "-" + id[:8],
		Category:       a.Category,
		ItemA:          snapshot(a),
		ItemB:          snapshot(b),
		CurrentLeader:  models.Leader{Winner: models.LeaderTie},
		Status:         models.BattleActive,
		MatchingMethod: method,
		MatchingScore:  score,
		CreatedBy:      createdBy,
		EndsAt:         now.Add(s.Config.BattleDuration),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func snapshot(c models.Contender) models.BattleSide {
	return models.BattleSide{
		ContenderID: c.ID,
		CreatorID:   c.CreatorID,
		Title:       c.Title,
		Category:    c.Category,
		Platform:    c.Platform,
		Media:       c.Media,
	}
}

// GetMatchingStatistics summarizes the available pool and cooldown state.
func (s *MatchingService) GetMatchingStatistics(ctx context.Context) (*MatchingStatistics, error) {
	dist, err := s.Contenders.CountAvailableByCategory(ctx)
	if err != nil {
		return nil, err
	}
	last, err := s.Cooldowns.GetLastMatchingRun(ctx)
	if err != nil {
		return nil, err
	}

	stats := &MatchingStatistics{CategoryDistribution: dist, LastRunAt: last}
	for _, n := range dist {
		stats.TotalAvailableContenders += n
	}
	if last != nil {
		next := last.Add(s.Config.Cooldown)
		stats.NextMatchingTime = &next
		if remaining := next.Sub(s.Clock.Now()); remaining > 0 {
			stats.CooldownRemainingSeconds = int64(remaining.Round(time.Second) / time.Second)
		}
	}
	return stats, nil
}

// ExpireBattles persists the ended status for battles past their end time.
func (s *MatchingService) ExpireBattles(ctx context.Context) (int64, error) {
	n, err := s.Battles.ExpireBattles(ctx, s.Clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Logger.Info("battles ended", zap.Int64("count", n))
	}
	return n, nil
}
