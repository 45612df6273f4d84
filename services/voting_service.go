package services

import (
	"context"
	"errors"
	"fmt"

	"battle-seoul/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultVoteRetries bounds how often a vote is retried after a version conflict.
const DefaultVoteRetries = 3

// VoteResult is the outcome of CastVote. Reason is set when Success is false.
type VoteResult struct {
	Success      bool           `json:"success"`
	Reason       models.Reason  `json:"reason,omitempty"`
	Battle       *models.Battle `json:"battle,omitempty"`
	PreviousSide models.Side    `json:"previousSide,omitempty"`
	Reward       *RewardEvent   `json:"reward,omitempty"`
}

type VotingService struct {
	DB         *gorm.DB
	Battles    *BattleStore
	Rewards    RewardSink
	VotePoints int64
	MaxRetries int
	Clock      clockwork.Clock
	Logger     *zap.Logger
}

func NewVotingService(db *gorm.DB, rewards RewardSink, votePoints int64, clock clockwork.Clock, logger *zap.Logger) *VotingService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if votePoints <= 0 {
		votePoints = 10
	}
	return &VotingService{
		DB:         db,
		Battles:    NewBattleStore(db),
		Rewards:    rewards,
		VotePoints: votePoints,
		MaxRetries: DefaultVoteRetries,
		Clock:      clock,
		Logger:     logger.Named("voting"),
	}
}

// CastVote records voterID's choice of side on a battle. Expected refusals
// (battle_not_found, battle_ended, already_voted) come back as a result with a
// reason, not as an error.
func (s *VotingService) CastVote(ctx context.Context, battleID string, side models.Side, voterID string) (*VoteResult, error) {
	if !side.Valid() {
		return nil, ErrInvalidSide
	}
	if battleID == "" || voterID == "" {
		return nil, fmt.Errorf("%w: battle and voter are required", ErrInvalidInput)
	}

	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		result, err := s.castOnce(ctx, battleID, side, voterID)
		switch {
		case errors.Is(err, ErrVersionConflict):
			s.Logger.Debug("vote version conflict, retrying",
				zap.String("battle_id", battleID), zap.Int("attempt", attempt+1))
			continue
		case errors.Is(err, ErrAlreadyVoted):
			return s.alreadyVoted(ctx, battleID, voterID)
		case err != nil:
			return nil, err
		}

		if result.Success {
			s.deliverReward(ctx, result.Reward)
		}
		return result, nil
	}
	return nil, fmt.Errorf("cast vote on %s: %w", battleID, ErrVersionConflict)
}

func (s *VotingService) castOnce(ctx context.Context, battleID string, side models.Side, voterID string) (*VoteResult, error) {
	var result *VoteResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		battles := s.Battles.WithTx(tx)

		battle, err := battles.GetBattle(ctx, battleID)
		if errors.Is(err, ErrBattleNotFound) {
			result = &VoteResult{Reason: models.ReasonBattleNotFound}
			return nil
		}
		if err != nil {
			return err
		}

		now := s.Clock.Now()
		if battle.Status == models.BattleEnded || battle.StatusAt(now) == models.BattleEnded {
			result = &VoteResult{Reason: models.ReasonBattleEnded, Battle: battle}
			return nil
		}

		prior, err := battles.FindVote(ctx, battleID, voterID)
		if err != nil {
			return err
		}
		if prior != nil {
			result = &VoteResult{Reason: models.ReasonAlreadyVoted, Battle: battle, PreviousSide: prior.Side}
			return nil
		}

		battle.Side(side).Votes++
		battle.TotalVotes++
		battle.RecomputeLeader()
		if err := battles.UpdateTallies(ctx, battle); err != nil {
			return err
		}

		vote := &models.BattleVote{
			ID:        uuid.NewString(),
			BattleID:  battleID,
			VoterID:   voterID,
			Side:      side,
			CreatedAt: now,
		}
		if err := battles.InsertVote(ctx, vote); err != nil {
			return err
		}

		result = &VoteResult{
			Success: true,
			Battle:  battle,
			Reward: &RewardEvent{
				UserID:      voterID,
				Points:      s.VotePoints,
				Reason:      RewardBattleVote,
				ReferenceID: battleID,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// alreadyVoted answers a vote that lost the unique-index race to a concurrent one.
func (s *VotingService) alreadyVoted(ctx context.Context, battleID, voterID string) (*VoteResult, error) {
	result := &VoteResult{Reason: models.ReasonAlreadyVoted}
	if prior, err := s.Battles.FindVote(ctx, battleID, voterID); err == nil && prior != nil {
		result.PreviousSide = prior.Side
	}
	if battle, err := s.Battles.GetBattle(ctx, battleID); err == nil {
		result.Battle = battle
	}
	return result, nil
}

func (s *VotingService) deliverReward(ctx context.Context, ev *RewardEvent) {
	if ev == nil || s.Rewards == nil {
		return
	}
	if err := s.Rewards.DeliverReward(ctx, *ev); err != nil {
		s.Logger.Warn("reward delivery failed",
			zap.String("user_id", ev.UserID), zap.String("reference_id", ev.ReferenceID), zap.Error(err))
	}
}

// GetBattle returns a battle with its participants and a status derived from the clock.
func (s *VotingService) GetBattle(ctx context.Context, battleID string) (*models.Battle, error) {
	battle, err := s.Battles.GetBattleWithParticipants(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if battle.Status != models.BattleEnded {
		battle.Status = battle.StatusAt(s.Clock.Now())
	}
	return battle, nil
}

// ListBattles lists battles with their status judged against the clock.
func (s *VotingService) ListBattles(ctx context.Context, category models.Category, status models.BattleStatus, limit int) ([]models.Battle, error) {
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
	}
	if status != "" && status != models.BattleActive && status != models.BattleEnded {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.Battles.ListBattles(ctx, category, status, limit, s.Clock.Now())
}
