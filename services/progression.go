package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"battle-seoul/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger reasons.
const (
	RewardBattleVote = "battle_vote"
	RewardAdminGrant = "admin_grant"
)

// RewardEvent is emitted by the voting engine for the points ledger.
type RewardEvent struct {
	UserID      string `json:"userId"`
	Points      int64  `json:"points"`
	Reason      string `json:"reason"`
	ReferenceID string `json:"referenceId,omitempty"`
}

// RewardSink receives reward events after the vote that earned them has committed.
type RewardSink interface {
	DeliverReward(ctx context.Context, ev RewardEvent) error
}

// BasePointsPerLevel scales the level curve: level n → n+1 needs floor(100 * n^1.2).
const BasePointsPerLevel = 100

func pointsForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	return int64(float64(BasePointsPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// levelFor returns the level a running total stands at.
func levelFor(total int64) int {
	level := 1
	for total >= pointsToReach(level+1) {
		level++
	}
	return level
}

// pointsToReach returns the cumulative total needed to stand at level.
func pointsToReach(level int) int64 {
	var total int64
	for l := 1; l < level; l++ {
		total += pointsForNextLevel(l)
	}
	return total
}

type PointsService struct {
	DB     *gorm.DB
	Clock  clockwork.Clock
	Logger *zap.Logger
}

func NewPointsService(db *gorm.DB, clock clockwork.Clock, logger *zap.Logger) *PointsService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PointsService{DB: db, Clock: clock, Logger: logger.Named("points")}
}

// GetPoints returns the user's totals, or a zeroed level-1 record if none exist yet.
func (s *PointsService) GetPoints(ctx context.Context, userID string) (*models.UserPoints, error) {
	var p models.UserPoints
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserPoints{UserID: userID, Level: 1}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get points for %s: %w", userID, err)
	}
	return &p, nil
}

// DeliverReward implements RewardSink.
func (s *PointsService) DeliverReward(ctx context.Context, ev RewardEvent) error {
	_, err := s.AwardPoints(ctx, ev)
	return err
}

// AwardPoints appends a ledger entry and updates the running total and level.
// Replaying the same (user, reason, reference) is a no-op.
func (s *PointsService) AwardPoints(ctx context.Context, ev RewardEvent) (*models.UserPoints, error) {
	if ev.UserID == "" || ev.Points <= 0 {
		return nil, fmt.Errorf("%w: reward needs a user and positive points", ErrInvalidInput)
	}

	var votes int64
	if ev.Reason == RewardBattleVote {
		votes = 1
	}

	var updated models.UserPoints
	duplicate := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.Clock.Now()
		entry := models.PointsEntry{
			ID:          uuid.NewString(),
			UserID:      ev.UserID,
			Reason:      ev.Reason,
			ReferenceID: ev.ReferenceID,
			Points:      ev.Points,
			CreatedAt:   now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			if isDuplicateKey(err) {
				duplicate = true
				return errDuplicateReward
			}
			return err
		}

		// Increment in SQL so concurrent awards for the same user serialize on the
		// row instead of overwriting each other.
		seed := models.UserPoints{
			ID:          uuid.NewString(),
			UserID:      ev.UserID,
			TotalPoints: ev.Points,
			Level:       1,
			VotesCast:   votes,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_points": gorm.Expr("user_points.total_points + ?", ev.Points),
				"votes_cast":   gorm.Expr("user_points.votes_cast + ?", votes),
				"updated_at":   now,
			}),
		}).Create(&seed).Error
		if err != nil {
			return err
		}

		var prog models.UserPoints
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", ev.UserID).First(&prog).Error; err != nil {
			return err
		}

		if level := levelFor(prog.TotalPoints); level > prog.Level {
			prog.Level = level
			prog.LastLevelUpAt = &now
			if err := tx.Model(&models.UserPoints{}).Where("id = ?", prog.ID).
				Updates(map[string]interface{}{"level": level, "last_level_up_at": now}).Error; err != nil {
				return err
			}
		}
		updated = prog
		return nil
	})
	if duplicate {
		s.Logger.Debug("reward already recorded",
			zap.String("user_id", ev.UserID), zap.String("reference_id", ev.ReferenceID))
		return s.GetPoints(ctx, ev.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("award points to %s: %w", ev.UserID, err)
	}

	s.Logger.Info("points awarded",
		zap.String("user_id", ev.UserID),
		zap.Int64("points", ev.Points),
		zap.Int64("total", updated.TotalPoints),
		zap.Int("level", updated.Level),
		zap.String("reason", ev.Reason))
	return &updated, nil
}

// GrantPoints credits a manual admin adjustment. It is always recorded under
// RewardAdminGrant, so it never counts as a vote.
func (s *PointsService) GrantPoints(ctx context.Context, userID string, points int64) (*models.UserPoints, error) {
	return s.AwardPoints(ctx, RewardEvent{
		UserID:      userID,
		Points:      points,
		Reason:      RewardAdminGrant,
		ReferenceID: "grant-" + uuid.NewString(),
	})
}

var errDuplicateReward = errors.New("duplicate reward")

// LevelProgress reports how far a user is into their current level.
type LevelProgress struct {
	Level          int   `json:"level"`
	PointsInLevel  int64 `json:"points_in_level"`
	PointsForLevel int64 `json:"points_for_level"`
}

func ProgressFor(p *models.UserPoints) LevelProgress {
	level := p.Level
	if level < 1 {
		level = 1
	}
	return LevelProgress{
		Level:          level,
		PointsInLevel:  p.TotalPoints - pointsToReach(level),
		PointsForLevel: pointsForNextLevel(level),
	}
}

// RecentEntries returns the user's newest ledger entries.
func (s *PointsService) RecentEntries(ctx context.Context, userID string, limit int) ([]models.PointsEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var entries []models.PointsEntry
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
