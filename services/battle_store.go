package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"battle-seoul/models"

	"gorm.io/gorm"
)

// BattleStore is the persistence accessor for battles and their votes.
type BattleStore struct {
	DB *gorm.DB
}

func NewBattleStore(db *gorm.DB) *BattleStore {
	return &BattleStore{DB: db}
}

func (s *BattleStore) WithTx(tx *gorm.DB) *BattleStore {
	return &BattleStore{DB: tx}
}

func (s *BattleStore) CreateBattle(ctx context.Context, b *models.Battle) error {
	if err := s.DB.WithContext(ctx).Omit("Participants").Create(b).Error; err != nil {
		return fmt.Errorf("create battle: %w", err)
	}
	return nil
}

func (s *BattleStore) GetBattle(ctx context.Context, id string) (*models.Battle, error) {
	var b models.Battle
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBattleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get battle %s: %w", id, err)
	}
	return &b, nil
}

// GetBattleWithParticipants loads the battle and its vote rows.
func (s *BattleStore) GetBattleWithParticipants(ctx context.Context, id string) (*models.Battle, error) {
	var b models.Battle
	err := s.DB.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBattleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get battle %s: %w", id, err)
	}
	return &b, nil
}

// ListBattles returns the newest battles first, filtered when category or status
// are set. Status is judged against now, so a battle past its end time counts as
// ended before the sweep has persisted it.
func (s *BattleStore) ListBattles(ctx context.Context, category models.Category, status models.BattleStatus, limit int, now time.Time) ([]models.Battle, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := s.DB.WithContext(ctx)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	switch status {
	case models.BattleActive:
		q = q.Where("status = ? AND ends_at > ?", models.BattleActive, now)
	case models.BattleEnded:
		q = q.Where("(status = ? OR ends_at <= ?)", models.BattleEnded, now)
	}
	var battles []models.Battle
	if err := q.Order("created_at DESC").Limit(limit).Find(&battles).Error; err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}
	for i := range battles {
		if battles[i].Status != models.BattleEnded {
			battles[i].Status = battles[i].StatusAt(now)
		}
	}
	return battles, nil
}

// UpdateTallies writes vote counters and leader state if the stored version still
// equals b.Version, then bumps it. ErrVersionConflict means another writer won.
func (s *BattleStore) UpdateTallies(ctx context.Context, b *models.Battle) error {
	res := s.DB.WithContext(ctx).Model(&models.Battle{}).
		Where("id = ? AND version = ?", b.ID, b.Version).
		Updates(map[string]interface{}{
			"item_a_votes":      b.ItemA.Votes,
			"item_b_votes":      b.ItemB.Votes,
			"total_votes":       b.TotalVotes,
			"leader_winner":     b.CurrentLeader.Winner,
			"leader_percentage": b.CurrentLeader.Percentage,
			"leader_margin":     b.CurrentLeader.Margin,
			"version":           b.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("update battle %s: %w", b.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	b.Version++
	return nil
}

// FindVote returns the voter's existing vote on a battle, or nil.
func (s *BattleStore) FindVote(ctx context.Context, battleID, voterID string) (*models.BattleVote, error) {
	var v models.BattleVote
	err := s.DB.WithContext(ctx).Where("battle_id = ? AND voter_id = ?", battleID, voterID).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find vote: %w", err)
	}
	return &v, nil
}

func (s *BattleStore) InsertVote(ctx context.Context, v *models.BattleVote) error {
	err := s.DB.WithContext(ctx).Create(v).Error
	if isDuplicateKey(err) {
		return ErrAlreadyVoted
	}
	if err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

func (s *BattleStore) CountVotes(ctx context.Context, battleID string) (map[models.Side]int64, error) {
	type row struct {
		Side  models.Side
		Count int64
	}
	var rows []row
	err := s.DB.WithContext(ctx).Model(&models.BattleVote{}).
		Select("side, COUNT(*) AS count").
		Where("battle_id = ?", battleID).
		Group("side").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}
	out := map[models.Side]int64{models.SideA: 0, models.SideB: 0}
	for _, r := range rows {
		out[r.Side] = r.Count
	}
	return out, nil
}

// ExpireBattles persists status=ended for active battles whose end time has passed.
func (s *BattleStore) ExpireBattles(ctx context.Context, now time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Battle{}).
		Where("status = ? AND ends_at <= ?", models.BattleActive, now).
		Updates(map[string]interface{}{
			"status":  models.BattleEnded,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("expire battles: %w", res.Error)
	}
	return res.RowsAffected, nil
}
