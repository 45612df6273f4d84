package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"battle-seoul/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CooldownStore reads and writes the singleton matching-state record.
type CooldownStore struct {
	DB  *gorm.DB
	Key string
}

func NewCooldownStore(db *gorm.DB) *CooldownStore {
	return &CooldownStore{DB: db, Key: models.SmartMatchingStateKey}
}

// GetLastMatchingRun returns nil when matching has never committed a battle.
func (s *CooldownStore) GetLastMatchingRun(ctx context.Context) (*time.Time, error) {
	var state models.MatchingState
	err := s.DB.WithContext(ctx).Where("state_key = ?", s.Key).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read matching state: %w", err)
	}
	return state.LastRunAt, nil
}

func (s *CooldownStore) SetLastMatchingRun(ctx context.Context, at time.Time) error {
	state := models.MatchingState{Key: s.Key, LastRunAt: &at}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_run_at", "updated_at"}),
	}).Create(&state).Error
	if err != nil {
		return fmt.Errorf("write matching state: %w", err)
	}
	return nil
}

// ClaimMatchingRun stamps now as the last run if the cooldown has elapsed, in one
// conditional update. Only one of several concurrent callers gets claimed=true.
// prev is the timestamp that was replaced, for ReleaseMatchingRun; when the claim
// fails it is the timestamp still in force.
func (s *CooldownStore) ClaimMatchingRun(ctx context.Context, now time.Time, cooldown time.Duration) (claimed bool, prev *time.Time, err error) {
	db := s.DB.WithContext(ctx)
	now = now.Truncate(time.Microsecond)

	seed := models.MatchingState{Key: s.Key}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return false, nil, fmt.Errorf("seed matching state: %w", err)
	}

	prev, err = s.GetLastMatchingRun(ctx)
	if err != nil {
		return false, nil, err
	}

	q := db.Model(&models.MatchingState{}).Where("state_key = ?", s.Key)
	if prev == nil {
		q = q.Where("last_run_at IS NULL")
	} else {
		if now.Sub(*prev) < cooldown {
			return false, prev, nil
		}
		q = q.Where("last_run_at = ?", *prev)
	}
	res := q.Updates(map[string]interface{}{"last_run_at": now, "updated_at": now})
	if res.Error != nil {
		return false, nil, fmt.Errorf("claim matching run: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Another run claimed it between the read and the update.
		latest, err := s.GetLastMatchingRun(ctx)
		if err != nil {
			return false, nil, err
		}
		return false, latest, nil
	}
	return true, prev, nil
}

// ReleaseMatchingRun restores prev if the claim stamped at is still the current value.
func (s *CooldownStore) ReleaseMatchingRun(ctx context.Context, at time.Time, prev *time.Time) error {
	at = at.Truncate(time.Microsecond)
	err := s.DB.WithContext(ctx).Model(&models.MatchingState{}).
		Where("state_key = ? AND last_run_at = ?", s.Key, at).
		Updates(map[string]interface{}{"last_run_at": prev, "updated_at": at}).Error
	if err != nil {
		return fmt.Errorf("release matching run: %w", err)
	}
	return nil
}
