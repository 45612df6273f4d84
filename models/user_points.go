package models

import (
	"time"
)

// UserPoints is the denormalized running total of a user's battle rewards.
type UserPoints struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`

	TotalPoints int64 `json:"total_points" gorm:"default:0"`
	Level       int   `json:"level" gorm:"default:1"`
	VotesCast   int64 `json:"votes_cast" gorm:"default:0"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// PointsEntry is one ledger line. The unique index makes a reward for the same
// reference idempotent.
type PointsEntry struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string    `gorm:"not null;uniqueIndex:idx_points_entry_ref" json:"user_id"`
	Reason      string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_points_entry_ref" json:"reason"`
	ReferenceID string    `gorm:"not null;uniqueIndex:idx_points_entry_ref" json:"reference_id"`
	Points      int64     `gorm:"not null" json:"points"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// AutoMigrateModels lists every table this service owns.
func AutoMigrateModels() []interface{} {
	return []interface{}{
		&Contender{},
		&Battle{},
		&BattleVote{},
		&MatchingState{},
		&UserPoints{},
		&PointsEntry{},
	}
}
