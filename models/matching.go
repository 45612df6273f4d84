package models

import "time"

// Reason is an expected, recoverable outcome reported to callers instead of an error.
type Reason string

const (
	ReasonNone                   Reason = ""
	ReasonCooldown               Reason = "cooldown"
	ReasonInsufficientContenders Reason = "insufficient_contenders"
	ReasonNoValidMatches         Reason = "no_valid_matches"
	ReasonAlreadyVoted           Reason = "already_voted"
	ReasonBattleEnded            Reason = "battle_ended"
	ReasonBattleNotFound         Reason = "battle_not_found"
)

// SmartMatchingStateKey identifies the cooldown row for automatic matching.
const SmartMatchingStateKey = "smart_matching"

// MatchingState persists the last successful matching run
type MatchingState struct {
	Key       string     `json:"key" gorm:"column:state_key;primaryKey;type:varchar(64)"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}
