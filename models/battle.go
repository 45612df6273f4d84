package models

import "time"

// Side names one position in a battle.
type Side string

const (
	SideA Side = "itemA"
	SideB Side = "itemB"
)

func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

// LeaderTie is reported as the winner while both sides hold equal votes.
const LeaderTie = "tie"

type BattleStatus string

const (
	BattleActive BattleStatus = "active"
	BattleEnded  BattleStatus = "ended"
)

type MatchingMethod string

const (
	MatchingSmart  MatchingMethod = "smart_algorithm"
	MatchingManual MatchingMethod = "manual"
)

// BattleSide is a one-time snapshot of a contender taken when the battle is created.
type BattleSide struct {
	ContenderID string   `json:"contender_id" gorm:"type:uuid;index"`
	CreatorID   string   `json:"creator_id"`
	Title       string   `json:"title"`
	Category    Category `json:"category" gorm:"type:varchar(16)"`
	Platform    Platform `json:"platform" gorm:"type:varchar(16)"`
	Media       MediaRef `json:"media"`
	Votes       int64    `json:"votes" gorm:"default:0"`
}

// Leader is the derived "who is ahead" state of a battle
type Leader struct {
	Winner     string  `json:"winner" gorm:"column:leader_winner;type:varchar(8);default:'tie'"`
	Percentage float64 `json:"percentage" gorm:"column:leader_percentage;default:0"`
	Margin     int64   `json:"margin" gorm:"column:leader_margin;default:0"`
}

// Battle is a head-to-head pairing of two contenders
type Battle struct {
	ID             string         `json:"id" gorm:"primaryKey;type:uuid"`
	Slug           string         `json:"slug" gorm:"uniqueIndex"`
	Category       Category       `json:"category" gorm:"type:varchar(16);index;not null"`
	ItemA          BattleSide     `json:"itemA" gorm:"embedded;embeddedPrefix:item_a_"`
	ItemB          BattleSide     `json:"itemB" gorm:"embedded;embeddedPrefix:item_b_"`
	TotalVotes     int64          `json:"totalVotes" gorm:"default:0"`
	CurrentLeader  Leader         `json:"currentLeader" gorm:"embedded"`
	Status         BattleStatus   `json:"status" gorm:"type:varchar(16);index;not null;default:'active'"`
	MatchingMethod MatchingMethod `json:"matchingMethod" gorm:"type:varchar(24);not null"`
	MatchingScore  *float64       `json:"matchingScore,omitempty"`
	CreatedBy      string         `json:"createdBy,omitempty"`
	EndsAt         time.Time      `json:"endsAt" gorm:"index;not null"`
	Version        int64          `json:"-" gorm:"not null;default:1"`
	CreatedAt      time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`

	Participants []BattleVote `json:"participants,omitempty" gorm:"foreignKey:BattleID"`
}

// BattleVote is one voter's immutable choice on one battle.
type BattleVote struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	BattleID  string    `json:"battle_id" gorm:"type:uuid;not null;uniqueIndex:idx_battle_vote_voter"`
	VoterID   string    `json:"voter_id" gorm:"not null;uniqueIndex:idx_battle_vote_voter"`
	Side      Side      `json:"side" gorm:"type:varchar(8);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// StatusAt derives the status from the end timestamp.
func (b *Battle) StatusAt(now time.Time) BattleStatus {
	if !now.Before(b.EndsAt) {
		return BattleEnded
	}
	return BattleActive
}

func (b *Battle) Side(s Side) *BattleSide {
	if s == SideA {
		return &b.ItemA
	}
	return &b.ItemB
}

// RecomputeLeader refreshes the leader fields from the side tallies.
func (b *Battle) RecomputeLeader() {
	a, bv := b.ItemA.Votes, b.ItemB.Votes
	leader := Leader{Winner: LeaderTie}
	switch {
	case a > bv:
		leader.Winner = string(SideA)
		leader.Margin = a - bv
	case bv > a:
		leader.Winner = string(SideB)
		leader.Margin = bv - a
	}
	if b.TotalVotes > 0 {
		top := a
		if bv > top {
			top = bv
		}
		leader.Percentage = float64(top) / float64(b.TotalVotes) * 100
	}
	b.CurrentLeader = leader
}
