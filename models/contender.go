package models

import "time"

// Category is the battle bracket a contender competes in.
type Category string

const (
	CategoryMusic   Category = "music"
	CategoryFashion Category = "fashion"
	CategoryFood    Category = "food"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryMusic, CategoryFashion, CategoryFood}

func (c Category) Valid() bool {
	switch c {
	case CategoryMusic, CategoryFashion, CategoryFood:
		return true
	}
	return false
}

// ContenderStatus: available → matched, exactly once.
type ContenderStatus string

const (
	ContenderAvailable ContenderStatus = "available"
	ContenderMatched   ContenderStatus = "matched"
)

// Contender is a piece of user-submitted content eligible for battle
type Contender struct {
	ID        string          `json:"id" gorm:"primaryKey;type:uuid"`
	CreatorID string          `json:"creator_id" gorm:"index;not null"`
	Title     string          `json:"title" gorm:"not null"`
	Slug      string          `json:"slug" gorm:"uniqueIndex"`
	Category  Category        `json:"category" gorm:"type:varchar(16);index;not null"`
	Platform  Platform        `json:"platform" gorm:"type:varchar(16);not null"`
	Media     MediaRef        `json:"media"`
	Status    ContenderStatus `json:"status" gorm:"type:varchar(16);index;not null;default:'available'"`

	// Engagement counters feed the matching scorer
	Likes int64 `json:"likes" gorm:"default:0"`
	Views int64 `json:"views" gorm:"default:0"`

	Version int64 `json:"-" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (c *Contender) IsAvailable() bool {
	return c.Status == ContenderAvailable
}
