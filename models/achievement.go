package models

import "time"

// AchievementDefinition: static config row for one achievement track.
type AchievementDefinition struct {
	ID               string `gorm:"primaryKey;type:uuid" json:"id"`
	Name             string `gorm:"uniqueIndex;not null" json:"name"`
	Description      string `gorm:"type:text" json:"description"`
	IconURL          string `gorm:"type:text" json:"icon_url"` // R2 URL to SVG/png
	RequirementValue int64  `json:"requirement_value"`
	Active           bool   `gorm:"default:true" json:"active"`

	Tiers []BadgeTier `gorm:"foreignKey:AchievementID" json:"tiers,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BadgeTier is one unlockable rank inside an achievement, ordered by TierRank.
type BadgeTier struct {
	ID               string `gorm:"primaryKey;type:uuid" json:"id"`
	AchievementID    string `gorm:"index;not null" json:"achievement_id"`
	TierRank         int    `gorm:"not null" json:"tier_rank"` // 1 = lowest
	RequirementValue int64  `gorm:"not null" json:"requirement_value"`
}

// BadgeProgress is the per-account progress toward one tier.
// CurrentProgress only grows and is clamped at the tier requirement;
// Unlocked flips false→true exactly once.
type BadgeProgress struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID string `gorm:"index:idx_badge_progress,unique;not null" json:"account_id"`
	TierID    string `gorm:"index:idx_badge_progress,unique;not null" json:"tier_id"`

	CurrentProgress int64      `json:"current_progress" gorm:"default:0"`
	Unlocked        bool       `json:"unlocked" gorm:"default:false"`
	UnlockedAt      *time.Time `json:"unlocked_at,omitempty"`

	Timestamps
}
