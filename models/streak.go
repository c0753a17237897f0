package models

import "time"

// LoginStreak tracks consecutive daily logins for one account.
// CurrentStreak changes at most once per calendar day; milestone counters
// increment at most once per crossing (the grant key enforces that).
type LoginStreak struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID string `gorm:"uniqueIndex;not null" json:"account_id"`

	CurrentStreak  int        `json:"current_streak" gorm:"default:0"`
	LongestStreak  int        `json:"longest_streak" gorm:"default:0"`
	LastLoginDate  *time.Time `json:"last_login_date,omitempty"` // date only, normalized to midnight UTC
	TotalLoginDays int        `json:"total_login_days" gorm:"default:0"`

	SevenDayMilestoneCount  int `json:"seven_day_milestone_count" gorm:"default:0"`
	ThirtyDayMilestoneCount int `json:"thirty_day_milestone_count" gorm:"default:0"`

	Timestamps
}
