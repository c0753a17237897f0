package models

import "time"

type NotificationKind string

const (
	NotificationKindLevelUp   NotificationKind = "level_up"
	NotificationKindBadge     NotificationKind = "badge_unlocked"
	NotificationKindMilestone NotificationKind = "streak_milestone"
	NotificationKindQuest     NotificationKind = "quest_completed"
	NotificationKindChallenge NotificationKind = "guild_challenge"
	NotificationKindLoot      NotificationKind = "loot_opened"
)

// AchievementNotification is a durable user notification. Shown flips
// false→true exactly once, driven by the consuming client; the streaming
// channel is best-effort and may deliver the same id more than once.
type AchievementNotification struct {
	ID        string           `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID string           `gorm:"index;not null" json:"account_id"`
	Kind      NotificationKind `gorm:"type:varchar(32);not null" json:"kind"`

	Title   string         `json:"title"`
	Message string         `gorm:"type:text" json:"message"`
	Payload map[string]any `gorm:"serializer:json" json:"payload,omitempty"`

	Shown     bool      `json:"shown" gorm:"default:false;index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
