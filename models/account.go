package models

import (
	"time"

	"gorm.io/gorm"
)

// Account holds the XP/Gold balances for one learner (denormalized for performance).
// Balances are mutated only through LedgerService — never written directly by handlers.
type Account struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service

	XP   int64 `json:"xp" gorm:"default:0"`
	Gold int64 `json:"gold" gorm:"default:0"`

	Timestamps
}

// RewardGrant is the idempotency ledger: one row per applied grant key.
// A retried credit with the same key finds its row and returns the recorded
// result instead of re-applying the deltas.
type RewardGrant struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID string `gorm:"index:idx_grant_key,unique;not null" json:"account_id"`
	GrantKey  string `gorm:"index:idx_grant_key,unique;not null" json:"grant_key"`

	XPDelta   int64 `json:"xp_delta"`
	GoldDelta int64 `json:"gold_delta"`

	// Recorded result, replayed verbatim on duplicate submission
	XPAfter    int64 `json:"xp_after"`
	GoldAfter  int64 `json:"gold_after"`
	LevelAfter int   `json:"level_after"`
	LeveledUp  bool  `json:"leveled_up"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
