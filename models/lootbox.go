package models

import "time"

// RewardKind tags the payout of a single loot draw.
type RewardKind string

const (
	RewardKindXP   RewardKind = "xp"
	RewardKindGold RewardKind = "gold"
	RewardKindItem RewardKind = "item"
)

// LootBoxDefinition: static config for a purchasable box.
type LootBoxDefinition struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	Name   string `gorm:"uniqueIndex;not null" json:"name"`
	Rarity string `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	Cost   int64  `gorm:"not null" json:"cost"`                            // gold

	// Number of independent weighted draws performed on open
	RewardCount int `gorm:"default:1" json:"reward_count"`

	PossibleRewards []LootReward `gorm:"foreignKey:DefinitionID" json:"possible_rewards,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// LootReward is one weighted entry in a box's reward table. Weights need not
// sum to anything in particular but must be positive.
type LootReward struct {
	ID           string     `gorm:"primaryKey;type:uuid" json:"id"`
	DefinitionID string     `gorm:"index;not null" json:"definition_id"`
	Kind         RewardKind `gorm:"type:varchar(16);not null" json:"kind"`
	Amount       int64      `json:"amount"`
	ItemCode     string     `json:"item_code,omitempty"` // only for Kind == item
	Weight       int64      `gorm:"not null" json:"weight"`
}

// OpenedReward is the resolved form stored on the instance after opening.
type OpenedReward struct {
	Kind     RewardKind `json:"kind"`
	Amount   int64      `json:"amount"`
	ItemCode string     `json:"item_code,omitempty"`
}

// LootBoxInstance is one purchased, openable box owned by an account.
// Opened flips false→true exactly once, producing OpenedRewards.
type LootBoxInstance struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	DefinitionID string `gorm:"index;not null" json:"definition_id"`
	AccountID    string `gorm:"index;not null" json:"account_id"`

	Opened        bool           `json:"opened" gorm:"default:false"`
	OpenedAt      *time.Time     `json:"opened_at,omitempty"`
	OpenedRewards []OpenedReward `gorm:"serializer:json" json:"opened_rewards,omitempty"`

	Timestamps
}
