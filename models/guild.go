package models

import "time"

// Guild groups accounts; member contributions aggregate into TotalXP.
// Invariant: TotalXP == sum of membership ContributionXP and
// TotalMembers == count of memberships — both maintained transactionally.
type Guild struct {
	ID              string `gorm:"primaryKey;type:uuid" json:"id"`
	Name            string `gorm:"uniqueIndex;not null" json:"name"`
	Slug            string `gorm:"uniqueIndex;not null" json:"slug"`
	LeaderAccountID string `gorm:"index;not null" json:"leader_account_id"`

	TotalMembers int   `json:"total_members" gorm:"default:0"`
	TotalXP      int64 `json:"total_xp" gorm:"default:0"`
	Level        int   `json:"level" gorm:"default:1"`

	Timestamps
}

// GuildMembership links an account to a guild. An account belongs to at most
// one guild, enforced by the unique index on AccountID.
type GuildMembership struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	GuildID   string `gorm:"index;not null" json:"guild_id"`
	AccountID string `gorm:"uniqueIndex;not null" json:"account_id"`

	ContributionXP int64     `json:"contribution_xp" gorm:"default:0"`
	JoinedAt       time.Time `json:"joined_at" gorm:"autoCreateTime"`
}

// GuildChallenge is a time-boxed XP target for one guild. Completed flips
// true exactly once, paying every current member; progress outside
// [StartDate, EndDate) is rejected.
type GuildChallenge struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	GuildID string `gorm:"index;not null" json:"guild_id"`

	Title     string `json:"title"`
	TargetXP  int64  `gorm:"not null" json:"target_xp"`
	CurrentXP int64  `json:"current_xp" gorm:"default:0"`

	RewardXP   int64 `json:"reward_xp"`
	RewardGold int64 `json:"reward_gold"`

	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`

	Completed   bool       `json:"completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}
