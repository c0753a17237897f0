package models

import (
	"time"

	"gorm.io/gorm"
)

// MirroredAccount is a local snapshot of profile-service user data.
// Owned and managed solely by the rewards service; populated via the
// account sync worker. Feeds usernames into leaderboards and guild rosters.
type MirroredAccount struct {
	ID                string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID    string    `gorm:"uniqueIndex;not null" json:"external_user_id"` // the profile service's UUID
	Username          string    `gorm:"index;not null" json:"username"`
	Email             string    `json:"email,omitempty"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	ReferralCount     int64     `json:"referral_count" gorm:"default:0"`
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	LastSeen *time.Time `json:"last_seen,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
