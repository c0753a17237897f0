package models

import "time"

type QuestDifficulty string

const (
	QuestDifficultyEasy   QuestDifficulty = "easy"
	QuestDifficultyMedium QuestDifficulty = "medium"
	QuestDifficultyHard   QuestDifficulty = "hard"
)

// QuestTemplate: static config for a repeatable quest (e.g., "watch 30 minutes").
// Inactive templates disappear from listings; historical completions stay valid.
type QuestTemplate struct {
	ID          string          `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string          `gorm:"not null" json:"name"`
	QuestType   string          `gorm:"index;not null" json:"quest_type"` // e.g., "watch_minutes", "complete_assignment"
	TargetValue int64           `gorm:"not null" json:"target_value"`
	XPReward    int64           `json:"xp_reward"`
	GoldReward  int64           `json:"gold_reward"`
	Difficulty  QuestDifficulty `gorm:"type:varchar(16);index" json:"difficulty"`
	Active      bool            `gorm:"default:true" json:"active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// QuestCompletion tracks one account's progress on one template.
// Progress is clamped at the target; the reward is granted exactly once
// when the target is first reached.
type QuestCompletion struct {
	ID              string `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID       string `gorm:"index:idx_quest_completion,unique;not null" json:"account_id"`
	QuestTemplateID string `gorm:"index:idx_quest_completion,unique;not null" json:"quest_template_id"`

	Progress    int64      `json:"progress" gorm:"default:0"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}
