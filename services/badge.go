package services

import (
	"errors"
	"fmt"
	"time"

	"rewards-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BadgeService tracks per-account progress toward achievement tiers and
// unlocks each tier exactly once.
type BadgeService struct {
	DB     *gorm.DB
	Notify *NotificationService
}

func NewBadgeService(db *gorm.DB, notify *NotificationService) *BadgeService {
	return &BadgeService{DB: db, Notify: notify}
}

// Badge is the UI-facing view of one tier for one account.
type Badge struct {
	ID          string     `json:"id"` // tier id
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	TierRank    int        `json:"tier_rank"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
	Progress    int64      `json:"progress"`
	Requirement int64      `json:"requirement"`
}

// RecordProgress advances every not-yet-unlocked tier of the achievement by
// delta, clamped at each tier's requirement. A tier whose clamped progress
// reaches its requirement unlocks exactly once and emits a notification.
// Tiers share the incoming delta but are evaluated independently.
func (s *BadgeService) RecordProgress(accountID, achievementID string, delta int64) error {
	if delta < 0 {
		return models.ErrNegativeDelta
	}

	var def models.AchievementDefinition
	if err := s.DB.Preload("Tiers").Where("id = ? AND active = ?", achievementID, true).First(&def).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ErrNotFound
		}
		return err
	}

	var unlocked []models.BadgeTier
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for _, tier := range def.Tiers {
			var prog models.BadgeProgress
			err := tx.Where("account_id = ? AND tier_id = ?", accountID, tier.ID).First(&prog).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				prog = models.BadgeProgress{
					ID:        uuid.NewString(),
					AccountID: accountID,
					TierID:    tier.ID,
				}
				if err := tx.Create(&prog).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			if prog.Unlocked {
				continue
			}

			// Statement-level increment so concurrent trackers never lose
			// each other's delta; an unlocked row stops accruing.
			inc := tx.Model(&models.BadgeProgress{}).
				Where("id = ? AND unlocked = ?", prog.ID, false).
				Update("current_progress", gorm.Expr("current_progress + ?", delta))
			if inc.Error != nil {
				return inc.Error
			}
			if err := tx.Where("id = ?", prog.ID).First(&prog).Error; err != nil {
				return err
			}
			if inc.RowsAffected == 0 || prog.CurrentProgress < tier.RequirementValue {
				continue
			}

			now := time.Now()
			unlock := tx.Model(&models.BadgeProgress{}).
				Where("id = ? AND unlocked = ?", prog.ID, false).
				Updates(map[string]any{
					"current_progress": tier.RequirementValue,
					"unlocked":         true,
					"unlocked_at":      now,
				})
			if unlock.Error != nil {
				return unlock.Error
			}
			if unlock.RowsAffected > 0 {
				unlocked = append(unlocked, tier)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.Notify != nil {
		for _, tier := range unlocked {
			_ = s.Notify.Emit(accountID, models.NotificationKindBadge,
				fmt.Sprintf("%s — Tier %d unlocked!", def.Name, tier.TierRank),
				def.Description,
				map[string]any{
					"achievementId": def.ID,
					"tierId":        tier.ID,
					"tierRank":      tier.TierRank,
				},
			)
		}
	}
	return nil
}

// ListBadges returns every defined achievement tier for the account:
// unlocked tiers carry their unlock timestamp, untouched tiers show
// progress 0, so the UI can render the full badge wall regardless of
// whether tracking has started.
func (s *BadgeService) ListBadges(accountID string) ([]Badge, error) {
	var defs []models.AchievementDefinition
	if err := s.DB.Preload("Tiers").Where("active = ?", true).Order("name ASC").Find(&defs).Error; err != nil {
		return nil, err
	}

	var progRows []models.BadgeProgress
	if err := s.DB.Where("account_id = ?", accountID).Find(&progRows).Error; err != nil {
		return nil, err
	}
	progByTier := make(map[string]models.BadgeProgress, len(progRows))
	for _, p := range progRows {
		progByTier[p.TierID] = p
	}

	var badges []Badge
	for _, def := range defs {
		for _, tier := range def.Tiers {
			b := Badge{
				ID:          tier.ID,
				Name:        def.Name,
				Description: def.Description,
				Icon:        def.IconURL,
				TierRank:    tier.TierRank,
				Requirement: tier.RequirementValue,
			}
			if p, ok := progByTier[tier.ID]; ok {
				b.Progress = p.CurrentProgress
				b.Unlocked = p.Unlocked
				b.UnlockedAt = p.UnlockedAt
			}
			badges = append(badges, b)
		}
	}
	return badges, nil
}
