package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"rewards-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuestService tracks per-account progress on quest templates and grants
// each quest's reward exactly once per completion.
type QuestService struct {
	DB     *gorm.DB
	Ledger *LedgerService
	Notify *NotificationService
}

func NewQuestService(db *gorm.DB, ledger *LedgerService, notify *NotificationService) *QuestService {
	return &QuestService{DB: db, Ledger: ledger, Notify: notify}
}

// AdvanceQuest upserts the account's completion row and adds delta, clamped
// at the template target. The first time progress reaches the target the
// completion is stamped and the reward granted (keyed per account+template)
// in the same transaction, then a notification emitted.
func (s *QuestService) AdvanceQuest(accountID, templateID string, delta int64) (*models.QuestCompletion, error) {
	if delta < 0 {
		return nil, models.ErrNegativeDelta
	}

	var tmpl models.QuestTemplate
	if err := s.DB.Where("id = ?", templateID).First(&tmpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	var completion models.QuestCompletion
	var completedNow, applied bool
	var credit *CreditResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("account_id = ? AND quest_template_id = ?", accountID, templateID).First(&completion).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			completion = models.QuestCompletion{
				ID:              uuid.NewString(),
				AccountID:       accountID,
				QuestTemplateID: templateID,
			}
			if err := tx.Create(&completion).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if completion.CompletedAt != nil {
			return nil // already done, nothing else to accrue
		}

		// Statement-level increment so concurrent advances never lose each
		// other's delta; accrual stops once the row is stamped.
		inc := tx.Model(&models.QuestCompletion{}).
			Where("id = ? AND completed_at IS NULL", completion.ID).
			Update("progress", gorm.Expr("progress + ?", delta))
		if inc.Error != nil {
			return inc.Error
		}
		if err := tx.Where("id = ?", completion.ID).First(&completion).Error; err != nil {
			return err
		}
		if inc.RowsAffected == 0 || completion.Progress < tmpl.TargetValue {
			return nil
		}

		now := time.Now()
		stamp := tx.Model(&models.QuestCompletion{}).
			Where("id = ? AND completed_at IS NULL", completion.ID).
			Updates(map[string]any{
				"progress":     tmpl.TargetValue,
				"completed_at": now,
			})
		if stamp.Error != nil {
			return stamp.Error
		}
		if stamp.RowsAffected == 0 {
			return nil // another writer finished it first
		}
		completion.Progress = tmpl.TargetValue
		completion.CompletedAt = &now
		completedNow = true

		// The stamp and the grant commit or roll back together, so a
		// transient ledger failure can never strand a completed quest
		// without its reward.
		key := fmt.Sprintf("quest:%s:%s", templateID, accountID)
		credit, applied, err = s.Ledger.creditTx(tx, accountID, tmpl.XPReward, tmpl.GoldReward, key)
		return err
	})
	if err != nil {
		return nil, err
	}

	if completedNow {
		s.Ledger.settleCredit(accountID, credit, applied)
		if s.Notify != nil {
			_ = s.Notify.Emit(accountID, models.NotificationKindQuest,
				"Quest Complete!",
				fmt.Sprintf("You finished %q", tmpl.Name),
				map[string]any{"xp": tmpl.XPReward, "gold": tmpl.GoldReward, "questName": tmpl.Name},
			)
		}
		log.Printf("🗺️ [QUEST] %s completed %q (+%d XP, +%d Gold)", accountID, tmpl.Name, tmpl.XPReward, tmpl.GoldReward)
	}
	return &completion, nil
}

// ListTemplates returns active templates, optionally filtered by difficulty.
// Inactive templates disappear from listings; historical completions against
// them stay valid.
func (s *QuestService) ListTemplates(difficulty models.QuestDifficulty) ([]models.QuestTemplate, error) {
	query := s.DB.Where("active = ?", true)
	if difficulty != "" {
		query = query.Where("difficulty = ?", difficulty)
	}
	var templates []models.QuestTemplate
	err := query.Order("created_at ASC").Find(&templates).Error
	return templates, err
}

// ListCompletions returns the account's quest history, newest first.
func (s *QuestService) ListCompletions(accountID string) ([]models.QuestCompletion, error) {
	var completions []models.QuestCompletion
	err := s.DB.Where("account_id = ?", accountID).
		Order("updated_at DESC").
		Find(&completions).Error
	return completions, err
}
