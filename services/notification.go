package services

import (
	"errors"
	"log"
	"time"

	"rewards-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationService persists achievement notifications. The durable Shown
// flag is the source of truth for "has the user seen this"; the SSE stream is
// only a best-effort transport on top.
type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// Emit creates an unshown notification for the account.
func (s *NotificationService) Emit(accountID string, kind models.NotificationKind, title, message string, payload map[string]any) error {
	n := models.AchievementNotification{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      kind,
		Title:     title,
		Message:   message,
		Payload:   payload,
	}
	if err := s.DB.Create(&n).Error; err != nil {
		log.Printf("⚠️ [NOTIFY] failed to emit %s for %s: %v", kind, accountID, err)
		return err
	}
	return nil
}

// FetchUnshown returns the account's pending notifications, oldest first.
func (s *NotificationService) FetchUnshown(accountID string) ([]models.AchievementNotification, error) {
	var list []models.AchievementNotification
	err := s.DB.Where("account_id = ? AND shown = ?", accountID, false).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// pendingSince returns the account's unshown notifications created after the
// cursor, oldest first. A zero cursor returns everything still unshown, so a
// fresh stream never skips a notification older than already-acknowledged
// ones.
func (s *NotificationService) pendingSince(accountID string, after time.Time) ([]models.AchievementNotification, error) {
	var pending []models.AchievementNotification
	err := s.DB.Where("account_id = ? AND shown = ?", accountID, false).
		Where("created_at > ?", after).
		Order("created_at ASC").
		Find(&pending).Error
	return pending, err
}

// MarkShown flips the shown flag. Idempotent: marking an already-shown
// notification is a no-op, which makes it the dedup boundary for the
// at-least-once stream.
func (s *NotificationService) MarkShown(id string) error {
	result := s.DB.Model(&models.AchievementNotification{}).
		Where("id = ? AND shown = ?", id, false).
		Update("shown", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var n models.AchievementNotification
		if err := s.DB.Where("id = ?", id).First(&n).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return err
		}
		// already shown — fine
	}
	return nil
}
