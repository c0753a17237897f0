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

// Milestone bonus amounts
const (
	sevenDayXP    = 100
	sevenDayGold  = 20
	thirtyDayXP   = 500
	thirtyDayGold = 100
)

// StreakService advances one login-streak record per account, at most once
// per calendar day, and pays milestone bonuses on 7/30-day crossings.
type StreakService struct {
	DB     *gorm.DB
	Ledger *LedgerService
	Notify *NotificationService
}

func NewStreakService(db *gorm.DB, ledger *LedgerService, notify *NotificationService) *StreakService {
	return &StreakService{DB: db, Ledger: ledger, Notify: notify}
}

// midnightUTC truncates a timestamp to its calendar date.
func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RecordLogin runs the streak state machine for one login event:
// same day → no-op, next day → advance, gap (or first login) → restart at 1.
// Milestones are evaluated only when the streak value changes, so replaying
// the same day's event cannot double-count. Milestone bonuses are granted in
// the same transaction as the day's advance: if the ledger fails, the day is
// not consumed and the retried event pays out, while the grant keys absorb
// retries of the payout itself.
func (s *StreakService) RecordLogin(accountID string, now time.Time) (*models.LoginStreak, error) {
	today := midnightUTC(now)

	var streak models.LoginStreak
	var advanced bool
	var grants []milestoneGrant
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("account_id = ?", accountID).First(&streak).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			streak = models.LoginStreak{
				ID:        uuid.NewString(),
				AccountID: accountID,
			}
		} else if err != nil {
			return err
		}

		if streak.LastLoginDate != nil {
			days := int(today.Sub(midnightUTC(*streak.LastLoginDate)).Hours() / 24)
			switch {
			case days == 0:
				return nil // already counted today
			case days == 1:
				streak.CurrentStreak++
			default:
				streak.CurrentStreak = 1 // broke the streak
			}
		} else {
			streak.CurrentStreak = 1 // first-ever login
		}

		advanced = true
		streak.TotalLoginDays++
		streak.LastLoginDate = &today
		if streak.CurrentStreak > streak.LongestStreak {
			streak.LongestStreak = streak.CurrentStreak
		}
		if streak.CurrentStreak%7 == 0 {
			streak.SevenDayMilestoneCount++
		}
		if streak.CurrentStreak%30 == 0 {
			streak.ThirtyDayMilestoneCount++
		}
		if err := tx.Save(&streak).Error; err != nil {
			return err
		}

		// A streak value divisible by both (day 210) grants both, matching
		// the platform's observed behavior.
		if streak.CurrentStreak%7 == 0 {
			key := fmt.Sprintf("streak:%s:%d:7d", accountID, streak.CurrentStreak)
			credit, applied, err := s.Ledger.creditTx(tx, accountID, sevenDayXP, sevenDayGold, key)
			if err != nil {
				return err
			}
			grants = append(grants, milestoneGrant{xp: sevenDayXP, gold: sevenDayGold, credit: credit, applied: applied})
		}
		if streak.CurrentStreak%30 == 0 {
			key := fmt.Sprintf("streak:%s:%d:30d", accountID, streak.CurrentStreak)
			credit, applied, err := s.Ledger.creditTx(tx, accountID, thirtyDayXP, thirtyDayGold, key)
			if err != nil {
				return err
			}
			grants = append(grants, milestoneGrant{xp: thirtyDayXP, gold: thirtyDayGold, credit: credit, applied: applied})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if advanced {
		for _, g := range grants {
			s.Ledger.settleCredit(accountID, g.credit, g.applied)
			if g.applied {
				s.notifyMilestone(accountID, streak.CurrentStreak, g.xp, g.gold)
			}
		}
		log.Printf("⌛ [STREAK] %s advanced to day %d", accountID, streak.CurrentStreak)
	}
	return &streak, nil
}

// milestoneGrant carries an in-transaction bonus result to the post-commit
// notification.
type milestoneGrant struct {
	xp, gold int64
	credit   *CreditResult
	applied  bool
}

func (s *StreakService) notifyMilestone(accountID string, streakValue int, xp, gold int64) {
	if s.Notify == nil {
		return
	}
	_ = s.Notify.Emit(accountID, models.NotificationKindMilestone,
		fmt.Sprintf("%d-Day Streak!", streakValue),
		fmt.Sprintf("You logged in %d days in a row", streakValue),
		map[string]any{"streak": streakValue, "xp": xp, "gold": gold},
	)
}

// GetStreak returns the streak record, or a zero-value record for accounts
// that never logged in.
func (s *StreakService) GetStreak(accountID string) (*models.LoginStreak, error) {
	var streak models.LoginStreak
	err := s.DB.Where("account_id = ?", accountID).First(&streak).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.LoginStreak{AccountID: accountID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &streak, nil
}
