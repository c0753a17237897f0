package services

import (
	"errors"
	"fmt"
	"log"

	"rewards-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerService owns every XP/Gold mutation. Balances are changed with
// atomic SQL increments (never fetch-then-write), and every grant carries an
// idempotency key so retried calls cannot double-apply.
type LedgerService struct {
	DB *gorm.DB

	// Optional collaborators, wired in main
	Notify *NotificationService
	Board  *LeaderboardService
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// CreditResult reports the balances after a credit and whether it crossed a
// level threshold.
type CreditResult struct {
	NewXP     int64 `json:"new_xp"`
	NewGold   int64 `json:"new_gold"`
	NewLevel  int   `json:"new_level"`
	LeveledUp bool  `json:"leveled_up"`
}

// EnsureAccount ensures an Account row exists for the external user (idempotent)
func (s *LedgerService) EnsureAccount(externalUserID string) (*models.Account, error) {
	var acct models.Account
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		acct = models.Account{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
		}
		if err := s.DB.Create(&acct).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// lost the race, the row exists now
				err = s.DB.Where("external_user_id = ?", externalUserID).First(&acct).Error
			}
			if err != nil {
				return nil, err
			}
		}
		return &acct, nil
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// Credit applies non-negative XP/Gold deltas to an account. grantKey makes
// the call idempotent: the first application records its result in a
// RewardGrant row and every retry with the same key returns that recorded
// result untouched. An empty grantKey skips dedup (trusted internal callers).
func (s *LedgerService) Credit(accountID string, xpDelta, goldDelta int64, grantKey string) (*CreditResult, error) {
	var res *CreditResult
	var applied bool
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		res, applied, err = s.creditTx(tx, accountID, xpDelta, goldDelta, grantKey)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && grantKey != "" {
			// Concurrent submission of the same key: the other writer won and
			// this transaction rolled back. Return its recorded result.
			var prior models.RewardGrant
			if readErr := s.DB.Where("account_id = ? AND grant_key = ?", accountID, grantKey).First(&prior).Error; readErr != nil {
				return nil, readErr
			}
			return resultFromGrant(&prior), nil
		}
		return nil, err
	}

	s.settleCredit(accountID, res, applied)
	return res, nil
}

// creditTx is the transactional core of Credit, exposed so reward-granting
// services can run the grant inside the same transaction as the state change
// that earned it. The completion flag and the payout then commit or roll back
// together. Returns whether the deltas were applied; false means the grant key
// was already consumed and res carries the recorded result. The caller must
// invoke settleCredit after its transaction commits.
func (s *LedgerService) creditTx(tx *gorm.DB, accountID string, xpDelta, goldDelta int64, grantKey string) (*CreditResult, bool, error) {
	if xpDelta < 0 || goldDelta < 0 {
		return nil, false, models.ErrNegativeDelta
	}

	if grantKey != "" {
		var prior models.RewardGrant
		err := tx.Where("account_id = ? AND grant_key = ?", accountID, grantKey).First(&prior).Error
		if err == nil {
			return resultFromGrant(&prior), false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
	}

	update := tx.Model(&models.Account{}).
		Where("id = ?", accountID).
		UpdateColumns(map[string]any{
			"xp":   gorm.Expr("xp + ?", xpDelta),
			"gold": gorm.Expr("gold + ?", goldDelta),
		})
	if update.Error != nil {
		return nil, false, update.Error
	}
	if update.RowsAffected == 0 {
		return nil, false, models.ErrNotFound
	}

	// The update's row lock is held until commit, so this read observes
	// exactly this credit's post-increment balance.
	var acct models.Account
	if err := tx.Where("id = ?", accountID).First(&acct).Error; err != nil {
		return nil, false, err
	}

	newLevel := Level(acct.XP)
	res := &CreditResult{
		NewXP:     acct.XP,
		NewGold:   acct.Gold,
		NewLevel:  newLevel,
		LeveledUp: newLevel > Level(acct.XP-xpDelta),
	}

	if grantKey != "" {
		grant := models.RewardGrant{
			ID:         uuid.NewString(),
			AccountID:  accountID,
			GrantKey:   grantKey,
			XPDelta:    xpDelta,
			GoldDelta:  goldDelta,
			XPAfter:    res.NewXP,
			GoldAfter:  res.NewGold,
			LevelAfter: res.NewLevel,
			LeveledUp:  res.LeveledUp,
		}
		if err := tx.Create(&grant).Error; err != nil {
			return nil, false, err
		}
	}
	return res, true, nil
}

// settleCredit runs the post-commit side effects of an applied credit.
// Callers of creditTx call this once their own transaction has committed;
// replayed credits settle as no-ops.
func (s *LedgerService) settleCredit(accountID string, res *CreditResult, applied bool) {
	if !applied {
		return
	}
	log.Printf("💰 [LEDGER] Credited account %s: now %d XP, %d Gold (level %d)", accountID, res.NewXP, res.NewGold, res.NewLevel)
	s.afterCredit(accountID, res)
}

// afterCredit fans out side effects that must not hold the credit transaction
// open: level-up notification and leaderboard score bump.
func (s *LedgerService) afterCredit(accountID string, res *CreditResult) {
	if res.LeveledUp && s.Notify != nil {
		_ = s.Notify.Emit(accountID, models.NotificationKindLevelUp,
			"Level Up!",
			fmt.Sprintf("You reached level %d", res.NewLevel),
			map[string]any{"level": res.NewLevel, "xp": res.NewXP, "targetXP": TargetXP(res.NewLevel)},
		)
	}
	if s.Board != nil {
		if err := s.Board.SetScore(accountID, res.NewXP); err != nil {
			log.Printf("⚠️ [LEDGER] leaderboard update failed for %s: %v", accountID, err)
		}
	}
}

// DebitGold spends gold atomically; the conditional update guarantees the
// balance can never go negative even under concurrent spends.
func (s *LedgerService) DebitGold(accountID string, amount int64) error {
	if amount < 0 {
		return models.ErrNegativeDelta
	}
	return s.debitGoldTx(s.DB, accountID, amount)
}

func (s *LedgerService) debitGoldTx(tx *gorm.DB, accountID string, amount int64) error {
	update := tx.Model(&models.Account{}).
		Where("id = ? AND gold >= ?", accountID, amount).
		UpdateColumn("gold", gorm.Expr("gold - ?", amount))
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		var acct models.Account
		if err := tx.Where("id = ?", accountID).First(&acct).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return err
		}
		return models.ErrInsufficientGold
	}
	return nil
}

// Stats returns the UI-facing progression snapshot for an account.
func (s *LedgerService) Stats(accountID string) (*UserStats, error) {
	var acct models.Account
	if err := s.DB.Where("id = ?", accountID).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	level := Level(acct.XP)
	return &UserStats{
		CurrentXP:    acct.XP,
		CurrentLevel: level,
		TotalGold:    acct.Gold,
		TargetXP:     TargetXP(level),
	}, nil
}

// UserStats is the shape the presentation layer renders.
type UserStats struct {
	CurrentXP    int64 `json:"currentXP"`
	CurrentLevel int   `json:"currentLevel"`
	TotalGold    int64 `json:"totalGold"`
	TargetXP     int64 `json:"targetXP"`
}

func resultFromGrant(g *models.RewardGrant) *CreditResult {
	return &CreditResult{
		NewXP:     g.XPAfter,
		NewGold:   g.GoldAfter,
		NewLevel:  g.LevelAfter,
		LeveledUp: g.LeveledUp,
	}
}
