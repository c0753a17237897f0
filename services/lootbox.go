package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"rewards-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LootBoxService resolves purchased boxes into reward sets via weighted
// random draws.
type LootBoxService struct {
	DB     *gorm.DB
	Ledger *LedgerService
	Notify *NotificationService
}

func NewLootBoxService(db *gorm.DB, ledger *LedgerService, notify *NotificationService) *LootBoxService {
	return &LootBoxService{DB: db, Ledger: ledger, Notify: notify}
}

// Purchase debits the box cost and creates an unopened instance, both in one
// transaction — a failed debit leaves no orphan box, a failed insert refunds
// the gold by rollback.
func (s *LootBoxService) Purchase(accountID, definitionID string) (*models.LootBoxInstance, error) {
	var def models.LootBoxDefinition
	if err := s.DB.Where("id = ?", definitionID).First(&def).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	instance := models.LootBoxInstance{
		ID:           uuid.NewString(),
		DefinitionID: def.ID,
		AccountID:    accountID,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.Ledger.debitGoldTx(tx, accountID, def.Cost); err != nil {
			return err
		}
		return tx.Create(&instance).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("📦 [LOOT] %s purchased %q for %d gold (instance %s)", accountID, def.Name, def.Cost, instance.ID)
	return &instance, nil
}

// Open resolves an unopened instance: RewardCount independent weighted draws
// over the definition's reward table. The instance flips to opened exactly
// once; XP/Gold payouts go through the ledger keyed on the instance id.
func (s *LootBoxService) Open(instanceID string) ([]models.OpenedReward, error) {
	var instance models.LootBoxInstance
	var def models.LootBoxDefinition
	var drawn []models.OpenedReward
	var credit *CreditResult
	var applied bool

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", instanceID).First(&instance).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return err
		}
		if instance.Opened {
			return models.ErrAlreadyOpened
		}

		if err := tx.Preload("PossibleRewards").Where("id = ?", instance.DefinitionID).First(&def).Error; err != nil {
			return err
		}
		if len(def.PossibleRewards) == 0 {
			return fmt.Errorf("loot box definition %s has no rewards", def.ID)
		}

		count := def.RewardCount
		if count < 1 {
			count = 1
		}
		for i := 0; i < count; i++ {
			picked := drawWeighted(def.PossibleRewards)
			drawn = append(drawn, models.OpenedReward{
				Kind:     picked.Kind,
				Amount:   picked.Amount,
				ItemCode: picked.ItemCode,
			})
		}

		now := time.Now()
		instance.Opened = true
		instance.OpenedAt = &now
		instance.OpenedRewards = drawn
		if err := tx.Save(&instance).Error; err != nil {
			return err
		}

		// Currency rewards go through the ledger in this same transaction;
		// a failed grant re-seals the box by rollback. Item rewards live in
		// the payload only.
		var xp, gold int64
		for _, r := range drawn {
			switch r.Kind {
			case models.RewardKindXP:
				xp += r.Amount
			case models.RewardKindGold:
				gold += r.Amount
			}
		}
		if xp > 0 || gold > 0 {
			key := fmt.Sprintf("lootbox:%s", instance.ID)
			var err error
			credit, applied, err = s.Ledger.creditTx(tx, instance.AccountID, xp, gold, key)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Ledger.settleCredit(instance.AccountID, credit, applied)
	if s.Notify != nil {
		_ = s.Notify.Emit(instance.AccountID, models.NotificationKindLoot,
			fmt.Sprintf("%s opened!", def.Name),
			fmt.Sprintf("You got %d reward(s)", len(drawn)),
			map[string]any{"instanceId": instance.ID, "rewards": drawn},
		)
	}
	return drawn, nil
}

// drawWeighted picks one reward with probability weight_i / Σweight_j.
// Non-positive weights are skipped so a single bad config row cannot sink
// the whole table.
func drawWeighted(rewards []models.LootReward) models.LootReward {
	var total int64
	for _, r := range rewards {
		if r.Weight > 0 {
			total += r.Weight
		}
	}
	if total <= 0 {
		return rewards[0]
	}
	roll := rand.Int64N(total)
	for _, r := range rewards {
		if r.Weight <= 0 {
			continue
		}
		if roll < r.Weight {
			return r
		}
		roll -= r.Weight
	}
	return rewards[len(rewards)-1]
}

// ListDefinitions returns the purchasable catalog.
func (s *LootBoxService) ListDefinitions() ([]models.LootBoxDefinition, error) {
	var defs []models.LootBoxDefinition
	err := s.DB.Preload("PossibleRewards").Order("cost ASC").Find(&defs).Error
	return defs, err
}

// ListInstances returns an account's boxes, unopened first.
func (s *LootBoxService) ListInstances(accountID string) ([]models.LootBoxInstance, error) {
	var instances []models.LootBoxInstance
	err := s.DB.Where("account_id = ?", accountID).
		Order("opened ASC, created_at DESC").
		Find(&instances).Error
	return instances, err
}
