package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"rewards-engine/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// GuildLevelThresholds maps guild total XP to the guild's level. Independent
// of the per-account table: guilds pool many members and grow far faster.
var GuildLevelThresholds = []int64{0, 1000, 5000, 15000, 40000, 100000, 250000, 500000, 1000000}

func guildLevel(totalXP int64) int {
	level := 0
	for _, t := range GuildLevelThresholds {
		if totalXP >= t {
			level++
		} else {
			break
		}
	}
	if level < 1 {
		level = 1
	}
	return level
}

var guildNameCaser = cases.Title(language.English)

// GuildService manages guilds, memberships, XP aggregation and time-boxed
// guild challenges. The aggregation invariant — guild total_xp equals the sum
// of member contributions, total_members equals the membership count — is
// maintained inside single transactions.
type GuildService struct {
	DB     *gorm.DB
	Ledger *LedgerService
	Notify *NotificationService
}

func NewGuildService(db *gorm.DB, ledger *LedgerService, notify *NotificationService) *GuildService {
	return &GuildService{DB: db, Ledger: ledger, Notify: notify}
}

// CreateGuild creates a guild led by leaderID with a zero-contribution
// leader membership. Names are unique case-insensitively.
func (s *GuildService) CreateGuild(leaderID, name string) (*models.Guild, error) {
	name = guildNameCaser.String(strings.TrimSpace(name))
	if name == "" {
		return nil, models.ErrNotFound
	}

	var guild models.Guild
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Guild{}).Where("LOWER(name) = LOWER(?)", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return models.ErrGuildNameTaken
		}

		if err := tx.Model(&models.GuildMembership{}).Where("account_id = ?", leaderID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return models.ErrAlreadyInGuild
		}

		guild = models.Guild{
			ID:              uuid.NewString(),
			Name:            name,
			Slug:            slug.Make(name),
			LeaderAccountID: leaderID,
			TotalMembers:    1,
			Level:           1,
		}
		if err := tx.Create(&guild).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return models.ErrGuildNameTaken
			}
			return err
		}

		membership := models.GuildMembership{
			ID:        uuid.NewString(),
			GuildID:   guild.ID,
			AccountID: leaderID,
		}
		if err := tx.Create(&membership).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return models.ErrAlreadyInGuild
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🏰 [GUILD] Created guild %q (%s) led by %s", guild.Name, guild.ID, leaderID)
	return &guild, nil
}

// JoinGuild adds the account to the guild. An account can belong to at most
// one guild across the platform.
func (s *GuildService) JoinGuild(accountID, guildID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var guild models.Guild
		if err := tx.Where("id = ?", guildID).First(&guild).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.GuildMembership{}).Where("account_id = ?", accountID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return models.ErrAlreadyInGuild
		}

		membership := models.GuildMembership{
			ID:        uuid.NewString(),
			GuildID:   guildID,
			AccountID: accountID,
		}
		if err := tx.Create(&membership).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return models.ErrAlreadyInGuild
			}
			return err
		}

		return tx.Model(&models.Guild{}).
			Where("id = ?", guildID).
			UpdateColumn("total_members", gorm.Expr("total_members + 1")).Error
	})
}

// LeaveGuild removes the membership. The departing member's contribution is
// subtracted from the guild total in the same transaction so the aggregation
// invariant holds against the remaining rows.
func (s *GuildService) LeaveGuild(accountID, guildID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var membership models.GuildMembership
		if err := tx.Where("account_id = ? AND guild_id = ?", accountID, guildID).First(&membership).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotInGuild
			}
			return err
		}

		if err := tx.Delete(&membership).Error; err != nil {
			return err
		}

		return tx.Model(&models.Guild{}).
			Where("id = ?", guildID).
			UpdateColumns(map[string]any{
				"total_members": gorm.Expr("total_members - 1"),
				"total_xp":      gorm.Expr("total_xp - ?", membership.ContributionXP),
			}).Error
	})
}

// ContributeXP adds amount to the account's contribution and the parent
// guild's total in one transaction — partial application is never observable.
func (s *GuildService) ContributeXP(accountID string, amount int64) error {
	if amount < 0 {
		return models.ErrNegativeDelta
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var membership models.GuildMembership
		if err := tx.Where("account_id = ?", accountID).First(&membership).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotInGuild
			}
			return err
		}

		if err := tx.Model(&models.GuildMembership{}).
			Where("id = ?", membership.ID).
			UpdateColumn("contribution_xp", gorm.Expr("contribution_xp + ?", amount)).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Guild{}).
			Where("id = ?", membership.GuildID).
			UpdateColumn("total_xp", gorm.Expr("total_xp + ?", amount)).Error; err != nil {
			return err
		}

		// Re-derive guild level from the new total
		var guild models.Guild
		if err := tx.Where("id = ?", membership.GuildID).First(&guild).Error; err != nil {
			return err
		}
		newLevel := guildLevel(guild.TotalXP)
		if newLevel != guild.Level {
			if err := tx.Model(&models.Guild{}).Where("id = ?", guild.ID).UpdateColumn("level", newLevel).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateChallenge opens a time-boxed XP target for a guild.
func (s *GuildService) CreateChallenge(guildID, title string, targetXP, rewardXP, rewardGold int64, start, end time.Time) (*models.GuildChallenge, error) {
	var count int64
	if err := s.DB.Model(&models.Guild{}).Where("id = ?", guildID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, models.ErrNotFound
	}

	ch := models.GuildChallenge{
		ID:         uuid.NewString(),
		GuildID:    guildID,
		Title:      title,
		TargetXP:   targetXP,
		RewardXP:   rewardXP,
		RewardGold: rewardGold,
		StartDate:  start,
		EndDate:    end,
	}
	if err := s.DB.Create(&ch).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

// AdvanceChallenge adds progress toward a challenge's target, clamped at the
// target. Progress outside [start, end) is rejected. Crossing the target
// completes the challenge exactly once and pays every current guild member;
// each member's payout is keyed on the challenge id so retries never
// double-grant.
func (s *GuildService) AdvanceChallenge(challengeID string, amount int64, now time.Time) (*models.GuildChallenge, error) {
	if amount < 0 {
		return nil, models.ErrNegativeDelta
	}

	var ch models.GuildChallenge
	var completedNow bool
	var payouts []challengePayout
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", challengeID).First(&ch).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return err
		}

		if now.Before(ch.StartDate) || !now.Before(ch.EndDate) {
			return models.ErrChallengeClosed
		}
		if ch.Completed {
			return nil // target already hit, nothing more to count
		}

		// Statement-level increment: concurrent advances stack instead of
		// overwriting each other, and a completed row stops accruing.
		inc := tx.Model(&models.GuildChallenge{}).
			Where("id = ? AND completed = ?", challengeID, false).
			Update("current_xp", gorm.Expr("current_xp + ?", amount))
		if inc.Error != nil {
			return inc.Error
		}
		if err := tx.Where("id = ?", challengeID).First(&ch).Error; err != nil {
			return err
		}
		if inc.RowsAffected == 0 || ch.CurrentXP < ch.TargetXP {
			return nil
		}

		stamp := tx.Model(&models.GuildChallenge{}).
			Where("id = ? AND completed = ?", challengeID, false).
			Updates(map[string]any{
				"current_xp":   ch.TargetXP,
				"completed":    true,
				"completed_at": now,
			})
		if stamp.Error != nil {
			return stamp.Error
		}
		if stamp.RowsAffected == 0 {
			return nil // another writer crossed the target first
		}
		ch.CurrentXP = ch.TargetXP
		ch.Completed = true
		t := now
		ch.CompletedAt = &t
		completedNow = true

		// Pay every current member in this same transaction: the completion
		// stamp and all payouts commit or roll back as one, and each payout
		// is keyed per (challenge, member) so a retry never double-grants.
		var memberships []models.GuildMembership
		if err := tx.Where("guild_id = ?", ch.GuildID).Find(&memberships).Error; err != nil {
			return err
		}
		for _, m := range memberships {
			key := fmt.Sprintf("challenge:%s:%s", ch.ID, m.AccountID)
			credit, applied, err := s.Ledger.creditTx(tx, m.AccountID, ch.RewardXP, ch.RewardGold, key)
			if err != nil {
				return err
			}
			payouts = append(payouts, challengePayout{accountID: m.AccountID, credit: credit, applied: applied})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completedNow {
		for _, p := range payouts {
			s.Ledger.settleCredit(p.accountID, p.credit, p.applied)
			if s.Notify != nil {
				_ = s.Notify.Emit(p.accountID, models.NotificationKindChallenge,
					"Guild Challenge Complete!",
					fmt.Sprintf("Your guild finished %q", ch.Title),
					map[string]any{"challengeId": ch.ID, "xp": ch.RewardXP, "gold": ch.RewardGold},
				)
			}
		}
		log.Printf("🏆 [GUILD] Challenge %q completed — paid %d member(s)", ch.Title, len(payouts))
	}
	return &ch, nil
}

// challengePayout carries one member's in-transaction grant result to the
// post-commit side effects.
type challengePayout struct {
	accountID string
	credit    *CreditResult
	applied   bool
}

// GetGuild returns the guild with its roster.
func (s *GuildService) GetGuild(guildID string) (*models.Guild, []models.GuildMembership, error) {
	var guild models.Guild
	if err := s.DB.Where("id = ?", guildID).First(&guild).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, models.ErrNotFound
		}
		return nil, nil, err
	}
	var members []models.GuildMembership
	if err := s.DB.Where("guild_id = ?", guildID).Order("contribution_xp DESC").Find(&members).Error; err != nil {
		return nil, nil, err
	}
	return &guild, members, nil
}

// CloseExpiredChallenges is run by the scheduler: challenges past their end
// date that never hit the target stop accepting progress implicitly (the
// window check), this just logs them once for operators.
func (s *GuildService) CloseExpiredChallenges(now time.Time) (int64, error) {
	var expired []models.GuildChallenge
	err := s.DB.Where("completed = ? AND end_date <= ?", false, now).Find(&expired).Error
	if err != nil {
		return 0, err
	}
	for _, ch := range expired {
		log.Printf("⌛ [GUILD] Challenge %q (%s) expired at %d/%d XP", ch.Title, ch.ID, ch.CurrentXP, ch.TargetXP)
	}
	return int64(len(expired)), nil
}
